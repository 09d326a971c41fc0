package database

import (
	"fmt"
)

// migrate runs database migrations to create the required schema
func (db *DB) migrate() error {
	migrations := []string{
		createEventsTable,
		createPhotosTable,
		createNotificationLogTable,
		createUsersTable,
		createSessionsTable,
		createDeviceTokensTable,
		createIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	return nil
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type TEXT NOT NULL CHECK (event_type IN ('doorbell', 'motion', 'system_alert', 'manual_trigger')),
    timestamp DATETIME NOT NULL,
    location TEXT NOT NULL DEFAULT 'front_door',
    home_mode BOOLEAN NOT NULL DEFAULT TRUE,
    user_id TEXT,
    metadata TEXT, -- Encrypted JSON
    notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
    processed BOOLEAN NOT NULL DEFAULT FALSE,
    archived_at DATETIME NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const createPhotosTable = `
CREATE TABLE IF NOT EXISTS photos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT UNIQUE NOT NULL,
    timestamp DATETIME NOT NULL,
    trigger_source TEXT NOT NULL,
    location TEXT NOT NULL DEFAULT 'front_door',
    is_simulated BOOLEAN NOT NULL DEFAULT FALSE,
    event_id INTEGER NULL REFERENCES events(id) ON DELETE SET NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Events are append-only and never deleted by the retention sweep; the
// ON DELETE SET NULL clauses keep the foreign keys safe should that
// ever change.
const createNotificationLogTable = `
CREATE TABLE IF NOT EXISTS notification_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id INTEGER NULL REFERENCES events(id) ON DELETE SET NULL,
    user_id TEXT,
    channel TEXT NOT NULL CHECK (channel IN ('push', 'email', 'sms')),
    recipient TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    sent_at DATETIME NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending', 'sent', 'failed', 'retrying')),
    error_message TEXT,
    retry_count INTEGER NOT NULL DEFAULT 0
);`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    email TEXT,
    phone_number TEXT,
    preferences TEXT, -- JSON
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    last_login DATETIME NULL
);`

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT UNIQUE NOT NULL,
    user_id TEXT NOT NULL REFERENCES users(id),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    expires_at DATETIME NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);`

const createDeviceTokensTable = `
CREATE TABLE IF NOT EXISTS device_tokens (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL REFERENCES users(id),
    token TEXT UNIQUE NOT NULL,
    platform TEXT NOT NULL DEFAULT 'unknown',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    last_used DATETIME NULL
);`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_processed ON events(processed);
CREATE INDEX IF NOT EXISTS idx_events_archived_at ON events(archived_at);
CREATE INDEX IF NOT EXISTS idx_photos_timestamp ON photos(timestamp);
CREATE INDEX IF NOT EXISTS idx_photos_event_id ON photos(event_id);
CREATE INDEX IF NOT EXISTS idx_notification_log_status ON notification_log(status);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_device_tokens_user_id ON device_tokens(user_id);
`
