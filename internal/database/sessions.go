package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Session represents an authenticated session row
type Session struct {
	ID        int64
	SessionID string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsActive  bool
}

// CreateSession inserts a new session row
func (db *DB) CreateSession(session *Session) error {
	query := `
		INSERT INTO sessions (session_id, user_id, created_at, expires_at, is_active)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query,
		session.SessionID,
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt,
		session.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	session.ID = id
	return nil
}

// GetSession returns the session with the given session id, or
// sql.ErrNoRows if none exists.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	query := `
		SELECT id, session_id, user_id, created_at, expires_at, is_active
		FROM sessions
		WHERE session_id = ?
	`

	var session Session
	err := db.conn.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.SessionID,
		&session.UserID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.IsActive,
	)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// InvalidateSession deactivates a single session
func (db *DB) InvalidateSession(sessionID string) error {
	query := `UPDATE sessions SET is_active = 0 WHERE session_id = ?`
	if _, err := db.conn.Exec(query, sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// DeactivateExpiredSessions marks all sessions past their expiry as
// inactive and returns how many were affected.
func (db *DB) DeactivateExpiredSessions(now time.Time) (int64, error) {
	query := `UPDATE sessions SET is_active = 0 WHERE is_active = 1 AND expires_at < ?`

	result, err := db.conn.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}

	return affected, nil
}

// SessionValid reports whether an active, unexpired session exists
func (db *DB) SessionValid(sessionID string, now time.Time) (bool, error) {
	session, err := db.GetSession(sessionID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return session.IsActive && session.ExpiresAt.After(now), nil
}
