package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"doorbell-hub/internal/types"
)

// User represents an account row
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string
	PhoneNumber  string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// CreateUser inserts a new account with default notification preferences
func (db *DB) CreateUser(user *User) error {
	prefs, err := json.Marshal(types.DefaultPreferences())
	if err != nil {
		return fmt.Errorf("failed to marshal default preferences: %w", err)
	}

	query := `
		INSERT INTO users (id, username, password_hash, email, phone_number, preferences, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.conn.Exec(query,
		user.ID,
		user.Username,
		user.PasswordHash,
		nullString(user.Email),
		nullString(user.PhoneNumber),
		string(prefs),
		user.IsActive,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByUsername returns the account with the given username, or
// sql.ErrNoRows if none exists.
func (db *DB) GetUserByUsername(username string) (*User, error) {
	query := `
		SELECT id, username, password_hash, email, phone_number, is_active, created_at, last_login
		FROM users
		WHERE username = ?
	`
	return db.scanUser(db.conn.QueryRow(query, username))
}

// GetUserByID returns the account with the given id, or sql.ErrNoRows
func (db *DB) GetUserByID(id string) (*User, error) {
	query := `
		SELECT id, username, password_hash, email, phone_number, is_active, created_at, last_login
		FROM users
		WHERE id = ?
	`
	return db.scanUser(db.conn.QueryRow(query, id))
}

func (db *DB) scanUser(row *sql.Row) (*User, error) {
	var user User
	var email, phone sql.NullString
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&email,
		&phone,
		&user.IsActive,
		&user.CreatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}

	user.Email = email.String
	user.PhoneNumber = phone.String
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return &user, nil
}

// UpdateLastLogin stamps the account's most recent login time
func (db *DB) UpdateLastLogin(userID string, when time.Time) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`
	if _, err := db.conn.Exec(query, when, userID); err != nil {
		return fmt.Errorf("failed to update last login for user %s: %w", userID, err)
	}
	return nil
}

// GetPreferences loads a user's notification preferences. Missing or
// malformed stored preferences fall back to the defaults.
func (db *DB) GetPreferences(userID string) (*types.Preferences, error) {
	query := `SELECT preferences FROM users WHERE id = ?`

	var raw sql.NullString
	if err := db.conn.QueryRow(query, userID).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to load preferences for user %s: %w", userID, err)
	}

	prefs := types.DefaultPreferences()
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), prefs); err != nil {
			return types.DefaultPreferences(), nil
		}
	}

	return prefs, nil
}

// SavePreferences persists a user's notification preferences
func (db *DB) SavePreferences(userID string, prefs *types.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	query := `UPDATE users SET preferences = ? WHERE id = ?`
	result, err := db.conn.Exec(query, string(raw), userID)
	if err != nil {
		return fmt.Errorf("failed to save preferences for user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s not found", userID)
	}

	return nil
}

// UpsertDeviceToken registers a push token for a user. An existing row
// for the same token is reassigned and reactivated.
func (db *DB) UpsertDeviceToken(userID, token, platform string) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform, is_active, created_at, last_used)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			user_id = excluded.user_id,
			platform = excluded.platform,
			is_active = 1,
			last_used = excluded.last_used
	`

	now := time.Now().UTC()
	if _, err := db.conn.Exec(query, userID, token, platform, now, now); err != nil {
		return fmt.Errorf("failed to upsert device token: %w", err)
	}
	return nil
}

// ActiveDeviceTokens returns a user's active push tokens, most recently
// used first.
func (db *DB) ActiveDeviceTokens(userID string) ([]string, error) {
	query := `
		SELECT token FROM device_tokens
		WHERE user_id = ? AND is_active = 1
		ORDER BY last_used DESC
	`

	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}
