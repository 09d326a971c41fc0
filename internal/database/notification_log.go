package database

import (
	"database/sql"
	"fmt"

	"doorbell-hub/internal/types"
)

// InsertAttempt records a notification delivery attempt, setting attempt.ID
func (db *DB) InsertAttempt(attempt *types.NotificationAttempt) error {
	query := `
		INSERT INTO notification_log (event_id, user_id, channel, recipient, subject, message, sent_at, status, error_message, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var eventID sql.NullInt64
	if attempt.EventID != 0 {
		eventID = sql.NullInt64{Int64: attempt.EventID, Valid: true}
	}

	result, err := db.conn.Exec(query,
		eventID,
		nullString(attempt.UserID),
		attempt.Channel,
		attempt.Recipient,
		attempt.Subject,
		attempt.Message,
		attempt.SentAt,
		attempt.Status,
		nullString(attempt.Error),
		attempt.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	attempt.ID = id
	return nil
}

// RetriableAttempts returns failed attempts still under the retry ceiling,
// oldest first.
func (db *DB) RetriableAttempts(maxRetries int) ([]types.NotificationAttempt, error) {
	query := `
		SELECT id, event_id, user_id, channel, recipient, subject, message, sent_at, status, error_message, retry_count
		FROM notification_log
		WHERE status = 'failed' AND retry_count < ?
		ORDER BY sent_at ASC, id ASC
	`

	rows, err := db.conn.Query(query, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to query retriable attempts: %w", err)
	}
	defer rows.Close()

	var attempts []types.NotificationAttempt
	for rows.Next() {
		var attempt types.NotificationAttempt
		var eventID sql.NullInt64
		var userID, errMsg sql.NullString

		err := rows.Scan(
			&attempt.ID,
			&eventID,
			&userID,
			&attempt.Channel,
			&attempt.Recipient,
			&attempt.Subject,
			&attempt.Message,
			&attempt.SentAt,
			&attempt.Status,
			&errMsg,
			&attempt.RetryCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}

		attempt.EventID = eventID.Int64
		attempt.UserID = userID.String
		attempt.Error = errMsg.String
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

// IncrementAttemptRetry bumps the retry counter for an attempt
func (db *DB) IncrementAttemptRetry(id int64) error {
	query := `UPDATE notification_log SET retry_count = retry_count + 1 WHERE id = ?`
	if _, err := db.conn.Exec(query, id); err != nil {
		return fmt.Errorf("failed to increment retry count for attempt %d: %w", id, err)
	}
	return nil
}

// UpdateAttemptStatus transitions an attempt to a new delivery status
func (db *DB) UpdateAttemptStatus(id int64, status, errorMessage string) error {
	query := `UPDATE notification_log SET status = ?, error_message = ? WHERE id = ?`
	if _, err := db.conn.Exec(query, status, nullString(errorMessage), id); err != nil {
		return fmt.Errorf("failed to update status for attempt %d: %w", id, err)
	}
	return nil
}

// AttemptsForEvent returns all delivery attempts recorded for an event
func (db *DB) AttemptsForEvent(eventID int64) ([]types.NotificationAttempt, error) {
	query := `
		SELECT id, event_id, user_id, channel, recipient, subject, message, sent_at, status, error_message, retry_count
		FROM notification_log
		WHERE event_id = ?
		ORDER BY id ASC
	`

	rows, err := db.conn.Query(query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var attempts []types.NotificationAttempt
	for rows.Next() {
		var attempt types.NotificationAttempt
		var evID sql.NullInt64
		var userID, errMsg sql.NullString

		err := rows.Scan(
			&attempt.ID,
			&evID,
			&userID,
			&attempt.Channel,
			&attempt.Recipient,
			&attempt.Subject,
			&attempt.Message,
			&attempt.SentAt,
			&attempt.Status,
			&errMsg,
			&attempt.RetryCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}

		attempt.EventID = evID.Int64
		attempt.UserID = userID.String
		attempt.Error = errMsg.String
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}
