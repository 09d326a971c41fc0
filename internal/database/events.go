package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"doorbell-hub/internal/types"
)

// EventFilter narrows event queries. Zero-value fields are ignored.
type EventFilter struct {
	Type   string
	UserID string
	Since  *time.Time
	Until  *time.Time
	Limit  int
}

// InsertEvent stores a new event. The insert is a single statement, so it is
// atomic: either the full row is durable or nothing is. Sets event.ID.
func (db *DB) InsertEvent(event *types.Event) error {
	var encryptedMetadata sql.NullString
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		encrypted, err := db.Encrypt(raw)
		if err != nil {
			return fmt.Errorf("failed to encrypt metadata: %w", err)
		}
		encryptedMetadata = sql.NullString{String: encrypted, Valid: true}
	}

	query := `
		INSERT INTO events (event_type, timestamp, location, home_mode, user_id, metadata, notification_sent, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query,
		event.Type,
		event.Timestamp,
		event.Location,
		event.HomeMode,
		nullString(event.UserID),
		encryptedMetadata,
		event.NotificationSent,
		event.Processed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	event.ID = id
	return nil
}

// QueryEvents returns events matching the filter, newest first. Ties on
// timestamp break on id descending so pagination stays deterministic.
func (db *DB) QueryEvents(filter EventFilter) ([]types.Event, error) {
	query := `
		SELECT e.id, e.event_type, e.timestamp, e.location, e.home_mode, e.user_id,
		       e.metadata, e.notification_sent, e.processed, p.filename
		FROM events e
		LEFT JOIN photos p ON p.event_id = e.id
		WHERE 1=1
	`
	var args []interface{}

	if filter.Type != "" {
		query += " AND e.event_type = ?"
		args = append(args, filter.Type)
	}
	if filter.UserID != "" {
		query += " AND e.user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Since != nil {
		query += " AND e.timestamp >= ?"
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += " AND e.timestamp <= ?"
		args = append(args, *filter.Until)
	}

	query += " ORDER BY e.timestamp DESC, e.id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		event, err := db.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

// GetEvent returns a single event by id
func (db *DB) GetEvent(id int64) (*types.Event, error) {
	query := `
		SELECT e.id, e.event_type, e.timestamp, e.location, e.home_mode, e.user_id,
		       e.metadata, e.notification_sent, e.processed, p.filename
		FROM events e
		LEFT JOIN photos p ON p.event_id = e.id
		WHERE e.id = ?
	`
	rows, err := db.conn.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query event %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query event %d: %w", id, err)
		}
		return nil, sql.ErrNoRows
	}

	event, err := db.scanEvent(rows)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// MarkEventProcessed sets the notification_sent and processed flags. The
// update is idempotent: repeating it with the same arguments changes nothing.
func (db *DB) MarkEventProcessed(id int64, notificationSent bool) error {
	query := `UPDATE events SET notification_sent = ?, processed = TRUE WHERE id = ?`
	if _, err := db.conn.Exec(query, notificationSent, id); err != nil {
		return fmt.Errorf("failed to mark event %d processed: %w", id, err)
	}
	return nil
}

// EventStats returns per-type event counts over the last N days
func (db *DB) EventStats(days int) (map[string]int, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM events
		WHERE timestamp >= ?
		GROUP BY event_type
	`
	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := db.conn.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query event stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats[eventType] = count
	}

	return stats, rows.Err()
}

// UnarchivedEvents returns processed events not yet replicated to the cloud
// archive, oldest first.
func (db *DB) UnarchivedEvents(limit int) ([]types.Event, error) {
	query := `
		SELECT e.id, e.event_type, e.timestamp, e.location, e.home_mode, e.user_id,
		       e.metadata, e.notification_sent, e.processed, p.filename
		FROM events e
		LEFT JOIN photos p ON p.event_id = e.id
		WHERE e.archived_at IS NULL AND e.processed = TRUE
		ORDER BY e.timestamp ASC, e.id ASC
		LIMIT ?
	`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unarchived events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		event, err := db.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// MarkEventsArchived records successful cloud replication
func (db *DB) MarkEventsArchived(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`
		UPDATE events SET archived_at = CURRENT_TIMESTAMP WHERE id IN (%s)
	`, generatePlaceholders(len(ids)))

	if _, err := db.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to mark events archived: %w", err)
	}
	return nil
}

func (db *DB) scanEvent(rows *sql.Rows) (types.Event, error) {
	var event types.Event
	var userID, metadata, photoFilename sql.NullString

	err := rows.Scan(
		&event.ID,
		&event.Type,
		&event.Timestamp,
		&event.Location,
		&event.HomeMode,
		&userID,
		&metadata,
		&event.NotificationSent,
		&event.Processed,
		&photoFilename,
	)
	if err != nil {
		return types.Event{}, fmt.Errorf("failed to scan event row: %w", err)
	}

	event.UserID = userID.String
	event.PhotoFilename = photoFilename.String

	if metadata.Valid {
		decrypted, err := db.Decrypt(metadata.String)
		if err != nil {
			return types.Event{}, fmt.Errorf("failed to decrypt metadata for event %d: %w", event.ID, err)
		}
		if err := json.Unmarshal(decrypted, &event.Metadata); err != nil {
			return types.Event{}, fmt.Errorf("failed to unmarshal metadata for event %d: %w", event.ID, err)
		}
	}

	return event, nil
}

// generatePlaceholders creates a string of SQL placeholders (?, ?, ?)
func generatePlaceholders(count int) string {
	if count == 0 {
		return ""
	}

	result := "?"
	for i := 1; i < count; i++ {
		result += ", ?"
	}
	return result
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
