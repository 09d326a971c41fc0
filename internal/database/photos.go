package database

import (
	"database/sql"
	"fmt"
	"time"

	"doorbell-hub/internal/types"
)

// InsertPhoto stores a photo artifact record, setting photo.ID. The event_id
// column stays NULL until AttachPhotoToEvent links the artifact.
func (db *DB) InsertPhoto(photo *types.PhotoArtifact) error {
	query := `
		INSERT INTO photos (filename, timestamp, trigger_source, location, is_simulated, event_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			timestamp = excluded.timestamp,
			trigger_source = excluded.trigger_source,
			location = excluded.location,
			is_simulated = excluded.is_simulated
	`

	var eventID sql.NullInt64
	if photo.EventID != 0 {
		eventID = sql.NullInt64{Int64: photo.EventID, Valid: true}
	}

	result, err := db.conn.Exec(query,
		photo.Filename,
		photo.Timestamp,
		photo.TriggerSource,
		photo.Location,
		photo.Simulated,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	photo.ID = id
	return nil
}

// AttachPhotoToEvent sets the owning event for a photo artifact
func (db *DB) AttachPhotoToEvent(photoID, eventID int64) error {
	query := `UPDATE photos SET event_id = ? WHERE id = ?`
	if _, err := db.conn.Exec(query, eventID, photoID); err != nil {
		return fmt.Errorf("failed to attach photo %d to event %d: %w", photoID, eventID, err)
	}
	return nil
}

// ListPhotos returns photos newest first
func (db *DB) ListPhotos(limit, offset int) ([]types.PhotoArtifact, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, filename, timestamp, trigger_source, location, is_simulated, event_id
		FROM photos
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

// PhotosOlderThan returns photos with a timestamp before the cutoff,
// oldest first, for retention sweeping.
func (db *DB) PhotosOlderThan(cutoff time.Time) ([]types.PhotoArtifact, error) {
	query := `
		SELECT id, filename, timestamp, trigger_source, location, is_simulated, event_id
		FROM photos
		WHERE timestamp < ?
		ORDER BY timestamp ASC
	`

	rows, err := db.conn.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired photos: %w", err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

// DeletePhoto removes a photo record
func (db *DB) DeletePhoto(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM photos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete photo %d: %w", id, err)
	}
	return nil
}

func scanPhotos(rows *sql.Rows) ([]types.PhotoArtifact, error) {
	var photos []types.PhotoArtifact
	for rows.Next() {
		var photo types.PhotoArtifact
		var eventID sql.NullInt64

		err := rows.Scan(
			&photo.ID,
			&photo.Filename,
			&photo.Timestamp,
			&photo.TriggerSource,
			&photo.Location,
			&photo.Simulated,
			&eventID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo row: %w", err)
		}

		photo.EventID = eventID.Int64
		photos = append(photos, photo)
	}

	return photos, rows.Err()
}
