package cloud

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/database"
	"doorbell-hub/internal/types"
)

const archiveSchema = `
	CREATE TABLE IF NOT EXISTS doorbell_events (
		id BIGSERIAL PRIMARY KEY,
		source_id BIGINT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		event_time TIMESTAMPTZ NOT NULL,
		location TEXT NOT NULL,
		home_mode BOOLEAN NOT NULL,
		photo_filename TEXT,
		notification_sent BOOLEAN NOT NULL,
		metadata JSONB,
		archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Archiver replicates processed events to a Postgres warehouse in
// batches, then marks them archived locally.
type Archiver struct {
	local     *database.DB
	remote    *sql.DB
	batchSize int
	interval  time.Duration
	logger    *logrus.Entry
}

// NewArchiver opens the warehouse connection and ensures the archive
// table exists.
func NewArchiver(local *database.DB, dsn string, batchSize int, interval time.Duration, logger *logrus.Entry) (*Archiver, error) {
	remote, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	remote.SetMaxOpenConns(5)
	remote.SetConnMaxLifetime(5 * time.Minute)

	if _, err := remote.Exec(archiveSchema); err != nil {
		remote.Close()
		return nil, fmt.Errorf("failed to ensure archive schema: %w", err)
	}

	return &Archiver{
		local:     local,
		remote:    remote,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Close releases the warehouse connection
func (a *Archiver) Close() error {
	return a.remote.Close()
}

// Run archives batches on an interval until ctx is cancelled
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.WithField("interval", a.interval.String()).Info("Cloud archiver started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Cloud archiver stopped")
			return
		case <-ticker.C:
			if err := a.ArchiveBatch(ctx); err != nil {
				a.logger.WithField("error", err.Error()).Warn("Archive batch failed")
			}
		}
	}
}

// ArchiveBatch replicates one batch of processed, unarchived events.
// Local rows are marked archived only after the warehouse transaction
// commits, so a failure re-sends rather than loses events.
func (a *Archiver) ArchiveBatch(ctx context.Context) error {
	events, err := a.local.UnarchivedEvents(a.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load unarchived events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := a.remote.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin warehouse transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO doorbell_events (source_id, event_type, event_time, location, home_mode, photo_filename, notification_sent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(events))
	for _, event := range events {
		metadata, err := marshalMetadata(event)
		if err != nil {
			a.logger.WithField("event_id", event.ID).Warn("Skipping event with unmarshalable metadata")
			continue
		}

		var photo sql.NullString
		if event.PhotoFilename != "" {
			photo = sql.NullString{String: event.PhotoFilename, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			event.ID,
			event.Type,
			event.Timestamp,
			event.Location,
			event.HomeMode,
			photo,
			event.NotificationSent,
			metadata,
		); err != nil {
			return fmt.Errorf("failed to archive event %d: %w", event.ID, err)
		}

		ids = append(ids, event.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive batch: %w", err)
	}

	if err := a.local.MarkEventsArchived(ids); err != nil {
		return fmt.Errorf("failed to mark events archived: %w", err)
	}

	a.logger.WithField("count", len(ids)).Info("Events archived to warehouse")
	return nil
}

func marshalMetadata(event types.Event) ([]byte, error) {
	if len(event.Metadata) == 0 {
		return nil, nil
	}
	return json.Marshal(event.Metadata)
}
