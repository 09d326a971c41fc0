package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/database"
)

// Sweeper deletes photos past the retention window and deactivates
// expired sessions. A failure on one item never stops the pass.
type Sweeper struct {
	db            *database.DB
	photoDir      string
	retention     time.Duration
	sweepInterval time.Duration
	logger        *logrus.Entry
}

// NewSweeper creates a retention sweeper
func NewSweeper(db *database.DB, photoDir string, retention, sweepInterval time.Duration, logger *logrus.Entry) *Sweeper {
	return &Sweeper{
		db:            db,
		photoDir:      photoDir,
		retention:     retention,
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

// Run sweeps once at startup and then on an interval until ctx is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{
		"retention": s.retention.String(),
		"interval":  s.sweepInterval.String(),
	}).Info("Retention sweeper started")

	s.Sweep(ctx, time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now().UTC())
		}
	}
}

// Sweep runs one retention pass relative to now
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	removed := s.sweepPhotos(ctx, now)
	sessions := s.sweepSessions(now)

	s.logger.WithFields(logrus.Fields{
		"photos_removed":       removed,
		"sessions_deactivated": sessions,
	}).Info("Retention sweep completed")
}

func (s *Sweeper) sweepPhotos(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.retention)

	photos, err := s.db.PhotosOlderThan(cutoff)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to list expired photos")
		return 0
	}

	removed := 0
	for _, photo := range photos {
		if err := ctx.Err(); err != nil {
			return removed
		}

		path := filepath.Join(s.photoDir, photo.Filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WithFields(logrus.Fields{
				"filename": photo.Filename,
				"error":    err.Error(),
			}).Warn("Failed to delete photo file, keeping record")
			continue
		}

		if err := s.db.DeletePhoto(photo.ID); err != nil {
			s.logger.WithFields(logrus.Fields{
				"photo_id": photo.ID,
				"error":    err.Error(),
			}).Warn("Failed to delete photo record")
			continue
		}

		removed++
	}

	return removed
}

func (s *Sweeper) sweepSessions(now time.Time) int64 {
	affected, err := s.db.DeactivateExpiredSessions(now)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to deactivate expired sessions")
		return 0
	}
	return affected
}
