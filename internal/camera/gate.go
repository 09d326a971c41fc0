package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/database"
	"doorbell-hub/internal/types"
)

// ErrBusy is returned by TryCapture when another capture holds the camera
var ErrBusy = errors.New("camera busy")

// CaptureError indicates a capture failed after the camera was acquired
type CaptureError struct {
	Stage string
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed during %s: %v", e.Stage, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Gate serializes camera access. At most one capture runs at a time;
// Capture queues behind the holder, TryCapture fails fast.
type Gate struct {
	device   Device
	db       *database.DB
	photoDir string
	quality  int
	logger   *logrus.Entry

	sem   chan struct{}
	nowFn func() time.Time
}

// NewGate creates a capture gate writing JPEGs under photoDir
func NewGate(device Device, db *database.DB, photoDir string, quality int, logger *logrus.Entry) *Gate {
	return &Gate{
		device:   device,
		db:       db,
		photoDir: photoDir,
		quality:  quality,
		logger:   logger,
		sem:      make(chan struct{}, 1),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Capture grabs, enhances and persists a single frame, waiting for the
// camera if another capture is in flight. Waiting is abandoned when ctx
// is cancelled.
func (g *Gate) Capture(ctx context.Context, trigger, location string) (*types.PhotoArtifact, error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.sem }()

	return g.capture(ctx, trigger, location)
}

// TryCapture is like Capture but returns ErrBusy instead of waiting
func (g *Gate) TryCapture(ctx context.Context, trigger, location string) (*types.PhotoArtifact, error) {
	select {
	case g.sem <- struct{}{}:
	default:
		return nil, ErrBusy
	}
	defer func() { <-g.sem }()

	return g.capture(ctx, trigger, location)
}

func (g *Gate) capture(ctx context.Context, trigger, location string) (*types.PhotoArtifact, error) {
	now := g.nowFn()
	simulated := false

	var frame image.Image
	if g.device != nil && g.device.Available() {
		grabbed, err := g.device.Grab(ctx)
		if err != nil {
			g.logger.WithFields(logrus.Fields{
				"device": g.device.Name(),
				"error":  err.Error(),
			}).Warn("Camera grab failed, falling back to placeholder frame")
			simulated = true
		} else {
			frame = Enhance(grabbed)
		}
	} else {
		simulated = true
	}

	if simulated {
		frame = Placeholder(trigger, location, now)
	}

	filename := fmt.Sprintf("%s_%s.jpg", trigger, now.Format("20060102_150405"))
	path := filepath.Join(g.photoDir, filename)

	if err := g.writeJPEG(path, frame); err != nil {
		return nil, &CaptureError{Stage: "persist", Err: err}
	}

	photo := &types.PhotoArtifact{
		Filename:      filename,
		Timestamp:     now,
		TriggerSource: trigger,
		Location:      location,
		Simulated:     simulated,
	}

	if err := g.db.InsertPhoto(photo); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			g.logger.WithField("path", path).Warn("Failed to remove orphaned photo file")
		}
		return nil, &CaptureError{Stage: "record", Err: err}
	}

	g.logger.WithFields(logrus.Fields{
		"photo_id":  photo.ID,
		"filename":  filename,
		"trigger":   trigger,
		"simulated": simulated,
	}).Info("Photo captured")

	return photo, nil
}

// writeJPEG persists the frame through a temp file and rename so a
// crash mid-write never leaves a partial photo behind.
func (g *Gate) writeJPEG(path string, frame image.Image) error {
	if err := os.MkdirAll(g.photoDir, 0o755); err != nil {
		return fmt.Errorf("failed to create photo directory: %w", err)
	}

	tmp, err := os.CreateTemp(g.photoDir, ".capture-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := jpeg.Encode(tmp, frame, &jpeg.Options{Quality: g.quality}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize photo file: %w", err)
	}

	return nil
}

// AttachToEvent links a captured photo to the event that triggered it
func (g *Gate) AttachToEvent(photoID, eventID int64) error {
	return g.db.AttachPhotoToEvent(photoID, eventID)
}
