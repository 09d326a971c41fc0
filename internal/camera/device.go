package camera

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"
)

// Device grabs still frames from a camera source
type Device interface {
	// Name returns a short identifier for logging
	Name() string

	// Available reports whether the device can currently serve frames
	Available() bool

	// Grab captures a single frame
	Grab(ctx context.Context) (image.Image, error)
}

// SnapshotDevice pulls JPEG stills from an HTTP snapshot endpoint, the
// interface most IP cameras expose.
type SnapshotDevice struct {
	url    string
	client *http.Client
}

// NewSnapshotDevice creates a device for the given snapshot URL. An
// empty URL yields an unavailable device.
func NewSnapshotDevice(url string, timeout time.Duration) *SnapshotDevice {
	return &SnapshotDevice{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (d *SnapshotDevice) Name() string {
	return "http-snapshot"
}

func (d *SnapshotDevice) Available() bool {
	return d.url != ""
}

func (d *SnapshotDevice) Grab(ctx context.Context) (image.Image, error) {
	if d.url == "" {
		return nil, fmt.Errorf("no snapshot URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode)
	}

	img, err := jpeg.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return img, nil
}
