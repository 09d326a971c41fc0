package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorbell-hub/internal/database"
	"doorbell-hub/internal/types"
)

type fakeDevice struct {
	available bool
	err       error
	grabDelay time.Duration
}

func (d *fakeDevice) Name() string    { return "fake" }
func (d *fakeDevice) Available() bool { return d.available }

func (d *fakeDevice) Grab(ctx context.Context) (image.Image, error) {
	if d.grabDelay > 0 {
		select {
		case <-time.After(d.grabDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 100, A: 255})
		}
	}
	return img, nil
}

func newTestGate(t *testing.T, device Device) (*Gate, string) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.NewDB(database.Config{
		DatabasePath:  filepath.Join(dir, "test.db"),
		EncryptionKey: "test-key",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	photoDir := filepath.Join(dir, "photos")
	return NewGate(device, db, photoDir, 95, logger.WithField("test", true)), photoDir
}

func TestCaptureWithDevice(t *testing.T) {
	gate, photoDir := newTestGate(t, &fakeDevice{available: true})
	gate.nowFn = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}

	photo, err := gate.Capture(context.Background(), types.EventTypeDoorbell, "front_door")
	require.NoError(t, err)

	assert.Equal(t, "doorbell_20260830_120000.jpg", photo.Filename)
	assert.False(t, photo.Simulated)
	assert.NotZero(t, photo.ID)

	_, err = os.Stat(filepath.Join(photoDir, photo.Filename))
	assert.NoError(t, err)
}

func TestCaptureFallsBackToPlaceholder(t *testing.T) {
	tests := []struct {
		name   string
		device Device
	}{
		{"no device", nil},
		{"unavailable device", &fakeDevice{available: false}},
		{"grab error", &fakeDevice{available: true, err: errors.New("camera offline")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, photoDir := newTestGate(t, tt.device)

			photo, err := gate.Capture(context.Background(), types.EventTypeMotion, "yard")
			require.NoError(t, err)
			assert.True(t, photo.Simulated)

			_, err = os.Stat(filepath.Join(photoDir, photo.Filename))
			assert.NoError(t, err)
		})
	}
}

func TestTryCaptureBusy(t *testing.T) {
	gate, _ := newTestGate(t, &fakeDevice{available: true, grabDelay: 200 * time.Millisecond})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		gate.Capture(context.Background(), types.EventTypeDoorbell, "front_door")
		close(done)
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	_, err := gate.TryCapture(context.Background(), types.EventTypeManualTrigger, "front_door")
	assert.ErrorIs(t, err, ErrBusy)

	<-done
}

func TestCaptureWaitCancelled(t *testing.T) {
	gate, _ := newTestGate(t, &fakeDevice{available: true, grabDelay: 300 * time.Millisecond})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		gate.Capture(context.Background(), types.EventTypeDoorbell, "front_door")
		close(done)
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gate.Capture(ctx, types.EventTypeDoorbell, "front_door")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	<-done
}

type countingDevice struct {
	fakeDevice
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (d *countingDevice) Grab(ctx context.Context) (image.Image, error) {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()

	img, err := d.fakeDevice.Grab(ctx)

	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()
	return img, err
}

func TestCaptureSerializes(t *testing.T) {
	device := &countingDevice{fakeDevice: fakeDevice{available: true, grabDelay: 20 * time.Millisecond}}
	gate, _ := newTestGate(t, device)

	var counter int64
	var mu sync.Mutex
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	gate.nowFn = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return base.Add(time.Duration(counter) * time.Second)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Capture(context.Background(), types.EventTypeDoorbell, "front_door")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, device.maxInFlight)
}
