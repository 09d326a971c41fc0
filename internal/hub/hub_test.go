package hub

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorbell-hub/internal/camera"
	"doorbell-hub/internal/database"
	"doorbell-hub/internal/events"
	"doorbell-hub/internal/mode"
	"doorbell-hub/internal/types"
)

type fakeDispatcher struct {
	events []*types.Event
	sent   bool
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, event *types.Event, prefs *types.Preferences) (bool, error) {
	d.events = append(d.events, event)
	return d.sent, nil
}

type fakePrefs struct{}

func (fakePrefs) OwnerPreferences() (string, *types.Preferences, error) {
	prefs := types.DefaultPreferences()
	prefs.PushToken = "token"
	prefs.EmailTo = "owner@example.com"
	return "owner-id", prefs, nil
}

type recordingBroadcaster struct {
	messages []interface{}
}

func (b *recordingBroadcaster) Broadcast(v interface{}) {
	b.messages = append(b.messages, v)
}

func newTestHub(t *testing.T) (*Hub, *fakeDispatcher, *recordingBroadcaster, *database.DB) {
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
	entry := logger.WithField("test", true)

	store := events.NewStore(db, entry)
	gate := camera.NewGate(nil, db, filepath.Join(dir, "photos"), 95, entry)
	resolver := mode.NewResolver(true, -60, -80, entry)
	dispatcher := &fakeDispatcher{sent: true}
	broadcaster := &recordingBroadcaster{}

	h := New(store, gate, resolver, dispatcher, fakePrefs{}, broadcaster, entry)
	return h, dispatcher, broadcaster, db
}

func TestRecordDoorbellCapturesAndDispatches(t *testing.T) {
	h, dispatcher, broadcaster, db := newTestHub(t)

	event, err := h.RecordDoorbell(context.Background(), "front_door", nil)
	require.NoError(t, err)

	assert.NotZero(t, event.ID)
	assert.True(t, event.HomeMode)
	assert.NotEmpty(t, event.PhotoFilename)
	assert.Equal(t, "owner-id", event.UserID)

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, event.ID, dispatcher.events[0].ID)

	// photo row is linked to the event
	got, err := db.GetEvent(event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.PhotoFilename, got.PhotoFilename)

	assert.NotEmpty(t, broadcaster.messages)
}

func TestRecordMotionSkipsCapture(t *testing.T) {
	h, dispatcher, _, db := newTestHub(t)

	event, err := h.RecordMotion(context.Background(), "yard", map[string]interface{}{"sensor": "pir"})
	require.NoError(t, err)

	assert.Empty(t, event.PhotoFilename)
	require.Len(t, dispatcher.events, 1)

	photos, err := db.ListPhotos(10, 0)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestCaptureManual(t *testing.T) {
	h, dispatcher, _, _ := newTestHub(t)

	event, photo, err := h.CaptureManual(context.Background(), "owner-id", "front_door")
	require.NoError(t, err)

	assert.Equal(t, types.EventTypeManualTrigger, event.Type)
	assert.True(t, photo.Simulated)
	assert.Equal(t, photo.Filename, event.PhotoFilename)
	require.Len(t, dispatcher.events, 1)
}

func TestHomeModeFlowsIntoEvents(t *testing.T) {
	h, _, _, _ := newTestHub(t)

	h.SetHomeMode(false)

	event, err := h.RecordDoorbell(context.Background(), "front_door", nil)
	require.NoError(t, err)
	assert.False(t, event.HomeMode)

	snap := h.HomeMode()
	assert.False(t, snap.Home)
	assert.Equal(t, mode.SourceManual, snap.Source)
}

func TestUpdateSignal(t *testing.T) {
	h, _, _, _ := newTestHub(t)

	snap := h.UpdateSignal(-90)
	assert.False(t, snap.Home)

	snap = h.UpdateSignal(-50)
	assert.True(t, snap.Home)
}
