package events

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorbell-hub/internal/database"
	"doorbell-hub/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.NewDB(database.Config{
		DatabasePath:  filepath.Join(t.TempDir(), "test.db"),
		EncryptionKey: "test-key",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewStore(db, logger.WithField("test", true))
}

func TestAppendSetsDefaults(t *testing.T) {
	store := newTestStore(t)

	event := &types.Event{Type: types.EventTypeDoorbell, HomeMode: true}
	require.NoError(t, store.Append(event))

	assert.NotZero(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "front_door", event.Location)
}

func TestAppendValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name  string
		event *types.Event
		field string
	}{
		{"nil event", nil, "event"},
		{"unknown type", &types.Event{Type: "earthquake"}, "event_type"},
		{"preset id", &types.Event{ID: 5, Type: types.EventTypeDoorbell}, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Append(tt.event)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestQueryAndMarkProcessed(t *testing.T) {
	store := newTestStore(t)

	event := &types.Event{
		Type:      types.EventTypeMotion,
		Timestamp: time.Now().UTC(),
		Location:  "yard",
		HomeMode:  true,
	}
	require.NoError(t, store.Append(event))
	require.NoError(t, store.MarkProcessed(event.ID, true))

	events, err := store.Query(database.EventFilter{Type: types.EventTypeMotion})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Processed)
	assert.True(t, events[0].NotificationSent)
}
