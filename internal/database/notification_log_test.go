package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorbell-hub/internal/types"
)

func insertAttempt(t *testing.T, db *DB, channel, status string, retries int, sentAt time.Time) *types.NotificationAttempt {
	t.Helper()

	attempt := &types.NotificationAttempt{
		Channel:    channel,
		Recipient:  "someone@example.com",
		Subject:    "Test",
		Message:    "Test message",
		SentAt:     sentAt,
		Status:     status,
		RetryCount: retries,
	}
	require.NoError(t, db.InsertAttempt(attempt))
	return attempt
}

func TestRetriableAttempts(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	old := insertAttempt(t, db, types.ChannelEmail, types.StatusFailed, 1, now.Add(-2*time.Hour))
	recent := insertAttempt(t, db, types.ChannelPush, types.StatusFailed, 0, now.Add(-time.Hour))
	insertAttempt(t, db, types.ChannelSMS, types.StatusFailed, 3, now)  // exhausted
	insertAttempt(t, db, types.ChannelEmail, types.StatusSent, 0, now) // delivered

	attempts, err := db.RetriableAttempts(3)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	// oldest first
	assert.Equal(t, old.ID, attempts[0].ID)
	assert.Equal(t, recent.ID, attempts[1].ID)
}

func TestIncrementAndUpdateAttempt(t *testing.T) {
	db := newTestDB(t)

	attempt := insertAttempt(t, db, types.ChannelPush, types.StatusFailed, 0, time.Now().UTC())

	require.NoError(t, db.IncrementAttemptRetry(attempt.ID))
	require.NoError(t, db.UpdateAttemptStatus(attempt.ID, types.StatusSent, ""))

	attempts, err := db.RetriableAttempts(3)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestAttemptsForEvent(t *testing.T) {
	db := newTestDB(t)

	event := &types.Event{
		Type: types.EventTypeDoorbell, Timestamp: time.Now().UTC(), Location: "front_door", HomeMode: true,
	}
	require.NoError(t, db.InsertEvent(event))

	attempt := &types.NotificationAttempt{
		EventID:   event.ID,
		Channel:   types.ChannelEmail,
		Recipient: "someone@example.com",
		Subject:   "Test",
		Message:   "Test message",
		SentAt:    time.Now().UTC(),
		Status:    types.StatusSent,
	}
	require.NoError(t, db.InsertAttempt(attempt))

	attempts, err := db.AttemptsForEvent(event.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, event.ID, attempts[0].EventID)
}
