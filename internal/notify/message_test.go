package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"doorbell-hub/internal/types"
)

func TestBuildMessageDoorbellHome(t *testing.T) {
	event := &types.Event{
		ID:        1,
		Type:      types.EventTypeDoorbell,
		Timestamp: time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
		Location:  "front_door",
		HomeMode:  true,
	}

	msg := BuildMessage(event)
	assert.Equal(t, "🔔 Someone's at the Door", msg.Title)
	assert.Equal(t, "Doorbell pressed at front_door at 14:30:00", msg.Body)
}

func TestBuildMessageDoorbellAway(t *testing.T) {
	event := &types.Event{
		ID:        2,
		Type:      types.EventTypeDoorbell,
		Timestamp: time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
		Location:  "front_door",
		HomeMode:  false,
	}

	msg := BuildMessage(event)
	assert.Equal(t, "🔔 Visitor While Away", msg.Title)
	assert.Equal(t, "Someone rang the doorbell at front_door while you're away (14:30:00)", msg.Body)
}

func TestBuildMessagePhotoSuffix(t *testing.T) {
	event := &types.Event{
		ID:            3,
		Type:          types.EventTypeDoorbell,
		Timestamp:     time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
		Location:      "front_door",
		HomeMode:      true,
		PhotoFilename: "doorbell_20260830_143000.jpg",
	}

	msg := BuildMessage(event)
	assert.Contains(t, msg.Body, " - Photo captured")
	assert.Equal(t, "doorbell_20260830_143000.jpg", msg.Data["photo_filename"])
}

func TestBuildMessageMotion(t *testing.T) {
	event := &types.Event{
		ID:        4,
		Type:      types.EventTypeMotion,
		Timestamp: time.Date(2026, 8, 30, 2, 5, 0, 0, time.UTC),
		Location:  "back_yard",
		HomeMode:  true,
	}

	msg := BuildMessage(event)
	assert.Equal(t, "🚨 Motion Detected", msg.Title)
	assert.Equal(t, "Motion detected at back_yard at 02:05:00", msg.Body)
}
