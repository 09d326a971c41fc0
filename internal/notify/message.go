package notify

import (
	"fmt"

	"doorbell-hub/internal/types"
)

// BuildMessage renders the alert for an event. Doorbell alerts phrase
// differently when nobody is home, and note when a photo was captured.
func BuildMessage(event *types.Event) Message {
	timestamp := event.Timestamp.Format("15:04:05")
	location := event.Location

	var msg Message
	switch event.Type {
	case types.EventTypeDoorbell:
		if event.HomeMode {
			msg.Title = "🔔 Someone's at the Door"
			msg.Body = fmt.Sprintf("Doorbell pressed at %s at %s", location, timestamp)
		} else {
			msg.Title = "🔔 Visitor While Away"
			msg.Body = fmt.Sprintf("Someone rang the doorbell at %s while you're away (%s)", location, timestamp)
		}
	case types.EventTypeMotion:
		msg.Title = "🚨 Motion Detected"
		msg.Body = fmt.Sprintf("Motion detected at %s at %s", location, timestamp)
	case types.EventTypeSystemAlert:
		msg.Title = "⚠️ System Alert"
		msg.Body = fmt.Sprintf("System alert from %s at %s", location, timestamp)
	default:
		msg.Title = "🔔 Doorbell Event"
		msg.Body = fmt.Sprintf("%s event at %s at %s", event.Type, location, timestamp)
	}

	if event.PhotoFilename != "" {
		msg.Body += " - Photo captured"
	}

	msg.Type = event.Type
	msg.Data = map[string]interface{}{
		"event_id":  event.ID,
		"type":      event.Type,
		"location":  location,
		"timestamp": event.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		"home_mode": event.HomeMode,
	}
	if event.PhotoFilename != "" {
		msg.Data["photo_filename"] = event.PhotoFilename
	}

	return msg
}
