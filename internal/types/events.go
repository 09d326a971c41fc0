package types

import (
	"time"
)

// Event represents a recorded sensor or system event. Events are append-only:
// once stored, only the NotificationSent and Processed flags may change.
type Event struct {
	ID               int64                  `json:"id"`
	Type             string                 `json:"eventType"` // "doorbell", "motion", "system_alert", "manual_trigger"
	Timestamp        time.Time              `json:"timestamp"`
	Location         string                 `json:"location"`
	HomeMode         bool                   `json:"homeMode"`
	PhotoFilename    string                 `json:"photoFilename,omitempty"`
	UserID           string                 `json:"userId,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	NotificationSent bool                   `json:"notificationSent"`
	Processed        bool                   `json:"processed"`
}

// EventType constants for type safety
const (
	EventTypeDoorbell      = "doorbell"
	EventTypeMotion        = "motion"
	EventTypeSystemAlert   = "system_alert"
	EventTypeManualTrigger = "manual_trigger"
)

// IsValidEventType checks if the provided event type is valid
func IsValidEventType(eventType string) bool {
	switch eventType {
	case EventTypeDoorbell, EventTypeMotion, EventTypeSystemAlert, EventTypeManualTrigger:
		return true
	default:
		return false
	}
}

// PhotoArtifact represents a captured (or synthesized) photo stored on disk.
type PhotoArtifact struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	Timestamp     time.Time `json:"timestamp"`
	TriggerSource string    `json:"triggerSource"`
	Location      string    `json:"location"`
	EventID       int64     `json:"eventId,omitempty"` // set post-hoc, 0 = unattached
	Simulated     bool      `json:"simulated"`         // placeholder frame, no physical device
}

// Notification channel constants
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// IsValidChannel checks if the provided channel name is valid
func IsValidChannel(channel string) bool {
	switch channel {
	case ChannelPush, ChannelEmail, ChannelSMS:
		return true
	default:
		return false
	}
}

// Delivery status constants for notification attempts
const (
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusRetrying = "retrying"
)

// NotificationAttempt tracks one delivery attempt on one channel for one event.
// Status transitions: pending -> sent, or pending -> failed -> retrying ->
// (sent | failed), terminal once retry_count reaches the configured ceiling.
type NotificationAttempt struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"eventId,omitempty"` // 0 = not tied to a stored event
	UserID     string    `json:"userId,omitempty"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	SentAt     time.Time `json:"sentAt"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retryCount"`
}

// Preferences holds a user's notification preferences. The zero value is not
// useful; use DefaultPreferences for a sensible starting point.
type Preferences struct {
	Push       bool            `json:"pushNotifications"`
	Email      bool            `json:"emailNotifications"`
	SMS        bool            `json:"smsNotifications"`
	PushToken  string          `json:"pushToken,omitempty"`
	EmailTo    string          `json:"emailAddress,omitempty"`
	PhoneTo    string          `json:"phoneNumber,omitempty"`
	QuietStart string          `json:"quietHoursStart"` // "HH:MM", empty = no quiet hours
	QuietEnd   string          `json:"quietHoursEnd"`
	Types      map[string]bool `json:"notificationTypes"`
}

// DefaultPreferences mirrors the out-of-the-box behavior: push and email on,
// SMS off, quiet hours 22:00-07:00, manual captures silent.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Push:       true,
		Email:      true,
		SMS:        false,
		QuietStart: "22:00",
		QuietEnd:   "07:00",
		Types: map[string]bool{
			EventTypeDoorbell:      true,
			EventTypeMotion:        true,
			EventTypeSystemAlert:   true,
			EventTypeManualTrigger: false,
		},
	}
}

// TypeEnabled reports whether notifications for the given event type are
// enabled. Types missing from the map default to enabled, except manual
// triggers which stay silent unless explicitly turned on.
func (p *Preferences) TypeEnabled(eventType string) bool {
	if enabled, ok := p.Types[eventType]; ok {
		return enabled
	}
	return eventType != EventTypeManualTrigger
}
