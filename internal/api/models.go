package api

import (
	"time"

	"doorbell-hub/internal/mode"
	"doorbell-hub/internal/types"
)

// RegisterRequest is the payload for account registration
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// LoginRequest is the payload for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SensorEventRequest is the payload sensors post for doorbell and
// motion triggers.
type SensorEventRequest struct {
	Location string                 `json:"location,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// EventResponse wraps a recorded event
type EventResponse struct {
	Event *types.Event `json:"event"`
}

// EventsResponse is a page of event history
type EventsResponse struct {
	Events []types.Event `json:"events"`
	Count  int           `json:"count"`
}

// CaptureResponse reports a manual photo capture
type CaptureResponse struct {
	Event *types.Event         `json:"event"`
	Photo *types.PhotoArtifact `json:"photo"`
}

// HomeModeRequest sets the mode manually
type HomeModeRequest struct {
	Home bool `json:"home_mode"`
}

// SignalRequest reports a presence signal reading
type SignalRequest struct {
	DeviceID string `json:"device_id"`
	Strength int    `json:"strength"`
}

// DeviceTokenRequest registers a push token
type DeviceTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}

// DeviceConfigResponse is the configuration snapshot polled by
// sensor devices.
type DeviceConfigResponse struct {
	CaptureEnabled      bool   `json:"capture_enabled"`
	Location            string `json:"default_location"`
	SignalNearThreshold int    `json:"signal_near_threshold"`
	SignalFarThreshold  int    `json:"signal_far_threshold"`
	QuietHoursStart     string `json:"quiet_hours_start"`
	QuietHoursEnd       string `json:"quiet_hours_end"`
	HeartbeatInterval   int    `json:"heartbeat_interval_seconds"`
}

// StatusResponse reports overall system status
type StatusResponse struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	HomeMode  mode.Snapshot `json:"home_mode"`
	Uptime    string        `json:"uptime"`
	Timestamp time.Time     `json:"timestamp"`
}

// ErrorResponse is the JSON body for failed requests
type ErrorResponse struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
