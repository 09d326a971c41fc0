package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/auth"
	"doorbell-hub/internal/camera"
	"doorbell-hub/internal/database"
	"doorbell-hub/internal/mode"
	"doorbell-hub/internal/types"
)

// HubService is the event pipeline surface the handlers consume
type HubService interface {
	RecordDoorbell(ctx context.Context, location string, metadata map[string]interface{}) (*types.Event, error)
	RecordMotion(ctx context.Context, location string, metadata map[string]interface{}) (*types.Event, error)
	CaptureManual(ctx context.Context, userID, location string) (*types.Event, *types.PhotoArtifact, error)
	History(filter database.EventFilter) ([]types.Event, error)
	Stats(days int) (map[string]int, error)
	HomeMode() mode.Snapshot
	SetHomeMode(home bool) mode.Snapshot
	UpdateSignal(strength int) mode.Snapshot
}

// AuthService is the account surface the handlers consume
type AuthService interface {
	Register(username, password, email, phone string) (*database.User, error)
	Login(username, password string) (string, *database.User, error)
	Logout(claims *auth.Claims) error
	Preferences(userID string) (*types.Preferences, error)
	SavePreferences(userID string, prefs *types.Preferences) error
	RegisterDeviceToken(userID, token, platform string) error
}

// PresenceRecorder accepts device heartbeats; nil when presence
// tracking is disabled.
type PresenceRecorder interface {
	Heartbeat(ctx context.Context, deviceID string, strength int) error
}

// Handlers contains the HTTP handler implementations
type Handlers struct {
	hub       HubService
	authSvc   AuthService
	presence  PresenceRecorder
	logger    *logrus.Logger
	wsManager *WebSocketManager
	deviceCfg DeviceConfigResponse
	version   string
	startTime time.Time
}

// NewHandlers creates handler implementations with their dependencies
func NewHandlers(hub HubService, authSvc AuthService, presence PresenceRecorder, logger *logrus.Logger, version string) *Handlers {
	return &Handlers{
		hub:       hub,
		authSvc:   authSvc,
		presence:  presence,
		logger:    logger,
		wsManager: NewWebSocketManager(logger),
		version:   version,
		startTime: time.Now(),
	}
}

// SetHub wires the event pipeline after construction. The pipeline
// broadcasts through the WebSocket manager created here, so the two
// are built in stages.
func (h *Handlers) SetHub(hub HubService) {
	h.hub = hub
}

// SetPresence wires the optional presence recorder
func (h *Handlers) SetPresence(p PresenceRecorder) {
	h.presence = p
}

// SetDeviceConfig sets the snapshot served to polling sensor devices
func (h *Handlers) SetDeviceConfig(cfg DeviceConfigResponse) {
	h.deviceCfg = cfg
}

// HealthCheck reports liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Register creates a new account
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.authSvc.Register(req.Username, req.Password, req.Email, req.PhoneNumber)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			h.writeError(w, "Username already taken", http.StatusConflict)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// Login verifies credentials and returns a token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, user, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserInactive) {
			h.writeError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		h.logger.WithField("error", err.Error()).Error("Login failed")
		h.writeError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}

// Logout revokes the current session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	if claims == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.authSvc.Logout(claims); err != nil {
		h.writeError(w, "Logout failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// RecordDoorbell handles a doorbell press from a sensor
func (h *Handlers) RecordDoorbell(w http.ResponseWriter, r *http.Request) {
	var req SensorEventRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	event, err := h.hub.RecordDoorbell(r.Context(), req.Location, req.Metadata)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to record doorbell event")
		h.writeError(w, "Failed to record event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, EventResponse{Event: event})
}

// RecordMotion handles a motion sensor trigger
func (h *Handlers) RecordMotion(w http.ResponseWriter, r *http.Request) {
	var req SensorEventRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	event, err := h.hub.RecordMotion(r.Context(), req.Location, req.Metadata)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to record motion event")
		h.writeError(w, "Failed to record event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, EventResponse{Event: event})
}

// CapturePhoto takes an on-demand photo
func (h *Handlers) CapturePhoto(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	userID := ""
	if claims != nil {
		userID = claims.UserID
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		location = "front_door"
	}

	event, photo, err := h.hub.CaptureManual(r.Context(), userID, location)
	if err != nil {
		if errors.Is(err, camera.ErrBusy) {
			h.writeError(w, "Camera busy, try again shortly", http.StatusConflict)
			return
		}
		h.logger.WithField("error", err.Error()).Error("Manual capture failed")
		h.writeError(w, "Capture failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, CaptureResponse{Event: event, Photo: photo})
}

// GetEvents returns event history, newest first
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	filter := database.EventFilter{}

	query := r.URL.Query()
	if t := query.Get("type"); t != "" {
		if !types.IsValidEventType(t) {
			h.writeError(w, "Unknown event type", http.StatusBadRequest)
			return
		}
		filter.Type = t
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 1000 {
			h.writeError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	if sinceStr := query.Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			h.writeError(w, "Invalid since timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = &since
	}

	events, err := h.hub.History(filter)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to query events")
		h.writeError(w, "Failed to query events", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}

// GetEventStats returns per-type event counts
func (h *Handlers) GetEventStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 || parsed > 365 {
			h.writeError(w, "Invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	stats, err := h.hub.Stats(days)
	if err != nil {
		h.writeError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":  days,
		"stats": stats,
	})
}

// GetHomeMode reports the current resolved mode
func (h *Handlers) GetHomeMode(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.hub.HomeMode())
}

// SetHomeMode applies a manual mode override
func (h *Handlers) SetHomeMode(w http.ResponseWriter, r *http.Request) {
	var req HomeModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, h.hub.SetHomeMode(req.Home))
}

// ReportSignal records a presence heartbeat and feeds the mode resolver
func (h *Handlers) ReportSignal(w http.ResponseWriter, r *http.Request) {
	var req SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Strength > 0 || req.Strength < -120 {
		h.writeError(w, "Signal strength must be between -120 and 0 dBm", http.StatusBadRequest)
		return
	}

	if h.presence != nil && req.DeviceID != "" {
		if err := h.presence.Heartbeat(r.Context(), req.DeviceID, req.Strength); err != nil {
			h.logger.WithField("error", err.Error()).Warn("Failed to record presence heartbeat")
		}
	}

	h.writeJSON(w, http.StatusOK, h.hub.UpdateSignal(req.Strength))
}

// SystemStatus reports overall system health
func (h *Handlers) SystemStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "running",
		Version:   h.version,
		HomeMode:  h.hub.HomeMode(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}

// DeviceConfig serves the configuration snapshot sensor devices poll
// on startup and at intervals.
func (h *Handlers) DeviceConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.deviceCfg)
}

// GetPreferences returns the caller's notification preferences
func (h *Handlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	if claims == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	prefs, err := h.authSvc.Preferences(claims.UserID)
	if err != nil {
		h.writeError(w, "Failed to load preferences", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences saves the caller's notification preferences
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	if claims == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	prefs := types.DefaultPreferences()
	if err := json.NewDecoder(r.Body).Decode(prefs); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.authSvc.SavePreferences(claims.UserID, prefs); err != nil {
		h.writeError(w, "Failed to save preferences", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, prefs)
}

// RegisterDeviceToken stores a push token for the caller
func (h *Handlers) RegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	if claims == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req DeviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Platform == "" {
		req.Platform = "unknown"
	}

	if err := h.authSvc.RegisterDeviceToken(claims.UserID, req.Token, req.Platform); err != nil {
		h.writeError(w, "Failed to register device token", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

// WebSocketHandler upgrades to a live update stream
func (h *Handlers) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	h.wsManager.HandleConnection(w, r)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{
		Error:     true,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}
