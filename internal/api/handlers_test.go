package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorbell-hub/internal/auth"
	"doorbell-hub/internal/camera"
	"doorbell-hub/internal/database"
	"doorbell-hub/internal/mode"
	"doorbell-hub/internal/types"
)

type fakeHub struct {
	captureErr error
	events     []types.Event
	home       bool
}

func (f *fakeHub) RecordDoorbell(ctx context.Context, location string, metadata map[string]interface{}) (*types.Event, error) {
	return &types.Event{ID: 1, Type: types.EventTypeDoorbell, Location: location, HomeMode: f.home}, nil
}

func (f *fakeHub) RecordMotion(ctx context.Context, location string, metadata map[string]interface{}) (*types.Event, error) {
	return &types.Event{ID: 2, Type: types.EventTypeMotion, Location: location, HomeMode: f.home}, nil
}

func (f *fakeHub) CaptureManual(ctx context.Context, userID, location string) (*types.Event, *types.PhotoArtifact, error) {
	if f.captureErr != nil {
		return nil, nil, f.captureErr
	}
	return &types.Event{ID: 3, Type: types.EventTypeManualTrigger},
		&types.PhotoArtifact{ID: 1, Filename: "manual_trigger_20260830_120000.jpg"}, nil
}

func (f *fakeHub) History(filter database.EventFilter) ([]types.Event, error) {
	return f.events, nil
}

func (f *fakeHub) Stats(days int) (map[string]int, error) {
	return map[string]int{types.EventTypeDoorbell: 2}, nil
}

func (f *fakeHub) HomeMode() mode.Snapshot {
	return mode.Snapshot{Home: f.home, Source: mode.SourceDefault, UpdatedAt: time.Now().UTC()}
}

func (f *fakeHub) SetHomeMode(home bool) mode.Snapshot {
	f.home = home
	return f.HomeMode()
}

func (f *fakeHub) UpdateSignal(strength int) mode.Snapshot {
	f.home = strength >= -60
	return f.HomeMode()
}

type fakeAuth struct {
	prefs *types.Preferences
}

func (f *fakeAuth) Register(username, password, email, phone string) (*database.User, error) {
	if username == "taken" {
		return nil, auth.ErrUserExists
	}
	return &database.User{ID: "u1", Username: username}, nil
}

func (f *fakeAuth) Login(username, password string) (string, *database.User, error) {
	if password != "correct" {
		return "", nil, auth.ErrInvalidCredentials
	}
	return "signed-token", &database.User{ID: "u1", Username: username}, nil
}

func (f *fakeAuth) Logout(claims *auth.Claims) error { return nil }

func (f *fakeAuth) Preferences(userID string) (*types.Preferences, error) {
	if f.prefs != nil {
		return f.prefs, nil
	}
	return types.DefaultPreferences(), nil
}

func (f *fakeAuth) SavePreferences(userID string, prefs *types.Preferences) error {
	f.prefs = prefs
	return nil
}

func (f *fakeAuth) RegisterDeviceToken(userID, token, platform string) error { return nil }

func newTestHandlers(t *testing.T) (*Handlers, *fakeHub, *fakeAuth) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	hub := &fakeHub{home: true}
	authSvc := &fakeAuth{}
	handlers := NewHandlers(hub, authSvc, nil, logger, "test")
	return handlers, hub, authSvc
}

func authed(r *http.Request) *http.Request {
	claims := &auth.Claims{UserID: "u1", Username: "owner", SessionID: "s1"}
	return r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims))
}

func TestHealthCheck(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	handlers.HealthCheck(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeviceConfig(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)
	handlers.SetDeviceConfig(DeviceConfigResponse{
		Location:            "front_door",
		SignalNearThreshold: -60,
		SignalFarThreshold:  -80,
		QuietHoursStart:     "22:00",
		QuietHoursEnd:       "07:00",
		HeartbeatInterval:   30,
	})

	rec := httptest.NewRecorder()
	handlers.DeviceConfig(rec, authed(httptest.NewRequest("GET", "/api/v1/config", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DeviceConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, -60, resp.SignalNearThreshold)
	assert.Equal(t, "07:00", resp.QuietHoursEnd)
	assert.Equal(t, "front_door", resp.Location)
}

func TestLoginSuccessAndFailure(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)

	body, _ := json.Marshal(LoginRequest{Username: "owner", Password: "correct"})
	rec := httptest.NewRecorder()
	handlers.Login(rec, httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)

	body, _ = json.Marshal(LoginRequest{Username: "owner", Password: "wrong"})
	rec = httptest.NewRecorder()
	handlers.Login(rec, httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterConflict(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)

	body, _ := json.Marshal(RegisterRequest{Username: "taken", Password: "pw"})
	rec := httptest.NewRecorder()
	handlers.Register(rec, httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecordDoorbell(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)

	body, _ := json.Marshal(SensorEventRequest{Location: "front_door"})
	rec := httptest.NewRecorder()
	handlers.RecordDoorbell(rec, httptest.NewRequest("POST", "/api/v1/doorbell", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.EventTypeDoorbell, resp.Event.Type)
	assert.Equal(t, "front_door", resp.Event.Location)
}

func TestCapturePhotoBusy(t *testing.T) {
	handlers, hub, _ := newTestHandlers(t)
	hub.captureErr = camera.ErrBusy

	rec := httptest.NewRecorder()
	handlers.CapturePhoto(rec, authed(httptest.NewRequest("POST", "/api/v1/camera/capture", nil)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetEventsRejectsBadParams(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	handlers.GetEvents(rec, httptest.NewRequest("GET", "/api/v1/events?type=earthquake", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handlers.GetEvents(rec, httptest.NewRequest("GET", "/api/v1/events?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handlers.GetEvents(rec, httptest.NewRequest("GET", "/api/v1/events?since=notatime", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetHomeMode(t *testing.T) {
	handlers, hub, _ := newTestHandlers(t)

	body, _ := json.Marshal(HomeModeRequest{Home: false})
	rec := httptest.NewRecorder()
	handlers.SetHomeMode(rec, httptest.NewRequest("POST", "/api/v1/system/home-mode", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hub.home)
}

func TestReportSignalValidation(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)

	body, _ := json.Marshal(SignalRequest{DeviceID: "phone", Strength: 10})
	rec := httptest.NewRecorder()
	handlers.ReportSignal(rec, httptest.NewRequest("POST", "/api/v1/system/signal", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferencesRoundTrip(t *testing.T) {
	handlers, _, authSvc := newTestHandlers(t)

	prefs := types.DefaultPreferences()
	prefs.SMS = true
	body, _ := json.Marshal(prefs)

	rec := httptest.NewRecorder()
	handlers.UpdatePreferences(rec, authed(httptest.NewRequest("PUT", "/api/v1/notifications/settings", bytes.NewReader(body))))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, authSvc.prefs.SMS)

	rec = httptest.NewRecorder()
	handlers.GetPreferences(rec, authed(httptest.NewRequest("GET", "/api/v1/notifications/settings", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.SMS)
}

func TestPreferencesRequireAuth(t *testing.T) {
	handlers, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	handlers.GetPreferences(rec, httptest.NewRequest("GET", "/api/v1/notifications/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
