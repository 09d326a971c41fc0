package hub

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/camera"
	"doorbell-hub/internal/database"
	"doorbell-hub/internal/events"
	"doorbell-hub/internal/mode"
	"doorbell-hub/internal/types"
)

// PreferenceSource resolves the household owner's notification
// preferences for sensor-triggered events.
type PreferenceSource interface {
	OwnerPreferences() (userID string, prefs *types.Preferences, err error)
}

// Dispatcher fans an event out to notification channels
type Dispatcher interface {
	Dispatch(ctx context.Context, event *types.Event, prefs *types.Preferences) (bool, error)
}

// Broadcaster pushes live updates to connected dashboard clients
type Broadcaster interface {
	Broadcast(v interface{})
}

// Hub orchestrates the event pipeline: record the event, capture a
// photo when the trigger calls for one, dispatch notifications and
// push a live update.
type Hub struct {
	store       *events.Store
	gate        *camera.Gate
	resolver    *mode.Resolver
	dispatcher  Dispatcher
	prefs       PreferenceSource
	broadcaster Broadcaster
	logger      *logrus.Entry
}

// New creates a hub. broadcaster may be nil when no live channel exists.
func New(store *events.Store, gate *camera.Gate, resolver *mode.Resolver, dispatcher Dispatcher, prefs PreferenceSource, broadcaster Broadcaster, logger *logrus.Entry) *Hub {
	return &Hub{
		store:       store,
		gate:        gate,
		resolver:    resolver,
		dispatcher:  dispatcher,
		prefs:       prefs,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// RecordDoorbell handles a doorbell press: the event is persisted,
// a photo capture is attempted, and notifications dispatched. A failed
// capture degrades the alert rather than dropping it.
func (h *Hub) RecordDoorbell(ctx context.Context, location string, metadata map[string]interface{}) (*types.Event, error) {
	return h.recordWithPhoto(ctx, types.EventTypeDoorbell, location, metadata)
}

// RecordMotion handles a motion sensor trigger. Motion events do not
// capture photos; they only alert.
func (h *Hub) RecordMotion(ctx context.Context, location string, metadata map[string]interface{}) (*types.Event, error) {
	event := &types.Event{
		Type:      types.EventTypeMotion,
		Timestamp: time.Now().UTC(),
		Location:  location,
		HomeMode:  h.resolver.Current(),
		Metadata:  metadata,
	}

	if err := h.store.Append(event); err != nil {
		return nil, err
	}

	h.dispatch(ctx, event)
	h.broadcast(event)
	return event, nil
}

// CaptureManual takes a photo on demand without waiting for the camera;
// camera.ErrBusy is returned when a capture is already in flight.
func (h *Hub) CaptureManual(ctx context.Context, userID, location string) (*types.Event, *types.PhotoArtifact, error) {
	photo, err := h.gate.TryCapture(ctx, types.EventTypeManualTrigger, location)
	if err != nil {
		return nil, nil, err
	}

	event := &types.Event{
		Type:      types.EventTypeManualTrigger,
		Timestamp: time.Now().UTC(),
		Location:  location,
		HomeMode:  h.resolver.Current(),
		UserID:    userID,
		Metadata:  map[string]interface{}{"requested_by": userID},
	}

	if err := h.store.Append(event); err != nil {
		return nil, nil, err
	}

	h.attachPhoto(event, photo)
	h.dispatch(ctx, event)
	h.broadcast(event)
	return event, photo, nil
}

func (h *Hub) recordWithPhoto(ctx context.Context, eventType, location string, metadata map[string]interface{}) (*types.Event, error) {
	event := &types.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Location:  location,
		HomeMode:  h.resolver.Current(),
		Metadata:  metadata,
	}

	if err := h.store.Append(event); err != nil {
		return nil, err
	}

	photo, err := h.gate.Capture(ctx, eventType, location)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"error":    err.Error(),
		}).Warn("Photo capture failed, alerting without photo")
	} else {
		h.attachPhoto(event, photo)
	}

	h.dispatch(ctx, event)
	h.broadcast(event)
	return event, nil
}

func (h *Hub) attachPhoto(event *types.Event, photo *types.PhotoArtifact) {
	if photo == nil {
		return
	}
	if err := h.gate.AttachToEvent(photo.ID, event.ID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"photo_id": photo.ID,
			"error":    err.Error(),
		}).Warn("Failed to link photo to event")
		return
	}
	event.PhotoFilename = photo.Filename
}

// dispatch is best-effort: the event row is already committed, so
// notification failures are logged and retried, never bubbled up.
func (h *Hub) dispatch(ctx context.Context, event *types.Event) {
	userID, prefs, err := h.prefs.OwnerPreferences()
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"error":    err.Error(),
		}).Error("Failed to resolve notification preferences")
		return
	}
	event.UserID = userID

	sent, err := h.dispatcher.Dispatch(ctx, event, prefs)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"error":    err.Error(),
		}).Error("Notification dispatch failed")
		return
	}
	event.NotificationSent = sent
	event.Processed = true
}

func (h *Hub) broadcast(event *types.Event) {
	if h.broadcaster == nil {
		return
	}
	h.broadcaster.Broadcast(map[string]interface{}{
		"type":  "event",
		"event": event,
	})
}

// History returns events matching the filter, newest first
func (h *Hub) History(filter database.EventFilter) ([]types.Event, error) {
	return h.store.Query(filter)
}

// Stats returns per-type event counts over the trailing number of days
func (h *Hub) Stats(days int) (map[string]int, error) {
	return h.store.Stats(days)
}

// HomeMode returns the current resolved mode
func (h *Hub) HomeMode() mode.Snapshot {
	return h.resolver.Snapshot()
}

// SetHomeMode applies a manual mode override
func (h *Hub) SetHomeMode(home bool) mode.Snapshot {
	h.resolver.SetOverride(home)
	snapshot := h.resolver.Snapshot()
	if h.broadcaster != nil {
		h.broadcaster.Broadcast(map[string]interface{}{
			"type": "home_mode",
			"mode": snapshot,
		})
	}
	return snapshot
}

// UpdateSignal feeds a presence signal strength reading into the mode
// resolver.
func (h *Hub) UpdateSignal(strength int) mode.Snapshot {
	h.resolver.UpdateFromSignal(strength)
	return h.resolver.Snapshot()
}
