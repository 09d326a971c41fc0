package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/types"
)

// AttemptLog records notification delivery attempts
type AttemptLog interface {
	InsertAttempt(attempt *types.NotificationAttempt) error
	UpdateAttemptStatus(id int64, status, errorMessage string) error
}

// EventMarker records the processing outcome of an event
type EventMarker interface {
	MarkProcessed(id int64, notificationSent bool) error
}

// Router fans an event out to every enabled notification channel,
// recording one delivery attempt per channel. A failing channel never
// blocks the others.
type Router struct {
	channels map[string]Channel
	log      AttemptLog
	marker   EventMarker
	quiet    QuietHours
	logger   *logrus.Entry

	nowFn func() time.Time
}

// NewRouter creates a router over the given channels
func NewRouter(channels []Channel, log AttemptLog, marker EventMarker, quiet QuietHours, logger *logrus.Entry) *Router {
	byName := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	return &Router{
		channels: byName,
		log:      log,
		marker:   marker,
		quiet:    quiet,
		logger:   logger,
		// Quiet hours are a wall-clock window, so the local clock decides.
		nowFn: time.Now,
	}
}

// Dispatch delivers the event's alert to every channel the preferences
// enable. The event is always marked processed; notificationSent is set
// only when at least one channel delivered. Disabled event types and
// motion alerts during quiet hours are suppressed without logging.
func (r *Router) Dispatch(ctx context.Context, event *types.Event, prefs *types.Preferences) (bool, error) {
	if !prefs.TypeEnabled(event.Type) {
		r.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Debug("Notifications disabled for event type")
		return false, r.marker.MarkProcessed(event.ID, false)
	}

	if event.Type == types.EventTypeMotion && r.quietWindow(prefs).Contains(r.nowFn()) {
		r.logger.WithField("event_id", event.ID).Info("Motion alert suppressed during quiet hours")
		return false, r.marker.MarkProcessed(event.ID, false)
	}

	msg := BuildMessage(event)
	anySent := false

	for _, target := range r.targets(prefs) {
		sent := r.deliver(ctx, event, target, msg)
		if sent {
			anySent = true
		}
	}

	return anySent, r.marker.MarkProcessed(event.ID, anySent)
}

// quietWindow resolves the quiet window for these preferences. User
// preference times win over the configured window when both are set and
// parse; otherwise the configured window applies.
func (r *Router) quietWindow(prefs *types.Preferences) QuietHours {
	if prefs.QuietStart == "" || prefs.QuietEnd == "" {
		return r.quiet
	}
	window, err := ParseQuietHours(prefs.QuietStart, prefs.QuietEnd)
	if err != nil {
		r.logger.WithField("error", err.Error()).Warn("Ignoring malformed quiet hours in preferences")
		return r.quiet
	}
	return window
}

type target struct {
	channel   string
	recipient string
}

// targets resolves the enabled channels with configured recipients
func (r *Router) targets(prefs *types.Preferences) []target {
	var targets []target
	if prefs.Push && prefs.PushToken != "" {
		targets = append(targets, target{channel: types.ChannelPush, recipient: prefs.PushToken})
	}
	if prefs.Email && prefs.EmailTo != "" {
		targets = append(targets, target{channel: types.ChannelEmail, recipient: prefs.EmailTo})
	}
	if prefs.SMS && prefs.PhoneTo != "" {
		targets = append(targets, target{channel: types.ChannelSMS, recipient: prefs.PhoneTo})
	}
	return targets
}

// deliver sends on one channel and records the attempt. Returns whether
// delivery succeeded.
func (r *Router) deliver(ctx context.Context, event *types.Event, tgt target, msg Message) bool {
	attempt := &types.NotificationAttempt{
		EventID:   event.ID,
		UserID:    event.UserID,
		Channel:   tgt.channel,
		Recipient: tgt.recipient,
		Subject:   msg.Title,
		Message:   msg.Body,
		SentAt:    r.nowFn().UTC(),
		Status:    types.StatusPending,
	}

	if err := r.log.InsertAttempt(attempt); err != nil {
		r.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"channel":  tgt.channel,
			"error":    err.Error(),
		}).Error("Failed to record notification attempt")
		return false
	}

	ch, ok := r.channels[tgt.channel]
	if !ok {
		r.updateStatus(attempt.ID, types.StatusFailed, "channel not configured")
		return false
	}

	if err := ch.Send(ctx, tgt.recipient, msg); err != nil {
		r.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"channel":  tgt.channel,
			"error":    err.Error(),
		}).Warn("Notification delivery failed")
		r.updateStatus(attempt.ID, types.StatusFailed, err.Error())
		return false
	}

	r.updateStatus(attempt.ID, types.StatusSent, "")
	r.logger.WithFields(logrus.Fields{
		"event_id": event.ID,
		"channel":  tgt.channel,
	}).Info("Notification sent")
	return true
}

func (r *Router) updateStatus(attemptID int64, status, errMsg string) {
	if err := r.log.UpdateAttemptStatus(attemptID, status, errMsg); err != nil {
		r.logger.WithFields(logrus.Fields{
			"attempt_id": attemptID,
			"error":      err.Error(),
		}).Error("Failed to update attempt status")
	}
}

// SendChannel exposes a single channel send with attempt bookkeeping,
// used by the retrier.
func (r *Router) SendChannel(ctx context.Context, channelName, recipient string, msg Message) error {
	ch, ok := r.channels[channelName]
	if !ok {
		return &UnknownChannelError{Channel: channelName}
	}
	return ch.Send(ctx, recipient, msg)
}

// UnknownChannelError indicates a log row references an unconfigured channel
type UnknownChannelError struct {
	Channel string
}

func (e *UnknownChannelError) Error() string {
	return "unknown notification channel: " + e.Channel
}
