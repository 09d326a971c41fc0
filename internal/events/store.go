package events

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/database"
	"doorbell-hub/internal/types"
)

// ValidationError indicates an event failed validation before persistence
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// PersistenceError indicates the underlying store rejected an operation
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("event store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store validates and persists events and serves event history
type Store struct {
	db     *database.DB
	logger *logrus.Entry
}

// NewStore creates an event store backed by the given database
func NewStore(db *database.DB, logger *logrus.Entry) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// Append validates and persists a new event. The event's ID is set on
// success. A zero timestamp is stamped with the current time.
func (s *Store) Append(event *types.Event) error {
	if err := s.validate(event); err != nil {
		s.logger.WithField("error", err.Error()).Warn("Rejected invalid event")
		return err
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Location == "" {
		event.Location = "front_door"
	}

	if err := s.db.InsertEvent(event); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"location":   event.Location,
		"home_mode":  event.HomeMode,
	}).Info("Event recorded")

	return nil
}

func (s *Store) validate(event *types.Event) error {
	if event == nil {
		return &ValidationError{Field: "event", Message: "event is nil"}
	}
	if !types.IsValidEventType(event.Type) {
		return &ValidationError{Field: "event_type", Message: fmt.Sprintf("unknown event type %q", event.Type)}
	}
	if event.ID != 0 {
		return &ValidationError{Field: "id", Message: "id must be unset on append"}
	}
	return nil
}

// Query returns events matching the filter, newest first
func (s *Store) Query(filter database.EventFilter) ([]types.Event, error) {
	events, err := s.db.QueryEvents(filter)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return events, nil
}

// Get returns a single event by id
func (s *Store) Get(id int64) (*types.Event, error) {
	event, err := s.db.GetEvent(id)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// MarkProcessed records the outcome of event processing. Calling it
// again for the same event is a no-op beyond re-writing the same flags.
func (s *Store) MarkProcessed(id int64, notificationSent bool) error {
	if err := s.db.MarkEventProcessed(id, notificationSent); err != nil {
		return &PersistenceError{Op: "mark processed", Err: err}
	}
	return nil
}

// Stats returns per-type event counts over the trailing number of days
func (s *Store) Stats(days int) (map[string]int, error) {
	stats, err := s.db.EventStats(days)
	if err != nil {
		return nil, &PersistenceError{Op: "stats", Err: err}
	}
	return stats, nil
}
