package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/types"
)

// RetryStore exposes the delivery log operations the retrier needs
type RetryStore interface {
	RetriableAttempts(maxRetries int) ([]types.NotificationAttempt, error)
	IncrementAttemptRetry(id int64) error
	UpdateAttemptStatus(id int64, status, errorMessage string) error
}

// Retrier periodically re-delivers failed notification attempts until
// they succeed or run out of retries.
type Retrier struct {
	store      RetryStore
	router     *Router
	maxRetries int
	interval   time.Duration
	logger     *logrus.Entry
}

// NewRetrier creates a retrier
func NewRetrier(store RetryStore, router *Router, maxRetries int, interval time.Duration, logger *logrus.Entry) *Retrier {
	return &Retrier{
		store:      store,
		router:     router,
		maxRetries: maxRetries,
		interval:   interval,
		logger:     logger,
	}
}

// Run retries failed attempts on an interval until ctx is cancelled
func (r *Retrier) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.WithField("interval", r.interval.String()).Info("Notification retrier started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Notification retrier stopped")
			return
		case <-ticker.C:
			if err := r.RetryOnce(ctx); err != nil {
				r.logger.WithField("error", err.Error()).Warn("Retry pass failed")
			}
		}
	}
}

// RetryOnce re-delivers every currently retriable attempt, oldest first.
// Each attempt's retry counter is bumped before the re-send so a crash
// mid-pass never grants extra retries.
func (r *Retrier) RetryOnce(ctx context.Context) error {
	attempts, err := r.store.RetriableAttempts(r.maxRetries)
	if err != nil {
		return err
	}

	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.retryAttempt(ctx, attempt)
	}

	return nil
}

func (r *Retrier) retryAttempt(ctx context.Context, attempt types.NotificationAttempt) {
	if err := r.store.IncrementAttemptRetry(attempt.ID); err != nil {
		r.logger.WithFields(logrus.Fields{
			"attempt_id": attempt.ID,
			"error":      err.Error(),
		}).Error("Failed to bump retry counter")
		return
	}
	if err := r.store.UpdateAttemptStatus(attempt.ID, types.StatusRetrying, ""); err != nil {
		r.logger.WithFields(logrus.Fields{
			"attempt_id": attempt.ID,
			"error":      err.Error(),
		}).Error("Failed to mark attempt retrying")
		return
	}

	msg := Message{
		Title: attempt.Subject,
		Body:  attempt.Message,
	}

	if err := r.router.SendChannel(ctx, attempt.Channel, attempt.Recipient, msg); err != nil {
		r.logger.WithFields(logrus.Fields{
			"attempt_id": attempt.ID,
			"channel":    attempt.Channel,
			"retry":      attempt.RetryCount + 1,
			"error":      err.Error(),
		}).Warn("Notification retry failed")
		if updErr := r.store.UpdateAttemptStatus(attempt.ID, types.StatusFailed, err.Error()); updErr != nil {
			r.logger.WithField("attempt_id", attempt.ID).Error("Failed to record retry failure")
		}
		return
	}

	if err := r.store.UpdateAttemptStatus(attempt.ID, types.StatusSent, ""); err != nil {
		r.logger.WithField("attempt_id", attempt.ID).Error("Failed to record retry success")
		return
	}

	r.logger.WithFields(logrus.Fields{
		"attempt_id": attempt.ID,
		"channel":    attempt.Channel,
	}).Info("Notification retry succeeded")
}
