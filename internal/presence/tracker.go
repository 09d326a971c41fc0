package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "presence:device:"

// absent is fed to the updater when no device heartbeat is live
const absentSignal = -120

// ModeUpdater receives resolved presence signal strengths
type ModeUpdater interface {
	UpdateFromSignal(strength int)
}

// Tracker keeps short-lived device heartbeats in redis and periodically
// feeds the strongest live signal to the mode resolver. A phone that
// stops heartbeating simply ages out of redis.
type Tracker struct {
	client   *redis.Client
	updater  ModeUpdater
	ttl      time.Duration
	interval time.Duration
	logger   *logrus.Entry
}

// NewTracker creates a presence tracker
func NewTracker(client *redis.Client, updater ModeUpdater, ttl, interval time.Duration, logger *logrus.Entry) *Tracker {
	return &Tracker{
		client:   client,
		updater:  updater,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Heartbeat records a device's current signal strength with a TTL
func (t *Tracker) Heartbeat(ctx context.Context, deviceID string, strength int) error {
	key := keyPrefix + deviceID
	if err := t.client.Set(ctx, key, strength, t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record heartbeat for %s: %w", deviceID, err)
	}
	return nil
}

// StrongestSignal returns the best live signal, or absentSignal when no
// device heartbeat is live.
func (t *Tracker) StrongestSignal(ctx context.Context) (int, error) {
	var cursor uint64
	best := absentSignal
	found := false

	for {
		keys, next, err := t.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan presence keys: %w", err)
		}

		for _, key := range keys {
			val, err := t.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return 0, fmt.Errorf("failed to read presence key %s: %w", key, err)
			}

			strength, err := strconv.Atoi(val)
			if err != nil {
				t.logger.WithField("key", key).Warn("Skipping malformed presence value")
				continue
			}

			if !found || strength > best {
				best = strength
				found = true
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return best, nil
}

// Run feeds the resolver on an interval until ctx is cancelled
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.WithField("interval", t.interval.String()).Info("Presence tracker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Presence tracker stopped")
			return
		case <-ticker.C:
			strength, err := t.StrongestSignal(ctx)
			if err != nil {
				t.logger.WithField("error", err.Error()).Warn("Presence poll failed")
				continue
			}
			t.updater.UpdateFromSignal(strength)
		}
	}
}
