package mode

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Source identifies what last set the home mode
type Source string

const (
	SourceDefault Source = "default"
	SourceManual  Source = "manual"
	SourceSignal  Source = "signal"
)

// Snapshot is a point-in-time view of the resolved mode
type Snapshot struct {
	Home      bool      `json:"home_mode"`
	Source    Source    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolver tracks whether anyone is home. Manual overrides win until the
// next override; signal updates apply hysteresis so the mode does not
// flap when the signal sits between the thresholds.
type Resolver struct {
	mu        sync.RWMutex
	home      bool
	source    Source
	updatedAt time.Time

	nearThreshold int
	farThreshold  int
	logger        *logrus.Entry
}

// NewResolver creates a resolver starting in the given default mode.
// nearThreshold must be greater than farThreshold (both dBm, negative).
func NewResolver(defaultHome bool, nearThreshold, farThreshold int, logger *logrus.Entry) *Resolver {
	return &Resolver{
		home:          defaultHome,
		source:        SourceDefault,
		updatedAt:     time.Now().UTC(),
		nearThreshold: nearThreshold,
		farThreshold:  farThreshold,
		logger:        logger,
	}
}

// Current returns whether the household is currently home
func (r *Resolver) Current() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.home
}

// Snapshot returns the current mode with its provenance
func (r *Resolver) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Home:      r.home,
		Source:    r.source,
		UpdatedAt: r.updatedAt,
	}
}

// SetOverride forces the mode manually
func (r *Resolver) SetOverride(home bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := r.home != home
	r.home = home
	r.source = SourceManual
	r.updatedAt = time.Now().UTC()

	if changed {
		r.logger.WithField("home_mode", home).Info("Home mode changed by override")
	}
}

// UpdateFromSignal feeds a presence signal strength reading (dBm). A
// reading at or above the near threshold resolves home, at or below the
// far threshold resolves away, and the band between leaves the current
// mode untouched.
func (r *Resolver) UpdateFromSignal(strength int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next bool
	switch {
	case strength >= r.nearThreshold:
		next = true
	case strength <= r.farThreshold:
		next = false
	default:
		return
	}

	if next != r.home {
		r.logger.WithFields(logrus.Fields{
			"home_mode": next,
			"signal":    strength,
		}).Info("Home mode changed by presence signal")
	}

	r.home = next
	r.source = SourceSignal
	r.updatedAt = time.Now().UTC()
}
