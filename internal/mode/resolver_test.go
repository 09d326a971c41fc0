package mode

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestResolver(defaultHome bool) *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(defaultHome, -60, -80, logger.WithField("test", true))
}

func TestResolverDefault(t *testing.T) {
	r := newTestResolver(true)
	assert.True(t, r.Current())
	assert.Equal(t, SourceDefault, r.Snapshot().Source)
}

func TestResolverOverride(t *testing.T) {
	r := newTestResolver(true)

	r.SetOverride(false)
	assert.False(t, r.Current())

	snap := r.Snapshot()
	assert.Equal(t, SourceManual, snap.Source)
	assert.False(t, snap.Home)
}

func TestSignalHysteresis(t *testing.T) {
	tests := []struct {
		name     string
		start    bool
		strength int
		want     bool
	}{
		{"strong signal resolves home", false, -50, true},
		{"at near threshold resolves home", false, -60, true},
		{"weak signal resolves away", true, -90, false},
		{"at far threshold resolves away", true, -80, false},
		{"middle band keeps home", true, -70, true},
		{"middle band keeps away", false, -70, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.start)
			r.UpdateFromSignal(tt.strength)
			assert.Equal(t, tt.want, r.Current())
		})
	}
}

func TestSignalSourceTracking(t *testing.T) {
	r := newTestResolver(true)

	// middle band leaves the source untouched
	r.UpdateFromSignal(-70)
	assert.Equal(t, SourceDefault, r.Snapshot().Source)

	r.UpdateFromSignal(-50)
	assert.Equal(t, SourceSignal, r.Snapshot().Source)
}
