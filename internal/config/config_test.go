package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, -60, cfg.SignalNearThreshold)
	assert.Equal(t, -80, cfg.SignalFarThreshold)
	assert.True(t, cfg.HomeModeDefault)
	assert.Equal(t, 95, cfg.PhotoQuality)
	assert.Equal(t, "22:00", cfg.QuietHoursStart)
	assert.Equal(t, "07:00", cfg.QuietHoursEnd)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 24, cfg.SweepIntervalHours)

	require.NoError(t, cfg.Validate())
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.ServerPort = 0 }},
		{"missing database path", func(c *Config) { c.DatabasePath = "" }},
		{"missing photo dir", func(c *Config) { c.PhotoDir = "" }},
		{"missing encryption key", func(c *Config) { c.EncryptionKey = "" }},
		{"inverted thresholds", func(c *Config) { c.SignalNearThreshold = -90 }},
		{"bad quality", func(c *Config) { c.PhotoQuality = 101 }},
		{"bad retention", func(c *Config) { c.RetentionDays = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"bad quiet start", func(c *Config) { c.QuietHoursStart = "25:00" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*24*time.Hour, cfg.RetentionWindow())
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}

func TestLoadWithoutConfigFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
}
