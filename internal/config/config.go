package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the hub configuration
type Config struct {
	// Server configuration
	ServerHost string `mapstructure:"server_host"`
	ServerPort int    `mapstructure:"server_port"`

	// Storage configuration
	DatabasePath  string `mapstructure:"database_path"`
	PhotoDir      string `mapstructure:"photo_dir"`
	EncryptionKey string `mapstructure:"encryption_key"` // passphrase, hashed to 32 bytes by the database layer

	// Auth configuration
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	OwnerUsername string `mapstructure:"owner_username"`

	// Home/away inference thresholds (dBm). Signal at or above near means
	// home, at or below far means away, in between keeps the previous state.
	SignalNearThreshold int  `mapstructure:"signal_near_threshold"`
	SignalFarThreshold  int  `mapstructure:"signal_far_threshold"`
	HomeModeDefault     bool `mapstructure:"home_mode_default"`

	// Camera configuration
	CameraSnapshotURL string `mapstructure:"camera_snapshot_url"`
	PhotoQuality      int    `mapstructure:"photo_quality"`
	CaptureTimeoutSec int    `mapstructure:"capture_timeout_sec"`

	// Notification configuration
	QuietHoursStart  string      `mapstructure:"quiet_hours_start"`
	QuietHoursEnd    string      `mapstructure:"quiet_hours_end"`
	MaxRetries       int         `mapstructure:"max_retries"`
	RetryIntervalSec int         `mapstructure:"retry_interval_sec"`
	Push             PushConfig  `mapstructure:"push"`
	Email            EmailConfig `mapstructure:"email"`
	SMS              SMSConfig   `mapstructure:"sms"`

	// Retention configuration
	RetentionDays      int `mapstructure:"retention_days"`
	SweepIntervalHours int `mapstructure:"sweep_interval_hours"`

	// Presence tracking (optional, requires Redis)
	RedisAddr           string `mapstructure:"redis_addr"`
	RedisPassword       string `mapstructure:"redis_password"`
	RedisDB             int    `mapstructure:"redis_db"`
	PresenceTTLSec      int    `mapstructure:"presence_ttl_sec"`
	PresenceIntervalSec int    `mapstructure:"presence_interval_sec"`

	// Cloud archive (optional, requires Postgres)
	CloudDSN          string `mapstructure:"cloud_dsn"`
	CloudBatchSize    int    `mapstructure:"cloud_batch_size"`
	CloudIntervalSec  int    `mapstructure:"cloud_interval_sec"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// PushConfig holds push notification delivery settings
type PushConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	ServerKey string `mapstructure:"server_key"`
}

// EmailConfig holds SMTP delivery settings
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	To       string `mapstructure:"to"`
}

// SMSConfig holds SMS gateway delivery settings
type SMSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	GatewayURL string `mapstructure:"gateway_url"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		ServerHost:          "0.0.0.0",
		ServerPort:          8080,
		DatabasePath:        "./doorbell.db",
		PhotoDir:            "./photos",
		EncryptionKey:       "doorbell-hub-dev-key",
		JWTSecret:           "",
		TokenTTLHours:       24,
		OwnerUsername:       "",
		SignalNearThreshold: -60,
		SignalFarThreshold:  -80,
		HomeModeDefault:     true,
		PhotoQuality:        95,
		CaptureTimeoutSec:   10,
		QuietHoursStart:     "22:00",
		QuietHoursEnd:       "07:00",
		MaxRetries:          3,
		RetryIntervalSec:    60,
		Push:                PushConfig{Endpoint: "https://fcm.googleapis.com/fcm/send"},
		Email:               EmailConfig{SMTPHost: "smtp.gmail.com", SMTPPort: 587},
		SMS:                 SMSConfig{},
		RetentionDays:       30,
		SweepIntervalHours:  24,
		PresenceTTLSec:      60,
		PresenceIntervalSec: 30,
		CloudBatchSize:      50,
		CloudIntervalSec:    300,
		LogLevel:            "info",
		LogFile:             "",
	}
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/doorbell-hub")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".doorbell-hub"))
		}
	}

	v.SetEnvPrefix("DOORBELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server_host", cfg.ServerHost)
	v.SetDefault("server_port", cfg.ServerPort)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("photo_dir", cfg.PhotoDir)
	v.SetDefault("encryption_key", cfg.EncryptionKey)
	v.SetDefault("token_ttl_hours", cfg.TokenTTLHours)
	v.SetDefault("signal_near_threshold", cfg.SignalNearThreshold)
	v.SetDefault("signal_far_threshold", cfg.SignalFarThreshold)
	v.SetDefault("home_mode_default", cfg.HomeModeDefault)
	v.SetDefault("photo_quality", cfg.PhotoQuality)
	v.SetDefault("capture_timeout_sec", cfg.CaptureTimeoutSec)
	v.SetDefault("quiet_hours_start", cfg.QuietHoursStart)
	v.SetDefault("quiet_hours_end", cfg.QuietHoursEnd)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("retry_interval_sec", cfg.RetryIntervalSec)
	v.SetDefault("push.endpoint", cfg.Push.Endpoint)
	v.SetDefault("email.smtp_host", cfg.Email.SMTPHost)
	v.SetDefault("email.smtp_port", cfg.Email.SMTPPort)
	v.SetDefault("retention_days", cfg.RetentionDays)
	v.SetDefault("sweep_interval_hours", cfg.SweepIntervalHours)
	v.SetDefault("presence_ttl_sec", cfg.PresenceTTLSec)
	v.SetDefault("presence_interval_sec", cfg.PresenceIntervalSec)
	v.SetDefault("cloud_batch_size", cfg.CloudBatchSize)
	v.SetDefault("cloud_interval_sec", cfg.CloudIntervalSec)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port must be between 1 and 65535")
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if c.PhotoDir == "" {
		return fmt.Errorf("photo_dir is required")
	}

	if c.EncryptionKey == "" {
		return fmt.Errorf("encryption_key is required")
	}

	if c.SignalNearThreshold <= c.SignalFarThreshold {
		return fmt.Errorf("signal_near_threshold must be greater than signal_far_threshold")
	}

	if c.PhotoQuality < 1 || c.PhotoQuality > 100 {
		return fmt.Errorf("photo_quality must be between 1 and 100")
	}

	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	if _, err := parseClock(c.QuietHoursStart); c.QuietHoursStart != "" && err != nil {
		return fmt.Errorf("invalid quiet_hours_start: %w", err)
	}
	if _, err := parseClock(c.QuietHoursEnd); c.QuietHoursEnd != "" && err != nil {
		return fmt.Errorf("invalid quiet_hours_end: %w", err)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// RetentionWindow returns the photo retention window as a duration
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// TokenTTL returns the access token lifetime
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}
