package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"doorbell-hub/internal/api"
	"doorbell-hub/internal/auth"
	"doorbell-hub/internal/camera"
	"doorbell-hub/internal/cloud"
	"doorbell-hub/internal/config"
	"doorbell-hub/internal/database"
	"doorbell-hub/internal/events"
	"doorbell-hub/internal/hub"
	"doorbell-hub/internal/logging"
	"doorbell-hub/internal/mode"
	"doorbell-hub/internal/notify"
	"doorbell-hub/internal/presence"
	"doorbell-hub/internal/sweeper"
	"doorbell-hub/internal/types"
)

const version = "1.0.0"

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "doorbell-hub",
	Short: "Doorbell Hub - Smart doorbell and motion alert backend",
	Long: `A home hub that records doorbell and motion sensor events, captures
visitor photos, resolves whether anyone is home, and fans alerts out
over push, email and SMS. Event history and live updates are served
over an HTTP API with WebSocket streaming.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := logging.Initialize(logLevel)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.LogFile != "" {
		if err := logging.SetupFileLogging(logger, cfg.LogFile); err != nil {
			logger.WithError(err).Warn("Failed to set up file logging")
		}
	}

	db, err := database.NewDB(database.Config{
		DatabasePath:  cfg.DatabasePath,
		EncryptionKey: cfg.EncryptionKey,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Core services
	store := events.NewStore(db, logging.NewServiceLogger(logger, "events"))

	device := camera.NewSnapshotDevice(cfg.CameraSnapshotURL, time.Duration(cfg.CaptureTimeoutSec)*time.Second)
	gate := camera.NewGate(device, db, cfg.PhotoDir, cfg.PhotoQuality, logging.NewServiceLogger(logger, "camera"))

	resolver := mode.NewResolver(cfg.HomeModeDefault, cfg.SignalNearThreshold, cfg.SignalFarThreshold,
		logging.NewServiceLogger(logger, "mode"))

	authSvc := auth.NewService(db, cfg.JWTSecret, cfg.TokenTTL(), logging.NewServiceLogger(logger, "auth"))

	quiet, err := notify.ParseQuietHours(cfg.QuietHoursStart, cfg.QuietHoursEnd)
	if err != nil {
		return err
	}

	router := notify.NewRouter(buildChannels(cfg), db, store, quiet, logging.NewServiceLogger(logger, "notify"))
	retrier := notify.NewRetrier(db, router, cfg.MaxRetries, time.Duration(cfg.RetryIntervalSec)*time.Second,
		logging.NewServiceLogger(logger, "retrier"))

	prefSource := &ownerPreferences{db: db, auth: authSvc, cfg: cfg}

	handlers := api.NewHandlers(nil, authSvc, nil, logger, version)
	server := api.NewServer(cfg, logger, handlers, authSvc)

	h := hub.New(store, gate, resolver, router, prefSource, server.WebSocketManager(),
		logging.NewServiceLogger(logger, "hub"))
	handlers.SetHub(h)
	handlers.SetDeviceConfig(api.DeviceConfigResponse{
		CaptureEnabled:      cfg.CameraSnapshotURL != "",
		Location:            "front_door",
		SignalNearThreshold: cfg.SignalNearThreshold,
		SignalFarThreshold:  cfg.SignalFarThreshold,
		QuietHoursStart:     cfg.QuietHoursStart,
		QuietHoursEnd:       cfg.QuietHoursEnd,
		HeartbeatInterval:   cfg.PresenceIntervalSec,
	})

	sweep := sweeper.NewSweeper(db, cfg.PhotoDir, cfg.RetentionWindow(),
		time.Duration(cfg.SweepIntervalHours)*time.Hour, logging.NewServiceLogger(logger, "sweeper"))

	var wg sync.WaitGroup
	runWorker := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
		logger.WithField("worker", name).Debug("Worker started")
	}

	runWorker("sweeper", sweep.Run)
	runWorker("retrier", retrier.Run)

	// Optional workers
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		tracker := presence.NewTracker(client, resolver,
			time.Duration(cfg.PresenceTTLSec)*time.Second,
			time.Duration(cfg.PresenceIntervalSec)*time.Second,
			logging.NewServiceLogger(logger, "presence"))
		handlers.SetPresence(tracker)
		runWorker("presence", tracker.Run)
	}

	if cfg.CloudDSN != "" {
		archiver, err := cloud.NewArchiver(db, cfg.CloudDSN, cfg.CloudBatchSize,
			time.Duration(cfg.CloudIntervalSec)*time.Second,
			logging.NewServiceLogger(logger, "cloud"))
		if err != nil {
			logger.WithError(err).Warn("Cloud archiver disabled")
		} else {
			defer archiver.Close()
			runWorker("archiver", archiver.Run)
		}
	}

	err = server.Start(ctx)
	stop()
	wg.Wait()
	return err
}

// buildChannels constructs the notification channels enabled in config
func buildChannels(cfg *config.Config) []notify.Channel {
	var channels []notify.Channel

	if cfg.Push.Enabled {
		channels = append(channels, notify.NewPushChannel(notify.PushConfig{
			Endpoint:  cfg.Push.Endpoint,
			ServerKey: cfg.Push.ServerKey,
		}))
	}
	if cfg.Email.Enabled {
		channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			From:     cfg.Email.From,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
		}))
	}
	if cfg.SMS.Enabled {
		channels = append(channels, notify.NewSMSChannel(notify.SMSConfig{
			GatewayURL: cfg.SMS.GatewayURL,
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			From:       cfg.SMS.From,
		}))
	}

	return channels
}

// ownerPreferences resolves the household owner's notification
// preferences. Before any account is registered, sensor alerts fall
// back to the recipients configured in the config file.
type ownerPreferences struct {
	db   *database.DB
	auth *auth.Service
	cfg  *config.Config
}

func (o *ownerPreferences) OwnerPreferences() (string, *types.Preferences, error) {
	user, err := o.db.GetUserByUsername(o.cfg.OwnerUsername)
	if err == sql.ErrNoRows {
		prefs := types.DefaultPreferences()
		prefs.EmailTo = o.cfg.Email.To
		prefs.PhoneTo = o.cfg.SMS.To
		return "", prefs, nil
	}
	if err != nil {
		return "", nil, err
	}

	prefs, err := o.auth.Preferences(user.ID)
	if err != nil {
		return "", nil, err
	}
	return user.ID, prefs, nil
}
