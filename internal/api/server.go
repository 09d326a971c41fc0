package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"doorbell-hub/internal/auth"
	"doorbell-hub/internal/config"
)

const requestsPerMinute = 120

// Server is the HTTP API server
type Server struct {
	config      *config.Config
	logger      *logrus.Logger
	router      *mux.Router
	httpServer  *http.Server
	handlers    *Handlers
	auth        *auth.Service
	rateLimiter *rateLimiter
}

// NewServer creates the API server
func NewServer(cfg *config.Config, logger *logrus.Logger, handlers *Handlers, authSvc *auth.Service) *Server {
	server := &Server{
		config:      cfg,
		logger:      logger,
		router:      mux.NewRouter(),
		handlers:    handlers,
		auth:        authSvc,
		rateLimiter: newRateLimiter(requestsPerMinute),
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:      server.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return server
}

// WebSocketManager exposes the live update broadcaster
func (s *Server) WebSocketManager() *WebSocketManager {
	return s.handlers.wsManager
}

// Start runs the HTTP server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")

	s.handlers.wsManager.Start(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		return s.Shutdown()
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.handlers.wsManager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Error during server shutdown")
		return err
	}

	s.logger.Info("API server shutdown complete")
	return nil
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Public endpoints
	api.HandleFunc("/health", s.handlers.HealthCheck).Methods("GET")
	api.HandleFunc("/auth/register", s.handlers.Register).Methods("POST")
	api.HandleFunc("/auth/login", s.handlers.Login).Methods("POST")

	// Protected endpoints
	protected := api.PathPrefix("").Subrouter()
	protected.Use(s.authenticationMiddleware)

	protected.HandleFunc("/auth/logout", s.handlers.Logout).Methods("POST")

	// Sensor trigger endpoints
	protected.HandleFunc("/doorbell", s.handlers.RecordDoorbell).Methods("POST")
	protected.HandleFunc("/motion", s.handlers.RecordMotion).Methods("POST")
	protected.HandleFunc("/camera/capture", s.handlers.CapturePhoto).Methods("POST")

	// Event history endpoints
	protected.HandleFunc("/events", s.handlers.GetEvents).Methods("GET")
	protected.HandleFunc("/events/stats", s.handlers.GetEventStats).Methods("GET")

	// System endpoints
	protected.HandleFunc("/system/home-mode", s.handlers.GetHomeMode).Methods("GET")
	protected.HandleFunc("/system/home-mode", s.handlers.SetHomeMode).Methods("POST")
	protected.HandleFunc("/system/signal", s.handlers.ReportSignal).Methods("POST")
	protected.HandleFunc("/system/status", s.handlers.SystemStatus).Methods("GET")
	protected.HandleFunc("/config", s.handlers.DeviceConfig).Methods("GET")

	// Notification preference endpoints
	protected.HandleFunc("/notifications/settings", s.handlers.GetPreferences).Methods("GET")
	protected.HandleFunc("/notifications/settings", s.handlers.UpdatePreferences).Methods("PUT")
	protected.HandleFunc("/notifications/device-token", s.handlers.RegisterDeviceToken).Methods("POST")

	// WebSocket endpoint
	protected.HandleFunc("/ws", s.handlers.WebSocketHandler).Methods("GET")
}

// writeErrorResponse writes a JSON error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.handlers.writeError(w, message, statusCode)
}
