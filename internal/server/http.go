package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Prescott-Data/nexus-realtime/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// StatusSource is the view of the client served on /status.
type StatusSource interface {
	State() realtime.State
	OnlineCount() int64
	Reconnect() realtime.ReconnectState
}

// Server wraps the HTTP server
type Server struct {
	router *chi.Mux
	http   *http.Server
	logger *slog.Logger

	metrics     http.Handler
	apiKeys     []string
	corsOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithAPIKeys requires one of keys in X-API-Key on every route except /health.
func WithAPIKeys(keys ...string) Option {
	return func(s *Server) { s.apiKeys = keys }
}

// WithCORSOrigins allows browser dashboards on origins to read the server.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// NewServer creates a new HTTP server for the client status and metrics.
func NewServer(port int, status StatusSource, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupMiddleware()
	s.router.Get("/health", HealthHandler)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyMiddleware(s.apiKeys))
		r.Get("/status", StatusHandler(status))
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics)
		}
	})
	return s
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	if len(s.corsOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "X-API-Key"},
			MaxAge:         300,
		}))
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

// Router returns the chi router for adding routes
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves on the configured port until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting status server", "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// HealthHandler for health checks
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

// Status is the body of /status.
type Status struct {
	State       string `json:"state"`
	Connected   bool   `json:"connected"`
	OnlineCount int64  `json:"onlineCount"`
	Attempt     int    `json:"reconnectAttempt"`
	MaxAttempts int    `json:"maxReconnectAttempts"`
}

// StatusHandler reports the connection state of src.
func StatusHandler(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := src.State()
		rs := src.Reconnect()
		body := Status{
			State:       state.String(),
			Connected:   state == realtime.Open,
			OnlineCount: src.OnlineCount(),
			Attempt:     rs.Attempt,
			MaxAttempts: rs.MaxAttempts,
		}

		w.Header().Set("Content-Type", "application/json")
		if !body.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(body)
	}
}
