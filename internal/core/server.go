// Package core provides the API chassis for the RiskProfile service: a chi
// router with the cross-cutting middleware chain (recovery, timeouts, request
// correlation, logging, CORS, metrics) applied before requests reach the
// domain handlers.
package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"riskprofile/internal/config"
)

// MetricsCollector records API request telemetry. The production
// implementation lives in internal/observability and exports to Prometheus.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server bundles the chassis dependencies so tests can inject substitutes
// and main can wire the real ones.
type Server struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics MetricsCollector

	// HealthProbes are checked by GET /health. Empty means trivially healthy.
	HealthProbes []HealthProbe

	// V1RouteRegistrars mount domain handler routes under /v1. Populated by
	// the application entry point; the indirection avoids an import cycle
	// between core and the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// MetricsHandler serves GET /metrics (the Prometheus exposition
	// endpoint). Nil disables the route.
	MetricsHandler http.Handler

	router *chi.Mux
}

// NewServer prepares the server for route mounting. The caller mounts routes
// via MountRoutes after registering handlers.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler for http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
