// Package main is the entry point for the RiskProfile API server.
//
// It loads configuration, wires the cache backend and provider adapters into
// the assessment orchestrator, builds the HTTP server with the core chassis
// (middleware, routing, health checks, metrics), and starts listening.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskprofile/internal/api/handlers"
	"riskprofile/internal/assess"
	"riskprofile/internal/cache"
	"riskprofile/internal/config"
	"riskprofile/internal/core"
	"riskprofile/internal/external"
	"riskprofile/internal/observability"
	"riskprofile/internal/providers"
	"riskprofile/internal/types"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	// Outside local mode, secrets (provider API keys, Redis password) may be
	// SSM parameter pointers resolved at load time.
	var secretProvider config.SecretProvider
	if os.Getenv("APP_ENV") != "local" {
		secretProvider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}

	cfg, err := config.LoadConfig(secretProvider)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("riskprofile API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"cache_backend", cfg.Cache.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := &types.RealClock{}

	store, probes, err := newCacheStore(ctx, cfg, clock)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer store.Close()

	cacheManager := cache.NewManager(store, cfg.Cache, logger, clock)
	metrics := observability.NewMetrics()

	adapters := buildAdapters(cfg, logger, clock)
	if len(adapters) == 0 {
		return errors.New("no hazard providers enabled; enable at least one of FEMA_ENABLED, RISKFACTOR_ENABLED, USGS_ENABLED")
	}
	for _, a := range adapters {
		logger.Info("provider enabled",
			"provider", string(a.Name()),
			"hazards", len(a.SupportedHazards()),
		)
	}

	orchestrator := assess.NewOrchestrator(
		adapters, cacheManager, cfg.Aggregation, cfg.Cache, metrics, logger, clock)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.MetricsHandler = promhttp.Handler()
	srv.HealthProbes = probes

	assessmentHandler := handlers.NewAssessmentHandler(orchestrator, logger)
	hazardHandler := handlers.NewHazardHandler(orchestrator, logger)
	srv.V1RouteRegistrars = []func(chi.Router){
		func(r chi.Router) { r.Route("/assessments", assessmentHandler.RegisterRoutes) },
		func(r chi.Router) { r.Route("/hazards", hazardHandler.RegisterRoutes) },
	}
	srv.MountRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newCacheStore selects the cache backend from configuration. Redis gets a
// health probe; the in-process store needs none.
func newCacheStore(ctx context.Context, cfg *config.Config, clock types.Clock) (cache.Store, []core.HealthProbe, error) {
	switch cfg.Cache.Backend {
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.Cache, clock)
		if err != nil {
			return nil, nil, err
		}
		return store, []core.HealthProbe{redisProbe{store}}, nil
	default:
		return cache.NewMemoryStore(clock), nil, nil
	}
}

type redisProbe struct {
	store *cache.RedisStore
}

func (p redisProbe) Name() string                    { return "redis" }
func (p redisProbe) Check(ctx context.Context) error { return p.store.Ping(ctx) }

// buildAdapters constructs one adapter per enabled provider, each with its
// own HTTP client and circuit breaker so one misbehaving upstream cannot trip
// the others.
func buildAdapters(cfg *config.Config, logger *slog.Logger, clock types.Clock) []providers.SourceAdapter {
	userAgent := fmt.Sprintf("%s/%s", cfg.Service, cfg.Build.Version)

	newClient := func(name string, timeout time.Duration) *external.BaseClient {
		return external.NewBaseClient(
			&http.Client{Timeout: timeout + time.Second},
			name,
			external.DefaultRetryPolicy(),
			userAgent,
		)
	}

	var adapters []providers.SourceAdapter
	if cfg.Providers.FEMA.Enabled {
		client := newClient("fema_nri", cfg.Providers.FEMA.Timeout)
		adapters = append(adapters, providers.NewFEMAAdapter(
			client, cfg.Providers.FEMA, cfg.Cache.StaticTTL, logger, clock))
	}
	if cfg.Providers.RiskFactor.Enabled {
		client := newClient("riskfactor", cfg.Providers.RiskFactor.Timeout)
		adapters = append(adapters, providers.NewRiskFactorAdapter(
			client, cfg.Providers.RiskFactor, logger, clock))
	}
	if cfg.Providers.USGS.Enabled {
		client := newClient("usgs", cfg.Providers.USGS.Timeout)
		adapters = append(adapters, providers.NewUSGSAdapter(
			client, cfg.Providers.USGS, logger, clock))
	}
	return adapters
}

// newLogger builds the process-wide JSON logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
