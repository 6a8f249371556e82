package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskprofile/internal/config"
	"riskprofile/internal/types"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Server.CorsAllowedOrigins = []string{"https://app.example.com"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(cfg, logger)
	require.NoError(t, err)
	return s
}

func TestNewServerRequiresDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewServer(nil, logger)
	assert.Error(t, err)

	_, err = NewServer(&config.Config{}, nil)
	assert.Error(t, err)
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	s := testServer(t)
	var seen string
	s.V1RouteRegistrars = []func(chi.Router){
		func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
				seen = types.GetRequestID(req.Context())
				w.WriteHeader(http.StatusOK)
			})
		},
	}
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDPropagated(t *testing.T) {
	s := testServer(t)
	s.V1RouteRegistrars = []func(chi.Router){
		func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		},
	}
	s.MountRoutes()

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied-id", rec.Header().Get("X-Request-Id"))
}

func TestSecurityHeadersPresent(t *testing.T) {
	s := testServer(t)
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRecovererConvertsPanicTo500(t *testing.T) {
	s := testServer(t)
	s.V1RouteRegistrars = []func(chi.Router){
		func(r chi.Router) {
			r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
				panic("handler exploded")
			})
		},
	}
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestContextTimeoutApplied(t *testing.T) {
	s := testServer(t)
	s.Config.Server.RequestTimeout = 50 * time.Millisecond

	var deadlineSet bool
	s.V1RouteRegistrars = []func(chi.Router){
		func(r chi.Router) {
			r.Get("/slow", func(w http.ResponseWriter, req *http.Request) {
				_, deadlineSet = req.Context().Deadline()
				w.WriteHeader(http.StatusOK)
			})
		},
	}
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/slow", nil))

	assert.True(t, deadlineSet)
}

func TestCORSAllowedOrigin(t *testing.T) {
	s := testServer(t)
	s.MountRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	s := testServer(t)
	s.MountRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type countingCollector struct {
	method, endpoint, status string
	calls                    int
}

func (c *countingCollector) RecordRequest(method, endpoint, status string, _ time.Duration) {
	c.method, c.endpoint, c.status = method, endpoint, status
	c.calls++
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	s := testServer(t)
	collector := &countingCollector{}
	s.Metrics = collector
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, collector.calls)
	assert.Equal(t, http.MethodGet, collector.method)
	assert.Equal(t, "/health", collector.endpoint)
	assert.Equal(t, "200", collector.status)
}

type stubProbe struct {
	name string
	err  error
}

func (p stubProbe) Name() string                  { return p.name }
func (p stubProbe) Check(_ context.Context) error { return p.err }

func TestHealthAllProbesHealthy(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		stubProbe{name: "cache"},
		stubProbe{name: "config"},
	}
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["cache"])
}

func TestHealthFailingProbeDegrades(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		stubProbe{name: "cache", err: errors.New("connection refused")},
		stubProbe{name: "config"},
	}
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["cache"])
	assert.Equal(t, "ok", resp.Checks["config"])
}
