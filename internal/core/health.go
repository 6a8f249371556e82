package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout bounds each probe so a hung dependency cannot stall the
// health endpoint past load-balancer patience.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks the liveness of a single dependency.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleHealth runs all registered probes concurrently and reports aggregate
// health. Any failing probe degrades the response to 503.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.HealthProbes))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, probe := range s.HealthProbes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			result := "ok"
			if err := p.Check(ctx); err != nil {
				result = err.Error()
				s.Logger.Warn("health probe failed",
					slog.String("probe", p.Name()),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			checks[p.Name()] = result
			mu.Unlock()
		}(probe)
	}
	wg.Wait()

	status := "ok"
	httpStatus := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: status, Checks: checks})
}
