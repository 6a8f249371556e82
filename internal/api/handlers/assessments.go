// Package handlers contains the HTTP handler implementations for the
// RiskProfile API: risk assessment retrieval, hazard coverage listing, and
// cache administration.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"riskprofile/internal/core"
	"riskprofile/internal/types"
)

// AssessmentOrchestrator defines the orchestration contract the assessment
// handler depends on. Defined locally so tests can substitute a fake without
// constructing the full provider pipeline.
type AssessmentOrchestrator interface {
	Assess(ctx context.Context, coord types.Coordinate, hazards []types.HazardType, providers []types.ProviderID) (*types.RiskAssessment, error)
	ConfiguredProviders() []types.ProviderID
	InvalidateBucket(ctx context.Context, coord types.Coordinate) (int, error)
	InvalidateAll(ctx context.Context) (int, error)
}

// AssessmentHandler maps HTTP requests to the assessment orchestrator.
type AssessmentHandler struct {
	orchestrator AssessmentOrchestrator
	logger       *slog.Logger
}

// NewAssessmentHandler creates an AssessmentHandler with the provided
// dependencies.
func NewAssessmentHandler(orch AssessmentOrchestrator, logger *slog.Logger) *AssessmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentHandler{orchestrator: orch, logger: logger}
}

// RegisterRoutes mounts the assessment endpoints onto the mux.
func (h *AssessmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleGetAssessment)
	r.Delete("/cache", h.HandleInvalidateCache)
}

// HandleGetAssessment handles GET /v1/assessments.
//
// Query parameters:
//   - lat, lon   required coordinate in decimal degrees
//   - hazards    optional comma-separated hazard filter
//   - providers  optional comma-separated provider filter
func (h *AssessmentHandler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	coord, err := parseCoordinate(r, true)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	q := r.URL.Query()

	hazards, err := types.ParseHazardTypes(splitCSV(q.Get("hazards")))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	providerSel, err := types.ParseProviderIDs(splitCSV(q.Get("providers")), h.orchestrator.ConfiguredProviders())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	assessment, err := h.orchestrator.Assess(r.Context(), *coord, hazards, providerSel)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, assessment)
}

// HandleInvalidateCache handles DELETE /v1/assessments/cache.
//
// With lat and lon the invalidation is scoped to the coordinate's geographic
// bucket; without them the entire cache is flushed.
func (h *AssessmentHandler) HandleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	coord, err := parseCoordinate(r, false)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var removed int
	scope := "all"
	if coord != nil {
		scope = "bucket"
		removed, err = h.orchestrator.InvalidateBucket(r.Context(), *coord)
	} else {
		removed, err = h.orchestrator.InvalidateAll(r.Context())
	}
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "cache invalidated",
		slog.String("scope", scope),
		slog.Int("entries_removed", removed),
	)

	core.JSON(w, r, http.StatusOK, map[string]any{
		"scope":           scope,
		"entries_removed": removed,
	})
}

// parseCoordinate extracts lat/lon query parameters. When required is false
// and both are absent it returns (nil, nil); supplying only one of the two is
// always an error.
func parseCoordinate(r *http.Request, required bool) (*types.Coordinate, error) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")

	if latStr == "" && lonStr == "" && !required {
		return nil, nil
	}
	if latStr == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField,
			"lat query parameter is required", nil)
	}
	if lonStr == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField,
			"lon query parameter is required", nil)
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidLat,
			"lat must be a valid number", nil)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidLon,
			"lon must be a valid number", nil)
	}

	coord := types.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	return &coord, nil
}

// splitCSV splits a comma-separated query value, trimming whitespace and
// dropping empty segments.
func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
