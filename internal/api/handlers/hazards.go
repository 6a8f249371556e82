package handlers

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"riskprofile/internal/core"
	"riskprofile/internal/types"
)

// CoverageReporter exposes which providers are configured and which hazards
// each can score.
type CoverageReporter interface {
	ConfiguredProviders() []types.ProviderID
	Coverage() map[types.ProviderID][]types.HazardType
}

// HazardHandler serves the hazard coverage matrix so clients can discover
// which hazard types and providers are available before requesting an
// assessment.
type HazardHandler struct {
	reporter CoverageReporter
	logger   *slog.Logger
}

func NewHazardHandler(reporter CoverageReporter, logger *slog.Logger) *HazardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HazardHandler{reporter: reporter, logger: logger}
}

// RegisterRoutes mounts the hazard endpoints onto the mux.
func (h *HazardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListHazards)
}

type providerCoverage struct {
	Provider types.ProviderID   `json:"provider"`
	Hazards  []types.HazardType `json:"hazards"`
}

type hazardCatalog struct {
	Hazards   []types.HazardType `json:"hazards"`
	Providers []providerCoverage `json:"providers"`
}

// HandleListHazards handles GET /v1/hazards. The response enumerates the
// closed hazard set and, per configured provider, the hazards it covers.
func (h *HazardHandler) HandleListHazards(w http.ResponseWriter, r *http.Request) {
	coverage := h.reporter.Coverage()

	providers := make([]providerCoverage, 0, len(coverage))
	for _, id := range h.reporter.ConfiguredProviders() {
		// Sort a copy: the reporter may hand out slices it still owns.
		hazards := append([]types.HazardType(nil), coverage[id]...)
		sort.Slice(hazards, func(i, j int) bool { return hazards[i] < hazards[j] })
		providers = append(providers, providerCoverage{Provider: id, Hazards: hazards})
	}

	core.JSON(w, r, http.StatusOK, hazardCatalog{
		Hazards:   types.AllHazardTypes,
		Providers: providers,
	})
}
