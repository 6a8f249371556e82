package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskprofile/internal/types"
)

func TestListHazards(t *testing.T) {
	m := &mockOrchestrator{
		providers: []types.ProviderID{types.ProviderFEMANRI, types.ProviderUSGS},
		coverage: map[types.ProviderID][]types.HazardType{
			types.ProviderFEMANRI: {types.HazardWildfire, types.HazardFlood},
			types.ProviderUSGS:    {types.HazardEarthquake, types.HazardDrought},
		},
	}

	h := NewHazardHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/v1/hazards", h.RegisterRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hazards", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Hazards   []types.HazardType `json:"hazards"`
			Providers []struct {
				Provider types.ProviderID   `json:"provider"`
				Hazards  []types.HazardType `json:"hazards"`
			} `json:"providers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Len(t, body.Data.Hazards, len(types.AllHazardTypes))
	require.Len(t, body.Data.Providers, 2)

	// Providers retain the configured order; hazard lists are sorted.
	assert.Equal(t, types.ProviderFEMANRI, body.Data.Providers[0].Provider)
	assert.Equal(t, []types.HazardType{types.HazardFlood, types.HazardWildfire}, body.Data.Providers[0].Hazards)
	assert.Equal(t, types.ProviderUSGS, body.Data.Providers[1].Provider)
	assert.Equal(t, []types.HazardType{types.HazardDrought, types.HazardEarthquake}, body.Data.Providers[1].Hazards)
}

func TestListHazardsLeavesCoverageSlicesIntact(t *testing.T) {
	// The handler sorts hazard lists for the response; the slices the
	// reporter hands out must keep their original order.
	femaHazards := []types.HazardType{types.HazardWildfire, types.HazardFlood, types.HazardHeat}
	m := &mockOrchestrator{
		providers: []types.ProviderID{types.ProviderFEMANRI},
		coverage: map[types.ProviderID][]types.HazardType{
			types.ProviderFEMANRI: femaHazards,
		},
	}

	h := NewHazardHandler(m, nil)
	r := chi.NewRouter()
	r.Route("/v1/hazards", h.RegisterRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hazards", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []types.HazardType{types.HazardWildfire, types.HazardFlood, types.HazardHeat}, femaHazards)
}

func TestListHazardsNoProviders(t *testing.T) {
	m := &mockOrchestrator{coverage: map[types.ProviderID][]types.HazardType{}}

	h := NewHazardHandler(m, nil)
	r := chi.NewRouter()
	r.Route("/v1/hazards", h.RegisterRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hazards", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Providers []any `json:"providers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Data.Providers)
}
