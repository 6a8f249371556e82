package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"riskprofile/internal/config"
	"riskprofile/internal/types"
)

// nriFieldByHazard maps our hazard taxonomy to the National Risk Index score
// field names. NRI publishes percentile scores per census tract; riverine
// flooding stands in for our generic flood hazard.
var nriFieldByHazard = map[types.HazardType]string{
	types.HazardFlood:      "riverine_flooding",
	types.HazardWildfire:   "wildfire",
	types.HazardHeat:       "heat_wave",
	types.HazardHurricane:  "hurricane",
	types.HazardEarthquake: "earthquake",
	types.HazardDrought:    "drought",
}

// femaHazards is the canonical coverage order.
var femaHazards = []types.HazardType{
	types.HazardFlood,
	types.HazardWildfire,
	types.HazardHeat,
	types.HazardHurricane,
	types.HazardEarthquake,
	types.HazardDrought,
}

// FEMAAdapter reads the FEMA National Risk Index, a free government hazard
// index at census-tract resolution.
//
// Normalization is a passthrough: NRI already publishes 0-100 percentile
// scores, clamped here against out-of-range values. Tract-level data is not
// property-specific, so every reading carries medium confidence.
//
// The flood score derives from the regulatory flood-zone designation, which
// changes on remapping cycles measured in years; flood readings therefore
// declare the static TTL (24h) instead of the default reading TTL.
type FEMAAdapter struct {
	client    HTTPDoer
	baseURL   string
	timeout   time.Duration
	staticTTL time.Duration
	clock     types.Clock
	logger    *slog.Logger
}

// NewFEMAAdapter creates the NRI adapter. staticTTL is the cache lifetime
// for regulatory (flood-zone derived) readings.
func NewFEMAAdapter(client HTTPDoer, cfg config.FEMAConfig, staticTTL time.Duration, logger *slog.Logger, clock types.Clock) *FEMAAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = &types.RealClock{}
	}
	return &FEMAAdapter{
		client:    client,
		baseURL:   cfg.BaseURL,
		timeout:   cfg.Timeout,
		staticTTL: staticTTL,
		clock:     clock,
		logger:    logger,
	}
}

func (a *FEMAAdapter) Name() types.ProviderID { return types.ProviderFEMANRI }

func (a *FEMAAdapter) SupportedHazards() []types.HazardType { return femaHazards }

func (a *FEMAAdapter) Supports(h types.HazardType) bool {
	_, ok := nriFieldByHazard[h]
	return ok
}

func (a *FEMAAdapter) Timeout() time.Duration { return a.timeout }

// nriResponse is the wire shape of GET /nri/scores.
type nriResponse struct {
	Tract  string             `json:"tract"`
	Scores map[string]float64 `json:"scores"`
}

// Fetch retrieves NRI percentile scores for the requested hazards.
func (a *FEMAAdapter) Fetch(ctx context.Context, coord types.Coordinate, hazards []types.HazardType) []types.SourceReading {
	wanted := supportedOf(hazards, a.Supports)
	if len(wanted) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	now := a.clock.Now()

	endpoint := fmt.Sprintf("%s/nri/scores?%s", a.baseURL, url.Values{
		"lat": []string{strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"lon": []string{strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failAll(a.Name(), wanted, types.ErrCodeInternalUnexpected, "failed to build request", now)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.WarnContext(ctx, "nri fetch failed",
			slog.String("provider", string(a.Name())), slog.Any("error", err))
		return failAll(a.Name(), wanted, failureCodeFor(err), err.Error(), now)
	}

	var payload nriResponse
	if err := decodeResponse(resp, &payload); err != nil {
		a.logger.WarnContext(ctx, "nri response invalid",
			slog.String("provider", string(a.Name())), slog.Any("error", err))
		return failAll(a.Name(), wanted, types.ErrCodeUpstreamInvalidResponse, err.Error(), now)
	}

	readings := make([]types.SourceReading, 0, len(wanted))
	for _, h := range wanted {
		field := nriFieldByHazard[h]
		raw, ok := payload.Scores[field]
		if !ok {
			readings = append(readings, types.FailedReading(a.Name(), h,
				types.ErrCodeUpstreamInvalidResponse,
				fmt.Sprintf("score field %q missing from response", field), now))
			continue
		}

		r := types.SourceReading{
			Provider:   a.Name(),
			Hazard:     h,
			RawValue:   raw,
			Score:      types.ScorePtr(types.ClampScore(raw)),
			Confidence: types.ConfidenceMedium,
			FetchedAt:  now,
		}
		if h == types.HazardFlood {
			r.TTL = a.staticTTL
		}
		readings = append(readings, r)
	}
	return readings
}
