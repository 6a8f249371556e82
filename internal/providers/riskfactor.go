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

// rfFieldByHazard maps our hazard taxonomy to RiskFactor's factor names.
// RiskFactor calls wildfire exposure "fire" and models hurricane exposure as
// "wind".
var rfFieldByHazard = map[types.HazardType]string{
	types.HazardFlood:     "flood",
	types.HazardWildfire:  "fire",
	types.HazardHeat:      "heat",
	types.HazardHurricane: "wind",
}

var rfHazards = []types.HazardType{
	types.HazardFlood,
	types.HazardWildfire,
	types.HazardHeat,
	types.HazardHurricane,
}

// RiskFactorAdapter reads the RiskFactor property API, a paid provider that
// models risk at the individual-parcel level.
//
// Normalization: RiskFactor reports an integer factor on a 1-10 scale per
// hazard. The factor maps linearly onto our scale as factor x 10:
//
//	factor  1   2   3   4   5   6   7   8   9  10
//	score  10  20  30  40  50  60  70  80  90 100
//
// Factors outside 1-10 mark the reading invalid rather than being clamped; a
// clamped fabrication would silently misstate a property's risk.
//
// Parcel-level modeling is the most specific source we have, so readings
// carry high confidence.
type RiskFactorAdapter struct {
	client  HTTPDoer
	baseURL string
	apiKey  types.SecretString
	timeout time.Duration
	clock   types.Clock
	logger  *slog.Logger
}

// NewRiskFactorAdapter creates the RiskFactor adapter.
func NewRiskFactorAdapter(client HTTPDoer, cfg config.RiskFactorConfig, logger *slog.Logger, clock types.Clock) *RiskFactorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = &types.RealClock{}
	}
	return &RiskFactorAdapter{
		client:  client,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		clock:   clock,
		logger:  logger,
	}
}

func (a *RiskFactorAdapter) Name() types.ProviderID { return types.ProviderRiskFactor }

func (a *RiskFactorAdapter) SupportedHazards() []types.HazardType { return rfHazards }

func (a *RiskFactorAdapter) Supports(h types.HazardType) bool {
	_, ok := rfFieldByHazard[h]
	return ok
}

func (a *RiskFactorAdapter) Timeout() time.Duration { return a.timeout }

// rfResponse is the wire shape of GET /v1/properties/risk.
type rfResponse struct {
	PropertyID string             `json:"property_id"`
	Factors    map[string]float64 `json:"factors"`
}

// Fetch retrieves property risk factors for the requested hazards.
func (a *RiskFactorAdapter) Fetch(ctx context.Context, coord types.Coordinate, hazards []types.HazardType) []types.SourceReading {
	wanted := supportedOf(hazards, a.Supports)
	if len(wanted) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	now := a.clock.Now()

	endpoint := fmt.Sprintf("%s/v1/properties/risk?%s", a.baseURL, url.Values{
		"lat": []string{strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"lon": []string{strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failAll(a.Name(), wanted, types.ErrCodeInternalUnexpected, "failed to build request", now)
	}
	req.Header.Set("X-API-Key", a.apiKey.Unmask())

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.WarnContext(ctx, "riskfactor fetch failed",
			slog.String("provider", string(a.Name())), slog.Any("error", err))
		return failAll(a.Name(), wanted, failureCodeFor(err), err.Error(), now)
	}

	var payload rfResponse
	if err := decodeResponse(resp, &payload); err != nil {
		a.logger.WarnContext(ctx, "riskfactor response invalid",
			slog.String("provider", string(a.Name())), slog.Any("error", err))
		return failAll(a.Name(), wanted, types.ErrCodeUpstreamInvalidResponse, err.Error(), now)
	}

	readings := make([]types.SourceReading, 0, len(wanted))
	for _, h := range wanted {
		field := rfFieldByHazard[h]
		factor, ok := payload.Factors[field]
		if !ok {
			readings = append(readings, types.FailedReading(a.Name(), h,
				types.ErrCodeUpstreamInvalidResponse,
				fmt.Sprintf("factor %q missing from response", field), now))
			continue
		}
		if factor < 1 || factor > 10 {
			readings = append(readings, types.FailedReading(a.Name(), h,
				types.ErrCodeUpstreamInvalidResponse,
				fmt.Sprintf("factor %q out of 1-10 range: %v", field, factor), now))
			continue
		}

		readings = append(readings, types.SourceReading{
			Provider:   a.Name(),
			Hazard:     h,
			RawValue:   factor,
			Score:      types.ScorePtr(types.ClampScore(factor * 10)),
			Confidence: types.ConfidenceHigh,
			FetchedAt:  now,
		})
	}
	return readings
}
