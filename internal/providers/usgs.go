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

var usgsHazards = []types.HazardType{
	types.HazardEarthquake,
	types.HazardDrought,
}

// pgaBands maps peak ground acceleration (in %g, two-percent-in-50-years) to
// a normalized score. Bands follow the conventional seismic design
// categories; scores sit mid-band rather than interpolating because PGA
// uncertainty swamps intra-band precision.
//
//	PGA %g     < 2    2-4   4-8   8-16  16-32  32-48  >= 48
//	score        5     15    30    45     60     75     90
var pgaBands = []struct {
	upTo  float64 // exclusive upper bound in %g
	score float64
}{
	{2, 5},
	{4, 15},
	{8, 30},
	{16, 45},
	{32, 60},
	{48, 75},
}

const pgaTopScore = 90

// earthquakeScore applies the PGA band table.
func earthquakeScore(pga float64) float64 {
	for _, band := range pgaBands {
		if pga < band.upTo {
			return band.score
		}
	}
	return pgaTopScore
}

// droughtScore inverts the streamflow percentile: percentile 0 is a record
// low flow (maximum drought risk, score 100), percentile 100 a record high
// (score 0).
func droughtScore(percentile float64) float64 {
	return types.ClampScore(100 - percentile)
}

// USGSAdapter reads the USGS geological and hydrological monitoring
// services: the seismic hazard model for earthquake and the streamflow
// percentile network for drought.
//
// Both are regional model estimates rather than parcel-level data, so
// readings carry medium confidence. The two hazards live on separate
// endpoints and are fetched independently; one endpoint failing does not
// fail the other.
type USGSAdapter struct {
	client  HTTPDoer
	baseURL string
	timeout time.Duration
	clock   types.Clock
	logger  *slog.Logger
}

// NewUSGSAdapter creates the USGS adapter.
func NewUSGSAdapter(client HTTPDoer, cfg config.USGSConfig, logger *slog.Logger, clock types.Clock) *USGSAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = &types.RealClock{}
	}
	return &USGSAdapter{
		client:  client,
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		clock:   clock,
		logger:  logger,
	}
}

func (a *USGSAdapter) Name() types.ProviderID { return types.ProviderUSGS }

func (a *USGSAdapter) SupportedHazards() []types.HazardType { return usgsHazards }

func (a *USGSAdapter) Supports(h types.HazardType) bool {
	return h == types.HazardEarthquake || h == types.HazardDrought
}

func (a *USGSAdapter) Timeout() time.Duration { return a.timeout }

type usgsPGAResponse struct {
	// PGA is peak ground acceleration in %g.
	PGA float64 `json:"pga"`
}

type usgsStreamflowResponse struct {
	// Percentile is the current streamflow percentile against the period of
	// record, 0-100.
	Percentile float64 `json:"percentile"`
}

// Fetch retrieves readings for the requested hazards, one endpoint per
// hazard.
func (a *USGSAdapter) Fetch(ctx context.Context, coord types.Coordinate, hazards []types.HazardType) []types.SourceReading {
	wanted := supportedOf(hazards, a.Supports)
	if len(wanted) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	readings := make([]types.SourceReading, 0, len(wanted))
	for _, h := range wanted {
		switch h {
		case types.HazardEarthquake:
			readings = append(readings, a.fetchEarthquake(ctx, coord))
		case types.HazardDrought:
			readings = append(readings, a.fetchDrought(ctx, coord))
		}
	}
	return readings
}

func (a *USGSAdapter) fetchEarthquake(ctx context.Context, coord types.Coordinate) types.SourceReading {
	now := a.clock.Now()

	var payload usgsPGAResponse
	if err := a.get(ctx, "/hazard/pga", coord, &payload); err != nil {
		return a.failed(ctx, types.HazardEarthquake, err, now)
	}
	if payload.PGA < 0 {
		return types.FailedReading(a.Name(), types.HazardEarthquake,
			types.ErrCodeUpstreamInvalidResponse,
			fmt.Sprintf("negative pga value: %v", payload.PGA), now)
	}

	return types.SourceReading{
		Provider:   a.Name(),
		Hazard:     types.HazardEarthquake,
		RawValue:   payload.PGA,
		Score:      types.ScorePtr(earthquakeScore(payload.PGA)),
		Confidence: types.ConfidenceMedium,
		FetchedAt:  now,
	}
}

func (a *USGSAdapter) fetchDrought(ctx context.Context, coord types.Coordinate) types.SourceReading {
	now := a.clock.Now()

	var payload usgsStreamflowResponse
	if err := a.get(ctx, "/streamflow/percentile", coord, &payload); err != nil {
		return a.failed(ctx, types.HazardDrought, err, now)
	}
	if payload.Percentile < 0 || payload.Percentile > 100 {
		return types.FailedReading(a.Name(), types.HazardDrought,
			types.ErrCodeUpstreamInvalidResponse,
			fmt.Sprintf("streamflow percentile out of range: %v", payload.Percentile), now)
	}

	return types.SourceReading{
		Provider:   a.Name(),
		Hazard:     types.HazardDrought,
		RawValue:   payload.Percentile,
		Score:      types.ScorePtr(droughtScore(payload.Percentile)),
		Confidence: types.ConfidenceMedium,
		FetchedAt:  now,
	}
}

// get performs one monitoring-service call and decodes the payload.
func (a *USGSAdapter) get(ctx context.Context, path string, coord types.Coordinate, dst any) error {
	endpoint := fmt.Sprintf("%s%s?%s", a.baseURL, path, url.Values{
		"lat": []string{strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"lon": []string{strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, dst); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamInvalidResponse, err.Error(), err)
	}
	return nil
}

func (a *USGSAdapter) failed(ctx context.Context, h types.HazardType, err error, now time.Time) types.SourceReading {
	a.logger.WarnContext(ctx, "usgs fetch failed",
		slog.String("provider", string(a.Name())),
		slog.String("hazard", string(h)),
		slog.Any("error", err))

	return types.FailedReading(a.Name(), h, failureCodeFor(err), err.Error(), now)
}
