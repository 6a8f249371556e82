package types

import (
	"sort"
	"time"
)

// ProviderID identifies a configured hazard data provider.
type ProviderID string

const (
	// ProviderFEMANRI is the free government hazard index (FEMA National Risk
	// Index). County/tract-level percentile scores, already on a 0-100 scale.
	ProviderFEMANRI ProviderID = "fema_nri"
	// ProviderRiskFactor is the paid property-specific risk service. Reports a
	// 1-10 "factor" per hazard.
	ProviderRiskFactor ProviderID = "riskfactor"
	// ProviderUSGS is the geological/hydrological monitoring service
	// (earthquake hazard and streamflow-derived drought).
	ProviderUSGS ProviderID = "usgs"
)

// HazardType is the closed set of climate/geological hazards the platform
// scores. Keeping this a compile-time enumeration lets adapters and the
// aggregator handle every hazard exhaustively.
type HazardType string

const (
	HazardFlood      HazardType = "flood"
	HazardWildfire   HazardType = "wildfire"
	HazardHeat       HazardType = "heat"
	HazardHurricane  HazardType = "hurricane"
	HazardEarthquake HazardType = "earthquake"
	HazardDrought    HazardType = "drought"
)

// AllHazardTypes lists every supported hazard in canonical order. Callers that
// do not request a hazard subset are assessed against this full set.
var AllHazardTypes = []HazardType{
	HazardFlood,
	HazardWildfire,
	HazardHeat,
	HazardHurricane,
	HazardEarthquake,
	HazardDrought,
}

// Valid reports whether h is a member of the closed hazard set.
func (h HazardType) Valid() bool {
	switch h {
	case HazardFlood, HazardWildfire, HazardHeat, HazardHurricane, HazardEarthquake, HazardDrought:
		return true
	}
	return false
}

// RiskLevel is the qualitative banding of a 0-100 risk score.
type RiskLevel string

const (
	LevelLow      RiskLevel = "LOW"
	LevelModerate RiskLevel = "MODERATE"
	LevelHigh     RiskLevel = "HIGH"
	LevelVeryHigh RiskLevel = "VERY_HIGH"
)

// Fixed level thresholds. The same bands apply to per-hazard scores and the
// overall score.
const (
	ThresholdModerate = 25.0
	ThresholdHigh     = 50.0
	ThresholdVeryHigh = 75.0
)

// LevelForScore maps a normalized 0-100 score to its risk level:
// <25 LOW, 25-49 MODERATE, 50-74 HIGH, >=75 VERY_HIGH.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= ThresholdVeryHigh:
		return LevelVeryHigh
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdModerate:
		return LevelModerate
	default:
		return LevelLow
	}
}

// ConfidenceTier is a qualitative indicator of how much a score should be
// trusted, derived from source count, agreement, and recency.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate against the valid decimal-degree ranges.
func (c Coordinate) Validate() error {
	if c.Lat < MinLat || c.Lat > MaxLat {
		return NewAppError(ErrCodeValidationInvalidLat, "latitude must be between -90 and 90", nil)
	}
	if c.Lon < MinLon || c.Lon > MaxLon {
		return NewAppError(ErrCodeValidationInvalidLon, "longitude must be between -180 and 180", nil)
	}
	return nil
}

// ReadingFailure records why a provider could not produce a usable reading.
// Failures travel as data alongside successful readings so the aggregator can
// make degradation decisions without the orchestrator raising errors.
type ReadingFailure struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SourceReading is one provider's opinion for one hazard at one coordinate.
// It is immutable once created: adapters construct readings, the orchestrator
// owns the in-flight collection, and the aggregator consumes it.
type SourceReading struct {
	Provider ProviderID `json:"provider"`
	Hazard   HazardType `json:"hazard"`

	// RawValue is the provider's native-scale value before normalization
	// (e.g., a 1-10 flood factor, or peak ground acceleration in %g).
	RawValue float64 `json:"raw_value,omitempty"`

	// Score is the normalized 0-100 value, or nil when the fetch failed.
	Score *float64 `json:"normalized_score,omitempty"`

	Confidence ConfidenceTier `json:"confidence"`
	FetchedAt  time.Time      `json:"fetched_at"`

	// TTL is the cache lifetime the producing adapter declared for this
	// reading. Static regulatory data carries a longer TTL than live scores.
	TTL time.Duration `json:"ttl"`

	// Stale marks a reading served from an expired cache entry after the
	// provider failed. Stale readings contribute at degraded confidence.
	Stale bool `json:"stale,omitempty"`

	Failure *ReadingFailure `json:"failure,omitempty"`
}

// Usable reports whether the reading carries a normalized score that can
// contribute to aggregation.
func (r SourceReading) Usable() bool {
	return r.Failure == nil && r.Score != nil
}

// Failed reports whether the reading records a provider failure.
func (r SourceReading) Failed() bool {
	return r.Failure != nil
}

// FailedReading constructs a reading that records a provider failure for one
// hazard. The normalized score is deliberately absent.
func FailedReading(p ProviderID, h HazardType, code ErrorCode, msg string, fetchedAt time.Time) SourceReading {
	return SourceReading{
		Provider:   p,
		Hazard:     h,
		Confidence: ConfidenceLow,
		FetchedAt:  fetchedAt,
		Failure: &ReadingFailure{
			Code:    code,
			Message: msg,
		},
	}
}

// ScorePtr returns a pointer to v, for populating SourceReading.Score.
func ScorePtr(v float64) *float64 { return &v }

// HazardScore is the aggregated result for a single hazard type. It exists
// only when at least one contributing source succeeded.
type HazardScore struct {
	Hazard     HazardType     `json:"hazard"`
	Score      float64        `json:"score"`
	Level      RiskLevel      `json:"level"`
	Confidence ConfidenceTier `json:"confidence"`

	// Sources lists the contributing readings ordered by weight (highest
	// first), so callers can see which providers drove the score.
	Sources []SourceReading `json:"contributing_sources"`
}

// RiskAssessment is the top-level result of one aggregation run. It is
// immutable and cached until ExpiresAt, after which the next request triggers
// recomputation.
type RiskAssessment struct {
	Coordinate   Coordinate `json:"coordinate"`
	OverallScore float64    `json:"overall_score"`
	OverallLevel RiskLevel  `json:"overall_level"`

	// HazardScores omits hazards for which no source produced a usable
	// reading; callers must distinguish "unknown" from "zero risk".
	HazardScores map[HazardType]HazardScore `json:"hazard_scores"`

	DataSourcesUsed []ProviderID `json:"data_sources_used"`

	// Degraded is true when any configured source failed or any contributing
	// reading was stale.
	Degraded bool `json:"degraded"`

	ComputedAt time.Time `json:"computed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SortProviderIDs sorts provider IDs in place for deterministic output.
func SortProviderIDs(ids []ProviderID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
