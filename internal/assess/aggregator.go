// Package assess implements the risk aggregation pipeline: the orchestrator
// fans out to the source adapters, and the aggregator blends their readings
// into one RiskAssessment.
package assess

import (
	"math"
	"sort"
	"time"

	"riskprofile/internal/config"
	"riskprofile/internal/types"
)

// confidenceFactor discounts a reading's weight by the confidence tier its
// producing adapter declared.
var confidenceFactor = map[types.ConfidenceTier]float64{
	types.ConfidenceHigh:   1.0,
	types.ConfidenceMedium: 0.75,
	types.ConfidenceLow:    0.5,
}

// Aggregator blends normalized source readings into hazard scores and an
// overall assessment. Aggregate is a pure function of its inputs: identical
// readings and clock produce an identical assessment, which is what makes
// assessments cacheable and the scoring testable.
type Aggregator struct {
	cfg config.AggregationConfig
}

// NewAggregator creates an aggregator with the given scoring configuration.
func NewAggregator(cfg config.AggregationConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate combines all collected readings (successful and failed) into a
// RiskAssessment. Hazards without a single usable reading are omitted from
// the result. Returns an insufficient-data error when no reading anywhere is
// usable; an empty assessment is never produced.
func (a *Aggregator) Aggregate(
	coord types.Coordinate,
	readings []types.SourceReading,
	now time.Time,
	validFor time.Duration,
) (*types.RiskAssessment, error) {
	byHazard := make(map[types.HazardType][]types.SourceReading)
	anyFailed := false
	anyStaleContributing := false

	for _, r := range readings {
		if r.Failed() {
			anyFailed = true
			continue
		}
		if !r.Usable() {
			continue
		}
		if r.Stale {
			anyStaleContributing = true
		}
		byHazard[r.Hazard] = append(byHazard[r.Hazard], r)
	}

	if len(byHazard) == 0 {
		return nil, types.NewAppError(types.ErrCodeInsufficientData,
			"no usable readings from any configured source", nil)
	}

	hazardScores := make(map[types.HazardType]types.HazardScore, len(byHazard))
	providersUsed := make(map[types.ProviderID]struct{})

	for hazard, contrib := range byHazard {
		hazardScores[hazard] = a.scoreHazard(hazard, contrib)
		for _, r := range contrib {
			providersUsed[r.Provider] = struct{}{}
		}
	}

	overall := a.overallScore(hazardScores)

	sources := make([]types.ProviderID, 0, len(providersUsed))
	for p := range providersUsed {
		sources = append(sources, p)
	}
	types.SortProviderIDs(sources)

	return &types.RiskAssessment{
		Coordinate:      coord,
		OverallScore:    overall,
		OverallLevel:    types.LevelForScore(overall),
		HazardScores:    hazardScores,
		DataSourcesUsed: sources,
		Degraded:        anyFailed || anyStaleContributing,
		ComputedAt:      now,
		ExpiresAt:       now.Add(validFor),
	}, nil
}

// scoreHazard produces the weighted blend for one hazard. The weight of each
// reading is the provider's configured specificity weight, discounted by the
// reading's declared confidence tier and again when the reading is stale.
func (a *Aggregator) scoreHazard(hazard types.HazardType, contrib []types.SourceReading) types.HazardScore {
	type weighted struct {
		reading types.SourceReading
		weight  float64
	}

	entries := make([]weighted, 0, len(contrib))
	var weightSum, scoreSum float64

	for _, r := range contrib {
		w := a.cfg.ProviderWeight(r.Provider) * factorFor(r.Confidence)
		if r.Stale {
			w *= a.cfg.StaleWeightFactor
		}
		entries = append(entries, weighted{reading: r, weight: w})
		weightSum += w
		scoreSum += w * *r.Score
	}

	score := types.ClampScore(round1(scoreSum / weightSum))

	// Sources ordered by weight, heaviest first; ties broken by provider ID
	// so output is deterministic.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].reading.Provider < entries[j].reading.Provider
	})

	sources := make([]types.SourceReading, len(entries))
	for i, e := range entries {
		sources[i] = e.reading
	}

	return types.HazardScore{
		Hazard:     hazard,
		Score:      score,
		Level:      types.LevelForScore(score),
		Confidence: scoreConfidence(contrib, a.cfg.AgreementTolerance),
		Sources:    sources,
	}
}

// overallScore blends the per-hazard scores using the configured severity
// weights.
func (a *Aggregator) overallScore(scores map[types.HazardType]types.HazardScore) float64 {
	// Summing in canonical hazard order keeps the float accumulation, and
	// therefore the rounded result, identical across runs; map iteration
	// order would not.
	var weightSum, scoreSum float64
	for _, hazard := range types.AllHazardTypes {
		hs, ok := scores[hazard]
		if !ok {
			continue
		}
		w := a.cfg.HazardWeight(hazard)
		weightSum += w
		scoreSum += w * hs.Score
	}
	return types.ClampScore(round1(scoreSum / weightSum))
}

func factorFor(tier types.ConfidenceTier) float64 {
	if f, ok := confidenceFactor[tier]; ok {
		return f
	}
	return confidenceFactor[types.ConfidenceLow]
}

// round1 rounds to one decimal so serialized scores are stable across
// platforms.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
