package assess

import (
	"riskprofile/internal/types"
)

// scoreConfidence derives the aggregated confidence tier for one hazard from
// its contributing readings:
//
//   - low: every contributing reading is stale
//   - high: at least two fresh sources agree within the tolerance
//   - medium: everything else (single source, or fresh sources that disagree)
//
// Agreement is measured as the spread between the minimum and maximum fresh
// scores.
func scoreConfidence(contrib []types.SourceReading, tolerance float64) types.ConfidenceTier {
	var fresh []float64
	for _, r := range contrib {
		if !r.Stale {
			fresh = append(fresh, *r.Score)
		}
	}

	if len(fresh) == 0 {
		return types.ConfidenceLow
	}
	if len(fresh) < 2 {
		return types.ConfidenceMedium
	}

	minScore, maxScore := fresh[0], fresh[0]
	for _, s := range fresh[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	if maxScore-minScore <= tolerance {
		return types.ConfidenceHigh
	}
	return types.ConfidenceMedium
}
