package types

import "fmt"

// Coordinate range constants (decimal degrees).
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// ClampScore clamps a normalized score to the canonical 0-100 range.
// Adapters apply this after their provider-specific transform so a slightly
// out-of-range upstream value never escapes normalization.
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ParseHazardTypes validates a list of hazard names against the closed hazard
// set, deduplicating while preserving order. An empty input selects the full
// hazard set.
func ParseHazardTypes(names []string) ([]HazardType, error) {
	if len(names) == 0 {
		out := make([]HazardType, len(AllHazardTypes))
		copy(out, AllHazardTypes)
		return out, nil
	}

	seen := make(map[HazardType]struct{}, len(names))
	out := make([]HazardType, 0, len(names))
	for _, n := range names {
		h := HazardType(n)
		if !h.Valid() {
			return nil, NewAppError(ErrCodeValidationInvalidHazard,
				fmt.Sprintf("unknown hazard type %q", n), nil)
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out, nil
}

// ParseProviderIDs validates a list of provider IDs against the configured
// provider set, deduplicating while preserving order. An empty input selects
// all providers.
func ParseProviderIDs(names []string, known []ProviderID) ([]ProviderID, error) {
	if len(names) == 0 {
		return nil, nil
	}

	knownSet := make(map[ProviderID]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	seen := make(map[ProviderID]struct{}, len(names))
	out := make([]ProviderID, 0, len(names))
	for _, n := range names {
		id := ProviderID(n)
		if _, ok := knownSet[id]; !ok {
			return nil, NewAppError(ErrCodeValidationInvalidProvider,
				fmt.Sprintf("unknown provider %q", n), nil)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
