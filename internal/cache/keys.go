package cache

import (
	"sort"
	"strconv"
	"strings"

	"riskprofile/internal/types"
)

// Key namespaces. Invalidation works on these prefixes, so every cache entry
// must live under one of them.
const (
	readingPrefix    = "rp:reading:"
	assessmentPrefix = "rp:assessment:"
)

// BucketKey collapses a coordinate into its cache bucket by rounding both
// axes to three decimal places, roughly a 100m cell at the equator. Nearby
// requests land in the same bucket and share cached provider readings.
func BucketKey(coord types.Coordinate) string {
	return formatAxis(coord.Lat) + "," + formatAxis(coord.Lon)
}

func formatAxis(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	// -0.0004 rounds to "-0.000"; fold it into the positive-zero bucket.
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

// ReadingKey identifies a single provider reading for one hazard in one
// geographic bucket. The bucket leads the key so per-location invalidation
// can delete by prefix.
func ReadingKey(provider types.ProviderID, hazard types.HazardType, coord types.Coordinate) string {
	return readingPrefix + BucketKey(coord) + ":" + string(provider) + ":" + string(hazard)
}

// ReadingBucketPrefix is the common prefix of every reading key in the
// coordinate's bucket.
func ReadingBucketPrefix(coord types.Coordinate) string {
	return readingPrefix + BucketKey(coord) + ":"
}

// AssessmentBucketPrefix is the common prefix of every assessment key in the
// coordinate's bucket.
func AssessmentBucketPrefix(coord types.Coordinate) string {
	return assessmentPrefix + BucketKey(coord) + ":"
}

// AssessmentKey identifies a computed assessment. The requested hazard and
// provider selections are part of the key: an assessment for flood-only must
// not answer a request for all hazards.
func AssessmentKey(coord types.Coordinate, hazards []types.HazardType, providers []types.ProviderID) string {
	hs := make([]string, len(hazards))
	for i, h := range hazards {
		hs[i] = string(h)
	}
	ps := make([]string, len(providers))
	for i, p := range providers {
		ps[i] = string(p)
	}
	// Callers pass sorted slices; sort defensively anyway so equivalent
	// requests always share an entry.
	sort.Strings(hs)
	sort.Strings(ps)
	return assessmentPrefix + BucketKey(coord) + ":" + strings.Join(hs, "+") + ":" + strings.Join(ps, "+")
}
