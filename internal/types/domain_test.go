package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  RiskLevel
	}{
		{"zero", 0, LevelLow},
		{"just below moderate", 24.9, LevelLow},
		{"moderate boundary", 25, LevelModerate},
		{"mid moderate", 40, LevelModerate},
		{"just below high", 49.9, LevelModerate},
		{"high boundary", 50, LevelHigh},
		{"mid high", 74.9, LevelHigh},
		{"very high boundary", 75, LevelVeryHigh},
		{"maximum", 100, LevelVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelForScore(tt.score))
		})
	}
}

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name     string
		coord    Coordinate
		wantCode ErrorCode
	}{
		{"valid miami", Coordinate{Lat: 25.7617, Lon: -80.1918}, ""},
		{"valid poles", Coordinate{Lat: -90, Lon: 180}, ""},
		{"lat too high", Coordinate{Lat: 90.1, Lon: 0}, ErrCodeValidationInvalidLat},
		{"lat too low", Coordinate{Lat: -91, Lon: 0}, ErrCodeValidationInvalidLat},
		{"lon too high", Coordinate{Lat: 0, Lon: 180.5}, ErrCodeValidationInvalidLon},
		{"lon too low", Coordinate{Lat: 0, Lon: -181}, ErrCodeValidationInvalidLon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := err.(*AppError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestHazardTypeValid(t *testing.T) {
	for _, h := range AllHazardTypes {
		assert.True(t, h.Valid(), "hazard %q should be valid", h)
	}
	assert.False(t, HazardType("volcano").Valid())
	assert.False(t, HazardType("").Valid())
}

func TestSourceReadingUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	scored := SourceReading{
		Provider:   ProviderFEMANRI,
		Hazard:     HazardFlood,
		Score:      ScorePtr(90),
		Confidence: ConfidenceMedium,
		FetchedAt:  now,
	}
	assert.True(t, scored.Usable())
	assert.False(t, scored.Failed())

	failed := FailedReading(ProviderRiskFactor, HazardWildfire, ErrCodeUpstreamTimeout, "deadline exceeded", now)
	assert.False(t, failed.Usable())
	assert.True(t, failed.Failed())
	assert.Nil(t, failed.Score)
	assert.Equal(t, ErrCodeUpstreamTimeout, failed.Failure.Code)
	assert.Equal(t, ConfidenceLow, failed.Confidence)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-3))
	assert.Equal(t, 100.0, ClampScore(104.2))
	assert.Equal(t, 57.5, ClampScore(57.5))
}
