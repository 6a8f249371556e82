package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"riskprofile/internal/config"
	"riskprofile/internal/types"
)

// rootPrefix is the namespace shared by every key this service writes.
// Flush-all deletes under it without touching other tenants of a shared
// Redis.
const rootPrefix = "rp:"

// Manager is the typed facade over the raw Store. It owns serialization,
// TTL selection, and the fresh/stale distinction; callers deal only in
// domain types. Backend failures degrade to cache misses: a broken cache
// must never fail an assessment that could be computed live.
type Manager struct {
	store  Store
	cfg    config.CacheConfig
	logger *slog.Logger
	clock  types.Clock
}

// NewManager creates a cache manager. Nil logger and clock default to
// slog.Default and the real clock.
func NewManager(store Store, cfg config.CacheConfig, logger *slog.Logger, clock types.Clock) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = &types.RealClock{}
	}
	return &Manager{store: store, cfg: cfg, logger: logger, clock: clock}
}

// GetReading returns the cached reading for one provider/hazard/bucket. The
// returned reading's Stale flag reflects whether its TTL has lapsed; stale
// readings stay servable until the retention window evicts them. found is
// false on a miss or an unreadable entry.
func (m *Manager) GetReading(
	ctx context.Context,
	provider types.ProviderID,
	hazard types.HazardType,
	coord types.Coordinate,
) (reading *types.SourceReading, found bool) {
	key := ReadingKey(provider, hazard, coord)

	env, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.WarnContext(ctx, "cache read failed; treating as miss",
				slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}

	var r types.SourceReading
	if err := json.Unmarshal(env.Payload, &r); err != nil {
		m.logger.WarnContext(ctx, "cache entry undecodable; treating as miss",
			slog.String("key", key), slog.Any("error", err))
		return nil, false
	}

	r.Stale = !env.Fresh(m.clock.Now())
	return &r, true
}

// SetReading stores a provider reading under its bucket key. The fresh
// window comes from the reading's own TTL when the provider declared one
// (static flood-zone data carries a day-long TTL), otherwise the configured
// reading TTL.
func (m *Manager) SetReading(ctx context.Context, reading types.SourceReading, coord types.Coordinate) {
	if !reading.Usable() {
		// Failed readings are not cached; a provider outage should not
		// shadow the next successful fetch.
		return
	}

	ttl := reading.TTL
	if ttl <= 0 {
		ttl = m.cfg.ReadingTTL
	}

	// The Stale flag is per-request state, derived on read.
	reading.Stale = false

	payload, err := json.Marshal(reading)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to encode reading for cache",
			slog.String("provider", string(reading.Provider)),
			slog.String("hazard", string(reading.Hazard)),
			slog.Any("error", err))
		return
	}

	key := ReadingKey(reading.Provider, reading.Hazard, coord)
	if err := m.store.Set(ctx, key, payload, ttl, m.cfg.StaleRetention); err != nil {
		m.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
}

// GetAssessment returns a cached assessment for the exact hazard/provider
// selection in the coordinate's bucket. Unlike readings, assessments are
// only served fresh: a stale blend is recomputed from (possibly stale)
// readings so the response reflects current provider availability.
func (m *Manager) GetAssessment(
	ctx context.Context,
	coord types.Coordinate,
	hazards []types.HazardType,
	providers []types.ProviderID,
) (*types.RiskAssessment, bool) {
	key := AssessmentKey(coord, hazards, providers)

	env, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.WarnContext(ctx, "cache read failed; treating as miss",
				slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}

	if !env.Fresh(m.clock.Now()) {
		return nil, false
	}

	var a types.RiskAssessment
	if err := json.Unmarshal(env.Payload, &a); err != nil {
		m.logger.WarnContext(ctx, "cache entry undecodable; treating as miss",
			slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return &a, true
}

// SetAssessment stores a computed assessment. Degraded assessments are
// cached with a shortened TTL so a provider recovery shows up quickly.
func (m *Manager) SetAssessment(
	ctx context.Context,
	assessment *types.RiskAssessment,
	hazards []types.HazardType,
	providers []types.ProviderID,
) {
	ttl := m.cfg.AssessmentTTL
	if assessment.Degraded {
		ttl = minDuration(ttl, 5*time.Minute)
	}

	payload, err := json.Marshal(assessment)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to encode assessment for cache", slog.Any("error", err))
		return
	}

	key := AssessmentKey(assessment.Coordinate, hazards, providers)
	if err := m.store.Set(ctx, key, payload, ttl, 0); err != nil {
		m.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
}

// InvalidateBucket removes every reading and assessment cached for the
// coordinate's bucket. Returns the number of entries removed.
func (m *Manager) InvalidateBucket(ctx context.Context, coord types.Coordinate) (int, error) {
	readings, err := m.store.DeletePrefix(ctx, ReadingBucketPrefix(coord))
	if err != nil {
		return readings, types.NewAppError(types.ErrCodeInternalCache, "bucket invalidation failed", err)
	}
	assessments, err := m.store.DeletePrefix(ctx, AssessmentBucketPrefix(coord))
	if err != nil {
		return readings + assessments, types.NewAppError(types.ErrCodeInternalCache, "bucket invalidation failed", err)
	}
	return readings + assessments, nil
}

// InvalidateAll flushes every entry this service owns.
func (m *Manager) InvalidateAll(ctx context.Context) (int, error) {
	n, err := m.store.DeletePrefix(ctx, rootPrefix)
	if err != nil {
		return n, types.NewAppError(types.ErrCodeInternalCache, "cache flush failed", err)
	}
	return n, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
