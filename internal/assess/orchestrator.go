package assess

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"riskprofile/internal/cache"
	"riskprofile/internal/config"
	"riskprofile/internal/observability"
	"riskprofile/internal/providers"
	"riskprofile/internal/types"
)

// Orchestrator runs one assessment: it fans out to the configured source
// adapters concurrently, collects whatever completes before the global
// deadline, and hands the readings to the aggregator.
//
// Adapters run on a context detached from the request so a fetch that misses
// the deadline still finishes (bounded by its own provider timeout) and
// write-through caches its result for future requests. The deadline governs
// only how long this request waits.
type Orchestrator struct {
	adapters []providers.SourceAdapter
	cache    *cache.Manager
	agg      *Aggregator
	cfg      config.AggregationConfig
	cacheCfg config.CacheConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
	clock    types.Clock

	// flight coalesces concurrent fetches for the same provider and bucket,
	// bounding outbound call volume when many requests land on one location.
	flight singleflight.Group
}

// NewOrchestrator wires the assessment pipeline. Nil logger and clock
// default.
func NewOrchestrator(
	adapters []providers.SourceAdapter,
	cacheMgr *cache.Manager,
	cfg config.AggregationConfig,
	cacheCfg config.CacheConfig,
	metrics *observability.Metrics,
	logger *slog.Logger,
	clock types.Clock,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = &types.RealClock{}
	}
	return &Orchestrator{
		adapters: adapters,
		cache:    cacheMgr,
		agg:      NewAggregator(cfg),
		cfg:      cfg,
		cacheCfg: cacheCfg,
		metrics:  metrics,
		logger:   logger,
		clock:    clock,
	}
}

// ConfiguredProviders returns the IDs of all wired adapters, sorted.
func (o *Orchestrator) ConfiguredProviders() []types.ProviderID {
	ids := make([]types.ProviderID, 0, len(o.adapters))
	for _, a := range o.adapters {
		ids = append(ids, a.Name())
	}
	types.SortProviderIDs(ids)
	return ids
}

// Coverage returns, per wired adapter, the hazards it supports. The slices
// are copies; callers may reorder them without affecting the adapters.
func (o *Orchestrator) Coverage() map[types.ProviderID][]types.HazardType {
	out := make(map[types.ProviderID][]types.HazardType, len(o.adapters))
	for _, a := range o.adapters {
		out[a.Name()] = append([]types.HazardType(nil), a.SupportedHazards()...)
	}
	return out
}

// Assess computes the risk assessment for a coordinate. hazards and
// providerSel narrow the request; empty means all. The only hard failure is
// insufficient data: zero usable readings across every selected source.
func (o *Orchestrator) Assess(
	ctx context.Context,
	coord types.Coordinate,
	hazards []types.HazardType,
	providerSel []types.ProviderID,
) (*types.RiskAssessment, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	if len(hazards) == 0 {
		hazards = types.AllHazardTypes
	}

	active := o.selectAdapters(providerSel)
	if len(active) == 0 {
		return nil, types.NewAppError(types.ErrCodeInsufficientData,
			"no configured sources match the provider selection", nil)
	}

	selected := make([]types.ProviderID, 0, len(active))
	for _, a := range active {
		selected = append(selected, a.Name())
	}
	types.SortProviderIDs(selected)

	o.metrics.InFlight.Inc()
	defer o.metrics.InFlight.Dec()
	start := o.clock.Now()
	defer func() {
		o.metrics.AssessmentDuration.Observe(o.clock.Now().Sub(start).Seconds())
	}()

	if assessment, ok := o.cache.GetAssessment(ctx, coord, hazards, selected); ok {
		o.metrics.CacheLookups.WithLabelValues("assessment", "hit").Inc()
		return assessment, nil
	}
	o.metrics.CacheLookups.WithLabelValues("assessment", "miss").Inc()

	readings := o.collect(ctx, coord, hazards, active)

	assessment, err := o.agg.Aggregate(coord, readings, o.clock.Now(), o.cacheCfg.AssessmentTTL)
	if err != nil {
		o.metrics.AssessmentsTotal.WithLabelValues("insufficient_data").Inc()
		o.logger.WarnContext(ctx, "assessment produced no usable readings",
			slog.Float64("lat", coord.Lat), slog.Float64("lon", coord.Lon))
		return nil, err
	}

	o.cache.SetAssessment(ctx, assessment, hazards, selected)

	outcome := "ok"
	if assessment.Degraded {
		outcome = "degraded"
	}
	o.metrics.AssessmentsTotal.WithLabelValues(outcome).Inc()
	return assessment, nil
}

// InvalidateBucket drops all cached data for the coordinate's bucket.
func (o *Orchestrator) InvalidateBucket(ctx context.Context, coord types.Coordinate) (int, error) {
	if err := coord.Validate(); err != nil {
		return 0, err
	}
	return o.cache.InvalidateBucket(ctx, coord)
}

// InvalidateAll drops every cached reading and assessment.
func (o *Orchestrator) InvalidateAll(ctx context.Context) (int, error) {
	return o.cache.InvalidateAll(ctx)
}

// selectAdapters filters the wired adapters by the caller's provider
// selection.
func (o *Orchestrator) selectAdapters(sel []types.ProviderID) []providers.SourceAdapter {
	if len(sel) == 0 {
		return o.adapters
	}
	wanted := make(map[types.ProviderID]struct{}, len(sel))
	for _, p := range sel {
		wanted[p] = struct{}{}
	}
	var out []providers.SourceAdapter
	for _, a := range o.adapters {
		if _, ok := wanted[a.Name()]; ok {
			out = append(out, a)
		}
	}
	return out
}

type providerResult struct {
	provider types.ProviderID
	readings []types.SourceReading
}

// collect fans out one goroutine per adapter and gathers results until the
// global deadline. Adapters still pending at the deadline contribute
// timeout-failed readings (with stale-cache fallback) for this request;
// their fetches keep running detached and cache opportunistically.
func (o *Orchestrator) collect(
	ctx context.Context,
	coord types.Coordinate,
	hazards []types.HazardType,
	active []providers.SourceAdapter,
) []types.SourceReading {
	// Detach so late fetches outlive the deadline; each adapter bounds
	// itself with its own timeout.
	bgCtx := context.WithoutCancel(ctx)

	results := make(chan providerResult, len(active))
	for _, adapter := range active {
		go func(a providers.SourceAdapter) {
			results <- providerResult{
				provider: a.Name(),
				readings: o.collectProvider(bgCtx, a, coord, hazards),
			}
		}(adapter)
	}

	timer := time.NewTimer(o.cfg.GlobalDeadline)
	defer timer.Stop()

	var all []types.SourceReading
	arrived := make(map[types.ProviderID]bool, len(active))

	for len(arrived) < len(active) {
		select {
		case res := <-results:
			arrived[res.provider] = true
			all = append(all, res.readings...)
		case <-timer.C:
			return append(all, o.timeoutReadings(ctx, coord, hazards, active, arrived)...)
		case <-ctx.Done():
			return append(all, o.timeoutReadings(ctx, coord, hazards, active, arrived)...)
		}
	}
	return all
}

// collectProvider gathers one adapter's readings: cache first, then a
// coalesced fetch for the hazards still missing, falling back to stale cache
// entries for hazards the fetch could not produce.
func (o *Orchestrator) collectProvider(
	ctx context.Context,
	adapter providers.SourceAdapter,
	coord types.Coordinate,
	hazards []types.HazardType,
) []types.SourceReading {
	var supported []types.HazardType
	for _, h := range hazards {
		if adapter.Supports(h) {
			supported = append(supported, h)
		}
	}
	if len(supported) == 0 {
		return nil
	}

	var readings []types.SourceReading
	var missing []types.HazardType
	staleByHazard := make(map[types.HazardType]types.SourceReading)

	for _, h := range supported {
		cached, found := o.cache.GetReading(ctx, adapter.Name(), h, coord)
		switch {
		case found && !cached.Stale:
			o.metrics.CacheLookups.WithLabelValues("reading", "hit").Inc()
			readings = append(readings, *cached)
		case found:
			// Expired but retained; held aside as the fallback if the live
			// fetch fails.
			o.metrics.CacheLookups.WithLabelValues("reading", "stale_hit").Inc()
			staleByHazard[h] = *cached
			missing = append(missing, h)
		default:
			o.metrics.CacheLookups.WithLabelValues("reading", "miss").Inc()
			missing = append(missing, h)
		}
	}

	if len(missing) == 0 {
		return readings
	}

	fetched := o.fetchCoalesced(ctx, adapter, coord, missing)

	for _, r := range fetched {
		if r.Failed() {
			if stale, ok := staleByHazard[r.Hazard]; ok {
				o.logger.WarnContext(ctx, "serving stale reading after provider failure",
					slog.String("provider", string(r.Provider)),
					slog.String("hazard", string(r.Hazard)),
					slog.String("failure", string(r.Failure.Code)))
				readings = append(readings, stale)
				continue
			}
		}
		readings = append(readings, r)
	}
	return readings
}

// fetchCoalesced runs the adapter fetch under singleflight so concurrent
// requests for the same provider, bucket, and hazard set share one outbound
// call. Usable results are write-through cached before any sharer sees them.
func (o *Orchestrator) fetchCoalesced(
	ctx context.Context,
	adapter providers.SourceAdapter,
	coord types.Coordinate,
	missing []types.HazardType,
) []types.SourceReading {
	key := flightKey(adapter.Name(), coord, missing)

	v, _, _ := o.flight.Do(key, func() (any, error) {
		start := o.clock.Now()
		fetched := adapter.Fetch(ctx, coord, missing)
		o.metrics.ProviderDuration.WithLabelValues(string(adapter.Name())).
			Observe(o.clock.Now().Sub(start).Seconds())
		o.metrics.ProviderRequests.WithLabelValues(string(adapter.Name()), fetchOutcome(fetched)).Inc()

		for _, r := range fetched {
			if r.Usable() {
				o.cache.SetReading(ctx, r, coord)
			}
		}
		return fetched, nil
	})

	readings, _ := v.([]types.SourceReading)
	return readings
}

// timeoutReadings synthesizes failed readings for adapters that missed the
// deadline, substituting retained stale cache entries where available.
func (o *Orchestrator) timeoutReadings(
	ctx context.Context,
	coord types.Coordinate,
	hazards []types.HazardType,
	active []providers.SourceAdapter,
	arrived map[types.ProviderID]bool,
) []types.SourceReading {
	now := o.clock.Now()
	var out []types.SourceReading

	for _, adapter := range active {
		if arrived[adapter.Name()] {
			continue
		}
		o.metrics.ProviderRequests.WithLabelValues(string(adapter.Name()), "timeout").Inc()
		o.logger.WarnContext(ctx, "provider missed the global deadline",
			slog.String("provider", string(adapter.Name())),
			slog.Duration("deadline", o.cfg.GlobalDeadline))

		for _, h := range hazards {
			if !adapter.Supports(h) {
				continue
			}
			if cached, found := o.cache.GetReading(ctx, adapter.Name(), h, coord); found {
				out = append(out, *cached)
				continue
			}
			out = append(out, types.FailedReading(adapter.Name(), h,
				types.ErrCodeUpstreamTimeout, "global assessment deadline exceeded", now))
		}
	}
	return out
}

func flightKey(p types.ProviderID, coord types.Coordinate, hazards []types.HazardType) string {
	parts := make([]string, 0, len(hazards)+2)
	parts = append(parts, string(p), cache.BucketKey(coord))
	for _, h := range hazards {
		parts = append(parts, string(h))
	}
	return strings.Join(parts, "|")
}

// fetchOutcome summarizes one fetch for metrics: success when at least one
// reading is usable, timeout when every failure was a timeout, failure
// otherwise.
func fetchOutcome(readings []types.SourceReading) string {
	anyUsable := false
	allTimeout := len(readings) > 0
	for _, r := range readings {
		if r.Usable() {
			anyUsable = true
		}
		if r.Failure == nil || r.Failure.Code != types.ErrCodeUpstreamTimeout {
			allTimeout = false
		}
	}
	switch {
	case anyUsable:
		return "success"
	case allTimeout:
		return "timeout"
	default:
		return "failure"
	}
}
