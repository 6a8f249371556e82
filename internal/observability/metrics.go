// Package observability holds the Prometheus instrumentation for the
// RiskProfile service. Metrics are registered once at startup and threaded
// into the orchestrator and cache layers.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the assessment
// pipeline.
type Metrics struct {
	// API request metrics, fed by the server middleware.
	HTTPRequests *prometheus.CounterVec   // labels: method, endpoint, status
	HTTPDuration *prometheus.HistogramVec // labels: method, endpoint

	// Provider fan-out metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,failure,timeout,skipped}
	ProviderDuration *prometheus.HistogramVec // labels: provider

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: kind={reading,assessment}, result={hit,stale_hit,miss}

	// Assessment metrics.
	AssessmentDuration prometheus.Histogram
	AssessmentsTotal   *prometheus.CounterVec // labels: outcome={ok,degraded,insufficient_data,invalid}
	InFlight           prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.ProviderRequests,
		m.ProviderDuration,
		m.CacheLookups,
		m.AssessmentDuration,
		m.AssessmentsTotal,
		m.InFlight,
	)
	return m
}

// RecordRequest records one completed API request. Satisfies the server's
// metrics collector interface.
func (m *Metrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskprofile",
			Name:      "http_requests_total",
			Help:      "API requests by method, endpoint, and status code.",
		}, []string{"method", "endpoint", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riskprofile",
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "endpoint"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskprofile",
			Name:      "provider_requests_total",
			Help:      "Hazard provider fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riskprofile",
			Name:      "provider_request_duration_seconds",
			Help:      "Hazard provider fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskprofile",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by entry kind and result.",
		}, []string{"kind", "result"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskprofile",
			Name:      "assessment_duration_seconds",
			Help:      "End-to-end duration of one risk assessment.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15},
		}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskprofile",
			Name:      "assessments_total",
			Help:      "Completed assessment requests by outcome.",
		}, []string{"outcome"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "riskprofile",
			Name:      "assessments_in_flight",
			Help:      "Assessments currently being computed.",
		}),
	}
}
