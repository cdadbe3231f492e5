// Package observability defines the Prometheus instrumentation for the
// forecast engine. Metrics are registered once at process start and exposed
// via the API binary's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the engine.
type Metrics struct {
	// Per-model fetch outcomes. labels: model, outcome={success,error}
	ModelFetches  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec // labels: model

	// Per-site run outcomes. labels: outcome={success,failed,skipped}
	SiteRuns    *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Daily results emitted across all sites.
	ResultsEmitted prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ModelFetches,
		m.FetchDuration,
		m.SiteRuns,
		m.RunDuration,
		m.ResultsEmitted,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ModelFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orcamet",
			Name:      "model_fetches_total",
			Help:      "Provider fetch attempts by model and outcome.",
		}, []string{"model", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orcamet",
			Name:      "model_fetch_duration_seconds",
			Help:      "Provider request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"model"}),
		SiteRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orcamet",
			Name:      "site_runs_total",
			Help:      "Forecast runs by per-site outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orcamet",
			Name:      "site_run_duration_seconds",
			Help:      "Duration of a complete fetch-blend-score cycle for one site.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ResultsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orcamet",
			Name:      "daily_results_total",
			Help:      "Daily forecast results produced across all sites.",
		}),
	}
}
