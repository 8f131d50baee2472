// Package metrics registers the Prometheus instruments exposed on
// /metrics when running in server mode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every instrument so the collectors can live on any
// registry, keeping tests isolated from the default one.
type Metrics struct {
	ProviderAttempts *prometheus.CounterVec
	RunsTotal        *prometheus.CounterVec
	EntriesAdded     *prometheus.CounterVec
	EntriesSkipped   *prometheus.CounterVec
	EntriesDropped   *prometheus.CounterVec
	RunDuration      prometheus.Histogram
}

// New registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatter_provider_attempts_total",
			Help: "LLM provider attempts by provider and outcome (success, transient, fatal).",
		}, []string{"provider", "outcome"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatter_runs_total",
			Help: "Completed update runs by final status.",
		}, []string{"status"}),
		EntriesAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatter_entries_added_total",
			Help: "Entries written to target files, by category.",
		}, []string{"category"}),
		EntriesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatter_entries_skipped_total",
			Help: "Entries skipped as duplicates, by category.",
		}, []string{"category"}),
		EntriesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatter_entries_dropped_total",
			Help: "Malformed entries dropped during parsing, by category.",
		}, []string{"category"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatter_run_duration_seconds",
			Help:    "Wall-clock duration of update runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// ProviderObserver adapts the metrics to the failover observer hook.
func (m *Metrics) ProviderObserver() func(provider, outcome string) {
	return func(provider, outcome string) {
		m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	}
}
