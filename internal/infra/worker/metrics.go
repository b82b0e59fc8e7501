package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks scheduled refresh runs. Per-feed and per-article
// counters live in internal/observability/metrics; these cover the job
// as a whole.
type Metrics struct {
	// RunsTotal counts refresh runs by result (success/failure).
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds observes the wall-clock time of one run.
	RunDurationSeconds prometheus.Histogram

	// FeedsProcessedTotal accumulates feeds fetched across runs.
	FeedsProcessedTotal prometheus.Counter

	// LastSuccessTimestamp holds the Unix time of the last clean run,
	// for staleness alerting.
	LastSuccessTimestamp prometheus.Gauge
}

// NewMetrics creates and registers the worker metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_refresh_runs_total",
			Help: "Total scheduled refresh runs by result (success/failure)",
		}, []string{"result"}),

		RunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_refresh_duration_seconds",
			Help:    "Duration of one full refresh run in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		FeedsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_refresh_feeds_processed_total",
			Help: "Total feeds processed across all refresh runs",
		}),

		LastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last successful refresh run",
		}),
	}
}

// RecordRun records one finished run.
func (m *Metrics) RecordRun(result string, seconds float64, feeds int) {
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDurationSeconds.Observe(seconds)
	m.FeedsProcessedTotal.Add(float64(feeds))
	if result == "success" {
		m.LastSuccessTimestamp.SetToCurrentTime()
	}
}
