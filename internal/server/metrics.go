package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pytrace/internal/record"
)

// Metrics are registered on a private registry so several servers can live
// in one process.
type Metrics struct {
	Registry *prometheus.Registry
	runs     *prometheus.CounterVec
	steps    prometheus.Histogram
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pytrace_runs_total",
				Help: "Traced runs by outcome.",
			},
			[]string{"outcome"},
		),
		steps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pytrace_steps",
				Help:    "Steps recorded per trace, terminal step included.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pytrace_run_duration_seconds",
				Help:    "Wall time of traced runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pytrace_runs_in_flight",
				Help: "Runs currently executing.",
			},
		),
	}
	m.Registry.MustRegister(m.runs, m.steps, m.duration, m.inflight)
	return m
}

func (m *Metrics) observe(tr *record.Trace, elapsed time.Duration) {
	outcome := "completed"
	if tr.Outcome.Kind == record.Failed {
		outcome = "failed"
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.steps.Observe(float64(tr.Len()))
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
