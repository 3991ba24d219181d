// Package metrics exposes Prometheus collectors for solver runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hypertune"

// Run outcomes used as the status label.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	evaluations *prometheus.CounterVec
	conversions *prometheus.CounterVec
	active      prometheus.Gauge
}

// New creates the collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_runs_total",
			Help:      "Solver executions by backend and outcome.",
		}, []string{"solver", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_run_duration_seconds",
			Help:      "Wall time of solver executions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"solver"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loss_evaluations_total",
			Help:      "Loss function evaluations by backend.",
		}, []string{"solver"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searchspace_conversions_total",
			Help:      "Search space conversions by outcome.",
		}, []string{"status"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Optimization runs currently executing.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.evaluations, m.conversions, m.active)
	}
	return m
}

// ObserveRun records one solver execution.
func (m *Metrics) ObserveRun(solver, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(solver, status).Inc()
	m.duration.WithLabelValues(solver).Observe(took.Seconds())
}

// AddEvaluations counts loss evaluations.
func (m *Metrics) AddEvaluations(solver string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evaluations.WithLabelValues(solver).Add(float64(n))
}

// ObserveConversion records one search space conversion.
func (m *Metrics) ObserveConversion(status string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(status).Inc()
}

// RunStarted marks a run as executing.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

// RunFinished marks an executing run as done.
func (m *Metrics) RunFinished() {
	if m == nil {
		return
	}
	m.active.Dec()
}
