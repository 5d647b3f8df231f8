// Package prometheus exposes task scheduler metrics through
// prometheus/client_golang.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the default Prometheus registry
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "tickrun"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds all Prometheus metrics for the scheduler
type Metrics struct {
	// Task lifecycle metrics
	TasksStartedTotal  prometheus.Counter
	TasksFinishedTotal *prometheus.CounterVec
	TasksRunning       prometheus.Gauge
	TasksPaused        prometheus.Gauge
	StepsTotal         prometheus.Counter

	// Pool metrics
	PoolsCompletedTotal prometheus.Counter
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a new metrics collection
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		TasksStartedTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "tickrun_tasks_started_total",
				Help: "Total number of tasks started",
			},
		),
		TasksFinishedTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickrun_tasks_finished_total",
				Help: "Total number of tasks finished",
			},
			[]string{"mode"}, // mode: natural, stopped
		),
		TasksRunning: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "tickrun_tasks_running",
				Help: "Number of tasks currently running (includes paused)",
			},
		),
		TasksPaused: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "tickrun_tasks_paused",
				Help: "Number of tasks currently paused",
			},
		),
		StepsTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "tickrun_steps_total",
				Help: "Total number of real computation steps executed",
			},
		),
		PoolsCompletedTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "tickrun_pools_completed_total",
				Help: "Total number of pools whose members have all finished",
			},
		),
	}
}

// RecordPoolCompleted records a pool all-finished event. Wire it to
// Pool.OnAllFinished.
func (m *Metrics) RecordPoolCompleted() {
	m.PoolsCompletedTotal.Inc()
}
