package prometheus

import (
	"sync"
)

// MetricsObserver implements core.Observer and feeds task lifecycle events
// into the metrics collection. Attach it to tasks with core.WithObserver.
type MetricsObserver struct {
	metrics *Metrics

	// paused tracks which tasks are currently paused so the paused gauge
	// stays balanced when a paused task finishes without a resume.
	mu     sync.Mutex
	paused map[string]struct{}
}

// NewMetricsObserver creates an observer backed by the given metrics
// collection. A nil metrics uses the global collection.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	if m == nil {
		m = GetMetrics()
	}
	return &MetricsObserver{
		metrics: m,
		paused:  make(map[string]struct{}),
	}
}

func (o *MetricsObserver) OnStart(taskID string) {
	o.metrics.TasksStartedTotal.Inc()
	o.metrics.TasksRunning.Inc()
}

func (o *MetricsObserver) OnStep(taskID string) {
	o.metrics.StepsTotal.Inc()
}

func (o *MetricsObserver) OnPause(taskID string) {
	o.mu.Lock()
	_, already := o.paused[taskID]
	o.paused[taskID] = struct{}{}
	o.mu.Unlock()
	if !already {
		o.metrics.TasksPaused.Inc()
	}
}

func (o *MetricsObserver) OnResume(taskID string) {
	o.mu.Lock()
	_, was := o.paused[taskID]
	delete(o.paused, taskID)
	o.mu.Unlock()
	if was {
		o.metrics.TasksPaused.Dec()
	}
}

func (o *MetricsObserver) OnFinish(taskID string, manual bool) {
	o.OnResume(taskID)
	o.metrics.TasksRunning.Dec()
	mode := "natural"
	if manual {
		mode = "stopped"
	}
	o.metrics.TasksFinishedTotal.WithLabelValues(mode).Inc()
}
