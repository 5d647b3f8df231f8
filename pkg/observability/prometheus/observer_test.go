package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestObserver(t *testing.T) (*MetricsObserver, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	return NewMetricsObserver(m), m
}

func TestMetricsObserver_Lifecycle(t *testing.T) {
	obs, m := newTestObserver(t)

	obs.OnStart("t1")
	obs.OnStep("t1")
	obs.OnStep("t1")
	obs.OnFinish("t1", false)

	if got := testutil.ToFloat64(m.TasksStartedTotal); got != 1 {
		t.Errorf("Expected 1 started, got %v", got)
	}
	if got := testutil.ToFloat64(m.StepsTotal); got != 2 {
		t.Errorf("Expected 2 steps, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksRunning); got != 0 {
		t.Errorf("Expected running gauge back to 0, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues("natural")); got != 1 {
		t.Errorf("Expected 1 natural finish, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues("stopped")); got != 0 {
		t.Errorf("Expected 0 stopped finishes, got %v", got)
	}
}

func TestMetricsObserver_StoppedFinishMode(t *testing.T) {
	obs, m := newTestObserver(t)

	obs.OnStart("t1")
	obs.OnFinish("t1", true)

	if got := testutil.ToFloat64(m.TasksFinishedTotal.WithLabelValues("stopped")); got != 1 {
		t.Errorf("Expected 1 stopped finish, got %v", got)
	}
}

func TestMetricsObserver_PausedGaugeBalanced(t *testing.T) {
	obs, m := newTestObserver(t)

	obs.OnStart("t1")
	obs.OnPause("t1")
	obs.OnPause("t1") // duplicate must not double-count
	if got := testutil.ToFloat64(m.TasksPaused); got != 1 {
		t.Errorf("Expected paused gauge 1 after duplicate pause, got %v", got)
	}

	obs.OnResume("t1")
	obs.OnResume("t1") // duplicate must not go negative
	if got := testutil.ToFloat64(m.TasksPaused); got != 0 {
		t.Errorf("Expected paused gauge 0 after resume, got %v", got)
	}
}

func TestMetricsObserver_FinishWhilePaused(t *testing.T) {
	obs, m := newTestObserver(t)

	obs.OnStart("t1")
	obs.OnPause("t1")
	obs.OnFinish("t1", true)

	if got := testutil.ToFloat64(m.TasksPaused); got != 0 {
		t.Errorf("Finishing a paused task must release the paused gauge, got %v", got)
	}
	if got := testutil.ToFloat64(m.TasksRunning); got != 0 {
		t.Errorf("Expected running gauge 0, got %v", got)
	}
}

func TestNewMetricsObserver_NilUsesGlobal(t *testing.T) {
	obs := NewMetricsObserver(nil)
	if obs.metrics != GetMetrics() {
		t.Error("Expected nil metrics to fall back to the global collection")
	}
}

func TestRecordPoolCompleted(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordPoolCompleted()
	m.RecordPoolCompleted()
	if got := testutil.ToFloat64(m.PoolsCompletedTotal); got != 2 {
		t.Errorf("Expected 2 completed pools, got %v", got)
	}
}
