package core

import (
	"sync"

	"github.com/tickrun/tickrun/pkg/step"
)

// taskState is the stepping engine behind a Task. It owns the lifecycle
// flags, drives the wrapped computation one step per driver tick, and fires
// its single internal finish callback exactly once per lifetime.
//
// All flag transitions are mutex-guarded so hosts that trigger Start/Stop/
// Pause from outside the driver goroutine stay safe; the step procedure
// itself is only ever invoked by one driver tick at a time.
type taskState[T any] struct {
	id      string
	stepper step.Stepper[T]

	mu       sync.RWMutex
	running  bool
	paused   bool
	stopped  bool // sticky once Stop was requested
	armed    bool // first driver invocation consumed
	finished bool // finish callback fired

	steps     uint64
	lastValue T

	// onFinish is the single internal finish callback, wired by the owning
	// Task before the state can ever run.
	onFinish  func(manual bool, last T)
	observers []Observer
}

func newTaskState[T any](id string, stepper step.Stepper[T]) *taskState[T] {
	return &taskState[T]{
		id:      id,
		stepper: stepper,
	}
}

// start marks the state running and registers the stepping procedure with
// the driver. The unit becomes eligible for stepping on the driver's next
// tick, not immediately: the first invocation is the no-op arm tick, so
// callers observe running == true before any side effect of the computation.
func (s *taskState[T]) start(d Driver) error {
	if d == nil {
		return ErrNilDriver
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if s.stopped || s.finished {
		s.mu.Unlock()
		return ErrTaskRetired
	}
	s.running = true
	s.armed = false
	s.mu.Unlock()

	d.Register(s.step)
	for _, o := range s.snapshotObservers() {
		o.OnStart(s.id)
	}
	return nil
}

// stop requests a forced finish. It only flips flags; the finish
// notification fires when the driver next ticks this state. Idempotent.
func (s *taskState[T]) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.running = false
	s.mu.Unlock()
}

func (s *taskState[T]) pause() {
	s.mu.Lock()
	already := s.paused
	s.paused = true
	s.mu.Unlock()
	if already {
		return
	}
	for _, o := range s.snapshotObservers() {
		o.OnPause(s.id)
	}
}

func (s *taskState[T]) resume() {
	s.mu.Lock()
	already := !s.paused
	s.paused = false
	s.mu.Unlock()
	if already {
		return
	}
	for _, o := range s.snapshotObservers() {
		o.OnResume(s.id)
	}
}

// step is the procedure handed to the Driver. The return value tells the
// driver whether this state still wants ticks.
func (s *taskState[T]) step() bool {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return false
	}

	// A stop requested since the last tick is observed here, at the tick
	// boundary, never mid-step.
	if !s.running {
		manual := s.stopped
		last := s.lastValue
		s.finished = true
		s.mu.Unlock()
		s.fireFinish(manual, last)
		return false
	}

	if s.paused {
		// Yield without resuming the computation. The registration stays
		// alive so a later resume picks up where it left off.
		s.mu.Unlock()
		return true
	}

	if !s.armed {
		s.armed = true
		s.mu.Unlock()
		return true
	}

	stepper := s.stepper
	s.mu.Unlock()

	if stepper != nil {
		if v, ok := stepper.Next(); ok {
			s.mu.Lock()
			s.lastValue = v
			s.steps++
			s.mu.Unlock()
			for _, o := range s.snapshotObservers() {
				o.OnStep(s.id)
			}
			return true
		}
	}

	// Exhausted (or no computation was supplied at all).
	s.mu.Lock()
	s.running = false
	s.finished = true
	last := s.lastValue
	s.mu.Unlock()
	s.fireFinish(false, last)
	return false
}

func (s *taskState[T]) fireFinish(manual bool, last T) {
	if s.onFinish != nil {
		s.onFinish(manual, last)
	}
	for _, o := range s.snapshotObservers() {
		o.OnFinish(s.id, manual)
	}
}

func (s *taskState[T]) snapshotObservers() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observers
}

func (s *taskState[T]) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *taskState[T]) isPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *taskState[T]) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

func (s *taskState[T]) isFinished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

func (s *taskState[T]) stepCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps
}

func (s *taskState[T]) last() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastValue
}
