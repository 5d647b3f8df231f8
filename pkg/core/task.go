package core

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tickrun/tickrun/pkg/step"
)

// FinishHandler receives a task's finish notification. manual is true when
// the task was stopped before natural exhaustion; last is the most recent
// value the computation yielded (the zero value if it never stepped).
type FinishHandler[T any] func(manual bool, last T)

// Subscription is a handle for a registered finish handler.
type Subscription interface {
	// Unregister removes the handler. Safe to call more than once.
	Unregister() error
}

// Task is the public handle over one scheduled computation. It owns its
// stepping engine exclusively: handles and engines are created together and
// retire together.
type Task[T any] struct {
	id     string
	state  *taskState[T]
	driver Driver
	logger Logger

	mu       sync.RWMutex
	handlers map[int64]FinishHandler[T]
	nextSub  int64
}

// TaskOption configures a Task before it can start.
type TaskOption[T any] func(*Task[T])

// WithID sets a custom task ID instead of the generated one.
func WithID[T any](id string) TaskOption[T] {
	return func(t *Task[T]) {
		t.id = id
	}
}

// WithLogger sets a custom logger.
func WithLogger[T any](logger Logger) TaskOption[T] {
	return func(t *Task[T]) {
		t.logger = logger
	}
}

// WithObserver adds a lifecycle observer.
func WithObserver[T any](observer Observer) TaskOption[T] {
	return func(t *Task[T]) {
		if observer != nil {
			t.state.observers = append(t.state.observers, observer)
		}
	}
}

// WithRegistry registers the task with a registry for inspection.
func WithRegistry[T any](registry *Registry) TaskOption[T] {
	return func(t *Task[T]) {
		if registry != nil {
			registry.register(t)
		}
	}
}

// NewTask wraps a resumable computation in a controllable handle. A nil
// stepper is valid and treated as immediately exhausted. When autoStart is
// true the task starts right away; pool members must be created with
// autoStart false so the pool's StartAll is the sole trigger.
func NewTask[T any](stepper step.Stepper[T], driver Driver, autoStart bool, opts ...TaskOption[T]) (*Task[T], error) {
	if driver == nil {
		return nil, ErrNilDriver
	}

	t := &Task[T]{
		id:       uuid.New().String(),
		driver:   driver,
		logger:   NewDefaultLogger(),
		handlers: make(map[int64]FinishHandler[T]),
	}
	t.state = newTaskState(t.id, stepper)
	for _, opt := range opts {
		opt(t)
	}
	t.state.id = t.id
	t.state.onFinish = t.emitFinished

	if autoStart {
		if err := t.Start(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ID returns the task ID.
func (t *Task[T]) ID() string {
	return t.id
}

// Start makes the task eligible for stepping on the driver's next tick.
// Starting a running task returns ErrAlreadyRunning; starting a task that
// has finished or was stopped returns ErrTaskRetired — retired tasks are
// never resurrected.
func (t *Task[T]) Start() error {
	if err := t.state.start(t.driver); err != nil {
		return err
	}
	t.logger.Debugf("task %s started", t.id)
	return nil
}

// Stop requests a forced finish. The in-flight step, if any, is not
// interrupted; the stop takes effect at the driver's next tick, which also
// delivers the finish notification with manual == true. Idempotent.
func (t *Task[T]) Stop() {
	t.state.stop()
}

// Pause suspends stepping without ending the task. Paused ticks are no-ops.
func (t *Task[T]) Pause() {
	t.state.pause()
}

// Resume lifts a pause.
func (t *Task[T]) Resume() {
	t.state.resume()
}

// Running reports whether the task should keep being stepped. It stays true
// while paused and turns false once the task ends, naturally or by Stop.
func (t *Task[T]) Running() bool {
	return t.state.isRunning()
}

// Paused reports whether stepping is currently suspended.
func (t *Task[T]) Paused() bool {
	return t.state.isPaused()
}

// Finished reports whether the finish notification has fired.
func (t *Task[T]) Finished() bool {
	return t.state.isFinished()
}

// Steps returns the number of real steps taken so far.
func (t *Task[T]) Steps() uint64 {
	return t.state.stepCount()
}

// LastValue returns the most recent value yielded by the computation. Only
// meaningful once stepping has begun.
func (t *Task[T]) LastValue() T {
	return t.state.last()
}

// OnFinished subscribes a handler to the task's finish notification. The
// one-shot internal finish event fans out to every handler registered at the
// time it fires; handlers added after that never run. Delivery is
// synchronous on the driver's goroutine.
func (t *Task[T]) OnFinished(handler FinishHandler[T]) Subscription {
	if handler == nil {
		return nopSubscription{}
	}
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.handlers[id] = handler
	t.mu.Unlock()
	return &finishSubscription[T]{task: t, id: id}
}

// Info returns an inspection snapshot of the task.
func (t *Task[T]) Info() TaskInfo {
	return TaskInfo{
		ID:       t.id,
		Running:  t.state.isRunning(),
		Paused:   t.state.isPaused(),
		Stopped:  t.state.isStopped(),
		Finished: t.state.isFinished(),
		Steps:    t.state.stepCount(),
	}
}

// emitFinished is the stepping engine's single internal finish callback. It
// re-emits the event to all current subscribers.
func (t *Task[T]) emitFinished(manual bool, last T) {
	t.mu.RLock()
	handlers := make([]FinishHandler[T], 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.mu.RUnlock()

	t.logger.Debugf("task %s finished (manual=%t, steps=%d)", t.id, manual, t.state.stepCount())
	for _, h := range handlers {
		h(manual, last)
	}
}

type finishSubscription[T any] struct {
	task *Task[T]
	id   int64
}

func (s *finishSubscription[T]) Unregister() error {
	s.task.mu.Lock()
	delete(s.task.handlers, s.id)
	s.task.mu.Unlock()
	return nil
}

type nopSubscription struct{}

func (nopSubscription) Unregister() error { return nil }
