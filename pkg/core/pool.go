package core

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Pool groups tasks so they can be started, paused, resumed, and stopped as
// one unit, and raises a single all-finished notification once every member
// has finished exactly once.
//
// Members must be constructed with autoStart false: StartAll is meant to be
// the sole trigger, otherwise members could begin executing before the group
// is fully assembled.
type Pool[T any] struct {
	id     string
	logger Logger

	mu            sync.RWMutex
	tasks         []*Task[T]
	locked        bool
	finishedCount int
	allFired      bool
	handlers      map[int64]func()
	nextSub       int64
}

// PoolOption configures a Pool.
type PoolOption[T any] func(*Pool[T])

// WithPoolID sets a custom pool ID instead of the generated one.
func WithPoolID[T any](id string) PoolOption[T] {
	return func(p *Pool[T]) {
		p.id = id
	}
}

// WithPoolLogger sets a custom logger.
func WithPoolLogger[T any](logger Logger) PoolOption[T] {
	return func(p *Pool[T]) {
		p.logger = logger
	}
}

// NewPool creates an empty pool.
func NewPool[T any](opts ...PoolOption[T]) *Pool[T] {
	p := &Pool[T]{
		id:       uuid.New().String(),
		logger:   NewDefaultLogger(),
		handlers: make(map[int64]func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the pool ID.
func (p *Pool[T]) ID() string {
	return p.id
}

// Add appends a task to the pool and subscribes the pool's completion
// counter to its finish notification. Once the pool is locked by StartAll,
// Add returns ErrPoolLocked and performs no mutation, so callers can detect
// a dropped registration attempt.
func (p *Pool[T]) Add(task *Task[T]) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	if p.locked {
		p.mu.Unlock()
		return ErrPoolLocked
	}
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()

	// The task guarantees its finish event fires exactly once, so each
	// member contributes exactly one increment regardless of repeated stops.
	task.OnFinished(func(manual bool, last T) {
		p.memberFinished()
	})
	return nil
}

// StartAll locks the pool against further additions and starts every member
// in insertion order. The lock holds even if a member fails to start; start
// failures are logged and reported joined, and the remaining members are
// still started.
func (p *Pool[T]) StartAll() error {
	p.mu.Lock()
	p.locked = true
	tasks := p.snapshotLocked()
	p.mu.Unlock()

	var errs []error
	for _, t := range tasks {
		if err := t.Start(); err != nil {
			p.logger.Warnf("pool %s: failed to start task %s: %v", p.id, t.ID(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every member in insertion order. No atomicity is guaranteed
// across members: a driver tick may interleave between individual stops.
func (p *Pool[T]) StopAll() {
	for _, t := range p.snapshot() {
		t.Stop()
	}
}

// PauseAll pauses every member in insertion order.
func (p *Pool[T]) PauseAll() {
	for _, t := range p.snapshot() {
		t.Pause()
	}
}

// ResumeAll resumes every member in insertion order.
func (p *Pool[T]) ResumeAll() {
	for _, t := range p.snapshot() {
		t.Resume()
	}
}

// AllRunning reports whether every member is currently running. An empty
// pool reports true; treat that as the degenerate case it is, not as
// evidence of activity.
func (p *Pool[T]) AllRunning() bool {
	for _, t := range p.snapshot() {
		if !t.Running() {
			return false
		}
	}
	return true
}

// AllPaused reports whether every member is currently paused. An empty pool
// reports true.
func (p *Pool[T]) AllPaused() bool {
	for _, t := range p.snapshot() {
		if !t.Paused() {
			return false
		}
	}
	return true
}

// Size returns the number of members.
func (p *Pool[T]) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tasks)
}

// FinishedCount returns how many members have finished so far.
func (p *Pool[T]) FinishedCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.finishedCount
}

// Locked reports whether StartAll has already locked the pool.
func (p *Pool[T]) Locked() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.locked
}

// OnAllFinished subscribes a handler to the pool's all-finished
// notification. It fires exactly once, when the last member's finish first
// brings the completion count up to the member count. For an empty pool it
// never fires.
func (p *Pool[T]) OnAllFinished(handler func()) Subscription {
	if handler == nil {
		return nopSubscription{}
	}
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.handlers[id] = handler
	p.mu.Unlock()
	return &poolSubscription[T]{pool: p, id: id}
}

type poolSubscription[T any] struct {
	pool *Pool[T]
	id   int64
}

func (s *poolSubscription[T]) Unregister() error {
	s.pool.mu.Lock()
	delete(s.pool.handlers, s.id)
	s.pool.mu.Unlock()
	return nil
}

func (p *Pool[T]) memberFinished() {
	p.mu.Lock()
	p.finishedCount++
	fire := !p.allFired && p.finishedCount == len(p.tasks)
	if fire {
		p.allFired = true
	}
	var handlers []func()
	if fire {
		handlers = make([]func(), 0, len(p.handlers))
		for _, h := range p.handlers {
			handlers = append(handlers, h)
		}
	}
	p.mu.Unlock()

	if !fire {
		return
	}
	p.logger.Debugf("pool %s: all %d task(s) finished", p.id, len(p.snapshot()))
	for _, h := range handlers {
		h()
	}
}

func (p *Pool[T]) snapshot() []*Task[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *Pool[T]) snapshotLocked() []*Task[T] {
	tasks := make([]*Task[T], len(p.tasks))
	copy(tasks, p.tasks)
	return tasks
}
