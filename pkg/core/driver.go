package core

import (
	"context"
	"sync"
	"time"
)

// StepProc is the stepping procedure a task hands to its Driver. The driver
// invokes it once per tick; a false return means the task has retired and
// must not be invoked again.
type StepProc func() bool

// Driver schedules registered stepping procedures. Implementations must
// invoke every registered procedure at least once per logical tick until it
// returns false, and must perform the first invocation (the arm tick) before
// the procedure gets a chance to run any real step.
type Driver interface {
	// Register adds a stepping procedure to the driver's tick loop.
	Register(proc StepProc)
}

// ManualDriver is a deterministic poll loop over registered stepping
// procedures. Ticks only happen when the caller invokes Tick, which makes it
// the driver of choice for tests and for hosts that already own a frame or
// event loop.
type ManualDriver struct {
	mu    sync.Mutex
	procs []StepProc
}

// NewManualDriver creates a new manual driver with no registered procedures.
func NewManualDriver() *ManualDriver {
	return &ManualDriver{}
}

// Register adds a stepping procedure. It will receive its first invocation on
// the next Tick. Registering a nil procedure is ignored.
func (d *ManualDriver) Register(proc StepProc) {
	if proc == nil {
		return
	}
	d.mu.Lock()
	d.procs = append(d.procs, proc)
	d.mu.Unlock()
}

// Tick invokes every live procedure exactly once, in registration order, and
// prunes the ones that report retirement. It returns the number of live
// procedures remaining after the tick.
//
// Procedures registered while a tick is in flight (for example a task started
// from a finish handler) are scheduled for the following tick.
func (d *ManualDriver) Tick() int {
	d.mu.Lock()
	procs := d.procs
	d.procs = nil
	d.mu.Unlock()

	live := procs[:0]
	for _, proc := range procs {
		if proc() {
			live = append(live, proc)
		}
	}

	d.mu.Lock()
	// Keep registration order: survivors first, then procedures registered
	// during this tick.
	d.procs = append(live, d.procs...)
	n := len(d.procs)
	d.mu.Unlock()
	return n
}

// Len returns the number of currently registered procedures.
func (d *ManualDriver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.procs)
}

// TickerDriver drives a ManualDriver from a time.Ticker on a single
// goroutine. At most one stepping procedure executes at a time, so tasks
// behave as cooperatively multitasked units regardless of how many are
// registered.
type TickerDriver struct {
	inner    *ManualDriver
	interval time.Duration
	logger   Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// DriverOption configures a TickerDriver.
type DriverOption func(*TickerDriver)

// WithDriverLogger sets a custom logger.
func WithDriverLogger(logger Logger) DriverOption {
	return func(d *TickerDriver) {
		d.logger = logger
	}
}

// NewTickerDriver creates a ticker driver and starts its tick loop. The loop
// runs until Close is called or ctx is cancelled.
func NewTickerDriver(ctx context.Context, interval time.Duration, opts ...DriverOption) *TickerDriver {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	d := &TickerDriver{
		inner:    NewManualDriver(),
		interval: interval,
		logger:   NewDefaultLogger(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Register adds a stepping procedure to the tick loop.
func (d *TickerDriver) Register(proc StepProc) {
	d.inner.Register(proc)
}

// Len returns the number of currently registered procedures.
func (d *TickerDriver) Len() int {
	return d.inner.Len()
}

// Close stops the tick loop and waits for it to exit. Registered tasks that
// have not retired yet will never be ticked again; a stopped task caught in
// that window never fires its finish notification. That is the documented
// latent-hang hazard, so hosts should stop tasks and let the loop drain
// before closing.
func (d *TickerDriver) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()
		<-d.done
	})
	return nil
}

func (d *TickerDriver) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			if n := d.inner.Len(); n > 0 {
				d.logger.Warnf("ticker driver closing with %d live task(s)", n)
			}
			return
		case <-ticker.C:
			d.inner.Tick()
		}
	}
}
