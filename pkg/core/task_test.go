package core

import (
	"errors"
	"testing"

	"github.com/tickrun/tickrun/pkg/step"
)

func newTestTask[T any](t *testing.T, s step.Stepper[T], driver Driver, autoStart bool, opts ...TaskOption[T]) *Task[T] {
	t.Helper()
	opts = append(opts, WithLogger[T](NopLogger()))
	task, err := NewTask(s, driver, autoStart, opts...)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return task
}

func TestTask_NaturalExhaustion(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask(t, step.FromSlice([]int{10, 20, 30}), driver, false)

	var finishCount int
	var gotManual bool
	var gotLast int
	task.OnFinished(func(manual bool, last int) {
		finishCount++
		gotManual = manual
		gotLast = last
	})

	if task.Running() {
		t.Error("Task must not be running before Start")
	}
	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Tick 1 arms the task, ticks 2-4 step it, tick 5 observes exhaustion.
	for tick := 1; tick <= 4; tick++ {
		driver.Tick()
		if !task.Running() {
			t.Fatalf("Tick %d: expected task still running", tick)
		}
	}
	driver.Tick()
	if task.Running() {
		t.Error("Expected task no longer running after exhaustion")
	}
	if !task.Finished() {
		t.Error("Expected task finished after exhaustion")
	}

	if finishCount != 1 {
		t.Fatalf("Expected exactly one finish notification, got %d", finishCount)
	}
	if gotManual {
		t.Error("Natural exhaustion must report manual=false")
	}
	if gotLast != 30 {
		t.Errorf("Expected last value 30, got %d", gotLast)
	}
	if task.Steps() != 3 {
		t.Errorf("Expected 3 real steps, got %d", task.Steps())
	}
	if driver.Len() != 0 {
		t.Errorf("Expected driver to prune the retired task, %d left", driver.Len())
	}
}

func TestTask_StopBeforeExhaustion(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask(t, step.Counter(1000), driver, false)

	var finishCount int
	var gotManual bool
	var gotLast int
	task.OnFinished(func(manual bool, last int) {
		finishCount++
		gotManual = manual
		gotLast = last
	})

	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	driver.Tick() // arm
	driver.Tick() // yields 0
	driver.Tick() // yields 1

	task.Stop()
	if task.Running() {
		t.Error("Running must be false immediately after Stop")
	}
	if finishCount != 0 {
		t.Error("Finish must not fire inside Stop, only at the next tick")
	}

	driver.Tick() // stop observed here
	if finishCount != 1 {
		t.Fatalf("Expected exactly one finish notification, got %d", finishCount)
	}
	if !gotManual {
		t.Error("Forced stop must report manual=true")
	}
	if gotLast != 1 {
		t.Errorf("Expected last value 1 (second yielded value), got %d", gotLast)
	}
	if driver.Len() != 0 {
		t.Errorf("Expected driver to prune the stopped task, %d left", driver.Len())
	}
}

func TestTask_RepeatedStopFiresFinishOnce(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask(t, step.Forever("x"), driver, false)

	var finishCount int
	task.OnFinished(func(manual bool, last string) {
		finishCount++
	})

	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	driver.Tick()
	driver.Tick()

	task.Stop()
	task.Stop()
	task.Stop()

	for i := 0; i < 3; i++ {
		driver.Tick()
	}

	if finishCount != 1 {
		t.Errorf("Expected exactly one finish notification under repeated Stop, got %d", finishCount)
	}
}

func TestTask_PauseSkipsSteps(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask(t, step.Counter(1000), driver, false)

	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	driver.Tick() // arm
	driver.Tick() // yields 0

	task.Pause()
	if !task.Paused() {
		t.Error("Expected Paused true after Pause")
	}
	if !task.Running() {
		t.Error("Pause must not affect Running")
	}

	for i := 0; i < 3; i++ {
		driver.Tick()
	}
	if task.Steps() != 1 {
		t.Errorf("Paused ticks must not step the computation, got %d steps", task.Steps())
	}
	if task.LastValue() != 0 {
		t.Errorf("Paused ticks must not change the last value, got %d", task.LastValue())
	}

	task.Resume()
	if task.Paused() {
		t.Error("Expected Paused false after Resume")
	}
	driver.Tick()
	if task.Steps() != 2 {
		t.Errorf("Expected stepping to continue after Resume, got %d steps", task.Steps())
	}
}

func TestTask_ArmTickPrecedesFirstStep(t *testing.T) {
	driver := NewManualDriver()
	calls := 0
	stepper := step.Func[int](func() (int, bool) {
		calls++
		return calls, true
	})
	task := newTestTask[int](t, stepper, driver, false)

	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !task.Running() {
		t.Fatal("Running must be observably true right after Start")
	}

	driver.Tick()
	if calls != 0 {
		t.Error("First driver invocation must be a no-op arm tick, not a real step")
	}
	driver.Tick()
	if calls != 1 {
		t.Errorf("Expected first real step on the second tick, got %d calls", calls)
	}
}

func TestTask_NilStepperImmediatelyExhausted(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask[int](t, nil, driver, false)

	var finishCount int
	var gotManual bool
	task.OnFinished(func(manual bool, last int) {
		finishCount++
		gotManual = manual
	})

	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	driver.Tick() // arm
	if !task.Running() {
		t.Error("Expected task running through the arm tick")
	}
	driver.Tick() // exhaustion observed
	if task.Running() {
		t.Error("Expected task finished on the first real tick")
	}
	if finishCount != 1 || gotManual {
		t.Errorf("Expected one natural finish, got count=%d manual=%t", finishCount, gotManual)
	}
}

func TestTask_StartValidation(t *testing.T) {
	driver := NewManualDriver()

	t.Run("nil driver", func(t *testing.T) {
		if _, err := NewTask[int](nil, nil, false); !errors.Is(err, ErrNilDriver) {
			t.Errorf("Expected ErrNilDriver, got %v", err)
		}
	})

	t.Run("already running", func(t *testing.T) {
		task := newTestTask(t, step.Forever(1), driver, false)
		if err := task.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := task.Start(); !errors.Is(err, ErrAlreadyRunning) {
			t.Errorf("Expected ErrAlreadyRunning, got %v", err)
		}
		task.Stop()
		driver.Tick()
	})

	t.Run("retired after natural finish", func(t *testing.T) {
		task := newTestTask(t, step.Empty[int](), driver, false)
		if err := task.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		driver.Tick() // arm
		driver.Tick() // exhaustion
		if err := task.Start(); !errors.Is(err, ErrTaskRetired) {
			t.Errorf("Expected ErrTaskRetired, got %v", err)
		}
	})

	t.Run("retired after stop", func(t *testing.T) {
		task := newTestTask(t, step.Forever(1), driver, false)
		if err := task.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		task.Stop()
		if err := task.Start(); !errors.Is(err, ErrTaskRetired) {
			t.Errorf("Expected ErrTaskRetired, got %v", err)
		}
		driver.Tick()
	})
}

func TestTask_AutoStart(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask(t, step.Counter(2), driver, true)

	if !task.Running() {
		t.Error("Expected auto-started task to be running")
	}
	if driver.Len() != 1 {
		t.Errorf("Expected task registered with driver, got %d", driver.Len())
	}
}

func TestTask_FinishFanOut(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask(t, step.FromSlice([]int{7}), driver, false)

	var first, second, removed int
	task.OnFinished(func(manual bool, last int) { first = last })
	task.OnFinished(func(manual bool, last int) { second = last })
	sub := task.OnFinished(func(manual bool, last int) { removed = last })
	if err := sub.Unregister(); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}

	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for driver.Tick() > 0 {
	}

	if first != 7 || second != 7 {
		t.Errorf("Expected both subscribers to receive last value 7, got %d and %d", first, second)
	}
	if removed != 0 {
		t.Error("Unregistered subscriber must not be called")
	}

	// Late subscribers miss the one-shot event entirely.
	called := false
	task.OnFinished(func(manual bool, last int) { called = true })
	if called {
		t.Error("Handler added after finish must not be invoked")
	}
}

func TestTask_CustomID(t *testing.T) {
	driver := NewManualDriver()
	task := newTestTask(t, step.Counter(1), driver, false, WithID[int]("my-task"))
	if task.ID() != "my-task" {
		t.Errorf("Expected ID my-task, got %s", task.ID())
	}
}

func TestTask_GeneratedIDsUnique(t *testing.T) {
	driver := NewManualDriver()
	a := newTestTask(t, step.Counter(1), driver, false)
	b := newTestTask(t, step.Counter(1), driver, false)
	if a.ID() == b.ID() {
		t.Error("Expected distinct generated task IDs")
	}
	if a.ID() == "" {
		t.Error("Expected non-empty generated ID")
	}
}
