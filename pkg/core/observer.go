package core

// Observer receives task lifecycle callbacks.
//
// Callbacks are delivered synchronously on whatever goroutine triggered the
// transition (the caller for OnStart/OnPause/OnResume, the driver for OnStep
// and OnFinish). Observers must not block and must not call back into the
// task's lifecycle methods.
type Observer interface {
	// OnStart is called when a task starts and registers with its driver.
	OnStart(taskID string)

	// OnStep is called after each real step of the wrapped computation.
	// Arm and paused ticks do not count.
	OnStep(taskID string)

	// OnPause is called when a task is paused.
	OnPause(taskID string)

	// OnResume is called when a paused task is resumed.
	OnResume(taskID string)

	// OnFinish is called exactly once when a task finishes.
	// manual is true when the finish was forced by Stop.
	OnFinish(taskID string, manual bool)
}
