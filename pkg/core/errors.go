package core

// Error represents a scheduler error with a stable code
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errors returned by lifecycle and pool operations
var (
	ErrAlreadyRunning = &Error{Code: "ALREADY_RUNNING", Message: "task is already running"}
	ErrTaskRetired    = &Error{Code: "TASK_RETIRED", Message: "task has already finished or was stopped"}
	ErrPoolLocked     = &Error{Code: "POOL_LOCKED", Message: "pool is locked, no further tasks can be added"}
	ErrNilDriver      = &Error{Code: "NIL_DRIVER", Message: "driver cannot be nil"}
	ErrNilTask        = &Error{Code: "NIL_TASK", Message: "task cannot be nil"}
)
