package queue

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrQueueUnavailable is returned when the backing store cannot be reached
	ErrQueueUnavailable = errors.New("queue store unavailable")

	// ErrDuplicateJobKey is returned when a non-terminal job already exists for the key.
	// Callers reschedule by removing the prior job first.
	ErrDuplicateJobKey = errors.New("non-terminal job already exists for key")

	// ErrJobNotFound is returned when no non-terminal job exists for the key
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotActive is returned when a worker reports on a job it no longer holds
	ErrJobNotActive = errors.New("job is not active")

	// ErrNoJobToClaim is returned by stores when nothing is ready
	ErrNoJobToClaim = errors.New("no job to claim")

	// ErrHandlerNotFound is returned when no handler is registered for a job type
	ErrHandlerNotFound = errors.New("no handler registered for job type")

	// ErrShutdownTimeout is returned by Worker.Stop when handlers outlive the shutdown timeout
	ErrShutdownTimeout = errors.New("worker shutdown timed out")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no job handlers registered")

	// ErrInvalidSchedule is returned when schedule format is invalid
	ErrInvalidSchedule = errors.New("invalid schedule format")

	// ErrTaskAlreadyRegistered is returned when trying to register a duplicate periodic task
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrSchedulerNotConfigured is returned when scheduler has no tasks
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")
)

// Error classifies a handler failure for the worker.
// Retryable errors are retried with backoff until attempts are exhausted;
// terminal errors move the job to failed immediately.
type Error struct {
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "job error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable marks err as a transient infrastructure failure.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Err: err, Retryable: true}
}

// Terminal marks err as a business failure that retrying cannot fix.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Err: err, Retryable: false}
}

// Terminalf formats a terminal error.
func Terminalf(format string, args ...any) error {
	return Terminal(fmt.Errorf(format, args...))
}

// IsRetryable reports whether the worker should retry after err.
// Unclassified errors are treated as infrastructure failures and retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Retryable
	}
	return true
}
