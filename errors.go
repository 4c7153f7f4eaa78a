package rtos

import "errors"

// §7's status taxonomy, rendered as sentinel errors rather than an integer
// enum: SUCCESS is the Go zero value (nil error), everything else is one of
// these, compared with errors.Is. There is deliberately no wrapping here —
// nothing in the kernel composes a status from more than one source, so a
// small closed set of sentinels is the whole story.
var (
	// ErrTimeout is CONDITION_TIMEOUT: a blocking call's deadline elapsed
	// before any condition resumed it.
	ErrTimeout = errors.New("rtos: condition timeout")

	// ErrBusy is SEMAPHORE_BUSY: a non-blocking obtain found the resource
	// unavailable.
	ErrBusy = errors.New("rtos: semaphore busy")

	// ErrDeleted is SEMAPHORE_DELETED: the primitive a task was waiting on
	// was destroyed while the task was parked.
	ErrDeleted = errors.New("rtos: semaphore deleted")

	// ErrIdleNoSpace is IDLE_NO_SPACE: the idle-work table is full.
	ErrIdleNoSpace = errors.New("rtos: idle work table full")

	// ErrIdleNotFound is IDLE_NOT_FOUND: no matching (callback, data) entry
	// in the idle-work table.
	ErrIdleNotFound = errors.New("rtos: idle work entry not found")
)
