package taskqueue

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQueueClosed is reported when an operation targets a closed queue.
	ErrQueueClosed = errors.New("taskqueue: queue is closed")

	// ErrInvalidTask is reported for nil tasks and tasks that were already enqueued.
	ErrInvalidTask = errors.New("taskqueue: task is nil or already enqueued")

	// ErrTaskNotFound is reported when no task has the requested id.
	ErrTaskNotFound = errors.New("taskqueue: task not found")

	// ErrTaskFinished is reported when cancelling a task in a terminal status.
	ErrTaskFinished = errors.New("taskqueue: task already finished")

	// ErrTargetPassed is reported by InsertAfter when the target already ran.
	ErrTargetPassed = errors.New("taskqueue: target task already passed")

	// ErrTargetNotQueued is reported by JumpTo when the target is not queued.
	ErrTargetNotQueued = errors.New("taskqueue: target task is not queued")

	// ErrNoEventBus is reported when an event-conditioned task is enqueued
	// on a queue without an event bus.
	ErrNoEventBus = errors.New("taskqueue: event condition requires an event bus")

	// ErrEventSubscription is reported when the event bus refuses a subscription.
	ErrEventSubscription = errors.New("taskqueue: event subscription failed")

	// ErrInvalidTransition wraps queue state machine rejections.
	ErrInvalidTransition = errors.New("taskqueue: invalid queue state transition")

	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("taskqueue: task timed out")

	// ErrMaxRetriesExceeded matches every *MaxRetriesExceededError.
	ErrMaxRetriesExceeded = errors.New("taskqueue: max retries exceeded")
)

// TimeoutError is the failure cause of a task whose timeout elapsed.
type TimeoutError struct {
	Timeout time.Duration
	Status  Status // status the task was in when it timed out
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("taskqueue: task timed out after %s while %s", e.Timeout, e.Status)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// MaxRetriesExceededError is the failure cause of a predicate task that
// stalled after exhausting its retry budget.
type MaxRetriesExceededError struct {
	Attempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("taskqueue: max retries exceeded after %d attempts", e.Attempts)
}

func (e *MaxRetriesExceededError) Is(target error) bool { return target == ErrMaxRetriesExceeded }

// UserActionError wraps an error returned, or a panic raised, by user code:
// the execute action, a retry action or a predicate.
type UserActionError struct {
	Op  string
	Err error
}

func (e *UserActionError) Error() string {
	return fmt.Sprintf("taskqueue: %s: %v", e.Op, e.Err)
}

func (e *UserActionError) Unwrap() error { return e.Err }

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsMaxRetriesExceeded(err error) bool {
	return errors.Is(err, ErrMaxRetriesExceeded)
}

func IsUserActionError(err error) bool {
	var e *UserActionError
	return errors.As(err, &e)
}
