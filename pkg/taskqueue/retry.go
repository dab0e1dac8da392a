package taskqueue

import "time"

// RetryConfig re-runs a predicate task whose condition stalls.
// It is ignored for every other condition kind.
type RetryConfig struct {
	// MaxAttempts caps the number of retries. Zero means unlimited.
	MaxAttempts int

	// StallTimeout is the active time without the predicate turning true
	// after which a retry is attempted. Zero disables stall detection.
	StallTimeout time.Duration

	// RetryDelay parks the task back in the queued status for this long
	// before the retry action runs. Zero retries on the same tick.
	RetryDelay time.Duration

	// RetryAction replaces the task's execute action on retries.
	RetryAction Action

	// OnBeforeRetry runs before every retry with the new attempt number.
	OnBeforeRetry func(t *Task, attempt int)

	// OnMaxRetriesExceeded runs before the task is failed.
	OnMaxRetriesExceeded func(t *Task)
}

func (c *RetryConfig) exhausted(attempt int) bool {
	return c.MaxAttempts > 0 && attempt >= c.MaxAttempts
}
