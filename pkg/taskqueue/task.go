package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
)

// Action is the user work performed when a task starts.
// A returned error or a panic fails the task with a *UserActionError.
type Action func(ctx context.Context, t *Task) error

// Task is one unit of work. Create it with NewTask and hand it to Queue.Enqueue.
//
// Configuration is fixed at construction. Status, Attempt, Err and Metadata
// are safe to read from any goroutine, including from inside callbacks.
type Task struct {
	id                TaskID
	customID          string
	blocking          bool
	action            Action
	condition         Condition
	retry             *RetryConfig
	timeout           time.Duration
	postDelay         time.Duration
	stopQueueOnFail   bool
	stopQueueOnCancel bool
	onCompleted       func(*Task)
	onCancelled       func(*Task)
	onFailed          func(*Task, error)
	createdAt         time.Time

	status   atomic.Int32
	attempt  atomic.Int32
	eventMet atomic.Bool

	mu         sync.RWMutex
	metadata   any
	err        error
	enqueuedAt time.Time
	startedAt  time.Time
	finishedAt time.Time

	owner atomic.Pointer[Queue]

	// Guarded by the owning queue's mutex.
	eventToken       eventbus.Token
	timeoutTimer     activeTimer
	stallTimer       activeTimer
	delayTimer       activeTimer
	postDelayTimer   activeTimer
	retryTimer       activeTimer
	postDelayStarted bool
	retryPending     bool
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// NewTask creates a blocking, immediately-completing task running action.
// A nil action is allowed for tasks that only wait on their condition.
func NewTask(action Action, opts ...TaskOption) *Task {
	t := &Task{
		id:        nextTaskID(),
		blocking:  true,
		action:    action,
		condition: Immediate(),
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func WithCustomID(id string) TaskOption {
	return func(t *Task) { t.customID = id }
}

// WithNonBlocking lets the queue start the next task while this one waits.
func WithNonBlocking() TaskOption {
	return func(t *Task) { t.blocking = false }
}

func WithCondition(c Condition) TaskOption {
	return func(t *Task) {
		if c != nil {
			t.condition = c
		}
	}
}

// WithRetry attaches a retry policy. Only predicate conditions use it.
func WithRetry(cfg RetryConfig) TaskOption {
	return func(t *Task) { t.retry = &cfg }
}

// WithTimeout fails the task once d of active time passes while it is
// executing or waiting for its condition.
func WithTimeout(d time.Duration) TaskOption {
	return func(t *Task) { t.timeout = max(d, 0) }
}

// WithPostDelay holds a satisfied task in WaitingForPostDelay for d before completing it.
func WithPostDelay(d time.Duration) TaskOption {
	return func(t *Task) { t.postDelay = max(d, 0) }
}

func WithMetadata(v any) TaskOption {
	return func(t *Task) { t.metadata = v }
}

// WithStopQueueOnFail stops the whole queue when this task fails.
func WithStopQueueOnFail() TaskOption {
	return func(t *Task) { t.stopQueueOnFail = true }
}

// WithStopQueueOnCancel stops the whole queue when this task is cancelled.
func WithStopQueueOnCancel() TaskOption {
	return func(t *Task) { t.stopQueueOnCancel = true }
}

func WithOnCompleted(fn func(*Task)) TaskOption {
	return func(t *Task) { t.onCompleted = fn }
}

func WithOnCancelled(fn func(*Task)) TaskOption {
	return func(t *Task) { t.onCancelled = fn }
}

func WithOnFailed(fn func(*Task, error)) TaskOption {
	return func(t *Task) { t.onFailed = fn }
}

func (t *Task) ID() TaskID               { return t.id }
func (t *Task) CustomID() string         { return t.customID }
func (t *Task) Blocking() bool           { return t.blocking }
func (t *Task) Condition() Condition     { return t.condition }
func (t *Task) Timeout() time.Duration   { return t.timeout }
func (t *Task) PostDelay() time.Duration { return t.postDelay }

// CreatedAt returns the wall-clock time NewTask was called. Every other
// timestamp on a task comes from the owning queue's clock or its ticks.
func (t *Task) CreatedAt() time.Time { return t.createdAt }

func (t *Task) Status() Status {
	return Status(t.status.Load())
}

// Attempt returns the number of retries performed so far.
func (t *Task) Attempt() int {
	return int(t.attempt.Load())
}

func (t *Task) Metadata() any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metadata
}

func (t *Task) SetMetadata(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metadata = v
}

// Err returns the failure cause of a failed task.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// EnqueuedAt returns the queue clock time of the last successful Enqueue or
// InsertAfter, or the zero time for a task that was never admitted.
func (t *Task) EnqueuedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enqueuedAt
}

// StartedAt returns the tick time the task first started executing.
func (t *Task) StartedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startedAt
}

// FinishedAt returns the time the task reached a terminal status.
func (t *Task) FinishedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.finishedAt
}

// Info returns a snapshot suitable for logging or serialization.
func (t *Task) Info() TaskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info := TaskInfo{
		ID:         t.id,
		CustomID:   t.customID,
		Status:     t.Status(),
		Blocking:   t.blocking,
		Condition:  t.condition.Kind(),
		Attempt:    t.Attempt(),
		Timeout:    t.timeout,
		PostDelay:  t.postDelay,
		CreatedAt:  t.createdAt,
		EnqueuedAt: t.enqueuedAt,
		StartedAt:  t.startedAt,
		FinishedAt: t.finishedAt,
	}
	if t.err != nil {
		info.Error = t.err.Error()
	}
	return info
}

func (t *Task) setStatus(s Status) {
	t.status.Store(int32(s))
}

// retryPolicy returns the retry configuration when it applies to the condition.
func (t *Task) retryPolicy() *RetryConfig {
	if t.retry == nil || t.condition.Kind() != ConditionPredicate {
		return nil
	}
	return t.retry
}

// inFlight reports whether the task has started and still needs polling.
func (t *Task) inFlight() bool {
	s := t.Status()
	return s == StatusExecuting || s.IsWaiting() || (s == StatusQueued && t.retryPending)
}

// runnable reports whether the task can be picked as the next task to start.
func (t *Task) runnable() bool {
	return t.Status() == StatusQueued && !t.retryPending
}

func (t *Task) advance(d time.Duration) {
	t.timeoutTimer.advance(d)
	t.stallTimer.advance(d)
	t.delayTimer.advance(d)
	t.postDelayTimer.advance(d)
	t.retryTimer.advance(d)
}

func (t *Task) markStarted(now time.Time) {
	t.mu.Lock()
	t.startedAt = now
	t.mu.Unlock()
}

func (t *Task) markFinished(now time.Time, err error) {
	t.mu.Lock()
	t.finishedAt = now
	t.err = err
	t.mu.Unlock()
}

// resetEngineState returns a detached task to a pristine queued state so it
// can be enqueued again.
func (t *Task) resetEngineState() {
	t.owner.Store(nil)
	t.eventToken = eventbus.Token{}
	t.timeoutTimer.stop()
	t.stallTimer.stop()
	t.delayTimer.stop()
	t.postDelayTimer.stop()
	t.retryTimer.stop()
	t.postDelayStarted = false
	t.retryPending = false
	t.eventMet.Store(false)
	t.attempt.Store(0)
}
