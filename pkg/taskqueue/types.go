package taskqueue

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskID is a process-unique task identifier. IDs start at 1 and are never reused.
type TaskID uint64

var lastTaskID atomic.Uint64

func nextTaskID() TaskID {
	return TaskID(lastTaskID.Add(1))
}

// Status is the lifecycle status of a single task.
type Status int32

const (
	StatusQueued Status = iota
	StatusExecuting
	StatusWaitingForCompletion
	StatusWaitingForPostDelay
	StatusCompleted
	StatusCancelled
	StatusFailed
)

var statusNames = [...]string{
	StatusQueued:               "queued",
	StatusExecuting:            "executing",
	StatusWaitingForCompletion: "waiting_for_completion",
	StatusWaitingForPostDelay:  "waiting_for_post_delay",
	StatusCompleted:            "completed",
	StatusCancelled:            "cancelled",
	StatusFailed:               "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int32(s))
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether the status is Completed, Cancelled or Failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// IsWaiting reports whether the task is waiting for its condition or post-delay.
func (s Status) IsWaiting() bool {
	return s == StatusWaitingForCompletion || s == StatusWaitingForPostDelay
}

// State is the queue-level state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

func (s State) String() string { return string(s) }

// Statistics is a point-in-time snapshot of a queue.
type Statistics struct {
	QueueID       uuid.UUID `json:"queue_id"`
	Queue         string    `json:"queue"`
	State         State     `json:"state"`
	CurrentTaskID TaskID    `json:"current_task_id,omitempty"`

	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Executing int `json:"executing"`
	Waiting   int `json:"waiting"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`

	// Lifetime counters survive Clear, Stop and ClearCompleted.
	LifetimeCompleted int `json:"lifetime_completed"`
	LifetimeCancelled int `json:"lifetime_cancelled"`
	LifetimeFailed    int `json:"lifetime_failed"`
	Retries           int `json:"retries"`
}

// Progress reports how much of the current task list has finished.
type Progress struct {
	Total    int     `json:"total"`
	Finished int     `json:"finished"`
	Percent  float64 `json:"percent"`
}

// QueueCompleted is published on the event bus when every task in the queue
// has reached a terminal status.
type QueueCompleted struct {
	QueueID   uuid.UUID `json:"queue_id"`
	Queue     string    `json:"queue"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	At        time.Time `json:"at"`
}

// TaskInfo is a read-only snapshot of a task.
type TaskInfo struct {
	ID         TaskID        `json:"id"`
	CustomID   string        `json:"custom_id,omitempty"`
	Status     Status        `json:"status"`
	Blocking   bool          `json:"blocking"`
	Condition  ConditionKind `json:"condition"`
	Attempt    int           `json:"attempt"`
	Timeout    time.Duration `json:"timeout,omitempty"`
	PostDelay  time.Duration `json:"post_delay,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	EnqueuedAt time.Time     `json:"enqueued_at,omitzero"`
	StartedAt  time.Time     `json:"started_at,omitzero"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
	Error      string        `json:"error,omitempty"`
}
