package taskqueue

import (
	"context"
	"slices"

	"github.com/dmitrymomot/tickqueue/pkg/logger"
)

// Enqueue appends t to the queue. It returns false when the queue is closed,
// t is nil or already enqueued somewhere, or t waits on an event and the
// queue has no bus.
func (q *Queue) Enqueue(t *Task) bool {
	return q.insert(t, 0, false)
}

// InsertAfter inserts t right after the task with targetID. The target must
// still be queued, or be the current task or a later one.
func (q *Queue) InsertAfter(t *Task, targetID TaskID) bool {
	return q.insert(t, targetID, true)
}

func (q *Queue) insert(t *Task, targetID TaskID, after bool) bool {
	ctx := context.Background()
	op := "enqueue"
	if after {
		op = "insert_after"
	}

	q.mu.Lock()
	if err := q.admitLocked(t); err != nil {
		q.mu.Unlock()
		q.warn(ctx, op, err)
		return false
	}

	pos := len(q.tasks)
	if after {
		idx := q.indexLocked(targetID)
		if idx < 0 {
			q.mu.Unlock()
			q.warn(ctx, op, ErrTaskNotFound, logger.TaskID(uint64(targetID)))
			return false
		}
		if q.tasks[idx].Status() != StatusQueued && idx < q.currentIndexLocked() {
			q.mu.Unlock()
			q.warn(ctx, op, ErrTargetPassed, logger.TaskID(uint64(targetID)))
			return false
		}
		pos = idx + 1
	}

	if !t.owner.CompareAndSwap(nil, q) {
		q.mu.Unlock()
		q.warn(ctx, op, ErrInvalidTask)
		return false
	}
	if err := q.attachLocked(t); err != nil {
		t.owner.Store(nil)
		q.mu.Unlock()
		q.warn(ctx, op, err, logger.TaskID(uint64(t.id)))
		return false
	}
	t.mu.Lock()
	t.enqueuedAt = q.clock()
	t.mu.Unlock()
	q.tasks = slices.Insert(q.tasks, pos, t)
	q.completionFired = false
	autoStart := q.autoStart && q.machine.Is(StateIdle, StateStopped)
	q.mu.Unlock()

	q.logger.DebugContext(ctx, "task enqueued",
		logger.TaskID(uint64(t.id)),
		logger.CustomID(t.customID),
		logger.Count("position", pos))

	if autoStart {
		_ = q.Start()
	}
	return true
}

func (q *Queue) admitLocked(t *Task) error {
	switch {
	case q.closed:
		return ErrQueueClosed
	case t == nil, t.owner.Load() != nil, t.Status() != StatusQueued:
		return ErrInvalidTask
	case t.condition.Kind() == ConditionEvent && q.bus == nil:
		return ErrNoEventBus
	}
	return nil
}

func (q *Queue) indexLocked(id TaskID) int {
	return slices.IndexFunc(q.tasks, func(t *Task) bool { return t.id == id })
}

func (q *Queue) currentIndexLocked() int {
	if q.current == nil {
		return -1
	}
	return slices.Index(q.tasks, q.current)
}

// SkipNext cancels up to count upcoming queued tasks, plus the current task
// when includeCurrent is set. It returns the number of cancelled tasks.
func (q *Queue) SkipNext(count int, includeCurrent bool) int {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.warn(ctx, "skip_next", ErrQueueClosed)
		return 0
	}
	paused := q.holdLocked(ctx)

	now := q.clock()
	var effects []effect
	cancelled := 0
	if includeCurrent && q.current != nil && !q.current.Status().IsTerminal() {
		effects = append(effects, q.cancelLocked(ctx, q.current, now, false)...)
		cancelled++
	}
	skipped := 0
	for _, t := range q.tasks {
		if skipped >= count {
			break
		}
		if t.runnable() {
			effects = append(effects, q.cancelLocked(ctx, t, now, false)...)
			skipped++
		}
	}
	cancelled += skipped
	q.mu.Unlock()

	q.run(ctx, effects)
	q.release(ctx, paused)
	return cancelled
}

// JumpTo cancels every unfinished task before targetID so the target runs next.
// The target must be queued.
func (q *Queue) JumpTo(targetID TaskID) bool {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.warn(ctx, "jump_to", ErrQueueClosed)
		return false
	}
	idx := q.indexLocked(targetID)
	if idx < 0 {
		q.mu.Unlock()
		q.warn(ctx, "jump_to", ErrTaskNotFound, logger.TaskID(uint64(targetID)))
		return false
	}
	if !q.tasks[idx].runnable() {
		q.mu.Unlock()
		q.warn(ctx, "jump_to", ErrTargetNotQueued, logger.TaskID(uint64(targetID)))
		return false
	}
	paused := q.holdLocked(ctx)

	now := q.clock()
	var effects []effect
	for _, t := range q.tasks[:idx] {
		effects = append(effects, q.cancelLocked(ctx, t, now, false)...)
	}
	q.mu.Unlock()

	q.run(ctx, effects)
	q.release(ctx, paused)
	return true
}

// holdLocked pauses a running queue for the duration of a bulk mutation.
// Unlike Pause it leaves the time base alone, so no active time is lost.
func (q *Queue) holdLocked(ctx context.Context) bool {
	if q.machine.Current() != StateRunning {
		return false
	}
	if q.machine.Fire(ctx, eventPause) != nil {
		return false
	}
	q.held = true
	return true
}

func (q *Queue) release(ctx context.Context, paused bool) {
	if !paused {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.held = false
	if !q.closed && q.machine.Current() == StatePaused {
		_ = q.machine.Fire(ctx, eventResume)
	}
}

// Cancel cancels the task with id. It returns false when the task is unknown
// or already finished.
func (q *Queue) Cancel(id TaskID) bool {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.warn(ctx, "cancel", ErrQueueClosed)
		return false
	}
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		q.warn(ctx, "cancel", ErrTaskNotFound, logger.TaskID(uint64(id)))
		return false
	}
	t := q.tasks[idx]
	if t.Status().IsTerminal() {
		q.mu.Unlock()
		q.warn(ctx, "cancel", ErrTaskFinished, logger.TaskID(uint64(id)))
		return false
	}
	effects := q.cancelLocked(ctx, t, q.clock(), false)
	q.mu.Unlock()

	q.run(ctx, effects)
	return true
}

// CancelByCustomID cancels every unfinished task labelled customID.
func (q *Queue) CancelByCustomID(customID string) int {
	return q.cancelWhere("cancel_by_custom_id", func(t *Task) bool { return t.customID == customID })
}

// CancelAll cancels every unfinished task and keeps them in the list.
func (q *Queue) CancelAll() int {
	return q.cancelWhere("cancel_all", func(*Task) bool { return true })
}

func (q *Queue) cancelWhere(op string, match func(*Task) bool) int {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.warn(ctx, op, ErrQueueClosed)
		return 0
	}
	now := q.clock()
	var effects []effect
	n := 0
	for _, t := range q.tasks {
		if t.Status().IsTerminal() || !match(t) {
			continue
		}
		effects = append(effects, q.cancelLocked(ctx, t, now, false)...)
		n++
	}
	q.mu.Unlock()

	q.run(ctx, effects)
	return n
}

// Clear cancels started tasks and removes every task from the queue.
// Tasks that never started are released and may be enqueued again.
func (q *Queue) Clear() {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.warn(ctx, "clear", ErrQueueClosed)
		return
	}
	effects := q.clearLocked(q.clock())
	q.mu.Unlock()

	q.run(ctx, effects)
}

// ClearCompleted removes finished tasks and returns how many were removed.
func (q *Queue) ClearCompleted() int {
	ctx := context.Background()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.warn(ctx, "clear_completed", ErrQueueClosed)
		return 0
	}
	before := len(q.tasks)
	q.tasks = slices.DeleteFunc(q.tasks, func(t *Task) bool {
		if !t.Status().IsTerminal() {
			return false
		}
		t.owner.Store(nil)
		return true
	})
	if q.current != nil && q.current.Status().IsTerminal() {
		q.current = nil
	}
	return before - len(q.tasks)
}

// CurrentTask returns the task most recently started, or nil.
func (q *Queue) CurrentTask() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Tasks returns a copy of the task list in queue order.
func (q *Queue) Tasks() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.tasks)
}

// Task returns the task with id.
func (q *Queue) Task(id TaskID) (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if idx := q.indexLocked(id); idx >= 0 {
		return q.tasks[idx], true
	}
	return nil, false
}

// TasksByCustomID returns the tasks labelled customID in queue order.
func (q *Queue) TasksByCustomID(customID string) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Task
	for _, t := range q.tasks {
		if t.customID == customID {
			out = append(out, t)
		}
	}
	return out
}

// Statistics returns a snapshot of task counts and lifetime counters.
func (q *Queue) Statistics() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Statistics{
		QueueID:           q.id,
		Queue:             q.name,
		State:             q.machine.Current(),
		Total:             len(q.tasks),
		LifetimeCompleted: q.lifetimeCompleted,
		LifetimeCancelled: q.lifetimeCancelled,
		LifetimeFailed:    q.lifetimeFailed,
		Retries:           q.retries,
	}
	if q.current != nil {
		s.CurrentTaskID = q.current.id
	}
	for _, t := range q.tasks {
		switch st := t.Status(); {
		case st == StatusQueued:
			s.Queued++
		case st == StatusExecuting:
			s.Executing++
		case st.IsWaiting():
			s.Waiting++
		case st == StatusCompleted:
			s.Completed++
		case st == StatusCancelled:
			s.Cancelled++
		case st == StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Progress reports the share of tasks in the list that are finished.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := Progress{Total: len(q.tasks)}
	for _, t := range q.tasks {
		if t.Status().IsTerminal() {
			p.Finished++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Finished) / float64(p.Total) * 100
	}
	return p
}
