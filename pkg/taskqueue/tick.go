package taskqueue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
	"github.com/dmitrymomot/tickqueue/pkg/logger"
)

// effect is work collected under the queue lock and run after it is released.
type effect struct {
	name string
	task *Task
	fn   func(ctx context.Context)
}

func (q *Queue) run(ctx context.Context, effects []effect) {
	for _, e := range effects {
		q.runEffect(ctx, e)
	}
}

func (q *Queue) runEffect(ctx context.Context, e effect) {
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{slog.String("callback", e.name), logger.Panic(r)}
			if e.task != nil {
				attrs = append(attrs, logger.TaskID(uint64(e.task.id)), logger.CustomID(e.task.customID))
			}
			q.logger.ErrorContext(ctx, "callback panicked", attrs...)
		}
	}()
	e.fn(ctx)
}

// Tick advances the queue to now. It must be called at a steady cadence by
// whatever owns the queue. Ticks on a queue that is not running are ignored,
// as are reentrant ticks made from inside callbacks.
func (q *Queue) Tick(ctx context.Context, now time.Time) {
	if !q.ticking.CompareAndSwap(false, true) {
		return
	}
	defer q.ticking.Store(false)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	switch q.machine.Current() {
	case StateRunning:
	case StatePaused:
		// Paused ticks move the time base forward without accruing active
		// time. A hold keeps it so the interval still counts afterwards.
		if !q.held && q.haveLastTick && now.After(q.lastTick) {
			q.lastTick = now
		}
		q.mu.Unlock()
		return
	default:
		q.mu.Unlock()
		return
	}
	if q.haveLastTick && now.Before(q.lastTick) {
		last := q.lastTick
		q.mu.Unlock()
		q.logger.DebugContext(ctx, "tick ignored: time went backwards",
			slog.Time("tick", now),
			slog.Time("last_tick", last))
		return
	}
	q.advanceLocked(now)
	q.lastTick, q.haveLastTick = now, true

	polled := make([]*Task, 0, len(q.tasks))
	if q.current != nil && q.current.inFlight() {
		polled = append(polled, q.current)
	}
	for _, t := range q.tasks {
		if t != q.current && t.inFlight() {
			polled = append(polled, t)
		}
	}
	q.mu.Unlock()

	for _, t := range polled {
		if !q.running() {
			return
		}
		q.poll(ctx, t, now)
	}

	if !q.running() {
		return
	}
	if q.startNext(ctx, now) {
		return
	}
	q.checkCompletion(ctx, now)
}

// advanceLocked adds the active time since the last tick to every task and
// moves the time base to now. Without a base it does nothing.
func (q *Queue) advanceLocked(now time.Time) {
	if !q.haveLastTick || !now.After(q.lastTick) {
		return
	}
	delta := now.Sub(q.lastTick)
	for _, t := range q.tasks {
		t.advance(delta)
	}
	q.lastTick = now
}

func (q *Queue) running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.closed && q.machine.Current() == StateRunning
}

// poll applies one tick of processing to a started task.
func (q *Queue) poll(ctx context.Context, t *Task, now time.Time) {
	q.mu.Lock()
	if t.owner.Load() != q || !t.inFlight() {
		q.mu.Unlock()
		return
	}

	var effects []effect
	switch t.Status() {
	case StatusQueued:
		// Only tasks parked by retryLocked are Queued and in flight. They
		// wake up once the retry delay has passed in active time.
		if t.retryTimer.elapsed < t.retry.RetryDelay {
			q.mu.Unlock()
			return
		}
		t.retryPending = false
		t.retryTimer.stop()
		q.mu.Unlock()
		q.execute(ctx, t, now, true)
		return

	case StatusWaitingForPostDelay:
		// The timeout timer is paused here, so this only trips for tasks
		// that were already over it when the condition was met.
		switch {
		case t.postDelayTimer.elapsed >= t.postDelay:
			effects = q.completeLocked(ctx, t, now)
		case t.timeoutTimer.exceeded(t.timeout):
			effects = q.failLocked(ctx, t, now, &TimeoutError{Timeout: t.timeout, Status: StatusWaitingForPostDelay})
		}
		q.mu.Unlock()
		q.run(ctx, effects)
		return

	case StatusWaitingForCompletion:
	default:
		q.mu.Unlock()
		return
	}

	var (
		met     bool
		condErr error
	)
	switch c := t.condition.(type) {
	case *predicateCondition:
		// User code runs unlocked. It may cancel the task, clear the queue
		// or re-enqueue the task elsewhere, so ownership and status are
		// checked again before acting on the result.
		q.mu.Unlock()
		met, condErr = evalPredicate(c, t)
		q.mu.Lock()
		if t.owner.Load() != q || t.Status() != StatusWaitingForCompletion {
			q.mu.Unlock()
			return
		}
	case *delayCondition:
		met = t.delayTimer.elapsed >= c.d
	case *eventCondition:
		met = t.eventMet.Load()
	default:
		met = true
	}

	// A met condition wins over a timeout reached on the same tick.
	retryNow := false
	switch {
	case condErr != nil:
		effects = q.failLocked(ctx, t, now, condErr)
	case met:
		effects = q.finishConditionLocked(ctx, t, now)
	case t.timeoutTimer.exceeded(t.timeout):
		effects = q.failLocked(ctx, t, now, &TimeoutError{Timeout: t.timeout, Status: StatusWaitingForCompletion})
	case q.stalledLocked(t):
		effects, retryNow = q.retryLocked(ctx, t, now)
	}
	q.mu.Unlock()

	q.run(ctx, effects)
	if retryNow {
		q.execute(ctx, t, now, true)
	}
}

// startNext starts the first runnable task unless a blocking task is still
// in progress. It reports whether work is pending or was started.
func (q *Queue) startNext(ctx context.Context, now time.Time) bool {
	q.mu.Lock()
	if q.closed || q.machine.Current() != StateRunning {
		q.mu.Unlock()
		return true
	}
	if c := q.current; c != nil && c.blocking && !c.Status().IsTerminal() {
		q.mu.Unlock()
		return true
	}
	idx := slices.IndexFunc(q.tasks, (*Task).runnable)
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	t := q.tasks[idx]
	q.current = t
	q.mu.Unlock()

	q.execute(ctx, t, now, false)
	return true
}

// execute runs the task's action, or its retry action when retry is set.
func (q *Queue) execute(ctx context.Context, t *Task, now time.Time, retry bool) {
	q.mu.Lock()
	// A fresh start and a retry woken from the delay park both begin from
	// Queued. An immediate retry (no RetryDelay) is run straight from
	// WaitingForCompletion. Anything else means the task moved on while the
	// lock was released, e.g. it was cancelled, and must not run.
	expected := StatusQueued
	if retry && !t.retryPending && t.Status() == StatusWaitingForCompletion {
		expected = StatusWaitingForCompletion
	}
	if t.owner.Load() != q || t.Status() != expected || t.retryPending {
		q.mu.Unlock()
		return
	}

	// Retries keep the timeout running from where it stopped and give the
	// predicate a fresh stall window.
	action, op := t.action, "execute"
	if retry {
		if p := t.retryPolicy(); p != nil && p.RetryAction != nil {
			action, op = p.RetryAction, "retry"
		}
		t.timeoutTimer.resume()
		t.stallTimer.start()
	} else {
		t.timeoutTimer.start()
		if t.condition.Kind() == ConditionDelay {
			t.delayTimer.start()
		}
		t.markStarted(now)
	}
	t.setStatus(StatusExecuting)
	q.mu.Unlock()

	q.logger.DebugContext(ctx, "task executing",
		logger.TaskID(uint64(t.id)),
		logger.CustomID(t.customID),
		logger.Attempt(t.Attempt()))

	var err error
	if action != nil {
		err = invoke(ctx, t, action, op)
	}

	// The action may have cancelled its own task or cleared the queue.
	q.mu.Lock()
	if t.owner.Load() != q || t.Status() != StatusExecuting {
		q.mu.Unlock()
		return
	}
	var effects []effect
	switch {
	case err != nil:
		effects = q.failLocked(ctx, t, now, err)
	case t.condition.Kind() == ConditionImmediate:
		effects = q.finishConditionLocked(ctx, t, now)
	default:
		t.setStatus(StatusWaitingForCompletion)
		if !retry && t.retryPolicy() != nil {
			t.stallTimer.start()
		}
	}
	q.mu.Unlock()

	q.run(ctx, effects)
}

func invoke(ctx context.Context, t *Task, action Action, op string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &UserActionError{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := action(ctx, t); err != nil {
		return &UserActionError{Op: op, Err: err}
	}
	return nil
}

func evalPredicate(c *predicateCondition, t *Task) (met bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			met, err = false, &UserActionError{Op: "predicate", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return c.fn(t), nil
}

func (q *Queue) stalledLocked(t *Task) bool {
	p := t.retryPolicy()
	return p != nil && t.stallTimer.exceeded(p.StallTimeout)
}

// retryLocked handles a stalled predicate task. It reports whether the
// retry action must run right away.
func (q *Queue) retryLocked(ctx context.Context, t *Task, now time.Time) ([]effect, bool) {
	p := t.retryPolicy()
	attempt := t.Attempt()

	if p.exhausted(attempt) {
		var effects []effect
		if p.OnMaxRetriesExceeded != nil {
			effects = append(effects, effect{name: "on_max_retries_exceeded", task: t, fn: func(context.Context) {
				p.OnMaxRetriesExceeded(t)
			}})
		}
		return append(effects, q.failLocked(ctx, t, now, &MaxRetriesExceededError{Attempts: attempt})...), false
	}

	attempt = int(t.attempt.Add(1))
	q.retries++
	t.stallTimer.start()

	q.logger.InfoContext(ctx, "retrying stalled task",
		logger.TaskID(uint64(t.id)),
		logger.CustomID(t.customID),
		logger.Attempt(attempt),
		logger.Duration(p.RetryDelay))

	var effects []effect
	if p.OnBeforeRetry != nil {
		effects = append(effects, effect{name: "on_before_retry", task: t, fn: func(context.Context) {
			p.OnBeforeRetry(t, attempt)
		}})
	}

	// Parked tasks stay Queued but keep their place as the current task,
	// so a blocking task still holds the queue while it waits.
	if p.RetryDelay > 0 {
		t.setStatus(StatusQueued)
		t.retryPending = true
		t.retryTimer.start()
		t.timeoutTimer.pause()
		t.stallTimer.pause()
		return effects, false
	}
	return effects, true
}

// finishConditionLocked moves a task whose condition is met into its
// post-delay, or completes it when there is none.
func (q *Queue) finishConditionLocked(ctx context.Context, t *Task, now time.Time) []effect {
	if t.postDelay > 0 && !t.postDelayStarted {
		t.postDelayStarted = true
		t.postDelayTimer.start()
		t.timeoutTimer.pause()
		t.stallTimer.stop()
		t.setStatus(StatusWaitingForPostDelay)
		return nil
	}
	return q.completeLocked(ctx, t, now)
}

func (q *Queue) completeLocked(ctx context.Context, t *Task, now time.Time) []effect {
	if t.Status().IsTerminal() {
		return nil
	}
	t.setStatus(StatusCompleted)
	t.markFinished(now, nil)
	q.lifetimeCompleted++

	q.logger.DebugContext(ctx, "task completed",
		logger.TaskID(uint64(t.id)),
		logger.CustomID(t.customID))

	effects := q.detachLocked(t)
	if fn := t.onCompleted; fn != nil {
		effects = append(effects, effect{name: "on_completed", task: t, fn: func(context.Context) { fn(t) }})
	}
	return effects
}

func (q *Queue) failLocked(ctx context.Context, t *Task, now time.Time, err error) []effect {
	if t.Status().IsTerminal() {
		return nil
	}
	t.setStatus(StatusFailed)
	t.markFinished(now, err)
	q.lifetimeFailed++

	q.logger.WarnContext(ctx, "task failed",
		logger.TaskID(uint64(t.id)),
		logger.CustomID(t.customID),
		logger.Attempt(t.Attempt()),
		logger.Error(err))

	effects := q.detachLocked(t)
	if fn := t.onFailed; fn != nil {
		effects = append(effects, effect{name: "on_failed", task: t, fn: func(context.Context) { fn(t, err) }})
	}
	if t.stopQueueOnFail {
		effects = append(effects, q.stopEffect(t))
	}
	return effects
}

// cancelLocked cancels a non-terminal task. Cancellations made while
// clearing never stop the queue.
func (q *Queue) cancelLocked(ctx context.Context, t *Task, now time.Time, clearing bool) []effect {
	if t.Status().IsTerminal() {
		return nil
	}
	t.setStatus(StatusCancelled)
	t.markFinished(now, nil)
	q.lifetimeCancelled++

	q.logger.DebugContext(ctx, "task cancelled",
		logger.TaskID(uint64(t.id)),
		logger.CustomID(t.customID))

	effects := q.detachLocked(t)
	if fn := t.onCancelled; fn != nil {
		effects = append(effects, effect{name: "on_cancelled", task: t, fn: func(context.Context) { fn(t) }})
	}
	if t.stopQueueOnCancel && !clearing {
		effects = append(effects, q.stopEffect(t))
	}
	return effects
}

func (q *Queue) stopEffect(t *Task) effect {
	return effect{name: "stop_queue", task: t, fn: func(ctx context.Context) {
		if q.State() == StateStopped {
			return
		}
		q.logger.InfoContext(ctx, "stopping queue on task outcome",
			logger.TaskID(uint64(t.id)),
			logger.TaskStatus(t.Status()))
		_ = q.Stop()
	}}
}

// detachLocked freezes the task's timers and drops its event subscription.
func (q *Queue) detachLocked(t *Task) []effect {
	t.timeoutTimer.pause()
	t.stallTimer.pause()
	t.delayTimer.pause()
	t.postDelayTimer.pause()
	t.retryTimer.stop()
	t.retryPending = false

	tok := t.eventToken
	t.eventToken = eventbus.Token{}
	if !tok.Valid() || q.bus == nil {
		return nil
	}
	bus := q.bus
	return []effect{{name: "unsubscribe", task: t, fn: func(context.Context) { bus.Unsubscribe(tok) }}}
}

// clearLocked cancels started tasks, releases queued ones and empties the list.
func (q *Queue) clearLocked(now time.Time) []effect {
	ctx := context.Background()
	var effects []effect
	for _, t := range q.tasks {
		switch {
		case t.Status().IsTerminal():
		case t.runnable():
			effects = append(effects, q.detachLocked(t)...)
			t.resetEngineState()
			continue
		default:
			effects = append(effects, q.cancelLocked(ctx, t, now, true)...)
		}
		t.owner.Store(nil)
	}
	q.tasks = nil
	q.current = nil
	q.completionFired = false
	return effects
}

// checkCompletion fires whole-queue completion once every task is terminal.
func (q *Queue) checkCompletion(ctx context.Context, now time.Time) {
	q.mu.Lock()
	if q.completionFired || len(q.tasks) == 0 || q.machine.Current() != StateRunning {
		q.mu.Unlock()
		return
	}
	completed := 0
	for _, t := range q.tasks {
		s := t.Status()
		if !s.IsTerminal() {
			q.mu.Unlock()
			return
		}
		if s == StatusCompleted {
			completed++
		}
	}
	q.completionFired = true
	ev := QueueCompleted{
		QueueID:   q.id,
		Queue:     q.name,
		Completed: completed,
		Total:     len(q.tasks),
		At:        now,
	}
	q.mu.Unlock()

	q.logger.InfoContext(ctx, "queue completed",
		logger.Count("completed", ev.Completed),
		logger.Count("total", ev.Total))

	if fn := q.onQueueCompleted; fn != nil {
		q.runEffect(ctx, effect{name: "on_queue_completed", fn: func(context.Context) { fn(ev) }})
	}
	if q.bus != nil {
		if err := eventbus.Publish(ctx, q.bus, ev); err != nil {
			q.logger.ErrorContext(ctx, "failed to publish queue completion", logger.Error(err))
		}
	}
	if q.autoStop && q.State() == StateRunning {
		_ = q.Stop()
	}
}
