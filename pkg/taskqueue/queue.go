package taskqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
	"github.com/dmitrymomot/tickqueue/pkg/logger"
	"github.com/dmitrymomot/tickqueue/pkg/statemachine"
)

const component = "taskqueue"

type stateEvent string

const (
	eventStart  stateEvent = "start"
	eventPause  stateEvent = "pause"
	eventResume stateEvent = "resume"
	eventStop   stateEvent = "stop"
)

var transitionMessages = map[stateEvent]string{
	eventStart:  "queue started",
	eventPause:  "queue paused",
	eventResume: "queue resumed",
	eventStop:   "queue stopped",
}

var stateTransitions = []statemachine.Transition[State, stateEvent]{
	{From: StateIdle, To: StateRunning, Event: eventStart},
	{From: StateStopped, To: StateRunning, Event: eventStart},
	{From: StateRunning, To: StatePaused, Event: eventPause},
	{From: StatePaused, To: StateRunning, Event: eventResume},
	{From: StateIdle, To: StateStopped, Event: eventStop},
	{From: StateRunning, To: StateStopped, Event: eventStop},
	{From: StatePaused, To: StateStopped, Event: eventStop},
}

// Queue is an ordered list of tasks advanced by calls to Tick.
//
// All methods are safe for concurrent use. User code (actions, predicates,
// callbacks) never runs while the queue lock is held, so it may call back
// into the queue.
type Queue struct {
	id               uuid.UUID
	name             string
	logger           *slog.Logger
	bus              eventbus.Bus
	autoStart        bool
	autoStop         bool
	onQueueCompleted func(QueueCompleted)
	clock            func() time.Time
	machine          *statemachine.Machine[State, stateEvent]

	ticking atomic.Bool

	mu                sync.Mutex
	tasks             []*Task
	current           *Task
	closed            bool
	lastTick          time.Time
	haveLastTick      bool
	held              bool // paused by SkipNext or JumpTo, not by Pause
	completionFired   bool
	lifetimeCompleted int
	lifetimeCancelled int
	lifetimeFailed    int
	retries           int
}

// New creates an idle queue.
func New(opts ...Option) *Queue {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	q := &Queue{
		id:               uuid.New(),
		name:             o.name,
		bus:              o.bus,
		autoStart:        o.autoStart,
		autoStop:         o.autoStop,
		onQueueCompleted: o.onQueueCompleted,
		clock:            o.clock,
	}
	q.logger = o.logger.With(logger.Component(component), logger.QueueName(q.name))
	q.machine = statemachine.MustNew(StateIdle,
		statemachine.WithTransitions(stateTransitions),
		statemachine.WithOnTransition(func(ctx context.Context, from, to State, _ stateEvent) {
			q.logger.DebugContext(ctx, "queue state changed",
				slog.String("from", from.String()),
				logger.QueueState(to))
		}),
	)
	return q
}

// ID returns the queue instance id.
func (q *Queue) ID() uuid.UUID { return q.id }

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// State returns the queue-level state.
func (q *Queue) State() State {
	return q.machine.Current()
}

// Start moves an idle or stopped queue to running.
func (q *Queue) Start() error {
	return q.transition(eventStart)
}

// Pause freezes the queue. Active time up to the pause is kept; after it
// ticks are ignored and no active time accumulates until Resume.
func (q *Queue) Pause() error {
	return q.transition(eventPause)
}

// Resume continues a paused queue.
func (q *Queue) Resume() error {
	return q.transition(eventResume)
}

// Stop stops the queue and clears every task. Start may be called again
// after new tasks are enqueued.
func (q *Queue) Stop() error {
	return q.transition(eventStop)
}

func (q *Queue) transition(event stateEvent) error {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.warn(ctx, string(event), ErrQueueClosed)
		return ErrQueueClosed
	}
	if err := q.machine.Fire(ctx, event); err != nil {
		state := q.machine.Current()
		q.mu.Unlock()
		err = errors.Join(ErrInvalidTransition, err)
		q.logger.WarnContext(ctx, "invalid queue state transition",
			slog.String("event", string(event)),
			logger.QueueState(state),
			logger.Error(err))
		return err
	}

	now := q.clock()
	switch event {
	case eventPause:
		// Time between the last tick and the pause is still active.
		q.advanceLocked(now)
	case eventResume:
		// Re-arm from the resume instant so the pause itself never counts.
		if q.haveLastTick && now.After(q.lastTick) {
			q.lastTick = now
		}
	default:
		// Start and stop begin a new run with no time base.
		q.haveLastTick = false
	}

	var effects []effect
	if event == eventStop {
		effects = q.clearLocked(now)
	}
	q.mu.Unlock()

	q.run(ctx, effects)
	q.logger.InfoContext(ctx, transitionMessages[event], logger.QueueState(q.State()))
	return nil
}

// Close disposes the queue: every task is cleared and later calls become
// no-ops. Close is idempotent.
func (q *Queue) Close() error {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	if q.machine.CanFire(ctx, eventStop) {
		_ = q.machine.Fire(ctx, eventStop)
	}
	effects := q.clearLocked(q.clock())
	q.mu.Unlock()

	q.run(ctx, effects)
	q.logger.InfoContext(ctx, "queue closed")
	return nil
}

func (q *Queue) warn(ctx context.Context, op string, err error, attrs ...any) {
	args := append([]any{slog.String("op", op), logger.Error(err)}, attrs...)
	q.logger.WarnContext(ctx, "queue operation rejected", args...)
}
