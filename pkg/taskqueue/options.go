package taskqueue

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
)

// Option configures a Queue.
type Option func(*options)

type options struct {
	name             string
	logger           *slog.Logger
	bus              eventbus.Bus
	autoStart        bool
	autoStop         bool
	onQueueCompleted func(QueueCompleted)
	clock            func() time.Time
}

func defaultOptions() *options {
	return &options{
		name:   "default",
		logger: slog.Default(),
		clock:  time.Now,
	}
}

// WithName sets the queue name used in logs and completion events.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger for the queue.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventBus attaches the bus used by event conditions and for
// publishing QueueCompleted.
func WithEventBus(bus eventbus.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithAutoStart starts an idle or stopped queue on enqueue.
func WithAutoStart(enabled bool) Option {
	return func(o *options) {
		o.autoStart = enabled
	}
}

// WithAutoStop stops the queue once every task reached a terminal status.
func WithAutoStop(enabled bool) Option {
	return func(o *options) {
		o.autoStop = enabled
	}
}

// WithOnQueueCompleted registers a callback for whole-queue completion.
func WithOnQueueCompleted(fn func(QueueCompleted)) Option {
	return func(o *options) {
		o.onQueueCompleted = fn
	}
}

// WithClock sets the time source used to stamp cancellations made outside
// of Tick. Tick itself always uses the time it is given.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
