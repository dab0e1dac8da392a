package ticker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tickqueue/pkg/logger"
)

// ErrNilTarget is returned by Run when the driver has nothing to tick.
var ErrNilTarget = errors.New("ticker: nil target")

// Tickable receives ticks.
type Tickable interface {
	Tick(ctx context.Context, now time.Time)
}

// TickFunc adapts a function to Tickable.
type TickFunc func(ctx context.Context, now time.Time)

func (f TickFunc) Tick(ctx context.Context, now time.Time) { f(ctx, now) }

// Config holds the tick cadence.
type Config struct {
	Interval time.Duration `env:"TICKQUEUE_TICK_INTERVAL" envDefault:"100ms" yaml:"tick_interval"`
}

// Option configures a Driver.
type Option func(*Driver)

// WithInterval sets the tick cadence. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = d
		}
	}
}

// WithLogger sets the logger for the driver.
func WithLogger(l *slog.Logger) Option {
	return func(dr *Driver) {
		if l != nil {
			dr.logger = l
		}
	}
}

// WithClock overrides the source of tick times.
func WithClock(now func() time.Time) Option {
	return func(dr *Driver) {
		if now != nil {
			dr.now = now
		}
	}
}

// Driver calls Tick on its target at a fixed interval.
type Driver struct {
	target   Tickable
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a driver ticking target every 100ms unless configured otherwise.
func New(target Tickable, opts ...Option) *Driver {
	d := &Driver{
		target:   target,
		interval: 100 * time.Millisecond,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logger.Component("ticker"))
	return d
}

// NewFromConfig creates a driver from cfg.
func NewFromConfig(cfg Config, target Tickable, opts ...Option) *Driver {
	return New(target, append([]Option{WithInterval(cfg.Interval)}, opts...)...)
}

// Interval returns the tick cadence.
func (d *Driver) Interval() time.Duration { return d.interval }

// Run ticks the target until ctx is done and returns ctx.Err().
func (d *Driver) Run(ctx context.Context) error {
	if d.target == nil {
		return ErrNilTarget
	}

	t := time.NewTicker(d.interval)
	defer t.Stop()

	d.logger.InfoContext(ctx, "ticker started", logger.Duration(d.interval))

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "ticker shutting down")
			return ctx.Err()
		case <-t.C:
			d.tick(ctx)
		}
	}
}

// Runner adapts Run for errgroup: cancellation of ctx is a clean exit.
func (d *Driver) Runner(ctx context.Context) func() error {
	return func() error {
		err := d.Run(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}

func (d *Driver) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "tick panicked", logger.Panic(r))
		}
	}()
	d.target.Tick(ctx, d.now())
}
