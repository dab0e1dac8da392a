package taskqueue_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrymomot/tickqueue/pkg/logger"
	"github.com/dmitrymomot/tickqueue/pkg/taskqueue"
)

var epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// at returns the synthetic tick time ms milliseconds after epoch.
func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

// tickRange ticks q at every step from from to to inclusive.
func tickRange(q *taskqueue.Queue, from, to, step int) {
	for ms := from; ms <= to; ms += step {
		q.Tick(context.Background(), at(ms))
	}
}

func newQueue(t *testing.T, opts ...taskqueue.Option) *taskqueue.Queue {
	t.Helper()
	base := []taskqueue.Option{
		taskqueue.WithLogger(logger.Discard()),
		taskqueue.WithClock(func() time.Time { return epoch }),
	}
	q := taskqueue.New(append(base, opts...)...)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

// manualClock is a queue clock moved by hand, in milliseconds after epoch.
type manualClock struct{ ms atomic.Int64 }

func (c *manualClock) set(ms int)     { c.ms.Store(int64(ms)) }
func (c *manualClock) now() time.Time { return at(int(c.ms.Load())) }

func never() bool { return false }

// flag is a predicate the test flips by hand.
type flag struct{ v atomic.Bool }

func (f *flag) set()      { f.v.Store(true) }
func (f *flag) get() bool { return f.v.Load() }
func (f *flag) cond() taskqueue.Condition {
	return taskqueue.Until(f.get)
}

// counter counts calls made by actions and callbacks.
type counter struct{ n atomic.Int32 }

func (c *counter) action(context.Context, *taskqueue.Task) error {
	c.n.Add(1)
	return nil
}

func (c *counter) hit(*taskqueue.Task) { c.n.Add(1) }

func (c *counter) count() int { return int(c.n.Load()) }
