package eventbus_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
)

func TestMemory_SubscribePublish(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()
	t.Cleanup(func() { _ = bus.Close() })

	var got []any
	tok := bus.SubscribeTopic("orders", func(_ context.Context, ev any) {
		got = append(got, ev)
	})
	require.True(t, tok.Valid())
	assert.Equal(t, "orders", tok.Topic)
	assert.Equal(t, 1, bus.SubscriberCount("orders"))

	require.NoError(t, bus.PublishTopic(context.Background(), "orders", 1))
	require.NoError(t, bus.PublishTopic(context.Background(), "other", 2))
	require.NoError(t, bus.PublishTopic(context.Background(), "orders", 3))

	assert.Equal(t, []any{1, 3}, got)
}

func TestMemory_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()

	var calls atomic.Int32
	tok := bus.SubscribeTopic("t", func(context.Context, any) { calls.Add(1) })

	assert.True(t, bus.Unsubscribe(tok))
	assert.False(t, bus.Unsubscribe(tok), "second unsubscribe is a no-op")
	assert.False(t, bus.Unsubscribe(eventbus.Token{}))
	assert.Zero(t, bus.SubscriberCount("t"))

	require.NoError(t, bus.PublishTopic(context.Background(), "t", nil))
	assert.Zero(t, calls.Load())
}

func TestMemory_OrderAndReentrancy(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()
	var order []string
	var second eventbus.Token

	bus.SubscribeTopic("t", func(context.Context, any) {
		order = append(order, "first")
		// unsubscribing from inside a handler must not deadlock
		bus.Unsubscribe(second)
	})
	second = bus.SubscribeTopic("t", func(context.Context, any) {
		order = append(order, "second")
	})

	require.NoError(t, bus.PublishTopic(context.Background(), "t", nil))
	require.NoError(t, bus.PublishTopic(context.Background(), "t", nil))

	// handlers are snapshotted per publish, so the second one still sees the first event
	assert.Equal(t, []string{"first", "second", "first"}, order)
}

func TestMemory_HandlerPanicIsContained(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	bus := eventbus.NewMemory(eventbus.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	var delivered bool
	bus.SubscribeTopic("t", func(context.Context, any) { panic("boom") })
	bus.SubscribeTopic("t", func(context.Context, any) { delivered = true })

	require.NoError(t, bus.PublishTopic(context.Background(), "t", nil))
	assert.True(t, delivered)
	assert.Contains(t, buf.String(), "event handler panicked")
}

func TestMemory_Close(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()
	bus.SubscribeTopic("t", func(context.Context, any) {})
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.PublishTopic(context.Background(), "t", nil), eventbus.ErrBusClosed)
	assert.False(t, bus.SubscribeTopic("t", func(context.Context, any) {}).Valid())
	assert.Zero(t, bus.SubscriberCount("t"))
}

func TestMemory_Concurrent(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()
	var received atomic.Int64

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := bus.SubscribeTopic("t", func(context.Context, any) { received.Add(1) })
			for range 50 {
				_ = bus.PublishTopic(context.Background(), "t", struct{}{})
			}
			bus.Unsubscribe(tok)
		}()
	}
	wg.Wait()

	assert.Positive(t, received.Load())
	assert.Zero(t, bus.SubscriberCount("t"))
}
