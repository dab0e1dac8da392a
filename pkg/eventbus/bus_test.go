package eventbus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
)

type doorOpened struct {
	Door string `json:"door"`
}

type doorClosed struct {
	Door string `json:"door"`
}

func TestTopicOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "eventbus_test.doorOpened", eventbus.TopicOf[doorOpened]())
	assert.Equal(t, "*eventbus_test.doorOpened", eventbus.TopicOf[*doorOpened]())
	assert.NotEqual(t, eventbus.TopicOf[doorOpened](), eventbus.TopicOf[doorClosed]())
}

func TestSubscribe_Typed(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()
	ctx := context.Background()

	var opened []string
	tok := eventbus.Subscribe(bus, func(e doorOpened) {
		opened = append(opened, e.Door)
	}, nil)
	require.True(t, tok.Valid())
	assert.Equal(t, eventbus.TopicOf[doorOpened](), tok.Topic)

	require.NoError(t, eventbus.Publish(ctx, bus, doorOpened{Door: "front"}))
	require.NoError(t, eventbus.Publish(ctx, bus, doorClosed{Door: "front"}))
	require.NoError(t, eventbus.Publish(ctx, bus, doorOpened{Door: "back"}))

	assert.Equal(t, []string{"front", "back"}, opened)
}

func TestSubscribe_Filter(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()
	ctx := context.Background()

	var hits int
	eventbus.Subscribe(bus, func(doorOpened) { hits++ }, func(e doorOpened) bool {
		return e.Door == "garage"
	})

	require.NoError(t, eventbus.Publish(ctx, bus, doorOpened{Door: "front"}))
	require.NoError(t, eventbus.Publish(ctx, bus, doorOpened{Door: "garage"}))

	assert.Equal(t, 1, hits)
}

func TestSubscribe_DecodesRawEvents(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewMemory()
	ctx := context.Background()

	var got doorOpened
	eventbus.Subscribe(bus, func(e doorOpened) { got = e }, nil)

	topic := eventbus.TopicOf[doorOpened]()
	require.NoError(t, bus.PublishTopic(ctx, topic, eventbus.RawEvent(`{"door":"side"}`)))
	assert.Equal(t, "side", got.Door)

	// malformed payloads and foreign types are ignored
	got = doorOpened{}
	require.NoError(t, bus.PublishTopic(ctx, topic, eventbus.RawEvent(`{not json`)))
	require.NoError(t, bus.PublishTopic(ctx, topic, 42))
	assert.Empty(t, got.Door)
}
