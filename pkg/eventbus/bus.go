package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Handler receives events published on a topic.
type Handler func(ctx context.Context, event any)

// Token identifies a subscription. The zero Token is never issued.
type Token struct {
	ID    uuid.UUID
	Topic string
}

// Valid reports whether the token was issued by a bus.
func (t Token) Valid() bool {
	return t.ID != uuid.Nil
}

// RawEvent is a serialized event received from a remote transport.
// Subscribe decodes it into the subscriber's event type.
type RawEvent []byte

// Bus is the contract task conditions rely on.
// Implementations must be safe for concurrent use.
type Bus interface {
	// SubscribeTopic registers h for topic. A closed bus returns the zero Token.
	SubscribeTopic(topic string, h Handler) Token

	// Unsubscribe removes the subscription and reports whether it existed.
	Unsubscribe(tok Token) bool

	// PublishTopic delivers event to every subscriber of topic.
	PublishTopic(ctx context.Context, topic string, event any) error
}

// TopicOf returns the topic name used for events of type E.
func TopicOf[E any]() string {
	var zero E
	return fmt.Sprintf("%T", zero)
}

// Subscribe registers a typed handler for events of type E.
// When filter is non-nil, only events it accepts reach handler.
func Subscribe[E any](b Bus, handler func(E), filter func(E) bool) Token {
	return b.SubscribeTopic(TopicOf[E](), func(_ context.Context, event any) {
		ev, ok := decode[E](event)
		if !ok {
			return
		}
		if filter != nil && !filter(ev) {
			return
		}
		handler(ev)
	})
}

// Publish sends a typed event to every subscriber of E.
func Publish[E any](ctx context.Context, b Bus, event E) error {
	return b.PublishTopic(ctx, TopicOf[E](), event)
}

func decode[E any](event any) (E, bool) {
	switch v := event.(type) {
	case E:
		return v, true
	case RawEvent:
		var ev E
		if err := json.Unmarshal(v, &ev); err != nil {
			return ev, false
		}
		return ev, true
	}
	var zero E
	return zero, false
}
