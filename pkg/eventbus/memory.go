package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tickqueue/pkg/logger"
)

// Memory is an in-process Bus that dispatches synchronously.
// All methods are safe for concurrent use.
type Memory struct {
	topics map[string][]entry
	closed bool
	mu     sync.RWMutex
	logger *slog.Logger
}

type entry struct {
	id uuid.UUID
	h  Handler
}

// NewMemory creates an empty in-memory bus.
func NewMemory(opts ...Option) *Memory {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Memory{
		topics: make(map[string][]entry),
		logger: o.logger,
	}
}

// SubscribeTopic registers h for topic in subscription order.
func (b *Memory) SubscribeTopic(topic string, h Handler) Token {
	if h == nil {
		return Token{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Token{}
	}

	tok := Token{ID: uuid.New(), Topic: topic}
	b.topics[topic] = append(b.topics[topic], entry{id: tok.ID, h: h})
	return tok
}

// Unsubscribe removes the subscription identified by tok.
func (b *Memory) Unsubscribe(tok Token) bool {
	if !tok.Valid() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[tok.Topic]
	i := slices.IndexFunc(subs, func(e entry) bool { return e.id == tok.ID })
	if i < 0 {
		return false
	}
	subs = slices.Delete(subs, i, i+1)
	if len(subs) == 0 {
		delete(b.topics, tok.Topic)
	} else {
		b.topics[tok.Topic] = subs
	}
	return true
}

// PublishTopic invokes every handler of topic on the calling goroutine.
// Handlers are snapshotted first and run without the lock held.
func (b *Memory) PublishTopic(ctx context.Context, topic string, event any) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := slices.Clone(b.topics[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(ctx, topic, s, event)
	}
	return nil
}

// SubscriberCount returns the number of active subscriptions for topic.
func (b *Memory) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close drops every subscription. Subsequent publishes return ErrBusClosed.
func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	clear(b.topics)
	return nil
}

func (b *Memory) dispatch(ctx context.Context, topic string, s entry, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "event handler panicked",
				logger.Component("eventbus"),
				logger.Topic(topic),
				logger.Error(fmt.Errorf("panic: %v", r)))
		}
	}()
	s.h(ctx, event)
}
