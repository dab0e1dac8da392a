// Package eventbus provides the publish/subscribe collaborator used to signal
// event-based task completion.
//
// The Bus contract has three operations: SubscribeTopic, Unsubscribe and
// PublishTopic. Typed access is layered on top with generic helpers resolved at
// compile time, so callers never deal with topics or type assertions:
//
//	bus := eventbus.NewMemory()
//	defer bus.Close()
//
//	tok := eventbus.Subscribe(bus, func(e UserSignedUp) {
//	    fmt.Println("welcome", e.Email)
//	}, nil)
//	defer bus.Unsubscribe(tok)
//
//	_ = eventbus.Publish(ctx, bus, UserSignedUp{Email: "a@b.c"})
//
// A topic is the qualified Go type name of the event (see TopicOf).
//
// # Implementations
//
//   - Memory dispatches synchronously on the publishing goroutine. Handlers run
//     outside the bus lock and may subscribe, unsubscribe or publish.
//   - Redis fans events out over Redis pub/sub so other processes can publish
//     events observed locally. Payloads travel as JSON and are decoded into the
//     subscriber's event type on arrival.
//
// # Error Handling
//
// Publishing on a closed bus returns ErrBusClosed. Handler panics are recovered
// and logged; one misbehaving subscriber never prevents delivery to the others.
package eventbus
