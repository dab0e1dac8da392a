package taskqueue

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
)

// ConditionKind tags the completion condition variant.
type ConditionKind int

const (
	ConditionImmediate ConditionKind = iota
	ConditionPredicate
	ConditionDelay
	ConditionEvent
)

func (k ConditionKind) String() string {
	switch k {
	case ConditionImmediate:
		return "immediate"
	case ConditionPredicate:
		return "predicate"
	case ConditionDelay:
		return "delay"
	case ConditionEvent:
		return "event"
	}
	return fmt.Sprintf("condition(%d)", int(k))
}

func (k ConditionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Condition decides when a started task is done.
// Use Immediate, Until, UntilTask, After or OnEvent to build one.
type Condition interface {
	Kind() ConditionKind
	sealed()
}

type immediateCondition struct{}

func (immediateCondition) Kind() ConditionKind { return ConditionImmediate }
func (immediateCondition) sealed()             {}

// Immediate is satisfied as soon as the execute action returns.
func Immediate() Condition {
	return immediateCondition{}
}

type predicateCondition struct {
	fn func(*Task) bool
}

func (*predicateCondition) Kind() ConditionKind { return ConditionPredicate }
func (*predicateCondition) sealed()             {}

// Until is satisfied on the first tick where fn returns true.
func Until(fn func() bool) Condition {
	if fn == nil {
		return Immediate()
	}
	return &predicateCondition{fn: func(*Task) bool { return fn() }}
}

// UntilTask is like Until but passes the task to the predicate.
func UntilTask(fn func(*Task) bool) Condition {
	if fn == nil {
		return Immediate()
	}
	return &predicateCondition{fn: fn}
}

type delayCondition struct {
	d time.Duration
}

func (*delayCondition) Kind() ConditionKind { return ConditionDelay }
func (*delayCondition) sealed()             {}

// After is satisfied once d of active queue time has passed since the task
// started executing. Time spent paused does not count.
func After(d time.Duration) Condition {
	return &delayCondition{d: max(d, 0)}
}

type eventCondition struct {
	topic     string
	subscribe func(bus eventbus.Bus, signal func()) eventbus.Token
}

func (*eventCondition) Kind() ConditionKind { return ConditionEvent }
func (*eventCondition) sealed()             {}

// OnEvent is satisfied once an event of type E accepted by filter is
// published on the queue's event bus. A nil filter accepts every event.
// The subscription is made when the task is enqueued, so events published
// while the task is still queued count.
func OnEvent[E any](filter func(E) bool) Condition {
	return &eventCondition{
		topic: eventbus.TopicOf[E](),
		subscribe: func(bus eventbus.Bus, signal func()) eventbus.Token {
			return eventbus.Subscribe(bus, func(E) { signal() }, filter)
		},
	}
}
