package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Guard evaluates whether a transition should be allowed.
type Guard[S comparable, E comparable] func(ctx context.Context, from S, event E) bool

// Hook is invoked after a transition has been applied.
type Hook[S comparable, E comparable] func(ctx context.Context, from, to S, event E)

// Transition defines a state change triggered by an event.
type Transition[S comparable, E comparable] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E] // all must pass
}

// Machine is a thread-safe in-memory state machine.
// Transitions are indexed as [from][event][]Transition for O(1) lookup.
type Machine[S comparable, E comparable] struct {
	current     S
	transitions map[S]map[E][]Transition[S, E]
	hooks       []Hook[S, E]
	mu          sync.RWMutex
}

func newMachine[S comparable, E comparable](initial S) *Machine[S, E] {
	return &Machine[S, E]{
		current:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in any of the given states.
func (m *Machine[S, E]) Is(states ...S) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range states {
		if m.current == s {
			return true
		}
	}
	return false
}

// AddTransition registers a transition. Declaring a second unguarded
// transition for the same from/event pair is an error since it could never fire.
func (m *Machine[S, E]) AddTransition(t Transition[S, E]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[t.From]
	if !ok {
		byEvent = make(map[E][]Transition[S, E])
		m.transitions[t.From] = byEvent
	}
	for _, existing := range byEvent[t.Event] {
		if len(existing.Guards) == 0 {
			return fmt.Errorf("%w: %v on %v", ErrDuplicateTransition, t.From, t.Event)
		}
	}
	byEvent[t.Event] = append(byEvent[t.Event], t)
	return nil
}

// Fire applies the first transition for event whose guards pass.
// Hooks run after the lock is released so they may inspect the machine.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) error {
	m.mu.Lock()
	from := m.current
	t, err := m.match(ctx, event)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.current = t.To
	hooks := m.hooks
	m.mu.Unlock()

	for _, h := range hooks {
		h(ctx, from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire would succeed for event.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.match(ctx, event)
	return err == nil
}

// match must be called with m.mu held.
func (m *Machine[S, E]) match(ctx context.Context, event E) (Transition[S, E], error) {
	candidates := m.transitions[m.current][event]
	if len(candidates) == 0 {
		return Transition[S, E]{}, &ErrNoTransition{State: fmt.Sprint(m.current), Event: fmt.Sprint(event)}
	}

	for _, t := range candidates {
		passed := true
		for _, g := range t.Guards {
			if g != nil && !g(ctx, m.current, event) {
				passed = false
				break
			}
		}
		if passed {
			return t, nil
		}
	}
	return Transition[S, E]{}, &ErrTransitionRejected{State: fmt.Sprint(m.current), Event: fmt.Sprint(event)}
}
