package statemachine

import "fmt"

// Option configures a Machine during construction.
type Option[S comparable, E comparable] func(*Machine[S, E]) error

// New creates a machine in the initial state and applies opts in order.
func New[S comparable, E comparable](initial S, opts ...Option[S, E]) (*Machine[S, E], error) {
	m := newMachine[S, E](initial)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on configuration errors.
// Machines are usually declared at startup where a bad table is a programming error.
func MustNew[S comparable, E comparable](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

// WithTransition declares a single transition.
func WithTransition[S comparable, E comparable](from, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		return m.AddTransition(Transition[S, E]{From: from, To: to, Event: event, Guards: guards})
	}
}

// WithTransitions declares a transition table.
func WithTransitions[S comparable, E comparable](table []Transition[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		for i, t := range table {
			if err := m.AddTransition(t); err != nil {
				return fmt.Errorf("transition[%d] %v->%v on %v: %w", i, t.From, t.To, t.Event, err)
			}
		}
		return nil
	}
}

// WithOnTransition registers a hook executed after every successful Fire.
func WithOnTransition[S comparable, E comparable](h Hook[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		if h != nil {
			m.hooks = append(m.hooks, h)
		}
		return nil
	}
}
