// Package statemachine provides a small, generic finite-state machine.
//
// States and events are any comparable types, typically string-based enums
// declared by the caller:
//
//	type Light string
//	type Signal string
//
//	m := statemachine.MustNew[Light, Signal]("red",
//	    statemachine.WithTransition[Light, Signal]("red", "green", "go"),
//	    statemachine.WithTransition[Light, Signal]("green", "red", "stop"),
//	)
//	_ = m.Fire(context.Background(), "go")
//
// # Guards and Hooks
//
// A Guard can veto a transition at runtime. When several transitions are
// declared for the same (from, event) pair, the first one whose guards pass
// wins, which allows guard-based branching.
//
// Hooks registered with WithOnTransition run after the state has changed and
// receive the from/to states and the triggering event.
//
// # Error Handling
//
// Fire returns *ErrNoTransition when the event is not defined for the current
// state and *ErrTransitionRejected when every candidate was vetoed by guards.
// Use IsNoTransitionError and IsTransitionRejectedError to tell them apart.
//
// # Concurrency
//
// Machine guards its state with a RWMutex: Current and CanFire take the read
// lock, Fire the write lock. Guards run under the lock and must not
// call back into the machine.
package statemachine
