// Package taskqueue provides a tick-driven task scheduling engine.
//
// A Queue holds an ordered list of tasks. Nothing happens on its own: the
// owner calls Tick with the current time at a steady cadence (see package
// ticker) and every piece of progress, from starting tasks to timeouts,
// happens inside that call.
//
// Each Task runs its action once when started and then waits for its
// completion condition:
//
//   - Immediate: done as soon as the action returns
//   - Until: done on the first tick where a predicate returns true
//   - After: done once a duration of active queue time has passed
//   - OnEvent: done once a matching event is published on the event bus
//
// Blocking tasks (the default) hold the queue until they finish. Non-blocking
// tasks let the next task start while they keep waiting in the background.
//
// # Usage
//
//	q := taskqueue.New(
//	    taskqueue.WithName("onboarding"),
//	    taskqueue.WithEventBus(bus),
//	    taskqueue.WithAutoStart(true),
//	)
//	defer q.Close()
//
//	q.Enqueue(taskqueue.NewTask(sendWelcome))
//	q.Enqueue(taskqueue.NewTask(nil,
//	    taskqueue.WithCondition(taskqueue.OnEvent(func(e EmailVerified) bool {
//	        return e.UserID == userID
//	    })),
//	    taskqueue.WithTimeout(10*time.Minute),
//	))
//
//	go ticker.New(q).Run(ctx)
//
// # Time
//
// Timeouts, stall detection, delays, post-completion delays and retry delays
// are measured in active time: the sum of deltas between consecutive ticks
// while the queue is running. Pausing the queue freezes all of them. Pause
// and Resume read the queue clock (WithClock) so the time between the last
// tick and the pause counts, while the pause itself does not. Ticks whose
// time is earlier than the previous tick are ignored.
//
// # Retries
//
// A task with an Until condition and a RetryConfig is retried when its
// predicate stays false for StallTimeout. After MaxAttempts retries the task
// fails with a *MaxRetriesExceededError.
//
// # Error Handling
//
// Failures never escape Tick. Action errors and panics become a
// *UserActionError, elapsed timeouts a *TimeoutError, and both are handed to
// the task's OnFailed callback and kept in Task.Err. Invalid operations such
// as cancelling an unknown task return false and log a warning. Callback
// panics are recovered and logged.
//
// # Concurrency
//
// All methods are safe for concurrent use. The queue lock is never held while
// user code runs, so callbacks may call back into the queue.
package taskqueue
