// Package httpserver runs an http.Handler until its context is cancelled and
// then shuts it down gracefully.
//
// The command wires it to the queue control API:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	err := srv.Run(ctx, queueapi.NewRouter(q, queueapi.WithHealthChecks(checks...)))
//
// Run blocks until ctx is done or the listener fails. Shutdown may be called
// from another goroutine and is safe to call more than once. Start failures
// are wrapped with ErrStart and shutdown failures with ErrShutdown.
//
// Signal handling is left to the caller, usually through signal.NotifyContext.
//
// HealthHandler serves liveness and readiness probes from a set of named
// checks such as eventbus.RedisHealthcheck.
package httpserver
