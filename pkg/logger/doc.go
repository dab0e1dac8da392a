// Package logger builds the *slog.Logger instances used across tickqueue.
//
// New assembles a text or JSON handler from functional options, optionally
// wraps it with a decorator that pulls attributes out of context.Context on
// every record, and returns a ready logger:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "tickqueue"),
//	    logger.WithLevel(slog.LevelDebug),
//	)
//	log.Info("task completed", logger.TaskID(t.ID()), logger.CustomID(t.CustomID()))
//
// The helpers in attr.go keep attribute keys consistent between packages
// (task_id, custom_id, queue, queue_state, attempt, ...). Helpers that take a
// possibly-empty value return an empty slog.Attr, which slog drops.
package logger
