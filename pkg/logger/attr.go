package logger

import (
	"fmt"
	"log/slog"
	"time"
)

// Error records err under "error". A nil error yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Panic records a recovered panic value under "panic".
func Panic(v any) slog.Attr {
	return slog.String("panic", fmt.Sprint(v))
}

// Component records the emitting package or subsystem.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// QueueName records the queue name. Empty names are dropped.
func QueueName(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("queue", name)
}

// QueueState records the queue-level state (idle, running, paused, stopped).
func QueueState(state fmt.Stringer) slog.Attr {
	return slog.String("queue_state", state.String())
}

// TaskID records a task's system identifier.
func TaskID(id uint64) slog.Attr {
	return slog.Uint64("task_id", id)
}

// CustomID records a task's user label. Empty labels are dropped.
func CustomID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("custom_id", id)
}

// TaskStatus records a task's lifecycle status.
func TaskStatus(status fmt.Stringer) slog.Attr {
	return slog.String("task_status", status.String())
}

// Attempt records the retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Count records a generic counter under key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Duration records d under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Topic records an event bus topic.
func Topic(topic string) slog.Attr {
	return slog.String("topic", topic)
}
