package taskqueue_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tickqueue/pkg/taskqueue"
)

func TestNewTask_Defaults(t *testing.T) {
	t.Parallel()

	task := taskqueue.NewTask(nil)
	assert.NotZero(t, task.ID())
	assert.True(t, task.Blocking())
	assert.Equal(t, taskqueue.StatusQueued, task.Status())
	assert.Equal(t, taskqueue.ConditionImmediate, task.Condition().Kind())
	assert.Zero(t, task.Timeout())
	assert.Zero(t, task.Attempt())
	assert.NoError(t, task.Err())
	assert.False(t, task.CreatedAt().IsZero())
	assert.True(t, task.EnqueuedAt().IsZero())
	assert.True(t, task.StartedAt().IsZero())
}

func TestTask_EnqueuedAtUsesQueueClock(t *testing.T) {
	t.Parallel()

	q := newQueue(t, taskqueue.WithClock(func() time.Time { return at(750) }))
	a := taskqueue.NewTask(nil)
	b := taskqueue.NewTask(nil)
	require.True(t, q.Enqueue(a))
	require.True(t, q.InsertAfter(b, a.ID()))

	assert.Equal(t, at(750), a.EnqueuedAt())
	assert.Equal(t, at(750), b.EnqueuedAt())
	assert.Equal(t, at(750), a.Info().EnqueuedAt)
	assert.NotEqual(t, at(750), a.CreatedAt(), "creation time is wall clock")
}

func TestNewTask_Options(t *testing.T) {
	t.Parallel()

	task := taskqueue.NewTask(nil,
		taskqueue.WithCustomID("sync-users"),
		taskqueue.WithNonBlocking(),
		taskqueue.WithCondition(taskqueue.After(time.Second)),
		taskqueue.WithTimeout(time.Minute),
		taskqueue.WithPostDelay(-time.Second),
		taskqueue.WithMetadata(map[string]int{"batch": 3}),
	)
	assert.Equal(t, "sync-users", task.CustomID())
	assert.False(t, task.Blocking())
	assert.Equal(t, taskqueue.ConditionDelay, task.Condition().Kind())
	assert.Equal(t, time.Minute, task.Timeout())
	assert.Zero(t, task.PostDelay(), "negative durations are clamped")
	assert.Equal(t, map[string]int{"batch": 3}, task.Metadata())

	kept := taskqueue.NewTask(nil, taskqueue.WithCondition(nil))
	assert.Equal(t, taskqueue.ConditionImmediate, kept.Condition().Kind())
}

func TestConditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cond taskqueue.Condition
		want taskqueue.ConditionKind
	}{
		{"immediate", taskqueue.Immediate(), taskqueue.ConditionImmediate},
		{"until", taskqueue.Until(never), taskqueue.ConditionPredicate},
		{"until task", taskqueue.UntilTask(func(*taskqueue.Task) bool { return true }), taskqueue.ConditionPredicate},
		{"nil predicate", taskqueue.Until(nil), taskqueue.ConditionImmediate},
		{"after", taskqueue.After(time.Second), taskqueue.ConditionDelay},
		{"event", taskqueue.OnEvent[approvalGranted](nil), taskqueue.ConditionEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cond.Kind())
		})
	}
}

func TestTask_UniqueIDs(t *testing.T) {
	t.Parallel()

	const workers, perWorker = 8, 500
	ids := make(chan taskqueue.TaskID, workers*perWorker)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				ids <- taskqueue.NewTask(nil).ID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[taskqueue.TaskID]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestTask_MetadataIsConcurrencySafe(t *testing.T) {
	t.Parallel()

	task := taskqueue.NewTask(nil)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			task.SetMetadata(i)
		}()
		go func() {
			defer wg.Done()
			_ = task.Metadata()
			_ = task.Status()
			_ = task.Info()
		}()
	}
	wg.Wait()
	assert.IsType(t, 0, task.Metadata())
}

func TestTask_InfoJSON(t *testing.T) {
	t.Parallel()

	q := newQueue(t)
	task := taskqueue.NewTask(func(_ context.Context, _ *taskqueue.Task) error { return assert.AnError },
		taskqueue.WithCustomID("report"),
	)
	require.True(t, q.Enqueue(task))
	require.NoError(t, q.Start())
	q.Tick(context.Background(), at(0))

	raw, err := json.Marshal(task.Info())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "report", got["custom_id"])
	assert.Equal(t, "failed", got["status"])
	assert.Equal(t, "immediate", got["condition"])
	assert.Contains(t, got["error"], assert.AnError.Error())
	assert.Contains(t, got, "finished_at")
	assert.Contains(t, got, "enqueued_at")
	assert.NotContains(t, got, "timeout")
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   taskqueue.Status
		name     string
		terminal bool
		waiting  bool
	}{
		{taskqueue.StatusQueued, "queued", false, false},
		{taskqueue.StatusExecuting, "executing", false, false},
		{taskqueue.StatusWaitingForCompletion, "waiting_for_completion", false, true},
		{taskqueue.StatusWaitingForPostDelay, "waiting_for_post_delay", false, true},
		{taskqueue.StatusCompleted, "completed", true, false},
		{taskqueue.StatusCancelled, "cancelled", true, false},
		{taskqueue.StatusFailed, "failed", true, false},
		{taskqueue.Status(42), "status(42)", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.name, tt.status.String())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.waiting, tt.status.IsWaiting())
		})
	}
}
