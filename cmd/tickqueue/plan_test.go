package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
	"github.com/dmitrymomot/tickqueue/pkg/logger"
	"github.com/dmitrymomot/tickqueue/pkg/taskqueue"
)

func TestLoadPlan(t *testing.T) {
	t.Parallel()

	p, err := loadPlan("testdata/plan.yaml")
	require.NoError(t, err)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, step{ID: "cooldown", Wait: "delay", Delay: 150 * time.Millisecond}, p.Steps[1])
	assert.True(t, p.Steps[2].Background)
	assert.True(t, p.Steps[2].StopOnFail)
	assert.Equal(t, time.Minute, p.Steps[2].Timeout)

	_, err = loadPlan("testdata/missing.yaml")
	assert.ErrorIs(t, err, errReadPlan)
}

func TestParsePlan_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad yaml":        "steps: [",
		"unknown wait":    "steps:\n  - id: a\n    wait: forever\n",
		"delay without d": "steps:\n  - id: a\n    wait: delay\n",
		"signal w/o name": "steps:\n  - id: a\n    wait: signal\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := parsePlan([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := parsePlan([]byte(demoPlan))
	assert.NoError(t, err)
}

func TestPlan_RunsOnQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := eventbus.NewMemory(eventbus.WithLogger(logger.Discard()))
	t.Cleanup(func() { _ = bus.Close() })

	q := taskqueue.New(taskqueue.WithLogger(logger.Discard()), taskqueue.WithEventBus(bus))
	t.Cleanup(func() { _ = q.Close() })

	p, err := loadPlan("testdata/plan.yaml")
	require.NoError(t, err)
	require.Equal(t, 3, p.enqueue(q, logger.Discard()))
	require.NoError(t, q.Start())

	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	for ms := 0; ms <= 300; ms += 50 {
		q.Tick(ctx, start.Add(time.Duration(ms)*time.Millisecond))
	}

	approve := q.TasksByCustomID("approve")
	require.Len(t, approve, 1)
	assert.Equal(t, taskqueue.StatusWaitingForCompletion, approve[0].Status())
	assert.Equal(t, taskqueue.StatusCompleted, q.TasksByCustomID("cooldown")[0].Status())

	require.NoError(t, eventbus.Publish(ctx, bus, planSignal{Name: "other"}))
	require.NoError(t, eventbus.Publish(ctx, bus, planSignal{Name: "go"}))
	q.Tick(ctx, start.Add(350*time.Millisecond))
	assert.Equal(t, taskqueue.StatusCompleted, approve[0].Status())
}
