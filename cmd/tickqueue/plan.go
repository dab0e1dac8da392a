package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/tickqueue/pkg/logger"
	"github.com/dmitrymomot/tickqueue/pkg/taskqueue"
)

var (
	errReadPlan    = errors.New("failed to read plan")
	errDecodePlan  = errors.New("failed to decode plan")
	errInvalidStep = errors.New("invalid plan step")
)

// planSignal is the event published by POST /signals/{name} and awaited by
// "signal" steps. Other processes can publish it through the Redis bus.
type planSignal struct {
	Name string `json:"name"`
}

// plan is a YAML list of steps turned into queue tasks at startup.
type plan struct {
	Steps []step `yaml:"steps"`
}

type step struct {
	ID         string        `yaml:"id"`
	Wait       string        `yaml:"wait"` // "", "delay" or "signal"
	Delay      time.Duration `yaml:"delay"`
	Signal     string        `yaml:"signal"`
	Timeout    time.Duration `yaml:"timeout"`
	PostDelay  time.Duration `yaml:"post_delay"`
	Background bool          `yaml:"background"`
	StopOnFail bool          `yaml:"stop_on_fail"`
}

const demoPlan = `
steps:
  - id: warmup
  - id: settle
    wait: delay
    delay: 2s
    post_delay: 500ms
  - id: approval
    wait: signal
    signal: approve
    timeout: 5m
    background: true
  - id: report
`

func loadPlan(path string) (plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plan{}, errors.Join(errReadPlan, err)
	}
	return parsePlan(data)
}

func parsePlan(data []byte) (plan, error) {
	var p plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return plan{}, errors.Join(errDecodePlan, err)
	}
	for i, s := range p.Steps {
		if err := s.validate(); err != nil {
			return plan{}, fmt.Errorf("step %d (%q): %w", i, s.ID, err)
		}
	}
	return p, nil
}

func (s step) validate() error {
	switch s.Wait {
	case "":
	case "delay":
		if s.Delay <= 0 {
			return errors.Join(errInvalidStep, errors.New("delay step needs a positive delay"))
		}
	case "signal":
		if s.Signal == "" {
			return errors.Join(errInvalidStep, errors.New("signal step needs a signal name"))
		}
	default:
		return errors.Join(errInvalidStep, fmt.Errorf("unknown wait kind %q", s.Wait))
	}
	return nil
}

func (s step) condition() taskqueue.Condition {
	switch s.Wait {
	case "delay":
		return taskqueue.After(s.Delay)
	case "signal":
		name := s.Signal
		return taskqueue.OnEvent(func(e planSignal) bool { return e.Name == name })
	}
	return taskqueue.Immediate()
}

func (s step) task(log *slog.Logger) *taskqueue.Task {
	opts := []taskqueue.TaskOption{
		taskqueue.WithCustomID(s.ID),
		taskqueue.WithCondition(s.condition()),
		taskqueue.WithTimeout(s.Timeout),
		taskqueue.WithPostDelay(s.PostDelay),
		taskqueue.WithOnCompleted(func(t *taskqueue.Task) {
			log.Info("plan step completed", logger.TaskID(uint64(t.ID())), logger.CustomID(t.CustomID()))
		}),
		taskqueue.WithOnFailed(func(t *taskqueue.Task, err error) {
			log.Error("plan step failed", logger.TaskID(uint64(t.ID())), logger.CustomID(t.CustomID()), logger.Error(err))
		}),
	}
	if s.Background {
		opts = append(opts, taskqueue.WithNonBlocking())
	}
	if s.StopOnFail {
		opts = append(opts, taskqueue.WithStopQueueOnFail())
	}
	return taskqueue.NewTask(func(ctx context.Context, t *taskqueue.Task) error {
		log.InfoContext(ctx, "plan step started", logger.TaskID(uint64(t.ID())), logger.CustomID(t.CustomID()))
		return nil
	}, opts...)
}

// enqueue adds every step to q and returns how many were accepted.
func (p plan) enqueue(q *taskqueue.Queue, log *slog.Logger) int {
	n := 0
	for _, s := range p.Steps {
		if q.Enqueue(s.task(log)) {
			n++
		}
	}
	return n
}
