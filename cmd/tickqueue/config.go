package main

import (
	"github.com/dmitrymomot/tickqueue/pkg/eventbus"
	"github.com/dmitrymomot/tickqueue/pkg/httpserver"
	"github.com/dmitrymomot/tickqueue/pkg/taskqueue"
	"github.com/dmitrymomot/tickqueue/pkg/ticker"
)

const (
	busMemory = "memory"
	busRedis  = "redis"
)

type appConfig struct {
	Env      string               `env:"APP_ENV" envDefault:"development" yaml:"env"`
	LogLevel string               `env:"LOG_LEVEL" yaml:"log_level"`
	EventBus string               `env:"TICKQUEUE_EVENT_BUS" envDefault:"memory" yaml:"event_bus"`
	PlanFile string               `env:"TICKQUEUE_PLAN" yaml:"plan"`
	DemoPlan bool                 `env:"TICKQUEUE_DEMO_PLAN" envDefault:"true" yaml:"demo_plan"`
	Queue    taskqueue.Config     `yaml:"queue"`
	Ticker   ticker.Config        `yaml:"ticker"`
	HTTP     httpserver.Config    `yaml:"http"`
	Redis    eventbus.RedisConfig `yaml:"redis"`
}
