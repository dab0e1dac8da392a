package taskqueue

// Config holds the queue settings loadable from the environment or a YAML file.
type Config struct {
	Name      string `env:"TICKQUEUE_NAME" envDefault:"default" yaml:"name"`
	AutoStart bool   `env:"TICKQUEUE_AUTO_START" envDefault:"true" yaml:"auto_start"`
	AutoStop  bool   `env:"TICKQUEUE_AUTO_STOP" envDefault:"false" yaml:"auto_stop"`
}

// NewFromConfig creates a queue from cfg. Options passed explicitly win.
func NewFromConfig(cfg Config, opts ...Option) *Queue {
	base := []Option{
		WithName(cfg.Name),
		WithAutoStart(cfg.AutoStart),
		WithAutoStop(cfg.AutoStop),
	}
	return New(append(base, opts...)...)
}
