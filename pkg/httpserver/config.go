package httpserver

import "time"

// Config holds listener settings for the control API.
type Config struct {
	Addr            string        `env:"TICKQUEUE_HTTP_ADDR" envDefault:":8080" yaml:"addr"`
	ReadTimeout     time.Duration `env:"TICKQUEUE_HTTP_READ_TIMEOUT" envDefault:"10s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"TICKQUEUE_HTTP_WRITE_TIMEOUT" envDefault:"10s" yaml:"write_timeout"`
	IdleTimeout     time.Duration `env:"TICKQUEUE_HTTP_IDLE_TIMEOUT" envDefault:"60s" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `env:"TICKQUEUE_HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s" yaml:"shutdown_timeout"`
}

// NewFromConfig creates a Server from cfg. Zero values keep the defaults and
// explicit options are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	base := []Option{
		WithAddr(cfg.Addr),
		WithReadTimeout(cfg.ReadTimeout),
		WithWriteTimeout(cfg.WriteTimeout),
		WithIdleTimeout(cfg.IdleTimeout),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}
	return New(append(base, opts...)...)
}
