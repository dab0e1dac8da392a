package eventbus

import "log/slog"

// Option configures a bus.
type Option func(*options)

type options struct {
	logger *slog.Logger
	prefix string
}

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
		prefix: "tickqueue:events",
	}
}

// WithLogger sets the logger used to report handler panics and transport errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithChannelPrefix sets the Redis channel prefix. Ignored by Memory.
func WithChannelPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}
