package session

import (
	"log/slog"

	"github.com/aretw0/sessiontable/internal/logging"
)

type options struct {
	logger  *slog.Logger
	onSweep func(removed int64, err error)
}

// Option configures a Table or a Reaper.
type Option func(*options)

// WithLogger configures a logger for internal events (dropped errors, sweeps).
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSweepHook registers fn to be called after every Reaper sweep.
func WithSweepHook(fn func(removed int64, err error)) Option {
	return func(o *options) {
		o.onSweep = fn
	}
}

func newOptions(opts []Option) options {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
