package session

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/sessiontable/pkg/ports"
)

// ErrInvalidInterval is returned by Run when the interval is not positive.
var ErrInvalidInterval = errors.New("reaper interval must be positive")

// Reaper calls Cleanup on a store at a fixed interval.
type Reaper struct {
	store    ports.SessionStore
	interval time.Duration
	opts     options
}

// NewReaper creates a Reaper for store.
func NewReaper(store ports.SessionStore, interval time.Duration, opts ...Option) *Reaper {
	return &Reaper{store: store, interval: interval, opts: newOptions(opts)}
}

// Sweep runs a single cleanup.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	removed, err := r.store.Cleanup(ctx)
	if err != nil {
		r.opts.logger.Error("session cleanup failed", "err", err)
	} else if removed > 0 {
		r.opts.logger.Info("expired sessions removed", "count", removed)
	} else {
		r.opts.logger.Debug("no expired sessions")
	}
	if r.opts.onSweep != nil {
		r.opts.onSweep(removed, err)
	}
	return removed, err
}

// Run sweeps once immediately and then every interval until ctx is cancelled.
// Failed sweeps are logged and do not stop the loop.
func (r *Reaper) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return ErrInvalidInterval
	}

	r.opts.logger.Info("reaper started", "interval", r.interval)
	defer r.opts.logger.Info("reaper stopped")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, _ = r.Sweep(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
