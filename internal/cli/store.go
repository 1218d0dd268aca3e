package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/sessiontable/internal/config"
	"github.com/aretw0/sessiontable/pkg/adapters/memory"
	"github.com/aretw0/sessiontable/pkg/adapters/redis"
	"github.com/aretw0/sessiontable/pkg/adapters/sqlite"
	"github.com/aretw0/sessiontable/pkg/persistence/middleware"
	"github.com/aretw0/sessiontable/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// OpenedStore is a configured store plus the function releasing its backend.
type OpenedStore struct {
	ports.SessionStore
	closer io.Closer
}

// Close releases the backend. Safe to call on a memory store.
func (s *OpenedStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// StoreOptions are the runtime dependencies of OpenStore.
type StoreOptions struct {
	Logger *slog.Logger
	// Registerer enables the metrics middleware when non-nil.
	Registerer prometheus.Registerer
}

// OpenStore builds the backend selected by cfg.Driver and wraps it with the
// middlewares cfg enables. Outermost first: logging, metrics, PII masking, encryption.
func OpenStore(ctx context.Context, cfg config.Config, opts StoreOptions) (*OpenedStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	opened := &OpenedStore{}
	var base ports.SessionStore

	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.New(ctx, sqlite.Config{
			Path:       cfg.Path,
			Table:      cfg.Table,
			DefaultTTL: cfg.DefaultTTL,
			Logger:     opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		base, opened.closer = store, store

	case config.DriverMemory:
		base = memory.NewStore(memory.WithDefaultTTL(cfg.DefaultTTL))

	case config.DriverRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithDefaultTTL(cfg.DefaultTTL),
		)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		base, opened.closer = store, store
	}

	mws, err := buildMiddlewares(cfg, opts)
	if err != nil {
		_ = opened.Close()
		return nil, err
	}

	opened.SessionStore = middleware.Chain(base, mws...)
	return opened, nil
}

func buildMiddlewares(cfg config.Config, opts StoreOptions) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware

	if opts.Logger != nil {
		mws = append(mws, middleware.NewLoggingMiddleware(opts.Logger))
	}

	if opts.Registerer != nil {
		metrics, err := middleware.NewMetrics(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		mws = append(mws, metrics.Middleware())
	}

	if len(cfg.MaskPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.MaskPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}

	return mws, nil
}
