package sessiontable

import (
	"context"
	"database/sql"
	_ "embed"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/sessiontable/pkg/adapters/sqlite"
	"github.com/aretw0/sessiontable/pkg/ports"
)

//go:embed VERSION
var version string

// Version is the release of this module.
var Version = strings.TrimSpace(version)

// Option configures Open.
type Option func(*sqlite.Config)

// WithTable overrides the table name (default "sessions").
func WithTable(table string) Option {
	return func(c *sqlite.Config) {
		c.Table = table
	}
}

// WithDefaultTTL sets the lifetime used when a payload carries no max-age hint.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *sqlite.Config) {
		c.DefaultTTL = ttl
	}
}

// WithLogger configures a logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sqlite.Config) {
		c.Logger = logger
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock ports.Clock) Option {
	return func(c *sqlite.Config) {
		c.Clock = clock
	}
}

// WithDB makes the store use an existing handle instead of opening path.
// The handle stays owned by the caller.
func WithDB(db *sql.DB) Option {
	return func(c *sqlite.Config) {
		c.DB = db
	}
}

// Open creates (or reuses) the session table in the SQLite database at path.
// An empty path uses "sessions.db"; ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*sqlite.Store, error) {
	cfg := sqlite.Config{Path: path}
	for _, opt := range opts {
		opt(&cfg)
	}
	return sqlite.New(ctx, cfg)
}
