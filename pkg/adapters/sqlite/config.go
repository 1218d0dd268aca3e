package sqlite

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

const (
	// DefaultPath is the database file used when neither DB nor Path is set.
	DefaultPath = "sessions.db"
	// DefaultTable keeps session rows apart from other tables in the same file.
	DefaultTable = "sessions"
	// DefaultBusyTimeout bounds how long a writer waits on SQLite's lock.
	DefaultBusyTimeout = 5 * time.Second
)

// Config configures the SQLite session table.
type Config struct {
	// DB is an already opened handle. The store uses it as-is and never closes it.
	DB *sql.DB

	// Path is the database location, used when DB is nil. ":memory:" is accepted.
	// The store owns the handle it opens and closes it on Close.
	Path string

	// Table is the session table name. It must be a plain SQL identifier.
	Table string

	// DefaultTTL applies when a payload has no max-age hint.
	DefaultTTL time.Duration

	// Clock defaults to time.Now.
	Clock ports.Clock

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.DB == nil && c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = domain.DefaultTTL
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}
