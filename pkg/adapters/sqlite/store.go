package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/sessiontable/internal/logging"
	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"

	// Registers the CGO-free "sqlite" driver.
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Operation names reported in *domain.Error.
const (
	opInit    = "init"
	opGet     = "get"
	opSet     = "set"
	opDestroy = "destroy"
	opAll     = "all"
	opLength  = "length"
	opClear   = "clear"
	opTouch   = "touch"
	opCleanup = "cleanup"
)

// Store implements ports.SessionStore on a single SQLite table.
// Each operation is one statement; the store adds no locking of its own.
type Store struct {
	db     *sql.DB
	owned  bool
	table  string
	ttl    time.Duration
	now    ports.Clock
	logger *slog.Logger
	q      queries
}

var _ ports.SessionStore = (*Store)(nil)

// New opens (or adopts) the database and ensures the session table exists.
// Any failure is returned synchronously as a domain.KindInitialization error.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := validateTableName(cfg.Table); err != nil {
		return nil, domain.NewError(opInit, domain.KindInitialization, err)
	}

	db, owned := cfg.DB, false
	if db == nil {
		var err error
		db, err = openFile(ctx, cfg.Path)
		if err != nil {
			return nil, domain.NewError(opInit, domain.KindInitialization, err)
		}
		owned = true
	} else if err := db.PingContext(ctx); err != nil {
		return nil, domain.NewError(opInit, domain.KindInitialization, fmt.Errorf("failed to reach database: %w", err))
	}

	if err := migrate(ctx, db, cfg.Table); err != nil {
		if owned {
			_ = db.Close()
		}
		return nil, domain.NewError(opInit, domain.KindInitialization, err)
	}

	logger.Debug("session table ready", "table", cfg.Table, "path", cfg.Path, "default_ttl", cfg.DefaultTTL)

	return &Store{
		db:     db,
		owned:  owned,
		table:  cfg.Table,
		ttl:    cfg.DefaultTTL,
		now:    cfg.Clock,
		logger: logger,
		q:      newQueries(cfg.Table),
	}, nil
}

// openFile opens a database the store will own. A single connection lets SQLite serialize
// writers and keeps a ":memory:" database alive for the lifetime of the store.
func openFile(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", DefaultBusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Table returns the table name the store writes to.
func (s *Store) Table() string {
	return s.table
}

// Get returns the payload for sessionID, or (nil, nil) when no row exists.
func (s *Store) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	if err := domain.ValidateID(sessionID); err != nil {
		return nil, domain.NewError(opGet, domain.KindInvalidArgument, err)
	}

	var raw string
	err := s.db.QueryRowContext(ctx, s.q.get, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(opGet, domain.KindStorage, err)
	}

	payload, err := domain.UnmarshalPayload([]byte(raw))
	if err != nil {
		return nil, domain.NewError(opGet, domain.KindSerialization, err)
	}
	return payload, nil
}

// Set upserts the row in a single statement.
func (s *Store) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError(opSet, domain.KindInvalidArgument, err)
	}
	if err := payload.Validate(); err != nil {
		return domain.NewError(opSet, domain.KindInvalidArgument, err)
	}

	expiresAt, err := payload.ExpiresAt(s.now(), s.ttl)
	if err != nil {
		return domain.NewError(opSet, domain.KindInvalidArgument, err)
	}

	data, err := payload.Marshal()
	if err != nil {
		return domain.NewError(opSet, domain.KindSerialization, err)
	}

	if _, err := s.db.ExecContext(ctx, s.q.set, sessionID, string(data), expiresAt); err != nil {
		return domain.NewError(opSet, domain.KindStorage, err)
	}
	return nil
}

// Destroy deletes the row if present.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError(opDestroy, domain.KindInvalidArgument, err)
	}
	if _, err := s.db.ExecContext(ctx, s.q.destroy, sessionID); err != nil {
		return domain.NewError(opDestroy, domain.KindStorage, err)
	}
	return nil
}

// All decodes every row. One undecodable row fails the whole call.
func (s *Store) All(ctx context.Context) ([]domain.Payload, error) {
	rows, err := s.db.QueryContext(ctx, s.q.all)
	if err != nil {
		return nil, domain.NewError(opAll, domain.KindStorage, err)
	}
	defer rows.Close()

	payloads := []domain.Payload{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, domain.NewError(opAll, domain.KindStorage, err)
		}
		payload, err := domain.UnmarshalPayload([]byte(raw))
		if err != nil {
			return nil, domain.NewError(opAll, domain.KindSerialization, err)
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewError(opAll, domain.KindStorage, err)
	}

	return payloads, nil
}

// Length counts the rows.
func (s *Store) Length(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.q.length).Scan(&n); err != nil {
		return 0, domain.NewError(opLength, domain.KindStorage, err)
	}
	return n, nil
}

// Clear deletes every row. There is no backup.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.q.clear); err != nil {
		return domain.NewError(opClear, domain.KindStorage, err)
	}
	return nil
}

// Touch rewrites only the expire column.
func (s *Store) Touch(ctx context.Context, sessionID string, payload domain.Payload) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError(opTouch, domain.KindInvalidArgument, err)
	}
	if err := payload.Validate(); err != nil {
		return domain.NewError(opTouch, domain.KindInvalidArgument, err)
	}

	expiresAt, err := payload.ExpiresAt(s.now(), s.ttl)
	if err != nil {
		return domain.NewError(opTouch, domain.KindInvalidArgument, err)
	}

	if _, err := s.db.ExecContext(ctx, s.q.touch, expiresAt, sessionID); err != nil {
		return domain.NewError(opTouch, domain.KindStorage, err)
	}
	return nil
}

// Cleanup deletes rows whose expire is strictly before now.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q.cleanup, s.now().UnixMilli())
	if err != nil {
		return 0, domain.NewError(opCleanup, domain.KindStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.NewError(opCleanup, domain.KindStorage, err)
	}
	return n, nil
}

// Close releases the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
