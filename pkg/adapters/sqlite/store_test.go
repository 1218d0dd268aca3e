package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/sessiontable/pkg/adapters/sqlite"
	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T, cfg sqlite.Config) *sqlite.Store {
	t.Helper()
	if cfg.Path == "" && cfg.DB == nil {
		cfg.Path = filepath.Join(t.TempDir(), "sessions.db")
	}
	store, err := sqlite.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, func(t *testing.T, clock ports.Clock) ports.SessionStore {
		return newFileStore(t, sqlite.Config{Clock: clock})
	})
}

func TestSQLiteStore_InMemory_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, func(t *testing.T, clock ports.Clock) ports.SessionStore {
		return newFileStore(t, sqlite.Config{Path: ":memory:", Clock: clock})
	})
}

func TestSQLiteStore_ExpiresAtFromMaxAge(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "scenario.db"))
	require.NoError(t, err)
	defer db.Close()

	store := newFileStore(t, sqlite.Config{
		DB:    db,
		Clock: func() time.Time { return time.UnixMilli(1000) },
	})

	payload := domain.Payload{"userId": 123.0, "maxAge": 1.0}
	require.NoError(t, store.Set(ctx, "abc", payload))

	var expire int64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT expire FROM "sessions" WHERE sid = ?`, "abc").Scan(&expire))
	assert.Equal(t, int64(1001), expire)

	loaded, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, payload, loaded)
}

func TestSQLiteStore_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "ttl.db"))
	require.NoError(t, err)
	defer db.Close()

	store := newFileStore(t, sqlite.Config{
		DB:         db,
		Table:      "web_sessions",
		DefaultTTL: time.Minute,
		Clock:      func() time.Time { return time.UnixMilli(5000) },
	})
	assert.Equal(t, "web_sessions", store.Table())

	require.NoError(t, store.Set(ctx, "no-hint", domain.Payload{"userId": 1.0}))

	var expire int64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT expire FROM "web_sessions" WHERE sid = ?`, "no-hint").Scan(&expire))
	assert.Equal(t, int64(5000+60000), expire)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.db")

	first, err := sqlite.New(ctx, sqlite.Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "keep", domain.Payload{"v": 1.0}))
	require.NoError(t, first.Close())

	// Re-running the migration on an existing table must not touch its rows.
	second, err := sqlite.New(ctx, sqlite.Config{Path: path})
	require.NoError(t, err)
	defer second.Close()

	loaded, err := second.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, domain.Payload{"v": 1.0}, loaded)
}

func TestSQLiteStore_BorrowedHandleStaysOpen(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "borrowed.db"))
	require.NoError(t, err)
	defer db.Close()

	store, err := sqlite.New(context.Background(), sqlite.Config{DB: db})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.NoError(t, db.Ping(), "the store must not close a handle it does not own")
}

func TestSQLiteStore_TablesAreIndependent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()

	a := newFileStore(t, sqlite.Config{DB: db, Table: "app_a"})
	b := newFileStore(t, sqlite.Config{DB: db, Table: "app_b"})

	require.NoError(t, a.Set(ctx, "sid", domain.Payload{"owner": "a"}))

	loaded, err := b.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, b.Clear(ctx))
	n, err := a.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_InitializationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable location", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "db.db")
		_, err := sqlite.New(ctx, sqlite.Config{Path: path})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInitialization)
	})

	t.Run("invalid table name", func(t *testing.T) {
		_, err := sqlite.New(ctx, sqlite.Config{Path: ":memory:", Table: `sessions"; DROP TABLE x; --`})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInitialization)
	})

	t.Run("closed handle", func(t *testing.T) {
		db, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		_, err = sqlite.New(ctx, sqlite.Config{DB: db})
		assert.ErrorIs(t, err, domain.ErrInitialization)
	})
}

func TestSQLiteStore_ConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t, sqlite.Config{})

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			id := []string{"a", "b", "c", "d"}[i%4]
			if err := store.Set(ctx, id, domain.Payload{"n": float64(i)}); err != nil {
				done <- err
				return
			}
			_, err := store.Get(ctx, id)
			done <- err
		}(i)
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-done)
	}

	n, err := store.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
