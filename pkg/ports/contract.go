package ports

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ManualClock is a Clock that only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StoreFactory builds an empty store driven by clock.
type StoreFactory func(t *testing.T, clock Clock) SessionStore

// RunSessionStoreContract verifies that an adapter honours the SessionStore semantics.
// newStore is called once per subtest and must return an empty store.
func RunSessionStoreContract(t *testing.T, newStore StoreFactory) {
	t.Helper()
	ctx := context.Background()
	start := time.UnixMilli(1_700_000_000_000)

	setup := func(t *testing.T) (SessionStore, *ManualClock) {
		clock := NewManualClock(start)
		return newStore(t, clock.Now), clock
	}

	t.Run("Set and Get", func(t *testing.T) {
		store, _ := setup(t)
		payload := domain.Payload{
			"userId": 123.0,
			"cookie": map[string]any{"maxAge": 60000.0, "httpOnly": true},
			"cart":   []any{"a", "b"},
		}

		require.NoError(t, store.Set(ctx, "abc", payload))

		loaded, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, payload, loaded)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		store, _ := setup(t)
		loaded, err := store.Get(ctx, "missing")
		assert.NoError(t, err, "absence is not an error")
		assert.Nil(t, loaded)
	})

	t.Run("Stored Payload Is Isolated", func(t *testing.T) {
		store, _ := setup(t)
		payload := domain.Payload{"nested": map[string]any{"v": 1.0}}
		require.NoError(t, store.Set(ctx, "iso", payload))

		payload["nested"].(map[string]any)["v"] = 2.0

		loaded, err := store.Get(ctx, "iso")
		require.NoError(t, err)
		assert.Equal(t, 1.0, loaded["nested"].(map[string]any)["v"])
	})

	t.Run("Destroy Is Idempotent", func(t *testing.T) {
		store, _ := setup(t)
		require.NoError(t, store.Set(ctx, "gone", domain.Payload{"a": 1.0}))

		assert.NoError(t, store.Destroy(ctx, "gone"))
		loaded, err := store.Get(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		assert.NoError(t, store.Destroy(ctx, "gone"))
		loaded, err = store.Get(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		store, _ := setup(t)
		require.NoError(t, store.Set(ctx, "same", domain.Payload{"v": 1.0}))
		require.NoError(t, store.Set(ctx, "same", domain.Payload{"v": 2.0}))

		loaded, err := store.Get(ctx, "same")
		require.NoError(t, err)
		assert.Equal(t, domain.Payload{"v": 2.0}, loaded)

		n, err := store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("All", func(t *testing.T) {
		store, _ := setup(t)
		payloads := []domain.Payload{
			{"userId": 1.0},
			{"userId": 2.0, "cookie": map[string]any{"maxAge": 10.0}},
			{"userId": 3.0, "tags": []any{"x"}},
		}
		for i, p := range payloads {
			require.NoError(t, store.Set(ctx, []string{"s1", "s2", "s3"}[i], p))
		}

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.ElementsMatch(t, payloads, all)
	})

	t.Run("All Empty", func(t *testing.T) {
		store, _ := setup(t)
		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all, "no rows is an empty sequence, not nil")
		assert.Empty(t, all)
	})

	t.Run("Clear", func(t *testing.T) {
		store, _ := setup(t)
		require.NoError(t, store.Set(ctx, "a", domain.Payload{"a": 1.0}))
		require.NoError(t, store.Set(ctx, "b", domain.Payload{"b": 1.0}))

		require.NoError(t, store.Clear(ctx))

		n, err := store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Expired Records Stay Readable", func(t *testing.T) {
		store, _ := setup(t)
		require.NoError(t, store.Set(ctx, "stale", domain.Payload{"maxAge": -1000.0}))

		loaded, err := store.Get(ctx, "stale")
		require.NoError(t, err)
		assert.NotNil(t, loaded, "reads do not filter by expiry")
	})

	t.Run("Cleanup Removes Strictly Expired", func(t *testing.T) {
		store, clock := setup(t)
		require.NoError(t, store.Set(ctx, "past", domain.Payload{"maxAge": -1.0}))
		require.NoError(t, store.Set(ctx, "boundary", domain.Payload{"maxAge": 0.0}))
		require.NoError(t, store.Set(ctx, "future", domain.Payload{"cookie": map[string]any{"maxAge": 60000.0}}))
		require.NoError(t, store.Set(ctx, "default", domain.Payload{"userId": 9.0}))

		removed, err := store.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		past, err := store.Get(ctx, "past")
		require.NoError(t, err)
		assert.Nil(t, past)

		for _, id := range []string{"boundary", "future", "default"} {
			p, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.NotNil(t, p, "%s should survive cleanup", id)
		}

		clock.Advance(time.Millisecond)
		removed, err = store.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		n, err := store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("Touch Updates Expiry Only", func(t *testing.T) {
		store, clock := setup(t)
		original := domain.Payload{"v": 1.0, "maxAge": 1000.0}
		require.NoError(t, store.Set(ctx, "t", original))

		require.NoError(t, store.Touch(ctx, "t", domain.Payload{"v": 2.0, "maxAge": 60000.0}))

		loaded, err := store.Get(ctx, "t")
		require.NoError(t, err)
		assert.Equal(t, original, loaded, "touch must not rewrite the payload")

		// The original 1s lifetime would have lapsed; the touched 60s one has not.
		clock.Advance(5 * time.Second)
		removed, err := store.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)

		require.NoError(t, store.Touch(ctx, "t", domain.Payload{"maxAge": -1.0}))
		removed, err = store.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
	})

	t.Run("Touch Missing Is No-Op", func(t *testing.T) {
		store, _ := setup(t)
		assert.NoError(t, store.Touch(ctx, "nobody", domain.Payload{"maxAge": 10.0}))

		n, err := store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Overflowing MaxAge Is Rejected", func(t *testing.T) {
		store, _ := setup(t)
		require.NoError(t, store.Set(ctx, "keep", domain.Payload{"v": 1.0}))

		huge := domain.Payload{"maxAge": int64(math.MaxInt64)}
		assert.ErrorIs(t, store.Set(ctx, "huge", huge), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Set(ctx, "huge", domain.Payload{"maxAge": float64(1 << 63)}), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Touch(ctx, "keep", huge), domain.ErrInvalidArgument)

		removed, err := store.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)

		n, err := store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Identifiers Never Collide With Internal Keys", func(t *testing.T) {
		store, _ := setup(t)
		ids := []string{"a", "index", "idx", "s:a", "s:", ":"}
		for _, id := range ids {
			require.NoError(t, store.Set(ctx, id, domain.Payload{"id": id}))
		}

		n, err := store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(ids), n)

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, len(ids))

		for _, id := range ids {
			got, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.Payload{"id": id}, got)
		}

		require.NoError(t, store.Destroy(ctx, "index"))
		n, err = store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(ids)-1, n)

		require.NoError(t, store.Clear(ctx))
		n, err = store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Invalid Arguments", func(t *testing.T) {
		store, _ := setup(t)

		_, err := store.Get(ctx, "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		assert.ErrorIs(t, store.Set(ctx, "", domain.Payload{}), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Set(ctx, "x", nil), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Set(ctx, "x", domain.Payload{"maxAge": "1d"}), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Destroy(ctx, ""), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Touch(ctx, "", domain.Payload{}), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Touch(ctx, "x", nil), domain.ErrInvalidArgument)

		n, err := store.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n, "rejected writes must not leave rows behind")
	})
}
