package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/sessiontable/pkg/adapters/memory"
	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
	"github.com/aretw0/sessiontable/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaper_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := ports.NewManualClock(time.UnixMilli(1000))
	store := memory.NewStore(memory.WithClock(clock.Now))
	require.NoError(t, store.Set(ctx, "old", domain.Payload{"maxAge": 10}))
	require.NoError(t, store.Set(ctx, "new", domain.Payload{}))

	reaper := session.NewReaper(store, time.Minute)

	removed, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	clock.Advance(11 * time.Millisecond)
	removed, err = reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestReaper_RunUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	sweeps := 0
	reaper := session.NewReaper(memory.NewStore(), 5*time.Millisecond,
		session.WithSweepHook(func(int64, error) {
			mu.Lock()
			defer mu.Unlock()
			sweeps++
			if sweeps == 3 {
				cancel()
			}
		}))

	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, sweeps)
}

type failingCleanup struct{ ports.SessionStore }

func (failingCleanup) Cleanup(context.Context) (int64, error) {
	return 0, domain.NewError("cleanup", domain.KindStorage, errors.New("disk I/O error"))
}

func TestReaper_KeepsGoingOnFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failures := 0
	reaper := session.NewReaper(failingCleanup{}, time.Millisecond,
		session.WithSweepHook(func(_ int64, err error) {
			assert.ErrorIs(t, err, domain.ErrStorage)
			failures++
			if failures == 2 {
				cancel()
			}
		}))

	require.NoError(t, reaper.Run(ctx))
	assert.Equal(t, 2, failures)
}

func TestReaper_InvalidInterval(t *testing.T) {
	err := session.NewReaper(memory.NewStore(), 0).Run(context.Background())
	assert.ErrorIs(t, err, session.ErrInvalidInterval)
}
