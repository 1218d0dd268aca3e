package middleware

import (
	"context"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain wraps store with mws so that the first middleware is the outermost.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// passthrough forwards every call; concrete middlewares embed it and override what they need.
type passthrough struct {
	next ports.SessionStore
}

func (p passthrough) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	return p.next.Get(ctx, sessionID)
}

func (p passthrough) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	return p.next.Set(ctx, sessionID, payload)
}

func (p passthrough) Destroy(ctx context.Context, sessionID string) error {
	return p.next.Destroy(ctx, sessionID)
}

func (p passthrough) All(ctx context.Context) ([]domain.Payload, error) {
	return p.next.All(ctx)
}

func (p passthrough) Length(ctx context.Context) (int, error) {
	return p.next.Length(ctx)
}

func (p passthrough) Clear(ctx context.Context) error {
	return p.next.Clear(ctx)
}

func (p passthrough) Touch(ctx context.Context, sessionID string, payload domain.Payload) error {
	return p.next.Touch(ctx, sessionID, payload)
}

func (p passthrough) Cleanup(ctx context.Context) (int64, error) {
	return p.next.Cleanup(ctx)
}
