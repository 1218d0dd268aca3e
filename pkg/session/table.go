package session

import (
	"context"
	"fmt"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

// Notify receives the outcome of an operation that yields no value.
type Notify func(err error)

// NotifyResult receives the outcome of an operation that yields a value.
// result is the zero value whenever err is non-nil.
type NotifyResult[T any] func(err error, result T)

// Table wraps a SessionStore with notifier-style calls.
//
// Every method runs synchronously and invokes its notifier exactly once before returning,
// including when the store panics. A nil notifier makes the call silent.
type Table struct {
	store ports.SessionStore
	opts  options
}

// NewTable creates a Table over store.
func NewTable(store ports.SessionStore, opts ...Option) *Table {
	return &Table{store: store, opts: newOptions(opts)}
}

// Store returns the wrapped store.
func (t *Table) Store() ports.SessionStore {
	return t.store
}

// Get reports the stored payload, or nil when the session does not exist.
func (t *Table) Get(ctx context.Context, sessionID string, cb NotifyResult[domain.Payload]) {
	deliver(t, "get", cb, func() (domain.Payload, error) {
		return t.store.Get(ctx, sessionID)
	})
}

// Set stores the payload, replacing any previous one for the session.
func (t *Table) Set(ctx context.Context, sessionID string, payload domain.Payload, cb Notify) {
	deliverErr(t, "set", cb, func() error {
		return t.store.Set(ctx, sessionID, payload)
	})
}

// Destroy removes the session. Missing sessions are not an error.
func (t *Table) Destroy(ctx context.Context, sessionID string, cb Notify) {
	deliverErr(t, "destroy", cb, func() error {
		return t.store.Destroy(ctx, sessionID)
	})
}

// All reports every stored payload.
func (t *Table) All(ctx context.Context, cb NotifyResult[[]domain.Payload]) {
	deliver(t, "all", cb, func() ([]domain.Payload, error) {
		return t.store.All(ctx)
	})
}

// Length reports the number of stored sessions.
func (t *Table) Length(ctx context.Context, cb NotifyResult[int]) {
	deliver(t, "length", cb, func() (int, error) {
		return t.store.Length(ctx)
	})
}

// Clear removes every session.
func (t *Table) Clear(ctx context.Context, cb Notify) {
	deliverErr(t, "clear", cb, func() error {
		return t.store.Clear(ctx)
	})
}

// Touch refreshes the expiration of an existing session.
func (t *Table) Touch(ctx context.Context, sessionID string, payload domain.Payload, cb Notify) {
	deliverErr(t, "touch", cb, func() error {
		return t.store.Touch(ctx, sessionID, payload)
	})
}

// Cleanup removes expired sessions and reports how many were deleted.
func (t *Table) Cleanup(ctx context.Context, cb NotifyResult[int64]) {
	deliver(t, "cleanup", cb, func() (int64, error) {
		return t.store.Cleanup(ctx)
	})
}

func deliver[T any](t *Table, op string, cb NotifyResult[T], fn func() (T, error)) {
	result, err := invoke(op, fn)
	if err != nil {
		var zero T
		result = zero
	}
	if cb == nil {
		if err != nil {
			t.opts.logger.Debug("session operation failed without notifier", "op", op, "err", err)
		}
		return
	}
	cb(err, result)
}

func deliverErr(t *Table, op string, cb Notify, fn func() error) {
	var wrapped NotifyResult[struct{}]
	if cb != nil {
		wrapped = func(err error, _ struct{}) { cb(err) }
	}
	deliver(t, op, wrapped, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// invoke turns a store panic into a storage error so the notifier still fires once.
func invoke[T any](op string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = domain.NewError(op, domain.KindStorage, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}
