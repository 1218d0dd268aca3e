package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use. Nothing survives the process.
type Store struct {
	data map[string]domain.Record
	mu   sync.RWMutex
	ttl  time.Duration
	now  ports.Clock
}

var _ ports.SessionStore = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithDefaultTTL sets the lifetime used when a payload carries no max-age hint.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(clock ports.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]domain.Record),
		ttl:  domain.DefaultTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the stored payload so callers can't mutate store state by reference.
func (s *Store) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	if err := domain.ValidateID(sessionID); err != nil {
		return nil, domain.NewError("get", domain.KindInvalidArgument, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[sessionID]
	if !ok {
		return nil, nil
	}
	return rec.Payload.Clone(), nil
}

// Set stores a normalized copy of the payload.
func (s *Store) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError("set", domain.KindInvalidArgument, err)
	}
	if err := payload.Validate(); err != nil {
		return domain.NewError("set", domain.KindInvalidArgument, err)
	}

	expiresAt, err := payload.ExpiresAt(s.now(), s.ttl)
	if err != nil {
		return domain.NewError("set", domain.KindInvalidArgument, err)
	}

	// Round-trip through JSON so reads see exactly what a durable store would return.
	data, err := payload.Marshal()
	if err != nil {
		return domain.NewError("set", domain.KindSerialization, err)
	}
	normalized, err := domain.UnmarshalPayload(data)
	if err != nil {
		return domain.NewError("set", domain.KindSerialization, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = domain.Record{ID: sessionID, Payload: normalized, ExpiresAt: expiresAt}
	return nil
}

// Destroy removes the record.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError("destroy", domain.KindInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// All returns copies of every payload.
func (s *Store) All(ctx context.Context) ([]domain.Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payloads := make([]domain.Payload, 0, len(s.data))
	for _, rec := range s.data {
		payloads = append(payloads, rec.Payload.Clone())
	}
	return payloads, nil
}

// Length returns the number of records.
func (s *Store) Length(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Clear drops every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]domain.Record)
	return nil
}

// Touch recomputes the expiration of an existing record.
func (s *Store) Touch(ctx context.Context, sessionID string, payload domain.Payload) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError("touch", domain.KindInvalidArgument, err)
	}
	if err := payload.Validate(); err != nil {
		return domain.NewError("touch", domain.KindInvalidArgument, err)
	}

	expiresAt, err := payload.ExpiresAt(s.now(), s.ttl)
	if err != nil {
		return domain.NewError("touch", domain.KindInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[sessionID]
	if !ok {
		return nil
	}
	rec.ExpiresAt = expiresAt
	s.data[sessionID] = rec
	return nil
}

// Cleanup removes records that expired strictly before now.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, rec := range s.data {
		if rec.Expired(now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}
