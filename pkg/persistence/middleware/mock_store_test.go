package middleware_test

import (
	"context"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
// A non-nil Err makes every call fail with it.
type MockStore struct {
	data    map[string]domain.Payload
	touched map[string]domain.Payload
	Err     error
}

func NewMockStore() *MockStore {
	return &MockStore{
		data:    make(map[string]domain.Payload),
		touched: make(map[string]domain.Payload),
	}
}

func (s *MockStore) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.data[sessionID], nil
}

func (s *MockStore) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	if s.Err != nil {
		return s.Err
	}
	if payload == nil {
		return domain.NewError("set", domain.KindInvalidArgument, domain.ErrNilPayload)
	}
	s.data[sessionID] = payload
	return nil
}

func (s *MockStore) Destroy(ctx context.Context, sessionID string) error {
	if s.Err != nil {
		return s.Err
	}
	delete(s.data, sessionID)
	return nil
}

func (s *MockStore) All(ctx context.Context) ([]domain.Payload, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]domain.Payload, 0, len(s.data))
	for _, p := range s.data {
		out = append(out, p)
	}
	return out, nil
}

func (s *MockStore) Length(ctx context.Context) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return len(s.data), nil
}

func (s *MockStore) Clear(ctx context.Context) error {
	if s.Err != nil {
		return s.Err
	}
	s.data = make(map[string]domain.Payload)
	return nil
}

func (s *MockStore) Touch(ctx context.Context, sessionID string, payload domain.Payload) error {
	if s.Err != nil {
		return s.Err
	}
	s.touched[sessionID] = payload
	return nil
}

func (s *MockStore) Cleanup(ctx context.Context) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return 0, nil
}

var _ ports.SessionStore = (*MockStore)(nil)
