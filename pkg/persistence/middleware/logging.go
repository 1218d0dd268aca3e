package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.SessionStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every operation at debug level and every failure at error level.
// Payload contents are never logged.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.SessionStore) ports.SessionStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op string, start time.Time, err error, attrs ...any) {
	attrs = append(attrs, "op", op, "duration", time.Since(start))
	if err != nil {
		attrs = append(attrs, "kind", domain.KindOf(err).String(), "err", err)
		m.logger.ErrorContext(ctx, "session store operation failed", attrs...)
		return
	}
	m.logger.DebugContext(ctx, "session store operation", attrs...)
}

func (m *loggingMiddleware) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	start := time.Now()
	payload, err := m.next.Get(ctx, sessionID)
	m.log(ctx, "get", start, err, "session_id", sessionID, "found", payload != nil)
	return payload, err
}

func (m *loggingMiddleware) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	start := time.Now()
	err := m.next.Set(ctx, sessionID, payload)
	m.log(ctx, "set", start, err, "session_id", sessionID)
	return err
}

func (m *loggingMiddleware) Destroy(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := m.next.Destroy(ctx, sessionID)
	m.log(ctx, "destroy", start, err, "session_id", sessionID)
	return err
}

func (m *loggingMiddleware) All(ctx context.Context) ([]domain.Payload, error) {
	start := time.Now()
	payloads, err := m.next.All(ctx)
	m.log(ctx, "all", start, err, "count", len(payloads))
	return payloads, err
}

func (m *loggingMiddleware) Length(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := m.next.Length(ctx)
	m.log(ctx, "length", start, err, "count", n)
	return n, err
}

func (m *loggingMiddleware) Clear(ctx context.Context) error {
	start := time.Now()
	err := m.next.Clear(ctx)
	m.log(ctx, "clear", start, err)
	return err
}

func (m *loggingMiddleware) Touch(ctx context.Context, sessionID string, payload domain.Payload) error {
	start := time.Now()
	err := m.next.Touch(ctx, sessionID, payload)
	m.log(ctx, "touch", start, err, "session_id", sessionID)
	return err
}

func (m *loggingMiddleware) Cleanup(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := m.next.Cleanup(ctx)
	m.log(ctx, "cleanup", start, err, "removed", n)
	return n, err
}
