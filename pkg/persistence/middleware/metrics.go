package middleware

import (
	"context"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by the metrics middleware.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg falls back to prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessiontable_operations_total",
				Help: "Total number of session store operations",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sessiontable_operation_duration_seconds",
				Help:    "Duration of session store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	for _, c := range []prometheus.Collector{m.operations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	switch domain.KindOf(err) {
	case domain.KindInvalidArgument:
		return "invalid_argument"
	case domain.KindStorage:
		return "storage"
	case domain.KindSerialization:
		return "serialization"
	case domain.KindInitialization:
		return "initialization"
	default:
		return "error"
	}
}

// Middleware returns a Middleware that records every call into m.
func (m *Metrics) Middleware() Middleware {
	return func(next ports.SessionStore) ports.SessionStore {
		return &metricsMiddleware{next: next, metrics: m}
	}
}

type metricsMiddleware struct {
	next    ports.SessionStore
	metrics *Metrics
}

func (m *metricsMiddleware) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	start := time.Now()
	payload, err := m.next.Get(ctx, sessionID)
	m.metrics.observe("get", start, err)
	return payload, err
}

func (m *metricsMiddleware) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	start := time.Now()
	err := m.next.Set(ctx, sessionID, payload)
	m.metrics.observe("set", start, err)
	return err
}

func (m *metricsMiddleware) Destroy(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := m.next.Destroy(ctx, sessionID)
	m.metrics.observe("destroy", start, err)
	return err
}

func (m *metricsMiddleware) All(ctx context.Context) ([]domain.Payload, error) {
	start := time.Now()
	payloads, err := m.next.All(ctx)
	m.metrics.observe("all", start, err)
	return payloads, err
}

func (m *metricsMiddleware) Length(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := m.next.Length(ctx)
	m.metrics.observe("length", start, err)
	return n, err
}

func (m *metricsMiddleware) Clear(ctx context.Context) error {
	start := time.Now()
	err := m.next.Clear(ctx)
	m.metrics.observe("clear", start, err)
	return err
}

func (m *metricsMiddleware) Touch(ctx context.Context, sessionID string, payload domain.Payload) error {
	start := time.Now()
	err := m.next.Touch(ctx, sessionID, payload)
	m.metrics.observe("touch", start, err)
	return err
}

func (m *metricsMiddleware) Cleanup(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := m.next.Cleanup(ctx)
	m.metrics.observe("cleanup", start, err)
	return n, err
}
