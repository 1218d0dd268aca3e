package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpAdapter "github.com/aretw0/sessiontable/internal/adapters/http"
	"github.com/aretw0/sessiontable/internal/logging"
	"github.com/aretw0/sessiontable/pkg/adapters/memory"
	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/persistence/middleware"
	"github.com/aretw0/sessiontable/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{ ports.SessionStore }

func (brokenStore) Length(context.Context) (int, error) {
	return 0, domain.NewError("length", domain.KindStorage, errors.New("database is locked"))
}

func TestHealthz(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Set(context.Background(), "a", domain.Payload{}))

	handler := httpAdapter.NewHandler(store, prometheus.NewRegistry(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 1.0, body["sessions"])
}

func TestHealthz_Unavailable(t *testing.T) {
	handler := httpAdapter.NewHandler(brokenStore{}, prometheus.NewRegistry(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := middleware.NewMetrics(reg)
	require.NoError(t, err)
	store := metrics.Middleware()(memory.NewStore())

	_, err = store.Cleanup(context.Background())
	require.NoError(t, err)

	handler := httpAdapter.NewHandler(store, reg, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sessiontable_operations_total{op="cleanup",outcome="ok"} 1`)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	handler := httpAdapter.NewHandler(memory.NewStore(), prometheus.NewRegistry(), nil)

	done := make(chan error, 1)
	go func() { done <- httpAdapter.Serve(ctx, addr, handler, logging.NewNop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
