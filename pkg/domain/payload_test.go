package domain_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_MaxAge(t *testing.T) {
	tests := []struct {
		name    string
		payload domain.Payload
		wantMS  int64
		wantOK  bool
		wantErr bool
	}{
		{"no hint", domain.Payload{"userId": 1.0}, 0, false, false},
		{"top level float", domain.Payload{"maxAge": 1.0}, 1, true, false},
		{"top level int", domain.Payload{"maxAge": 60000}, 60000, true, false},
		{"cookie hint", domain.Payload{"cookie": map[string]any{"maxAge": 5000.0}}, 5000, true, false},
		{"nested payload cookie", domain.Payload{"cookie": domain.Payload{"maxAge": 7}}, 7, true, false},
		{"top level wins", domain.Payload{"maxAge": 1, "cookie": map[string]any{"maxAge": 2}}, 1, true, false},
		{"null hint falls back", domain.Payload{"cookie": map[string]any{"maxAge": nil}}, 0, false, false},
		{"json number", domain.Payload{"maxAge": json.Number("250")}, 250, true, false},
		{"negative", domain.Payload{"maxAge": -10}, -10, true, false},
		{"string hint", domain.Payload{"maxAge": "soon"}, 0, false, true},
		{"cookie not a map", domain.Payload{"cookie": "plain"}, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, ok, err := tt.payload.MaxAge()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidMaxAge)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMS, ms)
		})
	}
}

func TestPayload_ExpiresAt(t *testing.T) {
	now := time.UnixMilli(1000)

	t.Run("hint", func(t *testing.T) {
		exp, err := domain.Payload{"userId": 123.0, "maxAge": 1.0}.ExpiresAt(now, domain.DefaultTTL)
		require.NoError(t, err)
		assert.Equal(t, int64(1001), exp)
	})

	t.Run("default", func(t *testing.T) {
		exp, err := domain.Payload{"userId": 123.0}.ExpiresAt(now, domain.DefaultTTL)
		require.NoError(t, err)
		assert.Equal(t, int64(1000+86400000), exp)
	})

	t.Run("invalid hint", func(t *testing.T) {
		_, err := domain.Payload{"maxAge": true}.ExpiresAt(now, domain.DefaultTTL)
		assert.ErrorIs(t, err, domain.ErrInvalidMaxAge)
	})

	t.Run("out of range", func(t *testing.T) {
		tests := []struct {
			name    string
			payload domain.Payload
		}{
			{"max int64", domain.Payload{"maxAge": int64(math.MaxInt64)}},
			{"two to the 63 as float", domain.Payload{"maxAge": float64(1 << 63)}},
			{"max uint64", domain.Payload{"maxAge": uint64(math.MaxUint64)}},
			{"cookie max int64", domain.Payload{"cookie": map[string]any{"maxAge": int64(math.MaxInt64)}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.payload.ExpiresAt(now, domain.DefaultTTL)
				assert.ErrorIs(t, err, domain.ErrInvalidMaxAge)
			})
		}
	})

	t.Run("large but representable", func(t *testing.T) {
		exp, err := domain.Payload{"maxAge": 9e18}.ExpiresAt(now, domain.DefaultTTL)
		require.NoError(t, err)
		assert.Equal(t, int64(9e18)+1000, exp)
	})
}

func TestPayload_Validate(t *testing.T) {
	assert.ErrorIs(t, domain.Payload(nil).Validate(), domain.ErrNilPayload)
	assert.NoError(t, domain.Payload{}.Validate())
	assert.ErrorIs(t, domain.Payload{"maxAge": []any{1}}.Validate(), domain.ErrInvalidMaxAge)
}

func TestPayload_MarshalRoundTrip(t *testing.T) {
	original := domain.Payload{
		"userId": 123.0,
		"cookie": map[string]any{"maxAge": 1.0, "path": "/"},
		"roles":  []any{"admin", "editor"},
	}

	data, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := domain.UnmarshalPayload(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestUnmarshalPayload_Errors(t *testing.T) {
	_, err := domain.UnmarshalPayload([]byte("{not json"))
	assert.Error(t, err)

	_, err = domain.UnmarshalPayload([]byte("null"))
	assert.Error(t, err)

	_, err = domain.UnmarshalPayload([]byte("[1,2]"))
	assert.Error(t, err)
}

func TestPayload_Clone(t *testing.T) {
	original := domain.Payload{"cookie": map[string]any{"maxAge": 1.0}, "list": []any{map[string]any{"a": 1.0}}}
	clone := original.Clone()

	clone["cookie"].(map[string]any)["maxAge"] = 2.0
	clone["list"].([]any)[0].(map[string]any)["a"] = 2.0

	assert.Equal(t, 1.0, original["cookie"].(map[string]any)["maxAge"])
	assert.Equal(t, 1.0, original["list"].([]any)[0].(map[string]any)["a"])
	assert.Nil(t, domain.Payload(nil).Clone())
}

func TestRecord_Expired(t *testing.T) {
	r := domain.Record{ID: "a", ExpiresAt: 1000}
	assert.False(t, r.Expired(time.UnixMilli(1000)), "expiry is strictly before now")
	assert.True(t, r.Expired(time.UnixMilli(1001)))
	assert.Equal(t, int64(1000), r.ExpiresTime().UnixMilli())
}
