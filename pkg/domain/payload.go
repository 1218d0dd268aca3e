package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultTTL is applied when a payload carries no max-age hint.
const DefaultTTL = 24 * time.Hour

// MaxAgeKey is the payload field holding the max-age hint, in milliseconds.
// It is looked up at the top level first, then inside CookieKey.
const (
	MaxAgeKey = "maxAge"
	CookieKey = "cookie"
)

// ErrInvalidMaxAge is returned (wrapped as KindInvalidArgument) when the hint is not a number.
var ErrInvalidMaxAge = errors.New("maxAge must be a number of milliseconds")

// Payload is the structured session state. It is opaque to the store except for the
// max-age hint. Values round-trip through JSON, so numbers come back as float64.
type Payload map[string]any

// MaxAge returns the max-age hint in milliseconds.
// ok is false when no hint is present (missing or null), in which case the default applies.
func (p Payload) MaxAge() (ms int64, ok bool, err error) {
	if v, found := p[MaxAgeKey]; found && v != nil {
		return toMillis(v)
	}

	var cookie map[string]any
	switch c := p[CookieKey].(type) {
	case map[string]any:
		cookie = c
	case Payload:
		cookie = c
	default:
		return 0, false, nil
	}

	if v, found := cookie[MaxAgeKey]; found && v != nil {
		return toMillis(v)
	}
	return 0, false, nil
}

// ExpiresAt computes the absolute expiration (epoch milliseconds) for a write happening at now.
func (p Payload) ExpiresAt(now time.Time, defaultTTL time.Duration) (int64, error) {
	ms, ok, err := p.MaxAge()
	if err != nil {
		return 0, err
	}
	if !ok {
		ms = defaultTTL.Milliseconds()
	}

	at := now.UnixMilli()
	if (ms > 0 && at > math.MaxInt64-ms) || (ms < 0 && at < math.MinInt64-ms) {
		return 0, fmt.Errorf("%w: %d overflows the expiration time", ErrInvalidMaxAge, ms)
	}
	return at + ms, nil
}

func toMillis(v any) (int64, bool, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return int64(n), true, nil
	case int8:
		return int64(n), true, nil
	case int16:
		return int64(n), true, nil
	case int32:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case uint:
		f = float64(n)
	case uint8:
		return int64(n), true, nil
	case uint16:
		return int64(n), true, nil
	case uint32:
		return int64(n), true, nil
	case uint64:
		f = float64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true, nil
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q", ErrInvalidMaxAge, n.String())
		}
		f = parsed
	default:
		return 0, false, fmt.Errorf("%w: got %T", ErrInvalidMaxAge, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f >= 1<<63 || f < math.MinInt64 {
		return 0, false, fmt.Errorf("%w: %v out of range", ErrInvalidMaxAge, f)
	}
	return int64(f), true, nil
}

// Validate checks the only parts of a payload the store reads.
func (p Payload) Validate() error {
	if p == nil {
		return ErrNilPayload
	}
	_, _, err := p.MaxAge()
	return err
}

// Marshal serializes the payload for storage.
func (p Payload) Marshal() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// UnmarshalPayload decodes a stored payload. A stored JSON null is rejected since writes never
// persist a nil payload.
func UnmarshalPayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if p == nil {
		return nil, errors.New("failed to unmarshal payload: stored value is null")
	}
	return p, nil
}

// Clone returns a deep copy of nested maps and slices. Scalars are shared.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return cloneMap(p)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Payload:
		return Payload(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
