package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

// Mask replaces the value of every key matched by a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	passthrough
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of keys matching the patterns
// before they are written. Reads return what was stored, masks included.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{passthrough: passthrough{next: next}, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	if payload == nil {
		return m.next.Set(ctx, sessionID, payload)
	}

	// Mask a copy so the caller's payload is left untouched.
	cloned := payload.Clone()
	maskMap(cloned, m.patterns)

	return m.next.Set(ctx, sessionID, cloned)
}

// Helpers

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if k == domain.MaxAgeKey {
			continue
		}

		// The cookie carries the max-age hint, so it is only ever masked field by field.
		if !(k == domain.CookieKey && isMap(v)) && matchesAny(k, patterns) {
			m[k] = Mask
			continue
		}

		switch child := v.(type) {
		case map[string]any:
			maskMap(child, patterns)
		case domain.Payload:
			maskMap(child, patterns)
		case []any:
			for _, item := range child {
				if sub, ok := item.(map[string]any); ok {
					maskMap(sub, patterns)
				}
			}
		}
	}
}

func isMap(v any) bool {
	switch v.(type) {
	case map[string]any, domain.Payload:
		return true
	}
	return false
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
