package ports

import (
	"context"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
)

// Clock returns the current time. Stores take one so expiry can be tested deterministically.
type Clock func() time.Time

// SessionStore is the session table: identifier -> (payload, expiresAt).
//
// Every method reports failure as a *domain.Error (see domain.Kind). Reads never filter
// expired records; callers are expected to run Cleanup periodically.
type SessionStore interface {
	// Get returns the payload stored for sessionID, or (nil, nil) when there is none.
	Get(ctx context.Context, sessionID string) (domain.Payload, error)

	// Set upserts the payload and sets expiresAt from its max-age hint or the default TTL.
	Set(ctx context.Context, sessionID string, payload domain.Payload) error

	// Destroy removes the record. A missing record is not an error.
	Destroy(ctx context.Context, sessionID string) error

	// All returns every stored payload in unspecified order. Never nil.
	All(ctx context.Context) ([]domain.Payload, error)

	// Length returns the number of stored records.
	Length(ctx context.Context) (int, error)

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Touch recomputes expiresAt for an existing record without rewriting its payload.
	// A missing record is not an error.
	Touch(ctx context.Context, sessionID string, payload domain.Payload) error

	// Cleanup removes every record whose expiresAt is strictly before now and reports how many.
	Cleanup(ctx context.Context) (int64, error)
}
