package domain

import "time"

// Record is one stored row of the session table.
type Record struct {
	// ID is the session identifier (primary key).
	ID string
	// Payload is the deserialized session state.
	Payload Payload
	// ExpiresAt is the absolute expiration instant in epoch milliseconds.
	ExpiresAt int64
}

// Expired reports whether the record expires strictly before now.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt < now.UnixMilli()
}

// ExpiresTime converts ExpiresAt to a time.Time.
func (r Record) ExpiresTime() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}

// ValidateID rejects blank session identifiers.
func ValidateID(sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	return nil
}
