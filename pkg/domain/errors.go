package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure.
type Kind int

const (
	// KindUnknown is never produced by the stores; it is the zero value.
	KindUnknown Kind = iota
	// KindInvalidArgument marks a malformed identifier, payload or notifier.
	KindInvalidArgument
	// KindStorage marks a fault of the underlying table (open, read, write, exec).
	KindStorage
	// KindSerialization marks a payload that cannot be encoded or decoded.
	KindSerialization
	// KindInitialization marks a store that could not be brought into a usable state.
	KindInitialization
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindStorage:
		return "storage failure"
	case KindSerialization:
		return "serialization failure"
	case KindInitialization:
		return "initialization failure"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *Error of the same Kind.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage failure")
	ErrSerialization   = errors.New("serialization failure")
	ErrInitialization  = errors.New("initialization failure")
)

// ErrEmptySessionID is returned (wrapped as KindInvalidArgument) for a blank identifier.
var ErrEmptySessionID = errors.New("session id cannot be empty")

// ErrNilPayload is returned (wrapped as KindInvalidArgument) when a write has no payload.
var ErrNilPayload = errors.New("payload cannot be nil")

// Error is the single failure shape reported by every store operation.
// Err keeps the original cause so callers can still match the exact driver error.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorage) and friends match on Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrStorage:
		return e.Kind == KindStorage
	case ErrSerialization:
		return e.Kind == KindSerialization
	case ErrInitialization:
		return e.Kind == KindInitialization
	}
	return false
}

// NewError builds an *Error. A nil err yields nil so call sites can wrap unconditionally.
func NewError(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf reports the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
