package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies registry errors.
type ErrorKind uint8

const (
	// KindConfig is a configuration error found while the registry is being
	// built. The offending definition is rejected and Open fails.
	KindConfig ErrorKind = iota

	// KindRequest is a failed client request. It has no side effects.
	KindRequest

	// KindInvariant is an internal inconsistency.
	KindInvariant
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindRequest:
		return "request"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is a classified registry error naming the entity involved.
type Error struct {
	Kind   ErrorKind
	Entity string
	Err    error
}

// Error returns the entity followed by the underlying message.
func (e *Error) Error() string {
	if e.Entity == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return hasKind(err, KindConfig) }

// IsRequestError reports whether err is a failed client request.
func IsRequestError(err error) bool { return hasKind(err, KindRequest) }

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Message returns the innermost message of err without the entity prefix,
// suitable for a protocol error response.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Err.Error()
	}
	return err.Error()
}

func requestError(entity string, err error) error {
	return &Error{Kind: KindRequest, Entity: entity, Err: err}
}
