// Package apperr is the error taxonomy shared by the engine and the
// HTTP boundary. Every failure a caller can act on gets a Kind; the
// api package maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Inactive
	Conflict
	Forbidden
	Unauthenticated
	InvalidState
)

// Code is the stable machine-readable string sent over the wire.
func (k Kind) Code() string {
	switch k {
	case Validation:
		return "validation_error"
	case NotFound:
		return "not_found"
	case Inactive:
		return "inactive"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	case Unauthenticated:
		return "unauthenticated"
	case InvalidState:
		return "invalid_state"
	default:
		return "internal_error"
	}
}

type Error struct {
	Kind    Kind
	Message string
	// Details carries field-level validation info when present.
	Details any
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps the cause for logs while the caller only sees Message.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, wrapped: err}
}

// KindOf classifies any error; non-taxonomy errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }
