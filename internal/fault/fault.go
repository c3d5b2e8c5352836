// Package fault defines the error taxonomy raised by state-changing engine
// operations. Errors are reported to callers verbatim; wrap lower-level
// errors with fmt.Errorf and %w as usual, and classify the boundary error
// with one of the constructors here.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindRateLimited  Kind = "rate_limited"
)

// Error is a classified engine error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a classified error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized means the caller has no valid identity.
func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

// Forbidden means the caller is authenticated but lacks role or ownership.
func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

// NotFound means a referenced entity does not exist.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict means the operation collides with existing state, e.g. a
// duplicate slug or a duplicate active process.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// Validation means the input is missing or malformed.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// RateLimited means the caller exceeded an action window.
func RateLimited(format string, args ...any) *Error {
	return New(KindRateLimited, format, args...)
}

// KindOf returns the Kind of err, or "" if err carries no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
