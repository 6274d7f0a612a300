// Package apperrors defines the domain error type shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error. The string value is the machine-readable
// code written to the response envelope.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindUnauthenticated Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindInternal        Kind = "INTERNAL_SERVER_ERROR"
)

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type.
type Error struct {
	Kind    Kind
	Message string // user-facing message
	Details interface{}
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a domain error with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails attaches structured details (e.g. field errors) to the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// NotFound builds "<entity> not found".
func NotFound(entity string) *Error {
	return New(KindNotFound, entity+" not found")
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func RateLimited(message string) *Error {
	return New(KindRateLimited, message)
}

// Internal wraps an unexpected failure. The cause is logged, never returned to clients.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "Internal server error", cause)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the domain error from err's chain. Any other error is wrapped as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Sentinels usable with errors.Is.
var (
	ErrValidation      = New(KindValidation, "validation failed")
	ErrUnauthenticated = New(KindUnauthenticated, "authentication required")
	ErrForbidden       = New(KindForbidden, "forbidden")
	ErrNotFound        = New(KindNotFound, "not found")
	ErrConflict        = New(KindConflict, "conflict")
	ErrRateLimited     = New(KindRateLimited, "rate limited")
)
