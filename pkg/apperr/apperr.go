// Package apperr defines the abstract error kinds shared across the
// reasoning core, so every package can classify failures the same way
// without depending on each other's concrete error types.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of a closed set of abstract error categories.
type Kind string

const (
	NotFound         Kind = "not_found"
	Timeout          Kind = "timeout"
	RateLimited      Kind = "rate_limited"
	InvalidInput     Kind = "invalid_input"
	PermissionDenied Kind = "permission_denied"
	ResourceExceeded Kind = "resource_exceeded"
	Integrity        Kind = "integrity"
	Upstream         Kind = "upstream"
)

// Error wraps an underlying cause with an abstract Kind and a
// human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error of the given kind around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// httpStatusByKind maps each abstract Kind to the HTTP status the API
// layer should respond with; an unrecognized or empty Kind maps to 500.
var httpStatusByKind = map[Kind]int{
	NotFound:         http.StatusNotFound,
	Timeout:          http.StatusGatewayTimeout,
	RateLimited:      http.StatusTooManyRequests,
	InvalidInput:     http.StatusBadRequest,
	PermissionDenied: http.StatusForbidden,
	ResourceExceeded: http.StatusServiceUnavailable,
	Integrity:        http.StatusInternalServerError,
	Upstream:         http.StatusBadGateway,
}

// HTTPStatus maps err's Kind to an HTTP status code, defaulting to 500
// for an error that isn't (or doesn't wrap) an *Error.
func HTTPStatus(err error) int {
	if status, ok := httpStatusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
