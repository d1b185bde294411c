// Package fault defines the typed error kinds used across the admission
// pipeline. Each kind maps to an HTTP status through a fixed table; callers
// branch on the kind tag, never on message text.
package fault

import (
	"errors"
	"net/http"
)

// Kind tags an error with its pipeline failure class.
type Kind string

const (
	AuthRequired     Kind = "auth_required"
	ValidationFailed Kind = "validation_failed"
	PayloadTooLarge  Kind = "payload_too_large"
	QuotaExceeded    Kind = "quota_exceeded"
	UpstreamFailure  Kind = "upstream_failure"
	UpstreamTimeout  Kind = "upstream_timeout"
	Internal         Kind = "internal_error"

	// Bookkeeping marks logging/accounting failures. These are always
	// caught at the call site and must never change the HTTP outcome.
	Bookkeeping Kind = "bookkeeping_failure"
)

// statusByKind is the single place a kind becomes an HTTP status.
var statusByKind = map[Kind]int{
	AuthRequired:     http.StatusUnauthorized,
	ValidationFailed: http.StatusBadRequest,
	PayloadTooLarge:  http.StatusRequestEntityTooLarge,
	QuotaExceeded:    http.StatusTooManyRequests,
	UpstreamFailure:  http.StatusInternalServerError,
	UpstreamTimeout:  http.StatusGatewayTimeout,
	Internal:         http.StatusInternalServerError,
}

// HTTPStatus returns the status code for the kind, defaulting to 500 for
// anything untagged.
func (k Kind) HTTPStatus() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is an error value carrying a kind tag.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a tagged error with a human-readable message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind tag from an error chain. The second return is
// false when the error carries no tag.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}
