// Package domainerrors defines the stable, caller-facing error taxonomy.
//
// Services produce these; infrastructure layers return sentinel errors
// (pkg/platform/sentinel) which services translate into a domain error at
// the boundary. Nothing store-specific (driver error strings, SQLSTATEs)
// should ever cross a service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error category independent of the wrapped cause.
type Code string

const (
	// CodeValidation marks a request that failed semantic validation.
	CodeValidation Code = "validation"
	// CodeBadRequest marks a request that could not be parsed or is
	// structurally malformed.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks an empty or malformed identifier. These
	// failures never touch the store.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a missing resource.
	CodeNotFound Code = "not_found"
	// CodeInvalidState marks a resource that exists but is not in a state
	// permitting the requested operation.
	CodeInvalidState Code = "invalid_state"
	// CodeUnauthorized marks a request with missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a caller that is authenticated but does not own
	// the resource being mutated.
	CodeForbidden Code = "forbidden"
	// CodeConflict marks a uniqueness violation, detected either by a
	// pre-check or by the store during commit.
	CodeConflict Code = "conflict"
	// CodeConcurrencyConflict marks a concurrent-modification signal
	// distinct from a uniqueness violation. Callers may retry.
	CodeConcurrencyConflict Code = "concurrency_conflict"
	// CodeTransient marks a transaction-level failure (rollback, timeout).
	// Callers may retry; the service never retries internally.
	CodeTransient Code = "transient"
	// CodeTimeout marks a context deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeUnavailable marks a connection or infrastructure failure.
	CodeUnavailable Code = "unavailable"
	// CodeInvariantViolation marks a broken domain invariant. Constructors
	// return these; services convert them to validation errors at the API
	// boundary.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal is the catch-all for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a tagged domain error. Message is stable and suitable for
// direct display; Err carries the internal cause and is never serialized.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with a stable display message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying cause with a domain code and display
// message. The cause stays reachable through errors.Unwrap but its text
// must not be shown to callers.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err or any error in its chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code in err's chain, or
// CodeInternal when err carries no domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost display message in err's chain, or a
// generic message when err carries no domain error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
