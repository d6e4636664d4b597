// apperr/apperr.go - Business error codes shared by services and handlers
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a business failure so handlers can map it to an HTTP status
// and callers know whether a retry makes sense.
type Code int

const (
	// CodeInvalidArgument marks malformed or rule-violating input. Not retryable.
	CodeInvalidArgument Code = iota
	// CodeNotFound marks a missing team, membership or user.
	CodeNotFound
	// CodePermissionDenied marks an authorization failure. Never retried.
	CodePermissionDenied
	// CodeUnavailable marks a lock that could not be acquired in time. Retryable.
	CodeUnavailable
	// CodeSystem marks an internal invariant violation or store failure.
	CodeSystem
)

// Error carries a code alongside a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Invalid reports a validation or business-rule failure.
func Invalid(format string, args ...interface{}) error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(format string, args ...interface{}) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Denied reports an authorization failure.
func Denied(format string, args ...interface{}) error {
	return &Error{Code: CodePermissionDenied, Message: fmt.Sprintf(format, args...)}
}

// Unavailable reports a failed lock acquisition within the caller's deadline.
func Unavailable(format string, args ...interface{}) error {
	return &Error{Code: CodeUnavailable, Message: fmt.Sprintf(format, args...)}
}

// System wraps an internal failure. The cause is kept for logging but must
// not be surfaced to callers verbatim.
func System(message string, cause error) error {
	return &Error{Code: CodeSystem, Message: message, Err: cause}
}

// CodeOf extracts the code from err. Unclassified errors count as system errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeSystem
}

// MessageOf returns the caller-safe message for err. System errors are
// collapsed to an opaque message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeSystem {
		return e.Message
	}
	return "internal server error"
}
