// Package domainerrors defines the coded error type shared by all CareLink
// services. Services create or wrap errors with a Code; the HTTP layer maps
// codes to status lines without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and caller branching.
type Code string

const (
	// CodeValidation marks user-correctable input problems, raised before any write.
	CodeValidation Code = "validation"
	// CodeUnauthorized marks missing or unusable credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks authenticated callers acting outside their rights,
	// e.g. touching another user's notifications. Never downgraded to a no-op.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks operations on deleted or missing records.
	CodeNotFound Code = "not_found"
	// CodeConflict marks results the caller can resolve, such as a caregiver
	// double-assignment awaiting confirmation.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks internal state that should be impossible.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable marks optional infrastructure that is not configured or
	// not reachable, like the realtime push channel.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks store or transport failures propagated unchanged.
	CodeInternal Code = "internal"
)

// Error is the concrete coded error. Use New or Wrap instead of constructing
// it directly so the cause chain stays intact.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause remains
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// UserMessage returns the message of the outermost coded error, or an empty
// string for uncoded errors so handlers never leak internals verbatim.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to the HTTP status used by the shared error writer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
