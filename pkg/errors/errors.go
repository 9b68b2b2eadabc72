package errors

import (
	"errors"
	"fmt"
)

// Error is a coded failure carried from the fetch/cache pipeline up to main.
// The code identifies the failure class; the internal error keeps the cause
// for logging.
type Error struct {
	Code     string
	Message  string
	Internal error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches errors by code so that sentinel comparisons survive WithInternal
// copies.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e != nil && other != nil && e.Code == other.Code
}

// WithInternal returns a copy of the Error with an attached cause.
func (e *Error) WithInternal(err error) *Error {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Failure classes produced by the pipeline. All of them are fatal; none is
// retried.
var (
	ErrTransport = &Error{
		Code:    "TRANSPORT_FAILED",
		Message: "upstream request failed",
	}

	ErrSchema = &Error{
		Code:    "SCHEMA_VIOLATION",
		Message: "response row violates the declared schema",
	}

	ErrBadValue = &Error{
		Code:    "VALUE_UNPARSEABLE",
		Message: "numeric field could not be parsed",
	}

	ErrUnknownTerm = &Error{
		Code:    "UNKNOWN_TERM",
		Message: "security term is not in the supported set",
	}

	ErrPayloadCodec = &Error{
		Code:    "PAYLOAD_CODEC",
		Message: "cached payload could not be decoded",
	}
)

// New builds an Error with the provided code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap turns any error into a generic internal Error, keeping the cause.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:     "INTERNAL_ERROR",
		Message:  message,
		Internal: err,
	}
}
