// Package errors carries coded errors through the trading stack. Every error
// crossing a package boundary gets a numeric code, so callers branch on
// HasCode instead of matching message strings, and log lines stay greppable
// by code.
//
// Code ranges by subsystem:
//   - 1-99 general
//   - 100-199 validation
//   - 200-299 event engine
//   - 300-399 gateways
//   - 400-499 strategies
//   - 500-599 orders and stop orders
//   - 600-699 storage
//   - 700-799 configuration
package errors

import (
	"errors"
	"fmt"
)

// Error is a coded error, optionally wrapping a cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New returns a coded error with a fixed message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf returns a coded error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to a cause. The cause stays reachable
// through Unwrap, so errors.Is and errors.As see the whole chain.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap exposes the cause to the standard errors helpers.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is re-exports errors.Is so callers need only one errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As re-exports errors.As so callers need only one errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the first *Error in the chain, or
// ErrCodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode reports whether the chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
