// Package errs defines the coded application errors shared by the command
// path and the scheduled path.
package errs

import (
	"errors"
	"fmt"
)

// Error codes used across the application.
const (
	CodeUnknown         = "UNKNOWN"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeStorage         = "STORAGE"
	CodeBackend         = "BACKEND"
	CodeTransport       = "TRANSPORT"
	CodeConfig          = "CONFIG"
)

// ApplicationError is implemented by every error created in this package.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is a coded error with an optional cause.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

// Code returns the error code.
func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Message returns the message without the wrapped cause.
func (e *Error) Message() string {
	return e.message
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

func newError(code, message string, cause error) error {
	return &Error{code: code, message: message, err: cause}
}

// InvalidArgument reports a malformed or missing user-supplied argument.
func InvalidArgument(message string) error {
	return newError(CodeInvalidArgument, message, nil)
}

// InvalidArgumentf is InvalidArgument with formatting.
func InvalidArgumentf(format string, args ...any) error {
	return newError(CodeInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// Storage wraps a failure of the message store.
func Storage(message string, cause error) error {
	return newError(CodeStorage, message, cause)
}

// Backend wraps a failure of the generative backend.
func Backend(message string, cause error) error {
	return newError(CodeBackend, message, cause)
}

// Transport wraps a failure to fetch media from or send to the chat transport.
func Transport(message string, cause error) error {
	return newError(CodeTransport, message, cause)
}

// Config wraps a configuration loading or validation failure.
func Config(message string, cause error) error {
	return newError(CodeConfig, message, cause)
}
