package errors

import (
	"fmt"
	"syscall"
)

// DriverError is the interface every VSFS error satisfies: a normal `error`
// plus the ability to layer on more context without losing the original
// sentinel for `errors.Is` matching, and the POSIX errno a host shim
// should surface.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
	Errno() syscall.Errno
}

// -----------------------------------------------------------------------------

type customDriverError struct {
	message       string
	errno         syscall.Errno
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) Errno() syscall.Errno {
	return e.errno
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		errno:         e.errno,
		originalError: e,
	}
}

func (e customDriverError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		errno:         e.errno,
		originalError: err,
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
