// Package errors carries the error kinds the VSFS core can produce (spec.md
// §7): IoError, NotFound, InvalidPath. ErrNoSpaceOnDevice is an addition: the
// original C implementation scans its allocation bitmaps with no bound and
// no space check at all (spec.md §9, Open Questions flags this as
// undefined/buggy behavior for an exhausted bitmap); this core adds the
// bound rather than reproduce the array overrun. Fatal conditions (a second
// directory-overflow retry, an init sizing failure) are not represented as
// values here — see vsfs.Fatal, which panics instead.

package errors

import (
	"fmt"
	"syscall"
)

type DiskoError string

const ErrIOFailed = DiskoError("Input/output error")
const ErrNotFound = DiskoError("No such file or directory")
const ErrInvalidArgument = DiskoError("Invalid argument")
const ErrNoSpaceOnDevice = DiskoError("No space left on device")

func (e DiskoError) Error() string {
	return string(e)
}

func (e DiskoError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), message),
		errno:         e.Errno(),
		originalError: e,
	}
}

func (e DiskoError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		errno:         e.Errno(),
		originalError: err,
	}
}

// Errno returns the POSIX errno code a host shim should surface for this
// error kind.
func (e DiskoError) Errno() syscall.Errno {
	switch e {
	case ErrNotFound:
		return syscall.ENOENT
	case ErrInvalidArgument:
		return syscall.EINVAL
	case ErrNoSpaceOnDevice:
		return syscall.ENOSPC
	default:
		return syscall.EIO
	}
}
