package errors_test

import (
	stderrors "errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	vfserrors "github.com/ebratsch/vsfs/errors"
)

func TestDiskoErrorWithMessage(t *testing.T) {
	newErr := vfserrors.ErrNotFound.WithMessage("/no/such/path")
	assert.Equal(t, "No such file or directory: /no/such/path", newErr.Error())
	assert.ErrorIs(t, newErr, vfserrors.ErrNotFound)
}

func TestDiskoErrorWrap(t *testing.T) {
	originalErr := stderrors.New("short read")
	newErr := vfserrors.ErrIOFailed.WrapError(originalErr)

	assert.EqualValues(t, "Input/output error: short read", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr)
}

func TestErrnoSurvivesChainedMessages(t *testing.T) {
	chained := vfserrors.ErrNoSpaceOnDevice.WithMessage("allocating block").WithMessage("mkdir /a/b/c")
	assert.Equal(t, syscall.ENOSPC, chained.Errno())
	assert.ErrorIs(t, chained, vfserrors.ErrNoSpaceOnDevice)
}

func TestErrnoMapping(t *testing.T) {
	assert.Equal(t, syscall.ENOENT, vfserrors.ErrNotFound.Errno())
	assert.Equal(t, syscall.EINVAL, vfserrors.ErrInvalidArgument.Errno())
	assert.Equal(t, syscall.ENOSPC, vfserrors.ErrNoSpaceOnDevice.Errno())
	assert.Equal(t, syscall.EIO, vfserrors.ErrIOFailed.Errno())
}
