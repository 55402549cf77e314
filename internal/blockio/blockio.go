// Package blockio is the block-addressable I/O primitive the VSFS core
// consumes: read/write one fixed-size block by index against a backing
// stream. Per spec.md §1 this primitive is itself an external collaborator
// (a real mount would hand the core a raw device or an mmap'd file); this
// package provides the one concrete implementation the core, its tests, and
// the vsfsctl CLI all share, over anything that can seek, read, and write.
package blockio

import (
	"fmt"
	"io"

	"github.com/ebratsch/vsfs/errors"
)

// Device is the block-addressable I/O interface the core depends on.
type Device interface {
	ReadBlock(n uint32, buf []byte) error
	WriteBlock(n uint32, buf []byte) error
	BlockSize() int
	BlockCount() uint32
}

// Store is a Device backed by any seekable read/write stream: an *os.File
// for the CLI, or an in-memory github.com/xaionaro-go/bytesextra stream for
// tests (see internal/vsfstest).
type Store struct {
	stream     io.ReadWriteSeeker
	blockSize  int
	blockCount uint32
}

// New wraps stream as a Device of blockCount blocks of blockSize bytes each.
// The caller is responsible for ensuring stream is at least
// blockSize*blockCount bytes long.
func New(stream io.ReadWriteSeeker, blockSize int, blockCount uint32) *Store {
	return &Store{stream: stream, blockSize: blockSize, blockCount: blockCount}
}

func (s *Store) BlockSize() int {
	return s.blockSize
}

func (s *Store) BlockCount() uint32 {
	return s.blockCount
}

func (s *Store) checkBounds(n uint32, bufLen int) error {
	if n >= s.blockCount {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("block %d out of range [0, %d)", n, s.blockCount))
	}
	if bufLen != s.blockSize {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("buffer is %d bytes, expected exactly %d", bufLen, s.blockSize))
	}
	return nil
}

// ReadBlock fills buf (which must be exactly BlockSize() bytes) with the
// contents of block n.
func (s *Store) ReadBlock(n uint32, buf []byte) error {
	if err := s.checkBounds(n, len(buf)); err != nil {
		return err
	}

	offset := int64(n) * int64(s.blockSize)
	if _, err := s.stream.Seek(offset, io.SeekStart); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	if _, err := io.ReadFull(s.stream, buf); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// WriteBlock persists buf (which must be exactly BlockSize() bytes) as
// block n.
func (s *Store) WriteBlock(n uint32, buf []byte) error {
	if err := s.checkBounds(n, len(buf)); err != nil {
		return err
	}

	offset := int64(n) * int64(s.blockSize)
	if _, err := s.stream.Seek(offset, io.SeekStart); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	if _, err := s.stream.Write(buf); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}
