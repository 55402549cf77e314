// Package inode implements the inode table (spec.md §4.3): fixed-size
// records packed across layout.NumInodeTableBlocks blocks starting at
// layout.InodeTableStartBlock. Get/Set compute the byte offset of a given
// inode number, read or read-modify-write the enclosing block, and decode
// or encode exactly one record, preserving its neighbors.
package inode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/layout"

	vfserrors "github.com/ebratsch/vsfs/errors"
)

// Type distinguishes a regular file from a directory.
type Type uint32

const (
	TypeFile Type = 1
	TypeDir  Type = 2
)

// Inode is the fixed-size on-disk inode record. Pointers entries beyond
// index Blocks-1 are zero ("unused"); there are no indirect blocks, so
// Blocks never exceeds layout.DirectPointerCount.
type Inode struct {
	Type     Type
	Size     uint32
	Blocks   uint32
	Pointers [layout.DirectPointerCount]uint32
}

// IsDir reports whether this inode describes a directory.
func (ino *Inode) IsDir() bool {
	return ino.Type == TypeDir
}

func offsetOf(n uint32) (blockNum uint32, byteOffset int) {
	absolute := int(n) * layout.InodeRecordSize
	blockIndex := absolute / layout.BlockSize
	return uint32(layout.InodeTableStartBlock + blockIndex), absolute % layout.BlockSize
}

// Get reads inode n from the packed inode table.
func Get(dev blockio.Device, n uint32) (Inode, error) {
	if n >= layout.NumInodes {
		return Inode{}, vfserrors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("inode %d out of range [0, %d)", n, layout.NumInodes))
	}

	blockNum, byteOffset := offsetOf(n)
	block := make([]byte, dev.BlockSize())
	if err := dev.ReadBlock(blockNum, block); err != nil {
		return Inode{}, err
	}

	var ino Inode
	reader := bytes.NewReader(block[byteOffset : byteOffset+layout.InodeRecordSize])
	if err := binary.Read(reader, binary.LittleEndian, &ino); err != nil {
		return Inode{}, vfserrors.ErrIOFailed.WrapError(err)
	}
	return ino, nil
}

// Set writes ino as inode n, preserving every other record packed into the
// same block via read-modify-write.
func Set(dev blockio.Device, n uint32, ino Inode) error {
	if n >= layout.NumInodes {
		return vfserrors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("inode %d out of range [0, %d)", n, layout.NumInodes))
	}

	blockNum, byteOffset := offsetOf(n)
	block := make([]byte, dev.BlockSize())
	if err := dev.ReadBlock(blockNum, block); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &ino); err != nil {
		return vfserrors.ErrIOFailed.WrapError(err)
	}
	copy(block[byteOffset:byteOffset+layout.InodeRecordSize], buf.Bytes())

	return dev.WriteBlock(blockNum, block)
}
