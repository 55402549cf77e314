// Package alloc is a thin wrapper over the bitmap manager (spec.md §4.2):
// it hands out the next free inode number or data-block number, in
// strictly ascending scan order. There is no hint, no rotation, and no
// deallocation path — matching the core's scope (spec.md §1 Non-goals).
package alloc

import (
	"github.com/ebratsch/vsfs/internal/bitmap"
	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/layout"

	vfserrors "github.com/ebratsch/vsfs/errors"
)

// Allocator hands out inode and data-block numbers against a device.
type Allocator struct {
	dev blockio.Device
}

// New creates an Allocator over dev.
func New(dev blockio.Device) *Allocator {
	return &Allocator{dev: dev}
}

// NextFreeInode loads the inode bitmap, scans ascending from
// layout.FirstAllocatableInode (skipping the reserved sentinels 0 and 1)
// for the first free slot, marks it allocated, persists the bitmap, and
// returns the slot number. The caller is responsible for writing the
// initial inode record.
func (a *Allocator) NextFreeInode() (uint32, error) {
	bm, err := bitmap.Load(a.dev, layout.InodeBitmapBlock, layout.NumInodes)
	if err != nil {
		return 0, err
	}

	idx, ok := bm.FirstClear(layout.FirstAllocatableInode)
	if !ok {
		return 0, vfserrors.ErrNoSpaceOnDevice.WithMessage("no free inode slots")
	}

	bm.Set(idx, true)
	if err := bm.Store(a.dev, layout.InodeBitmapBlock); err != nil {
		return 0, err
	}
	return uint32(idx), nil
}

// NextFreeBlock loads the data-block bitmap, scans ascending from index 0
// (the first layout.ReservedBlockCount slots are always pre-marked) for
// the first free slot, marks it allocated, persists the bitmap, and
// returns the slot number.
func (a *Allocator) NextFreeBlock() (uint32, error) {
	bm, err := bitmap.Load(a.dev, layout.DataBitmapBlock, int(a.dev.BlockCount()))
	if err != nil {
		return 0, err
	}

	idx, ok := bm.FirstClear(0)
	if !ok {
		return 0, vfserrors.ErrNoSpaceOnDevice.WithMessage("no free data blocks")
	}

	bm.Set(idx, true)
	if err := bm.Store(a.dev, layout.DataBitmapBlock); err != nil {
		return 0, err
	}
	return uint32(idx), nil
}
