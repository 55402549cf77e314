// Package fsck walks a mounted image and reports every violation of the
// universal invariants in spec.md §8 without mutating anything. It exists
// purely as a diagnostic on top of the core: no free-list maintenance, no
// repair, no unlink/rmdir (spec.md's "no free-on-delete" Non-goal is
// untouched by this package).
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ebratsch/vsfs/internal/bitmap"
	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/dirent"
	"github.com/ebratsch/vsfs/internal/inode"
	"github.com/ebratsch/vsfs/internal/layout"
)

// Validate loads both bitmaps and every inode slot and cross-checks them
// against the invariants spec.md §8 states as universal:
//
//   - every set data-bitmap bit is either a reserved block (0..8) or is
//     referenced by some live inode's Pointers[0:Blocks]
//   - every set inode-bitmap bit names an inode whose Type is FILE or DIR
//   - for every inode, Size <= Blocks*BlockSize and Blocks <= K
//   - for every directory inode, the last two records in its chain are
//     "." pointing at itself and a record named ".."; the inode number
//     ".." points at is not compared with the actual parent
//
// It returns nil if the image is consistent, or a *multierror.Error
// aggregating every violation found otherwise.
func Validate(dev blockio.Device) error {
	var result *multierror.Error

	inodeBits, err := bitmap.Load(dev, layout.InodeBitmapBlock, layout.NumInodes)
	if err != nil {
		return fmt.Errorf("fsck: loading inode bitmap: %w", err)
	}
	dataBits, err := bitmap.Load(dev, layout.DataBitmapBlock, layout.NumBlocks)
	if err != nil {
		return fmt.Errorf("fsck: loading data bitmap: %w", err)
	}

	referenced := make(map[uint32]bool, layout.NumBlocks)
	for b := 0; b < layout.ReservedBlockCount; b++ {
		referenced[uint32(b)] = true
	}

	for n := uint32(0); n < layout.NumInodes; n++ {
		if !inodeBits.Get(int(n)) {
			continue
		}

		ino, err := inode.Get(dev, n)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("inode %d: %w", n, err))
			continue
		}

		if ino.Type != inode.TypeFile && ino.Type != inode.TypeDir {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: marked allocated but has invalid type %d", n, ino.Type))
			continue
		}

		if ino.Blocks > layout.DirectPointerCount {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: blocks=%d exceeds direct-pointer capacity %d",
				n, ino.Blocks, layout.DirectPointerCount))
		}
		if ino.Size > ino.Blocks*layout.BlockSize {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d: size=%d exceeds blocks*BlockSize=%d",
				n, ino.Size, ino.Blocks*layout.BlockSize))
		}

		for i := uint32(0); i < ino.Blocks && i < layout.DirectPointerCount; i++ {
			referenced[ino.Pointers[i]] = true
		}

		if ino.IsDir() {
			if err := checkDirChain(dev, n, ino); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	for b := 0; b < layout.NumBlocks; b++ {
		if dataBits.Get(b) && !referenced[uint32(b)] {
			result = multierror.Append(result, fmt.Errorf(
				"data block %d: marked allocated but referenced by no inode", b))
		}
	}

	return result.ErrorOrNil()
}

// checkDirChain verifies the last two records of inode n's directory chain
// are "." -> n and a record named "..", per spec.md §8 (prepend-at-head
// insertion means these are always the tail of the chain). The inode
// number of ".." is not checked.
func checkDirChain(dev blockio.Device, n uint32, ino inode.Inode) error {
	records, err := dirent.ReadChain(dev, ino)
	if err != nil {
		return fmt.Errorf("inode %d: reading directory chain: %w", n, err)
	}

	if len(records) < 2 {
		return fmt.Errorf(
			"inode %d: directory chain has %d records, need at least . and ..",
			n, len(records))
	}

	dot := records[len(records)-2]
	dotdot := records[len(records)-1]

	if dot.Name != "." || dot.Inum != n {
		return fmt.Errorf(
			"inode %d: expected \".\" -> %d as second-to-last record, found %q -> %d",
			n, n, dot.Name, dot.Inum)
	}
	if dotdot.Name != ".." {
		return fmt.Errorf(
			"inode %d: expected \"..\" as last record, found %q -> %d",
			n, dotdot.Name, dotdot.Inum)
	}

	return nil
}
