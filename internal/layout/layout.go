// Package layout defines the positional, bit-exact on-disk geometry of a
// VSFS image: block numbering, the bitmap and inode-table regions, and the
// fixed sizes of the inode and directory-entry records.
//
// Changing any constant here is an incompatible format change (spec.md §6).
package layout

const (
	// BlockSize is the size in bytes of a single addressable block.
	BlockSize = 512

	// NumBlocks is the default total block count of a freshly initialized
	// image. The data-block bitmap occupies exactly one block, so this must
	// not exceed BlockSize.
	NumBlocks = 512

	// SuperblockNum is the reserved/unused superblock slot.
	SuperblockNum = 0
	// InodeBitmapBlock holds the inode allocation bitmap, one byte per
	// tracked inode slot.
	InodeBitmapBlock = 1
	// DataBitmapBlock holds the data-block allocation bitmap, one byte per
	// tracked data block.
	DataBitmapBlock = 2

	// InodeTableStartBlock is the first block of the packed inode table.
	InodeTableStartBlock = 3
	// NumInodeTableBlocks is the number of blocks the inode table spans.
	NumInodeTableBlocks = 5

	// FirstDataBlock is pre-allocated at init to hold the root directory.
	FirstDataBlock = 8
	// FirstFreeDataBlock is the first block the allocator may hand out.
	FirstFreeDataBlock = 9
	// ReservedBlockCount is the number of blocks marked allocated at init
	// (0..ReservedBlockCount-1).
	ReservedBlockCount = 9

	// MaxFilename is the longest name a directory entry may carry.
	MaxFilename = 28
	// MaxPathDepth bounds the number of components a path may have.
	MaxPathDepth = 32

	// DirectPointerCount is K, the number of direct block pointers an inode
	// carries. There are no indirect blocks.
	DirectPointerCount = 13

	// InodeRecordSize is the on-disk encoded size of one inode record, in
	// bytes: Type, Size, Blocks (uint32 each) plus DirectPointerCount
	// pointers (uint32 each).
	InodeRecordSize = 4 + 4 + 4 + 4*DirectPointerCount
	// InodesPerBlock is how many packed inode records fit in one block.
	InodesPerBlock = BlockSize / InodeRecordSize
	// NumInodes is the total number of inode slots tracked by the inode
	// bitmap and addressable in the inode table.
	NumInodes = NumInodeTableBlocks * InodesPerBlock

	// RootInodeNum is the entry point for all path resolution. Inodes 0 and
	// 1 are reserved sentinels.
	RootInodeNum = 2
	// FirstAllocatableInode is where the allocator's ascending scan starts.
	FirstAllocatableInode = RootInodeNum

	// DirentNameFieldSize is the fixed width of a directory entry's name
	// field, including any trailing NUL padding.
	DirentNameFieldSize = MaxFilename
	// DirentRecordSize is the on-disk encoded size of one directory entry:
	// a fixed-width name plus a uint32 inode number.
	DirentRecordSize = DirentNameFieldSize + 4
	// DirentsPerBlock is how many directory entries fit in one data block.
	DirentsPerBlock = BlockSize / DirentRecordSize
)

func init() {
	if InodeRecordSize*InodesPerBlock > BlockSize {
		panic("layout: inode records do not pack evenly into a block")
	}
	if NumInodeTableBlocks*BlockSize != NumInodes*InodeRecordSize {
		panic("layout: inode table size does not exactly match inode count")
	}
	if DirentRecordSize*DirentsPerBlock > BlockSize {
		panic("layout: directory records do not pack evenly into a block")
	}
	if NumInodes > BlockSize {
		panic("layout: inode bitmap does not fit in a single block")
	}
	if NumBlocks > BlockSize {
		panic("layout: data-block bitmap does not fit in a single block")
	}
	if FirstDataBlock >= FirstFreeDataBlock {
		panic("layout: first allocatable block must follow the pre-reserved root block")
	}
}
