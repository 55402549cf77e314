// Package vsfs implements the file operations and mount lifecycle of the
// Very Simple File System (spec.md §4.6, §4.7, §4.8): mknod, mkdir, open,
// read, write, and getattr against the inode table, directory codec, and
// block allocator, plus the init/destroy lifecycle of a disk image.
//
// The core is single-threaded and synchronous (spec.md §5): every method
// here runs one blocking sequence of block reads and writes against the
// FileSystem's single image handle, with no internal locking. A host
// wanting to serve parallel requests must serialize them externally.
package vsfs

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ebratsch/vsfs/internal/alloc"
	"github.com/ebratsch/vsfs/internal/bitmap"
	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/dirent"
	"github.com/ebratsch/vsfs/internal/inode"
	"github.com/ebratsch/vsfs/internal/layout"
	"github.com/ebratsch/vsfs/internal/pathutil"

	vfserrors "github.com/ebratsch/vsfs/errors"
)

// Options configures Mount. ImagePath is required; the rest default
// sensibly for production use and exist mainly so tests can shrink the
// geometry.
type Options struct {
	// ImagePath is the path to the backing image file.
	ImagePath string
	// BlockSize overrides layout.BlockSize. Zero means use the default.
	BlockSize int
	// NumBlocks overrides layout.NumBlocks. Zero means use the default.
	NumBlocks uint32
	// Logger receives one line per mount, mknod, mkdir, destroy, and fatal
	// abort; block allocations are not logged. A
	// nil Logger disables logging, matching spec.md §6: "A log file path
	// is resolved by the external logger," i.e. logging is the host's
	// concern, not the core's, when the core is embedded as a library.
	Logger *log.Logger
	// Fresh tells MountDevice to format the device as a brand new image
	// instead of reopening it as-is. Mount infers this itself from
	// whether ImagePath exists; MountDevice has no file to stat, so the
	// caller states it explicitly.
	Fresh bool
}

// FileStat is a stat-like record for getattr (spec.md §4.6).
type FileStat struct {
	InodeNumber uint64
	IsDir       bool
	Mode        os.FileMode
	BlockSize   int64
	Blocks      uint64
	Size        uint64
	Nlink       uint32
}

// fixedPermissionBits matches spec.md §4.6: rwx for user and group, r-x for
// others.
const fixedPermissionBits = os.FileMode(0b111_111_101) // rwxrwxr-x, i.e. 0775

// FileSystem is a mounted VSFS image: the single shared image handle plus
// the allocator that hands out inode and block numbers against it.
type FileSystem struct {
	dev    blockio.Device
	alloc  *alloc.Allocator
	file   *os.File
	logger *log.Logger
}

// Fatal is the panic value for a condition spec.md §7 calls Fatal: a
// second-attempt directory write failure, or an image-sizing failure at
// init. These are unrecoverable and the core aborts rather than returning
// an error, matching the original C implementation's abort() calls.
type Fatal struct {
	Err error
}

func (f Fatal) Error() string {
	return fmt.Sprintf("fatal: %s", f.Err)
}

func fatalf(logger *log.Logger, format string, args ...any) {
	err := fmt.Errorf(format, args...)
	if logger != nil {
		logger.Printf("FATAL: %s", err)
	}
	panic(Fatal{Err: err})
}

// Mount implements the init() lifecycle of spec.md §4.8: if the image file
// does not exist, it is created, sized, and formatted with a fresh root
// directory; otherwise the existing image is opened as-is.
func Mount(opts Options) (*FileSystem, error) {
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = layout.BlockSize
	}
	numBlocks := opts.NumBlocks
	if numBlocks == 0 {
		numBlocks = layout.NumBlocks
	}

	logger := opts.Logger

	_, statErr := os.Stat(opts.ImagePath)
	freshImage := os.IsNotExist(statErr)

	flags := os.O_RDWR
	if freshImage {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(opts.ImagePath, flags, 0o660)
	if err != nil {
		return nil, vfserrors.ErrIOFailed.WrapError(err)
	}

	fs := &FileSystem{
		file:   file,
		logger: logger,
	}

	if freshImage {
		size := int64(blockSize) * int64(numBlocks)
		if err := file.Truncate(size); err != nil {
			file.Close()
			fatalf(logger, "could not size image to %d bytes: %s", size, err)
		}
		if err := file.Sync(); err != nil {
			file.Close()
			fatalf(logger, "could not fsync freshly sized image: %s", err)
		}
	}

	fs.dev = blockio.New(file, blockSize, numBlocks)
	fs.alloc = alloc.New(fs.dev)

	if freshImage {
		fs.logMsg("creating new VSFS image at %q (%d blocks of %d bytes)", opts.ImagePath, numBlocks, blockSize)
		if err := fs.format(); err != nil {
			file.Close()
			return nil, err
		}
	} else {
		fs.logMsg("opened existing VSFS image at %q", opts.ImagePath)
	}

	return fs, nil
}

// MountDevice mounts an already-open blockio.Device directly, bypassing the
// file-lifecycle handling Mount does. It drives the core without a backing
// *os.File (internal/fsck's tests use it this way): a caller decompresses
// or constructs a device in memory (e.g. via vsfstest or
// utilities/compression), then mounts it here. opts.Fresh selects formatting a blank device versus reopening one
// that already holds a formatted image.
func MountDevice(dev blockio.Device, opts Options) (*FileSystem, error) {
	fs := &FileSystem{dev: dev, alloc: alloc.New(dev), logger: opts.Logger}

	if opts.Fresh {
		fs.logMsg("formatting in-memory VSFS image (%d blocks of %d bytes)", dev.BlockCount(), dev.BlockSize())
		if err := fs.format(); err != nil {
			return nil, err
		}
	} else {
		fs.logMsg("mounted in-memory VSFS image")
	}

	return fs, nil
}

// Device exposes the underlying block device, for callers (fsck, CLI
// introspection commands) that need to walk the image below the
// file-operation API.
func (fs *FileSystem) Device() blockio.Device {
	return fs.dev
}

// Close implements the destroy() lifecycle: close the image handle. There
// is no explicit flush beyond the per-operation writes already issued.
// MountDevice-backed instances have no *os.File to close.
func (fs *FileSystem) Close() error {
	fs.logMsg("destroy()")
	if fs.file == nil {
		return nil
	}
	return fs.file.Close()
}

func (fs *FileSystem) logMsg(format string, args ...any) {
	if fs.logger != nil {
		fs.logger.Printf(format, args...)
	}
}

// format writes the two bitmaps, the root inode, and the root directory's
// "." and ".." entries into a freshly sized, all-zero image.
func (fs *FileSystem) format() error {
	dataBitmap, err := bitmap.Load(fs.dev, layout.DataBitmapBlock, int(fs.dev.BlockCount()))
	if err != nil {
		return err
	}
	for i := 0; i < layout.ReservedBlockCount; i++ {
		dataBitmap.Set(i, true)
	}
	if err := dataBitmap.Store(fs.dev, layout.DataBitmapBlock); err != nil {
		return err
	}

	inodeBitmap, err := bitmap.Load(fs.dev, layout.InodeBitmapBlock, layout.NumInodes)
	if err != nil {
		return err
	}
	inodeBitmap.Set(layout.RootInodeNum, true)
	if err := inodeBitmap.Store(fs.dev, layout.InodeBitmapBlock); err != nil {
		return err
	}

	root := inode.Inode{Type: inode.TypeDir, Blocks: 1}
	root.Pointers[0] = layout.FirstDataBlock

	records := []dirent.Record{
		{Name: ".", Inum: layout.RootInodeNum},
		{Name: "..", Inum: layout.RootInodeNum},
	}
	size, additional, err := dirent.WriteChain(fs.dev, records, root.Pointers[:1])
	if err != nil {
		return err
	}
	if additional > 0 {
		fatalf(fs.logger, "root directory chain did not fit in its pre-allocated block")
	}
	root.Size = size

	return inode.Set(fs.dev, layout.RootInodeNum, root)
}

// Mknod creates a new regular file at path (spec.md §4.6). No parent-exists
// check is performed in the core.
func (fs *FileSystem) Mknod(path string) (uint32, error) {
	parentInum, leaf, err := fs.resolveParent(path)
	if err != nil {
		return 0, err
	}

	newInum, err := fs.alloc.NextFreeInode()
	if err != nil {
		return 0, err
	}

	newInode := inode.Inode{Type: inode.TypeFile, Size: 0, Blocks: 0}
	if err := inode.Set(fs.dev, newInum, newInode); err != nil {
		return 0, err
	}

	if err := fs.insertIntoDir(parentInum, dirent.Record{Name: leaf, Inum: newInum}); err != nil {
		return 0, err
	}

	fs.logMsg("mknod(path=%q) -> inode %d", path, newInum)
	return newInum, nil
}

// Mkdir creates a new directory at path, seeded with "." and ".." entries
// (spec.md §4.6).
func (fs *FileSystem) Mkdir(path string) (uint32, error) {
	parentInum, leaf, err := fs.resolveParent(path)
	if err != nil {
		return 0, err
	}

	newInum, err := fs.alloc.NextFreeInode()
	if err != nil {
		return 0, err
	}

	firstBlock, err := fs.alloc.NextFreeBlock()
	if err != nil {
		return 0, err
	}
	if err := zeroBlock(fs.dev, firstBlock); err != nil {
		return 0, err
	}

	newInode := inode.Inode{Type: inode.TypeDir, Blocks: 1}
	newInode.Pointers[0] = firstBlock

	records := []dirent.Record{
		{Name: ".", Inum: newInum},
		{Name: "..", Inum: parentInum},
	}
	size, additional, err := dirent.WriteChain(fs.dev, records, newInode.Pointers[:1])
	if err != nil {
		return 0, err
	}
	if additional > 0 {
		fatalf(fs.logger, "freshly allocated directory block too small for . and ..")
	}
	newInode.Size = size

	if err := inode.Set(fs.dev, newInum, newInode); err != nil {
		return 0, err
	}

	if err := fs.insertIntoDir(parentInum, dirent.Record{Name: leaf, Inum: newInum}); err != nil {
		return 0, err
	}

	fs.logMsg("mkdir(path=%q) -> inode %d", path, newInum)
	return newInum, nil
}

// Open resolves path to its inode number, the caller's opaque handle.
func (fs *FileSystem) Open(path string) (uint32, error) {
	inum, err := pathutil.Resolve(fs.dev, path)
	if err != nil {
		return 0, err
	}
	if inum < layout.RootInodeNum {
		return 0, vfserrors.ErrNotFound.WithMessage(path)
	}
	return inum, nil
}

// Getattr resolves path and fills a stat-like record.
func (fs *FileSystem) Getattr(path string) (FileStat, error) {
	inum, err := pathutil.Resolve(fs.dev, path)
	if err != nil {
		return FileStat{}, err
	}
	if inum < layout.RootInodeNum {
		return FileStat{}, vfserrors.ErrNotFound.WithMessage(path)
	}

	ino, err := inode.Get(fs.dev, inum)
	if err != nil {
		return FileStat{}, err
	}

	mode := fixedPermissionBits
	if ino.IsDir() {
		mode |= os.ModeDir
	}

	return FileStat{
		InodeNumber: uint64(inum),
		IsDir:       ino.IsDir(),
		Mode:        mode,
		BlockSize:   layout.BlockSize,
		Blocks:      uint64(ino.Blocks),
		Size:        uint64(ino.Size),
		Nlink:       1,
	}, nil
}

// Read loads inode inum and copies up to size bytes starting at offset
// into buf, returning the number of bytes copied (spec.md §4.6).
func (fs *FileSystem) Read(inum uint32, buf []byte, size, offset uint32) (int, error) {
	ino, err := inode.Get(fs.dev, inum)
	if err != nil {
		return 0, err
	}

	if offset >= ino.Size {
		return 0, nil
	}
	if offset+size > ino.Size {
		size = ino.Size - offset
	}
	if size == 0 {
		return 0, nil
	}

	blockSize := uint32(fs.dev.BlockSize())
	startBlock := offset / blockSize
	endBlock := (offset + size - 1) / blockSize

	written := 0
	block := make([]byte, blockSize)
	for cur := startBlock; cur <= endBlock; cur++ {
		if err := fs.dev.ReadBlock(ino.Pointers[cur], block); err != nil {
			return written, err
		}

		blockOffset := uint32(0)
		if cur == startBlock {
			blockOffset = offset % blockSize
		}
		toCopy := blockSize - blockOffset
		if remaining := size - uint32(written); toCopy > remaining {
			toCopy = remaining
		}

		copy(buf[written:written+int(toCopy)], block[blockOffset:blockOffset+toCopy])
		written += int(toCopy)
	}

	return written, nil
}

// Write loads inode inum, grows it with freshly allocated, zeroed blocks
// as needed, writes size bytes from buf starting at offset, and persists
// the inode (spec.md §4.6). Blocks are only ever added, never released;
// there is no truncation path. Size is set to offset+size, so a write
// that ends before the current end of file lowers Size. A write beyond
// the inode's direct-pointer capacity fails with ErrInvalidArgument, as
// there are no indirect blocks.
func (fs *FileSystem) Write(inum uint32, buf []byte, size, offset uint32) (int, error) {
	ino, err := inode.Get(fs.dev, inum)
	if err != nil {
		return 0, err
	}

	blockSize := uint32(fs.dev.BlockSize())
	required := (offset + size + blockSize - 1) / blockSize

	for ino.Blocks < required {
		if ino.Blocks >= layout.DirectPointerCount {
			return 0, vfserrors.ErrInvalidArgument.WithMessage(
				"write exceeds direct-pointer capacity; no indirect blocks")
		}

		slot := int(ino.Blocks)
		newBlock, err := fs.alloc.NextFreeBlock()
		if err != nil {
			return 0, err
		}
		if err := zeroBlock(fs.dev, newBlock); err != nil {
			return 0, err
		}
		ino.Pointers[slot] = newBlock
		ino.Blocks++
	}

	ino.Size = offset + size

	currentBlock := offset / blockSize
	blockOffset := offset % blockSize
	written := 0
	block := make([]byte, blockSize)

	for written < int(size) {
		if err := fs.dev.ReadBlock(ino.Pointers[currentBlock], block); err != nil {
			return written, err
		}

		toCopy := blockSize - blockOffset
		if remaining := int(size) - written; toCopy > uint32(remaining) {
			toCopy = uint32(remaining)
		}

		copy(block[blockOffset:blockOffset+toCopy], buf[written:written+int(toCopy)])
		if err := fs.dev.WriteBlock(ino.Pointers[currentBlock], block); err != nil {
			return written, err
		}

		written += int(toCopy)
		blockOffset = 0
		currentBlock++
	}

	if err := inode.Set(fs.dev, inum, ino); err != nil {
		return written, err
	}

	return written, nil
}

// resolveParent resolves path's parent directory and splits off the leaf
// name, failing with InvalidPath if path itself is malformed.
func (fs *FileSystem) resolveParent(path string) (parentInum uint32, leaf string, err error) {
	parentPath, leaf := pathutil.ParentAndLeaf(path)
	if _, err := pathutil.SplitPath(path); err != nil {
		return 0, "", err
	}

	parentInum, err = pathutil.Resolve(fs.dev, parentPath)
	if err != nil {
		return 0, "", err
	}
	return parentInum, leaf, nil
}

// insertIntoDir implements spec.md §4.7: load the parent inode, read its
// chain, prepend the new record, and write the chain back, allocating and
// retrying once if the existing blocks are too small. A second shortfall
// is fatal.
func (fs *FileSystem) insertIntoDir(parentInum uint32, newRec dirent.Record) error {
	parent, err := inode.Get(fs.dev, parentInum)
	if err != nil {
		return err
	}

	chain, err := dirent.ReadChain(fs.dev, parent)
	if err != nil {
		return err
	}
	chain = append([]dirent.Record{newRec}, chain...)

	size, additional, err := dirent.WriteChain(fs.dev, chain, parent.Pointers[:parent.Blocks])
	if err != nil {
		return err
	}

	if additional > 0 {
		for i := 0; i < additional; i++ {
			blockNum, err := fs.alloc.NextFreeBlock()
			if err != nil {
				return err
			}
			if err := zeroBlock(fs.dev, blockNum); err != nil {
				return err
			}
			parent.Pointers[parent.Blocks] = blockNum
			parent.Blocks++
		}

		size, additional, err = dirent.WriteChain(fs.dev, chain, parent.Pointers[:parent.Blocks])
		if err != nil {
			return err
		}
		if additional > 0 {
			fatalf(fs.logger, "directory chain overflowed twice for inode %d", parentInum)
		}
	}

	parent.Size = size
	return inode.Set(fs.dev, parentInum, parent)
}

func zeroBlock(dev blockio.Device, blockNum uint32) error {
	return dev.WriteBlock(blockNum, make([]byte, dev.BlockSize()))
}

var _ io.Closer = (*FileSystem)(nil)
