package vsfs

import (
	"errors"
	"syscall"
)

// OperationTable is the record of function pointers consumed by a host
// kernel-operation dispatch shim (spec.md §6) — the FUSE-like mount loop
// itself is out of scope for the core; this is the table such a shim
// would invoke operations from.
type OperationTable struct {
	Mknod   func(path string) int
	Mkdir   func(path string) int
	Open    func(path string, fd *uint32) int
	Read    func(inum uint32, buf []byte, size, offset uint32) int
	Write   func(inum uint32, buf []byte, size, offset uint32) int
	Getattr func(path string, stat *FileStat) int
	Init    func() error
	Destroy func() error
}

// errnoOf extracts the POSIX errno a DriverError-shaped error carries, or
// EIO if err doesn't carry one.
func errnoOf(err error) syscall.Errno {
	var de interface{ Errno() syscall.Errno }
	if errors.As(err, &de) {
		return de.Errno()
	}
	return syscall.EIO
}

// OperationTable builds the external operation table bound to this
// mounted file system. Open also serves as opendir: the table has no
// separate directory-handle type, matching the original's
// `my_oper.opendir = my_open` aliasing (SPEC_FULL.md §12).
func (fs *FileSystem) OperationTable() OperationTable {
	return OperationTable{
		Mknod: func(path string) int {
			if _, err := fs.Mknod(path); err != nil {
				return -int(errnoOf(err))
			}
			return 0
		},
		Mkdir: func(path string) int {
			if _, err := fs.Mkdir(path); err != nil {
				return -int(errnoOf(err))
			}
			return 0
		},
		Open: func(path string, fd *uint32) int {
			inum, err := fs.Open(path)
			if err != nil {
				return -int(errnoOf(err))
			}
			*fd = inum
			return 0
		},
		Read: func(inum uint32, buf []byte, size, offset uint32) int {
			n, err := fs.Read(inum, buf, size, offset)
			if err != nil {
				return -int(errnoOf(err))
			}
			return n
		},
		Write: func(inum uint32, buf []byte, size, offset uint32) int {
			n, err := fs.Write(inum, buf, size, offset)
			if err != nil {
				return -int(errnoOf(err))
			}
			return n
		},
		Getattr: func(path string, stat *FileStat) int {
			s, err := fs.Getattr(path)
			if err != nil {
				return -int(errnoOf(err))
			}
			*stat = s
			return 0
		},
		Init: func() error {
			// The image is already open and formatted by the time
			// OperationTable is built (Mount/MountDevice already ran the
			// init() lifecycle of spec.md §4.8); a host shim's init() hook
			// has nothing left to do beyond acknowledging that.
			fs.logMsg("init()")
			return nil
		},
		Destroy: func() error {
			return fs.Close()
		},
	}
}
