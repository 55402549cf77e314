package fsck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebratsch/vsfs/internal/bitmap"
	"github.com/ebratsch/vsfs/internal/fsck"
	"github.com/ebratsch/vsfs/internal/inode"
	"github.com/ebratsch/vsfs/internal/layout"
	"github.com/ebratsch/vsfs/internal/vsfstest"
	"github.com/ebratsch/vsfs/vsfs"
)

func TestFreshImageIsConsistent(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	fs, err := vsfs.MountDevice(dev, vsfs.Options{Fresh: true})
	require.NoError(t, err)

	require.NoError(t, fsck.Validate(dev))

	_, err = fs.Mknod("/a")
	require.NoError(t, err)
	assert.NoError(t, fsck.Validate(dev))
}

func TestDetectsUnreferencedAllocatedBlock(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	_, err := vsfs.MountDevice(dev, vsfs.Options{Fresh: true})
	require.NoError(t, err)

	bm, err := bitmap.Load(dev, layout.DataBitmapBlock, layout.NumBlocks)
	require.NoError(t, err)
	bm.Set(layout.FirstFreeDataBlock, true)
	require.NoError(t, bm.Store(dev, layout.DataBitmapBlock))

	err = fsck.Validate(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referenced by no inode")
}

func TestDetectsInodeWithBadType(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	_, err := vsfs.MountDevice(dev, vsfs.Options{Fresh: true})
	require.NoError(t, err)

	const victim = layout.RootInodeNum + 1
	bm, err := bitmap.Load(dev, layout.InodeBitmapBlock, layout.NumInodes)
	require.NoError(t, err)
	bm.Set(victim, true)
	require.NoError(t, bm.Store(dev, layout.InodeBitmapBlock))
	require.NoError(t, inode.Set(dev, victim, inode.Inode{Type: 0}))

	err = fsck.Validate(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid type")
}

func TestDetectsOversizedInode(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	_, err := vsfs.MountDevice(dev, vsfs.Options{Fresh: true})
	require.NoError(t, err)

	ino, err := inode.Get(dev, layout.RootInodeNum)
	require.NoError(t, err)
	ino.Size = ino.Blocks*layout.BlockSize + 1
	require.NoError(t, inode.Set(dev, layout.RootInodeNum, ino))

	err = fsck.Validate(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds blocks*BlockSize")
}
