package pathutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/dirent"
	"github.com/ebratsch/vsfs/internal/inode"
	"github.com/ebratsch/vsfs/internal/layout"
	"github.com/ebratsch/vsfs/internal/pathutil"
	"github.com/ebratsch/vsfs/internal/vsfstest"
)

func TestSplitPathRejectsRelative(t *testing.T) {
	_, err := pathutil.SplitPath("a/b")
	assert.Error(t, err)
}

func TestSplitPathIgnoresTrailingSlash(t *testing.T) {
	components, err := pathutil.SplitPath("/a/b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, components)
}

func TestSplitPathRejectsLongComponent(t *testing.T) {
	_, err := pathutil.SplitPath("/" + strings.Repeat("x", layout.MaxFilename+1))
	assert.Error(t, err)
}

func TestParentAndLeaf(t *testing.T) {
	parent, leaf := pathutil.ParentAndLeaf("/d/e")
	assert.Equal(t, "/d", parent)
	assert.Equal(t, "e", leaf)

	parent, leaf = pathutil.ParentAndLeaf("/a")
	assert.Equal(t, "/", parent)
	assert.Equal(t, "a", leaf)
}

func TestResolveRootIsInode2(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	writeRootDir(t, dev)

	inum, err := pathutil.Resolve(dev, "/")
	require.NoError(t, err)
	assert.EqualValues(t, layout.RootInodeNum, inum)
}

func TestResolveMissingPath(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	writeRootDir(t, dev)

	inum, err := pathutil.Resolve(dev, "/no/such")
	require.NoError(t, err)
	assert.Zero(t, inum)
}

func TestResolveFindsChild(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	writeRootDir(t, dev)

	childInum := uint32(3)
	child := inode.Inode{Type: inode.TypeFile, Size: 0, Blocks: 0}
	require.NoError(t, inode.Set(dev, childInum, child))

	root, err := inode.Get(dev, layout.RootInodeNum)
	require.NoError(t, err)

	records := []dirent.Record{
		{Name: "a", Inum: childInum},
		{Name: ".", Inum: layout.RootInodeNum},
		{Name: "..", Inum: layout.RootInodeNum},
	}
	size, additional, err := dirent.WriteChain(dev, records, root.Pointers[:root.Blocks])
	require.NoError(t, err)
	require.Zero(t, additional)
	root.Size = size
	require.NoError(t, inode.Set(dev, layout.RootInodeNum, root))

	inum, err := pathutil.Resolve(dev, "/a")
	require.NoError(t, err)
	assert.Equal(t, childInum, inum)
}

func writeRootDir(t *testing.T, dev blockio.Device) {
	t.Helper()
	root := inode.Inode{Type: inode.TypeDir, Blocks: 1}
	root.Pointers[0] = layout.FirstDataBlock

	records := []dirent.Record{
		{Name: ".", Inum: layout.RootInodeNum},
		{Name: "..", Inum: layout.RootInodeNum},
	}
	size, _, err := dirent.WriteChain(dev, records, root.Pointers[:1])
	require.NoError(t, err)
	root.Size = size

	require.NoError(t, inode.Set(dev, layout.RootInodeNum, root))
}
