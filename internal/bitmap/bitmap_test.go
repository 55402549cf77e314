package bitmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebratsch/vsfs/internal/bitmap"
	"github.com/ebratsch/vsfs/internal/layout"
	"github.com/ebratsch/vsfs/internal/vsfstest"
)

func TestLoadStoreRoundTrip(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)

	bm, err := bitmap.Load(dev, layout.DataBitmapBlock, layout.NumBlocks)
	require.NoError(t, err)

	for i := 0; i < layout.ReservedBlockCount; i++ {
		bm.Set(i, true)
	}
	require.NoError(t, bm.Store(dev, layout.DataBitmapBlock))

	reloaded, err := bitmap.Load(dev, layout.DataBitmapBlock, layout.NumBlocks)
	require.NoError(t, err)

	for i := 0; i < layout.ReservedBlockCount; i++ {
		assert.True(t, reloaded.Get(i), "block %d should be marked allocated", i)
	}
	assert.False(t, reloaded.Get(layout.ReservedBlockCount))
}

func TestFirstClearSkipsReserved(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	bm, err := bitmap.Load(dev, layout.InodeBitmapBlock, layout.NumInodes)
	require.NoError(t, err)

	bm.Set(0, true)
	bm.Set(1, true)

	idx, ok := bm.FirstClear(layout.RootInodeNum)
	require.True(t, ok)
	assert.Equal(t, layout.RootInodeNum, idx)
}

func TestFirstClearExhausted(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	bm, err := bitmap.Load(dev, layout.InodeBitmapBlock, 4)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		bm.Set(i, true)
	}

	_, ok := bm.FirstClear(0)
	assert.False(t, ok)
}
