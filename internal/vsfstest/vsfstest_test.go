package vsfstest_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ebratsch/vsfs/internal/layout"
	"github.com/ebratsch/vsfs/internal/vsfstest"
	"github.com/ebratsch/vsfs/utilities/compression"
)

func TestLoadCompressedFixtureRoundTrip(t *testing.T) {
	dev := vsfstest.NewDefaultMemoryDevice(t)
	block := bytes.Repeat([]byte{0x42}, layout.BlockSize)
	require.NoError(t, dev.WriteBlock(0, block))

	raw := make([]byte, layout.BlockSize*layout.NumBlocks)
	for b := uint32(0); b < layout.NumBlocks; b++ {
		buf := make([]byte, layout.BlockSize)
		require.NoError(t, dev.ReadBlock(b, buf))
		copy(raw[int(b)*layout.BlockSize:], buf)
	}

	var compressed bytes.Buffer
	writer := bufio.NewWriter(&compressed)
	_, err := compression.CompressVsfsImage(bytes.NewReader(raw), writer)
	require.NoError(t, err)
	require.NoError(t, writer.Flush())

	fixture := vsfstest.LoadCompressedFixture(t, compressed.Bytes(), layout.BlockSize, layout.NumBlocks)

	readBack := make([]byte, layout.BlockSize)
	require.NoError(t, fixture.ReadBlock(0, readBack))
	require.Equal(t, block, readBack)
}
