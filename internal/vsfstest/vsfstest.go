// Package vsfstest provides zero-file-I/O test fixtures, the same role
// the teacher's testing/images.go plays: an in-memory
// github.com/xaionaro-go/bytesextra stream standing in for a real image
// file so every internal package can be exercised without touching disk.
package vsfstest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/layout"
	"github.com/ebratsch/vsfs/utilities/compression"
)

// NewMemoryDevice returns a blockio.Device backed by blockCount freshly
// zeroed blocks of blockSize bytes, entirely in memory.
func NewMemoryDevice(t *testing.T, blockSize int, blockCount uint32) *blockio.Store {
	t.Helper()

	size := int64(blockSize) * int64(blockCount)
	require.Greater(t, size, int64(0), "device size must be positive")

	imageBytes := make([]byte, size)
	stream := bytesextra.NewReadWriteSeeker(imageBytes)
	return blockio.New(stream, blockSize, blockCount)
}

// NewDefaultMemoryDevice returns a blockio.Device sized to the VSFS layout
// constants (layout.BlockSize, layout.NumBlocks), unformatted: every block
// reads back as zeros.
func NewDefaultMemoryDevice(t *testing.T) *blockio.Store {
	t.Helper()
	return NewMemoryDevice(t, layout.BlockSize, layout.NumBlocks)
}

// LoadCompressedFixture decompresses a packed image (as produced by
// `vsfsctl pack`, RLE8+gzip) held as a Go byte literal, and returns a
// blockio.Device over it sized to blockSize*totalBlocks. Writes to the
// returned device never touch compressedImageBytes.
func LoadCompressedFixture(
	t *testing.T, compressedImageBytes []byte, blockSize int, totalBlocks uint32,
) *blockio.Store {
	t.Helper()
	require.Greater(t, len(compressedImageBytes), 0, "compressed image fixture is empty")

	imageBytes, err := compression.DecompressVsfsImageToBytes(bytes.NewReader(compressedImageBytes))
	require.NoError(t, err)
	require.EqualValues(t, int(blockSize)*int(totalBlocks), len(imageBytes), "uncompressed image is wrong size")

	stream := bytesextra.NewReadWriteSeeker(imageBytes)
	return blockio.New(stream, blockSize, totalBlocks)
}
