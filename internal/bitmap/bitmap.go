// Package bitmap manages the two allocation bitmaps (spec.md §4.1): the
// inode bitmap in block layout.InodeBitmapBlock and the data-block bitmap
// in block layout.DataBitmapBlock. Each occupies exactly one block.
//
// On disk a bitmap is byte-per-slot (spec.md §3: "one byte per inode slot,
// `1` = allocated"), not bit-packed — this matches the original C
// implementation's raw `uint8_t[]` bitmaps. In memory this package keeps
// the set of allocated slots in a github.com/boljen/go-bitmap.Bitmap, the
// same structure the teacher uses for its own allocation bookkeeping
// (drivers/common/allocatormap.go, drivers/common/blockmanager.go):
// Load expands the on-disk bytes into bits, Store collapses them back.
package bitmap

import (
	gobitmap "github.com/boljen/go-bitmap"

	"github.com/ebratsch/vsfs/internal/blockio"
)

// Map is a loaded allocation bitmap, held in memory until the owning
// operation writes it back.
type Map struct {
	bits gobitmap.Bitmap
	size int
}

// Load reads the whole block at blockNum and expands its first size bytes
// into a bit-per-slot in-memory bitmap.
func Load(dev blockio.Device, blockNum uint32, size int) (*Map, error) {
	raw := make([]byte, dev.BlockSize())
	if err := dev.ReadBlock(blockNum, raw); err != nil {
		return nil, err
	}

	bits := gobitmap.New(size)
	for i := 0; i < size; i++ {
		bits.Set(i, raw[i] != 0)
	}
	return &Map{bits: bits, size: size}, nil
}

// Store collapses the in-memory bitmap back into byte-per-slot form and
// writes it as the whole block at blockNum.
func (m *Map) Store(dev blockio.Device, blockNum uint32) error {
	raw := make([]byte, dev.BlockSize())
	for i := 0; i < m.size; i++ {
		if m.bits.Get(i) {
			raw[i] = 1
		}
	}
	return dev.WriteBlock(blockNum, raw)
}

// Get reports whether slot i is allocated.
func (m *Map) Get(i int) bool {
	return m.bits.Get(i)
}

// Set marks slot i allocated (v=true) or free (v=false).
func (m *Map) Set(i int, v bool) {
	m.bits.Set(i, v)
}

// Size returns the number of tracked slots.
func (m *Map) Size() int {
	return m.size
}

// FirstClear scans ascending from index from (inclusive) for the first free
// slot. It reports ok=false if every slot from `from` to the end is
// allocated.
func (m *Map) FirstClear(from int) (index int, ok bool) {
	for i := from; i < m.size; i++ {
		if !m.bits.Get(i) {
			return i, true
		}
	}
	return 0, false
}
