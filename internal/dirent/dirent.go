// Package dirent is the directory-record codec (spec.md §4.4): it treats a
// directory's data blocks as the concatenation of fixed-width records,
// written end-to-end and terminated by a sentinel zero inode number.
//
// The original C source represents the chain as a singly linked list with
// explicit forward pointers between heap-allocated records. Per spec.md §9
// ("Design Notes"), this is an implementation concern of the encoding, not
// of the data model: here the chain is just an ordered []Record, serialized
// by position rather than by in-memory link.
package dirent

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"

	"github.com/ebratsch/vsfs/internal/blockio"
	"github.com/ebratsch/vsfs/internal/inode"
	"github.com/ebratsch/vsfs/internal/layout"

	vfserrors "github.com/ebratsch/vsfs/errors"
)

// Record is one (name, inode-number) directory entry.
type Record struct {
	Name string
	Inum uint32
}

// rawRecord is the fixed-width on-disk encoding of a Record.
type rawRecord struct {
	Name [layout.DirentNameFieldSize]byte
	Inum uint32
}

func encode(rec Record) rawRecord {
	var raw rawRecord
	copy(raw.Name[:], rec.Name)
	raw.Inum = rec.Inum
	return raw
}

func decode(raw rawRecord) Record {
	name := raw.Name[:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Record{Name: string(name), Inum: raw.Inum}
}

// ReadChain reconstructs the ordered chain of records from ino's data
// blocks, scanning in pointer order and stopping at the first sentinel
// (zero inode number) record or once ino.Size bytes have been consumed,
// whichever comes first.
func ReadChain(dev blockio.Device, ino inode.Inode) ([]Record, error) {
	var records []Record
	remaining := int(ino.Size)

	for b := uint32(0); b < ino.Blocks && remaining > 0; b++ {
		block := make([]byte, dev.BlockSize())
		if err := dev.ReadBlock(ino.Pointers[b], block); err != nil {
			return nil, err
		}

		for off := 0; off+layout.DirentRecordSize <= len(block) && remaining > 0; off += layout.DirentRecordSize {
			var raw rawRecord
			reader := bytes.NewReader(block[off : off+layout.DirentRecordSize])
			if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
				return nil, vfserrors.ErrIOFailed.WrapError(err)
			}
			if raw.Inum == 0 {
				remaining = 0
				break
			}
			records = append(records, decode(raw))
			remaining -= layout.DirentRecordSize
		}
	}

	return records, nil
}

// WriteChain serializes records sequentially into the given pointers,
// computing the new size. If the supplied blocks are insufficient, it
// returns the positive number of additional blocks required and leaves the
// blocks untouched; the caller is expected to allocate that many blocks,
// append them to pointers, and retry. On success it returns (size, 0, nil).
func WriteChain(dev blockio.Device, records []Record, pointers []uint32) (size uint32, additionalBlocksNeeded int, err error) {
	capacity := len(pointers) * layout.DirentsPerBlock
	if len(records) > capacity {
		shortfall := len(records) - capacity
		needed := (shortfall + layout.DirentsPerBlock - 1) / layout.DirentsPerBlock
		return 0, needed, nil
	}

	blockSize := dev.BlockSize()
	recordIndex := 0
	for _, blockNum := range pointers {
		buf := make([]byte, blockSize)
		writer := bytewriter.New(buf)

		for off := 0; off+layout.DirentRecordSize <= blockSize && recordIndex < len(records); off += layout.DirentRecordSize {
			raw := encode(records[recordIndex])
			if err := binary.Write(writer, binary.LittleEndian, &raw); err != nil {
				return 0, 0, vfserrors.ErrIOFailed.WrapError(err)
			}
			recordIndex++
		}

		if err := dev.WriteBlock(blockNum, buf); err != nil {
			return 0, 0, err
		}
	}

	return uint32(len(records) * layout.DirentRecordSize), 0, nil
}
