// Package lsmschema implements the on-disk encoding of an LSM index
// block: the list of content-block addresses and checksums it
// references. The repair queue treats this as a read-only oracle
// (ContentBlocksUsed, ContentBlock) it consults once an index block's
// bytes arrive; this package supplies both the decoder the queue's owner
// uses in production and the encoder the test/simulation harness uses to
// manufacture index blocks.
package lsmschema

import (
	"encoding/binary"
	"fmt"

	"github.com/bobboyms/gridrepair/pkg/gridtypes"
	"github.com/cespare/xxhash/v2"
)

const (
	// Magic identifies an index block's encoding, the way HeapMagic /
	// WALMagic guard the teacher's own fixed headers.
	Magic uint32 = 0x4C534D42 // "LSMB"
	// Version of the header layout below.
	Version uint16 = 1

	// HeaderSize: Magic(4) + Version(2) + ContentCount(4).
	HeaderSize = 10
	// entrySize: Address(8) + ChecksumHi(8) + ChecksumLo(8).
	entrySize = 24

	xxhashSaltLo uint64 = 0x9E3779B97F4A7C15
)

var (
	ErrInvalidMagic   = fmt.Errorf("lsmschema: invalid index block magic")
	ErrUnsupportedVer = fmt.Errorf("lsmschema: unsupported index block version")
	ErrTruncated      = fmt.Errorf("lsmschema: truncated index block")
)

// ContentEntry is one content block referenced by an index block.
type ContentEntry struct {
	Address  gridtypes.Address
	Checksum gridtypes.Checksum128
}

// IndexBlock is a decoded view over an index block's raw bytes: the
// ordered list of content blocks it references. Ordinal position in
// Entries is the ordinal the repair queue uses for
// table_content{index}, and for RepairTable.ContentBlocksReceived.
type IndexBlock struct {
	Entries []ContentEntry
}

// ContentBlocksUsed implements the external interface the repair queue
// consults in RepairComplete.
func (b IndexBlock) ContentBlocksUsed() uint32 {
	return uint32(len(b.Entries))
}

// ContentBlock implements the external interface the repair queue
// consults in RepairComplete. i is zero-based.
func (b IndexBlock) ContentBlock(i uint32) (gridtypes.Address, gridtypes.Checksum128) {
	e := b.Entries[i]
	return e.Address, e.Checksum
}

// Encode serializes an IndexBlock to its on-disk form.
func Encode(b IndexBlock) []byte {
	buf := make([]byte, HeaderSize+entrySize*len(b.Entries))
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], Version)
	binary.LittleEndian.PutUint32(buf[6:10], uint32(len(b.Entries)))

	off := HeaderSize
	for _, e := range b.Entries {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(e.Address))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], e.Checksum.Hi)
		binary.LittleEndian.PutUint64(buf[off+16:off+24], e.Checksum.Lo)
		off += entrySize
	}
	return buf
}

// Decode parses raw index-block bytes. It validates the fixed header
// and the overall length, matching the teacher's `WALReader.ReadEntry`
// discipline of rejecting corrupt/truncated records before trusting
// their content.
func Decode(raw []byte) (IndexBlock, error) {
	if len(raw) < HeaderSize {
		return IndexBlock{}, ErrTruncated
	}
	if magic := binary.LittleEndian.Uint32(raw[0:4]); magic != Magic {
		return IndexBlock{}, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint16(raw[4:6]); version != Version {
		return IndexBlock{}, ErrUnsupportedVer
	}
	count := binary.LittleEndian.Uint32(raw[6:10])

	want := HeaderSize + entrySize*int(count)
	if len(raw) < want {
		return IndexBlock{}, ErrTruncated
	}

	entries := make([]ContentEntry, count)
	off := HeaderSize
	for i := range entries {
		entries[i] = ContentEntry{
			Address: gridtypes.Address(binary.LittleEndian.Uint64(raw[off : off+8])),
			Checksum: gridtypes.Checksum128{
				Hi: binary.LittleEndian.Uint64(raw[off+8 : off+16]),
				Lo: binary.LittleEndian.Uint64(raw[off+16 : off+24]),
			},
		}
		off += entrySize
	}
	return IndexBlock{Entries: entries}, nil
}

// Checksum computes the spec's 128-bit checksum over a block's raw
// bytes: one xxhash sum for the low half, and a second salted sum for
// the high half, the same way the teacher's wal package ran a single
// CRC32 over payload bytes — generalized to 128 bits since a grid block
// reference needs more collision resistance than a WAL record does.
func Checksum(data []byte) gridtypes.Checksum128 {
	lo := xxhash.Sum64(data)
	d := xxhash.New()
	d.Write(data)
	var saltBuf [8]byte
	binary.LittleEndian.PutUint64(saltBuf[:], xxhashSaltLo)
	d.Write(saltBuf[:])
	hi := d.Sum64()
	return gridtypes.Checksum128{Hi: hi, Lo: lo}
}
