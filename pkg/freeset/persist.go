package freeset

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const snapshotMagic uint32 = 0x46524545 // "FREE"

// SaveSnapshot writes the set's two bit-planes to path atomically: the
// full snapshot is staged at path+".tmp" and then renamed into place,
// the same write-temp-then-rename discipline
// CheckpointManager.CreateCheckpoint uses for B+tree checkpoints, so a
// crash mid-write never leaves a half-written snapshot where a
// recovering grid would look for one.
func (s *Set) SaveSnapshot(path string) error {
	buf := make([]byte, 4+8+len(s.free)*8+len(s.releasing)*8)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], snapshotMagic)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], s.capacity)
	off += 8
	for _, w := range s.free {
		binary.LittleEndian.PutUint64(buf[off:], w)
		off += 8
	}
	for _, w := range s.releasing {
		binary.LittleEndian.PutUint64(buf[off:], w)
		off += 8
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0644); err != nil {
		return fmt.Errorf("freeset: write temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("freeset: rename snapshot into place: %w", err)
	}
	return nil
}

// LoadSnapshot reconstructs a Set from a file written by SaveSnapshot.
func LoadSnapshot(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("freeset: read snapshot %s: %w", filepath.Base(path), err)
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("freeset: snapshot %s: truncated header", filepath.Base(path))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != snapshotMagic {
		return nil, fmt.Errorf("freeset: snapshot %s: bad magic", filepath.Base(path))
	}
	capacity := binary.LittleEndian.Uint64(data[4:12])

	s := New(capacity)
	off := 12
	for i := range s.free {
		if off+8 > len(data) {
			return nil, fmt.Errorf("freeset: snapshot %s: truncated free plane", filepath.Base(path))
		}
		s.free[i] = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	for i := range s.releasing {
		if off+8 > len(data) {
			return nil, fmt.Errorf("freeset: snapshot %s: truncated releasing plane", filepath.Base(path))
		}
		s.releasing[i] = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	return s, nil
}
