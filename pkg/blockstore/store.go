// Package blockstore persists grid blocks keyed by address, backed by
// a pebble LSM tree the way pkg/storage.StorageEngine persists rows
// behind a B+tree + WAL: every write returns the checksum computed over
// the bytes it stored, and every read is checksum-verified before it is
// handed back. Writes are not compared against an expected checksum.
package blockstore

import (
	"encoding/binary"
	"fmt"

	"github.com/bobboyms/gridrepair/pkg/gridtypes"
	"github.com/bobboyms/gridrepair/pkg/lsmschema"
	"github.com/cockroachdb/pebble"
)

// Store is a checksum-verified key-value store over grid addresses.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("blockstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func addressKey(address gridtypes.Address) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(address))
	return key[:]
}

// Put writes data for address and returns the checksum computed over
// it, the same checksum a repair's RepairComplete call is expected to
// carry for this address. Put does not check data against any expected
// checksum. Big-endian keys keep addresses ordered in pebble's key
// space, which Scrub relies on to range over the store in address order.
func (s *Store) Put(address gridtypes.Address, data []byte) (gridtypes.Checksum128, error) {
	checksum := lsmschema.Checksum(data)
	if err := s.db.Set(addressKey(address), data, pebble.Sync); err != nil {
		return gridtypes.Checksum128{}, fmt.Errorf("blockstore: put %d: %w", address, err)
	}
	return checksum, nil
}

// Get reads the block at address and verifies it against want. A
// checksum mismatch means the on-disk block and the grid's metadata
// have diverged — exactly the condition that should have enqueued a
// repair fault for this address already, so it is returned as an
// ordinary error (wrapping ErrChecksumMismatch) rather than an assertion.
func (s *Store) Get(address gridtypes.Address, want gridtypes.Checksum128) ([]byte, error) {
	value, closer, err := s.db.Get(addressKey(address))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, fmt.Errorf("blockstore: %d: %w", address, ErrBlockMissing)
		}
		return nil, fmt.Errorf("blockstore: get %d: %w", address, err)
	}
	defer closer.Close()

	data := make([]byte, len(value))
	copy(data, value)

	if got := lsmschema.Checksum(data); !got.Equal(want) {
		return nil, fmt.Errorf("blockstore: %d: %w: have %s want %s", address, ErrChecksumMismatch, got, want)
	}
	return data, nil
}

// Delete removes the block at address, used once a checkpoint has
// released it and Commit has promoted it back to free.
func (s *Store) Delete(address gridtypes.Address) error {
	if err := s.db.Delete(addressKey(address), pebble.Sync); err != nil {
		return fmt.Errorf("blockstore: delete %d: %w", address, err)
	}
	return nil
}

// Scrub reads every block in [lowAddress, highAddress) and reports any
// whose checksum doesn't match the expected value returned by lookup.
// Blocks lookup reports no expectation for (ok == false) are skipped —
// they belong to addresses the grid doesn't consider allocated yet.
func (s *Store) Scrub(lowAddress, highAddress gridtypes.Address, lookup func(gridtypes.Address) (gridtypes.Checksum128, bool)) ([]gridtypes.Address, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: addressKey(lowAddress),
		UpperBound: addressKey(highAddress),
	})
	if err != nil {
		return nil, fmt.Errorf("blockstore: scrub iterator: %w", err)
	}
	defer iter.Close()

	var faulty []gridtypes.Address
	for iter.First(); iter.Valid(); iter.Next() {
		address := gridtypes.Address(binary.BigEndian.Uint64(iter.Key()))
		want, ok := lookup(address)
		if !ok {
			continue
		}
		if got := lsmschema.Checksum(iter.Value()); !got.Equal(want) {
			faulty = append(faulty, address)
		}
	}
	return faulty, iter.Error()
}
