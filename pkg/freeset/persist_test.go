package freeset_test

import (
	"path/filepath"
	"testing"

	"github.com/bobboyms/gridrepair/pkg/freeset"
)

func TestSet_SaveThenLoadSnapshotRoundTrip(t *testing.T) {
	s := freeset.New(200)
	s.MarkAllocated(5) // no-op over the initial all-allocated state, exercises the path
	s.MarkReleased(10)
	s.MarkReleased(20)
	s.Commit()
	s.MarkReleased(30)

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := s.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := freeset.LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if loaded.Capacity() != s.Capacity() {
		t.Fatalf("capacity mismatch: got %d want %d", loaded.Capacity(), s.Capacity())
	}
	if !loaded.IsFree(10) || !loaded.IsFree(20) {
		t.Fatal("expected committed releases to survive the round trip as free")
	}
	if !loaded.IsReleased(30) {
		t.Fatal("expected the staged (uncommitted) release to survive the round trip")
	}
	if loaded.IsFree(99) {
		t.Fatal("expected untouched address to remain allocated")
	}
}

func TestLoadSnapshot_MissingFileReturnsError(t *testing.T) {
	_, err := freeset.LoadSnapshot(filepath.Join(t.TempDir(), "nope.bin"))
	if err == nil {
		t.Fatal("expected an error for a missing snapshot file")
	}
}
