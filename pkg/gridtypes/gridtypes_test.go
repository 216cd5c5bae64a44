package gridtypes_test

import (
	"testing"

	"github.com/bobboyms/gridrepair/pkg/gridtypes"
)

func TestChecksum128_Equal(t *testing.T) {
	a := gridtypes.Checksum128{Hi: 1, Lo: 2}
	b := gridtypes.Checksum128{Hi: 1, Lo: 2}
	c := gridtypes.Checksum128{Hi: 1, Lo: 3}

	if !a.Equal(b) {
		t.Fatal("expected equal checksums to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected differing checksums to compare unequal")
	}
}

func TestChecksum128_Zero(t *testing.T) {
	if !(gridtypes.Checksum128{}).Zero() {
		t.Fatal("expected zero value to report Zero() == true")
	}
	if (gridtypes.Checksum128{Lo: 1}).Zero() {
		t.Fatal("expected a non-zero checksum to report Zero() == false")
	}
}

func TestChecksum128_String(t *testing.T) {
	s := gridtypes.Checksum128{Hi: 0xAB, Lo: 0xCD}.String()
	if len(s) != 32 {
		t.Fatalf("expected a 32-hex-digit string, got %q (len %d)", s, len(s))
	}
}
