// Package gridtypes holds the small value types shared across the grid
// repair queue: block addresses and the 128-bit checksums pinned to them.
package gridtypes

import "fmt"

// Address identifies a fixed-size block within the grid's on-disk
// address space.
type Address uint64

// Checksum128 is the 128-bit content hash carried alongside every block
// reference. A FaultyBlock pins a specific (Address, Checksum128) pair;
// completing a repair with a mismatched checksum is a contract
// violation, not a silently-ignored retry.
type Checksum128 struct {
	Hi uint64
	Lo uint64
}

// Equal reports whether two checksums cover the same content.
func (c Checksum128) Equal(other Checksum128) bool {
	return c.Hi == other.Hi && c.Lo == other.Lo
}

// Zero reports whether the checksum is the all-zero sentinel, used by
// callers to mean "no checksum known yet".
func (c Checksum128) Zero() bool {
	return c.Hi == 0 && c.Lo == 0
}

func (c Checksum128) String() string {
	return fmt.Sprintf("%016x%016x", c.Hi, c.Lo)
}

// BlockRequest is the wire-shaped pair produced by the request cycler and
// handed to the transport layer.
type BlockRequest struct {
	Address  Address
	Checksum Checksum128
}
