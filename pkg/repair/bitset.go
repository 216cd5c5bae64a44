package repair

// bitset is a fixed-width bitset over content-block ordinals, sized at
// construction to the queue's lsm_table_content_blocks_max. It backs
// RepairTable.ContentBlocksReceived, used only for validation (I7: a
// table's received-count must stay below its total while still queued).
type bitset struct {
	words []uint64
}

func newBitset(bits int) bitset {
	return bitset{words: make([]uint64, (bits+63)/64)}
}

func (b *bitset) set(i uint32) {
	b.words[i/64] |= uint64(1) << (i % 64)
}

func (b *bitset) test(i uint32) bool {
	if int(i/64) >= len(b.words) {
		return false
	}
	return b.words[i/64]&(uint64(1)<<(i%64)) != 0
}

func (b *bitset) count() int {
	n := 0
	for _, w := range b.words {
		for w != 0 {
			w &= w - 1
			n++
		}
	}
	return n
}

func (b *bitset) reset() {
	for i := range b.words {
		b.words[i] = 0
	}
}
