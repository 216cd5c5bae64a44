package repair

import "github.com/bobboyms/gridrepair/pkg/gridtypes"

// NextBatchOfBlockRequests fills requests with (address, checksum) pairs
// for faults in state Waiting, skipping Writing and Aborting, and
// returns how many it populated (spec.md §4.3).
//
// Starting from faulty_blocks_repair_index, it walks up to
// len(faulty_blocks) entries in circular order, stopping early once
// requests is full. faulty_blocks_repair_index then advances (modulo the
// fault count) by the number of entries examined — not merely those
// emitted — so a request slice smaller than the fault set still makes
// fair progress across calls (P3) instead of starving later faults.
func (q *Queue) NextBatchOfBlockRequests(requests []gridtypes.BlockRequest) int {
	n := len(q.dense)
	if n == 0 {
		return 0
	}

	examined := 0
	emitted := 0
	start := q.repairIdx
	for examined < n && emitted < len(requests) {
		idx := (start + examined) % n
		fb := q.dense[idx]
		if fb.State == Waiting {
			requests[emitted] = gridtypes.BlockRequest{Address: fb.Address, Checksum: fb.Checksum}
			emitted++
		}
		examined++
	}

	q.repairIdx = (start + examined) % n
	return emitted
}

// RepairWaiting is the non-mutating predicate the grid uses to decide
// whether it may begin a write: true iff a fault exists at address with
// a matching checksum and state Waiting.
func (q *Queue) RepairWaiting(address gridtypes.Address, checksum gridtypes.Checksum128) bool {
	i, ok := q.lookup(address)
	if !ok {
		return false
	}
	fb := q.dense[i]
	return fb.Checksum.Equal(checksum) && fb.State == Waiting
}
