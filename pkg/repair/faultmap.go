package repair

import "github.com/bobboyms/gridrepair/pkg/gridtypes"

// lookup returns the dense index of address's fault, if any.
func (q *Queue) lookup(address gridtypes.Address) (int, bool) {
	i, ok := q.blockIdx[address]
	return i, ok
}

// insertFault appends a new fault to the dense array. The caller must
// have verified capacity is available (EnqueueBlocksAvailable for
// standalone blocks; tables_max for table faults) — this is the
// FaultMap's "error conditions: none" contract from spec.md §4.1.
func (q *Queue) insertFault(fb FaultyBlock) int {
	q.assert(len(q.dense) < cap(q.dense), "faulty_blocks capacity exceeded inserting address %d", fb.Address)
	idx := len(q.dense)
	q.dense = append(q.dense, fb)
	q.blockIdx[fb.Address] = idx
	return idx
}

// removeFaultAt removes the fault at dense index i via swap-with-last
// (spec.md §4.1), then clamps faulty_blocks_repair_index so I4 holds
// afterward regardless of which position was removed.
func (q *Queue) removeFaultAt(i int) {
	last := len(q.dense) - 1
	removedAddr := q.dense[i].Address
	if i != last {
		q.dense[i] = q.dense[last]
		q.blockIdx[q.dense[i].Address] = i
	}
	q.dense = q.dense[:last]
	delete(q.blockIdx, removedAddr)

	if len(q.dense) == 0 {
		q.repairIdx = 0
	} else {
		q.repairIdx %= len(q.dense)
	}
}

// releaseAccounting decrements the single/table counter matching the
// fault's progress kind, mirroring the partition in I1.
func (q *Queue) releaseAccounting(progress Progress) {
	switch progress.(type) {
	case ProgressBlock:
		q.enqueuedBlocksSingle--
	case ProgressTableIndex, ProgressTableContent:
		q.enqueuedBlocksTable--
	default:
		q.assert(false, "fault removed with unrecognized progress kind %T", progress)
	}
}
