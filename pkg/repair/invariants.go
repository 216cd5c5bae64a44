package repair

import "fmt"

// CheckInvariants verifies that the invariants from spec.md §3 which need
// no free-set (I1-I4, I7-I9) hold; CheckInvariantsAgainstFreeSet covers
// I5 and I6. It is not called
// on the hot path — invariant checking at that granularity belongs in
// tests and simulation harnesses, not production code that already pays
// for per-operation assertions — but is exported so both can use it.
func (q *Queue) CheckInvariants() error {
	// I1
	if got, want := len(q.dense), q.enqueuedBlocksSingle+q.enqueuedBlocksTable; got != want {
		return fmt.Errorf("I1 violated: faulty_blocks.count=%d != single(%d)+table(%d)", got, q.enqueuedBlocksSingle, q.enqueuedBlocksTable)
	}
	// I2
	if limit := q.options.TablesMax * q.options.LSMTableContentBlocksMax; q.enqueuedBlocksTable > limit {
		return fmt.Errorf("I2 violated: enqueued_blocks_table=%d > tables_max*lsm_table_content_blocks_max=%d", q.enqueuedBlocksTable, limit)
	}
	// I3
	if q.tableCount > q.options.TablesMax {
		return fmt.Errorf("I3 violated: faulty_tables.count=%d > tables_max=%d", q.tableCount, q.options.TablesMax)
	}
	// I4
	if len(q.dense) > 0 {
		if q.repairIdx >= len(q.dense) {
			return fmt.Errorf("I4 violated: faulty_blocks_repair_index=%d >= count=%d", q.repairIdx, len(q.dense))
		}
	} else if q.repairIdx != 0 {
		return fmt.Errorf("I4 violated: faulty_blocks_repair_index=%d with empty faulty_blocks", q.repairIdx)
	}
	// I5/I6 require a free-set to consult; checked by CheckInvariantsAgainstFreeSet.
	// I7/I9
	for cur := q.tableHead; cur != -1; cur = q.tableArena[cur].next {
		t := q.tableArena[cur].table
		if t.TableBlocksTotal != nil {
			if uint32(t.ContentBlocksReceived.count()) >= *t.TableBlocksTotal {
				return fmt.Errorf("I7 violated: table at %d received_count=%d >= total=%d while still queued", t.IndexAddress, t.ContentBlocksReceived.count(), *t.TableBlocksTotal)
			}
			if t.TableBlocksWritten > *t.TableBlocksTotal {
				return fmt.Errorf("I9 violated: table at %d written=%d > total=%d", t.IndexAddress, t.TableBlocksWritten, *t.TableBlocksTotal)
			}
		}
	}
	// I8
	for _, fb := range q.dense {
		if fb.State == Aborting && (q.checkpointing == nil || q.checkpointing.aborting == 0) {
			return fmt.Errorf("I8 violated: address %d is aborting with no checkpoint abort outstanding", fb.Address)
		}
	}
	return nil
}

// CheckInvariantsAgainstFreeSet additionally verifies I5 and I6, which
// require consulting the free-set oracle.
func (q *Queue) CheckInvariantsAgainstFreeSet(freeSet FreeSet) error {
	for _, fb := range q.dense {
		if freeSet.IsFree(uint64(fb.Address)) {
			return fmt.Errorf("I5 violated: address %d is in faulty_blocks but the free-set reports it free", fb.Address)
		}
	}
	for cur := q.tableHead; cur != -1; cur = q.tableArena[cur].next {
		t := q.tableArena[cur].table
		if freeSet.IsFree(uint64(t.IndexAddress)) {
			return fmt.Errorf("I6 violated: table index_address %d is free", t.IndexAddress)
		}
	}
	return nil
}
