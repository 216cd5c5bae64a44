package repair

import "github.com/bobboyms/gridrepair/pkg/gridtypes"

// allocTable pops a free arena slot, initializes it, and links it at the
// FIFO tail. Returns the stable *RepairTable handle EnqueueTable gives
// the caller.
func (q *Queue) allocTable(address gridtypes.Address, checksum gridtypes.Checksum128, callback TableCallback) *RepairTable {
	q.assert(len(q.tableFreeStack) > 0, "faulty_tables capacity exceeded (tables_max=%d)", q.options.TablesMax)

	idx := q.tableFreeStack[len(q.tableFreeStack)-1]
	q.tableFreeStack = q.tableFreeStack[:len(q.tableFreeStack)-1]

	node := &q.tableArena[idx]
	node.inUse = true
	node.table = RepairTable{
		IndexAddress:          address,
		IndexChecksum:         checksum,
		ContentBlocksReceived: newBitset(q.options.LSMTableContentBlocksMax),
		Callback:              callback,
		slot:                  idx,
	}
	node.next = -1
	node.prev = q.tableTail
	if q.tableTail != -1 {
		q.tableArena[q.tableTail].next = idx
	} else {
		q.tableHead = idx
	}
	q.tableTail = idx
	q.tableCount++

	return &node.table
}

// unlinkTable removes a table from the active FIFO in O(1), independent
// of its position, thanks to the doubly-linked arena (see queue.go).
func (q *Queue) unlinkTable(idx int) {
	node := &q.tableArena[idx]
	if node.prev != -1 {
		q.tableArena[node.prev].next = node.next
	} else {
		q.tableHead = node.next
	}
	if node.next != -1 {
		q.tableArena[node.next].prev = node.prev
	} else {
		q.tableTail = node.prev
	}
	q.tableCount--
}

// freeTable returns an unlinked arena slot to the free list.
func (q *Queue) freeTable(idx int) {
	q.tableArena[idx] = tableNode{}
	q.tableFreeStack = append(q.tableFreeStack, idx)
}

// finishTable unlinks, fires the terminal callback, and frees the slot.
// Called exactly once per table, from whichever path reaches its
// terminal state first (repaired, canceled, or released).
//
// The table's final state is snapshotted into snapshot before the arena
// slot is freed: freeTable zeroes q.tableArena[idx] in place, so a
// pointer into the arena would go stale out from under a callback that
// reads it after freeing. The callback gets a pointer to the snapshot
// instead, never to arena memory that might be reused by a subsequent
// allocTable before the callback returns.
func (q *Queue) finishTable(idx int, result TableResult) {
	snapshot := q.tableArena[idx].table
	callback := snapshot.Callback
	q.unlinkTable(idx)
	q.freeTable(idx)
	if callback != nil {
		callback(&snapshot, result)
	}
}

// findTableByIndexAddress linearly scans the active FIFO. Table counts
// are bounded by tables_max, typically small, so this mirrors the
// intrusive-FIFO's lack of a secondary index in spec.md.
func (q *Queue) findTableByIndexAddress(address gridtypes.Address) (int, bool) {
	for cur := q.tableHead; cur != -1; cur = q.tableArena[cur].next {
		if q.tableArena[cur].table.IndexAddress == address {
			return cur, true
		}
	}
	return -1, false
}
