package repair

// Cancel drains faulty_tables, firing each table's callback with
// Canceled in FIFO order, clears the FaultMap (retaining its reserved
// capacity), and latches canceling so any re-entrant enqueue called from
// within a callback is rejected (spec.md §4.6). The caller must
// re-initialize the queue with New before resuming operation.
func (q *Queue) Cancel() {
	for q.tableHead != -1 {
		q.finishTable(q.tableHead, Canceled)
	}

	q.dense = q.dense[:0]
	for k := range q.blockIdx {
		delete(q.blockIdx, k)
	}
	q.repairIdx = 0
	q.enqueuedBlocksSingle = 0
	q.enqueuedBlocksTable = 0

	q.canceling = true
}
