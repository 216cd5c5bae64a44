package repair

// CheckpointCommence reconciles the queue against a newly-staged
// free-set (spec.md §4.5). For each fault whose address the free-set now
// reports released: if it was Waiting, the fault is removed outright; if
// it was Writing, it is moved to Aborting and counted. A fault already
// Aborting at this point is a contract violation — checkpoints do not
// overlap. Tables whose index block was released fire their callback
// with Released and are removed; surviving tables are left in place.
//
// Requires checkpointing.is_none(); the caller must poll
// CheckpointComplete (after each subsequent RepairComplete) until it
// returns true before calling CheckpointCommence again.
func (q *Queue) CheckpointCommence(freeSet FreeSet) {
	q.assert(q.checkpointing == nil, "CheckpointCommence called while a checkpoint is already in progress")

	aborting := 0

	// Swap-remove perturbs position i by moving the last element into
	// it, so a removal must rewind one step (i--) to examine the moved
	// entry next; the loop's i++ then re-advances past it.
	for i := 0; i < len(q.dense); i++ {
		fb := &q.dense[i]
		if !freeSet.IsReleased(uint64(fb.Address)) {
			continue
		}

		switch fb.State {
		case Waiting:
			progress := fb.Progress
			q.removeFaultAt(i)
			q.releaseAccounting(progress)
			i--
		case Writing:
			fb.State = Aborting
			aborting++
		case Aborting:
			q.assert(false, "CheckpointCommence: address %d already aborting", fb.Address)
		}
	}

	for cur := q.tableHead; cur != -1; {
		next := q.tableArena[cur].next
		table := &q.tableArena[cur].table
		if freeSet.IsReleased(uint64(table.IndexAddress)) {
			q.finishTable(cur, Released)
		}
		cur = next
	}

	q.checkpointing = &checkpointState{aborting: aborting}
}

// CheckpointComplete returns true iff every write aborted by the most
// recent CheckpointCommence has since drained via RepairComplete
// (spec.md §4.5). When it returns true it clears the checkpointing state
// and asserts no Aborting faults remain; otherwise the caller polls
// again after the next RepairComplete.
func (q *Queue) CheckpointComplete() bool {
	q.assert(q.checkpointing != nil, "CheckpointComplete called with no checkpoint in progress")

	if q.checkpointing.aborting != 0 {
		return false
	}

	for i := range q.dense {
		q.assert(q.dense[i].State != Aborting, "CheckpointComplete: aborting fault at address %d remains", q.dense[i].Address)
	}

	q.checkpointing = nil
	return true
}

// Checkpointing reports whether a checkpoint reconciliation is currently
// in progress, and how many aborting writes it is still waiting on.
func (q *Queue) Checkpointing() (aborting int, inProgress bool) {
	if q.checkpointing == nil {
		return 0, false
	}
	return q.checkpointing.aborting, true
}
