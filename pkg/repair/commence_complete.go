package repair

import "github.com/bobboyms/gridrepair/pkg/gridtypes"

// RepairCommence transitions a fault waiting -> writing (spec.md §4.4).
// For a table_content fault it also records the content-block ordinal
// in the table's ContentBlocksReceived bitset, which must not already be
// set. Commencing a fault that is not currently Waiting is a contract
// violation.
func (q *Queue) RepairCommence(address gridtypes.Address, checksum gridtypes.Checksum128) {
	i, ok := q.lookup(address)
	q.assert(ok, "RepairCommence(%d): no fault registered", address)
	fb := &q.dense[i]
	q.assert(fb.Checksum.Equal(checksum), "RepairCommence(%d): checksum mismatch", address)
	q.assert(fb.State == Waiting, "RepairCommence(%d): fault is %s, not waiting", address, fb.State)

	fb.State = Writing

	if content, ok := fb.Progress.(ProgressTableContent); ok {
		q.assert(!content.Table.ContentBlocksReceived.test(content.Index),
			"RepairCommence(%d): content block ordinal %d already received", address, content.Index)
		content.Table.ContentBlocksReceived.set(content.Index)
	}
}

// RepairComplete is called once the disk write for address finishes.
// rawBlockData is the fully-written block's bytes, needed only when the
// completing fault is a table's index block (to decode the content-block
// list via the configured IndexSchema). The fault must currently be
// Writing or Aborting; it is removed either way (spec.md §4.4).
func (q *Queue) RepairComplete(address gridtypes.Address, checksum gridtypes.Checksum128, rawBlockData []byte) {
	i, ok := q.lookup(address)
	q.assert(ok, "RepairComplete(%d): no fault registered", address)
	fb := q.dense[i]
	q.assert(fb.Checksum.Equal(checksum), "RepairComplete(%d): checksum mismatch", address)
	q.assert(fb.State == Writing || fb.State == Aborting, "RepairComplete(%d): fault is %s, not writing/aborting", address, fb.State)

	wasAborting := fb.State == Aborting
	progress := fb.Progress

	q.removeFaultAt(i)
	q.releaseAccounting(progress)

	if wasAborting {
		q.assert(q.checkpointing != nil && q.checkpointing.aborting > 0,
			"RepairComplete(%d): aborting fault completed outside an active checkpoint abort", address)
		q.checkpointing.aborting--
		return
	}

	switch p := progress.(type) {
	case ProgressBlock:
		// Standalone block: nothing further to account for.

	case ProgressTableIndex:
		q.onIndexBlockWritten(p.Table, rawBlockData)

	case ProgressTableContent:
		p.Table.TableBlocksWritten++
		q.maybeFinishTable(p.Table)

	default:
		q.assert(false, "RepairComplete(%d): unrecognized progress kind %T", address, progress)
	}
}

// onIndexBlockWritten seeds a table's content-block faults once its
// index block's write has completed — deliberately not at commence, so
// that any block already mid-flight at the moment a table enqueue
// upgrades it stays safe (spec.md §4.4, Design Note §9's Open Question).
func (q *Queue) onIndexBlockWritten(table *RepairTable, rawBlockData []byte) {
	q.assert(q.options.IndexSchema != nil, "RepairComplete: index block written but no IndexSchema configured")
	block, err := q.options.IndexSchema.Decode(rawBlockData)
	q.assert(err == nil, "RepairComplete: index block for table at %d failed to decode: %v", table.IndexAddress, err)

	used := block.ContentBlocksUsed()
	total := uint32(1) + used
	table.TableBlocksTotal = &total
	table.TableBlocksWritten++

	for ord := uint32(0); ord < used; ord++ {
		addr, sum := block.ContentBlock(ord)
		q.enqueueTableContent(table, ord, addr, sum)
	}

	q.maybeFinishTable(table)
}

// enqueueTableContent inserts (or upgrades) a fault for one content
// block of table at the given ordinal. If a standalone fault was
// already writing for that address — the scrubber queued it first — the
// corresponding received-bit is pre-set, matching what RepairCommence
// would have recorded had the table enqueue arrived earlier.
func (q *Queue) enqueueTableContent(table *RepairTable, ordinal uint32, address gridtypes.Address, checksum gridtypes.Checksum128) {
	if i, ok := q.lookup(address); ok {
		existing := &q.dense[i]
		q.assert(existing.Checksum.Equal(checksum),
			"RepairComplete: content block %d checksum mismatch with existing fault", address)

		wasWriting := existing.State == Writing
		existing.Progress = ProgressTableContent{Table: table, Index: ordinal}
		q.enqueuedBlocksSingle--
		q.enqueuedBlocksTable++
		if wasWriting {
			table.ContentBlocksReceived.set(ordinal)
		}
		return
	}

	q.insertFault(FaultyBlock{
		Address:  address,
		Checksum: checksum,
		State:    Waiting,
		Progress: ProgressTableContent{Table: table, Index: ordinal},
	})
	q.enqueuedBlocksTable++
}

// maybeFinishTable fires the table's Repaired callback once every block
// it needs (index + content) has been written.
func (q *Queue) maybeFinishTable(table *RepairTable) {
	if table.TableBlocksTotal != nil && table.TableBlocksWritten == *table.TableBlocksTotal {
		q.finishTable(table.slot, Repaired)
	}
}
