package repair

import "github.com/bobboyms/gridrepair/pkg/gridtypes"

// EnqueueBlock registers a standalone single-block fault (spec.md §4.2).
// Enqueuing the same (address, checksum) twice is a no-op (P6). The
// caller must have checked EnqueueBlocksAvailable() > 0 before calling
// this for a new address; calling it over capacity, or with a checksum
// that disagrees with an existing record at the same address, is a
// contract violation.
func (q *Queue) EnqueueBlock(address gridtypes.Address, checksum gridtypes.Checksum128) {
	q.assert(!q.canceling, "EnqueueBlock called while canceling")

	if i, ok := q.lookup(address); ok {
		existing := q.dense[i]
		q.assert(existing.Checksum.Equal(checksum), "EnqueueBlock(%d): checksum mismatch with existing fault", address)
		return // duplicate: no-op (P6)
	}

	q.assert(q.EnqueueBlocksAvailable() > 0, "EnqueueBlock(%d): no slack available, caller must check EnqueueBlocksAvailable first", address)

	q.insertFault(FaultyBlock{
		Address:  address,
		Checksum: checksum,
		State:    Waiting,
		Progress: ProgressBlock{},
	})
	q.enqueuedBlocksSingle++
}

// EnqueueTable registers a table repair: installs a RepairTable and
// inserts (or upgrades) a fault for its index block (spec.md §4.2).
// Requires faulty_tables.count < tables_max and that no existing table
// already has this index_address; both are contract violations if
// broken by the caller. Returns the stable handle whose fields the
// caller must not mutate before the terminal callback fires.
func (q *Queue) EnqueueTable(callback TableCallback, address gridtypes.Address, checksum gridtypes.Checksum128) *RepairTable {
	q.assert(!q.canceling, "EnqueueTable called while canceling")
	q.assert(q.tableCount < q.options.TablesMax, "EnqueueTable(%d): faulty_tables.count == tables_max", address)
	if _, exists := q.findTableByIndexAddress(address); exists {
		q.assert(false, "EnqueueTable(%d): a table with this index_address is already enqueued", address)
	}

	table := q.allocTable(address, checksum, callback)

	if i, ok := q.lookup(address); ok {
		existing := &q.dense[i]
		q.assert(existing.Checksum.Equal(checksum), "EnqueueTable(%d): checksum mismatch with existing fault", address)
		if _, isBlock := existing.Progress.(ProgressBlock); !isBlock {
			q.assert(false, "EnqueueTable(%d): upgrade expected a standalone block fault, found %T", address, existing.Progress)
		}
		existing.Progress = ProgressTableIndex{Table: table}
		q.enqueuedBlocksSingle--
		q.enqueuedBlocksTable++
		return table
	}

	q.insertFault(FaultyBlock{
		Address:  address,
		Checksum: checksum,
		State:    Waiting,
		Progress: ProgressTableIndex{Table: table},
	})
	q.enqueuedBlocksTable++
	return table
}
