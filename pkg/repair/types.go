package repair

import "github.com/bobboyms/gridrepair/pkg/gridtypes"

// State is a FaultyBlock's position in the state machine described in
// spec.md §3/§4.4:
//
//	waiting --commence--> writing --complete--> (removed)
//	   |                      |
//	   | checkpoint(released) | checkpoint(released)
//	   v                      v
//	(removed)              aborting --complete--> (removed)
type State int

const (
	// Waiting faults are eligible for NextBatchOfBlockRequests.
	Waiting State = iota
	// Writing faults have an in-flight disk write; RepairCommence moved
	// them here and only RepairComplete removes them.
	Writing
	// Aborting faults were writing when their address was released by a
	// checkpoint; their write is being drained, not counted toward any
	// table's progress.
	Aborting
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Writing:
		return "writing"
	case Aborting:
		return "aborting"
	default:
		return "unknown"
	}
}

// TableResult is the three-valued outcome a RepairTable's callback fires
// with, exactly once per enqueued table.
type TableResult int

const (
	// Repaired: every block the table needed (index + content) was
	// written successfully.
	Repaired TableResult = iota
	// Canceled: Cancel() drained the table before it finished.
	Canceled
	// Released: a checkpoint determined the table's index block had
	// been freed before the table finished.
	Released
)

func (r TableResult) String() string {
	switch r {
	case Repaired:
		return "repaired"
	case Canceled:
		return "canceled"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Progress is the tagged union of what a FaultyBlock is standing in for.
// Per Design Note §9 this is a small sealed interface with an exhaustive
// switch at every consumer, not an inheritance hierarchy.
type Progress interface {
	isProgress()
}

// ProgressBlock is a standalone single-block repair with no table
// affiliation.
type ProgressBlock struct{}

func (ProgressBlock) isProgress() {}

// ProgressTableIndex is the index block of a table repair; its arrival
// (at RepairComplete, not at RepairCommence — see the resolved Open
// Question in DESIGN.md) seeds the table's content-block enqueues.
type ProgressTableIndex struct {
	Table *RepairTable
}

func (ProgressTableIndex) isProgress() {}

// ProgressTableContent is one content block of a table repair at a known
// ordinal position within that table.
type ProgressTableContent struct {
	Table *RepairTable
	Index uint32
}

func (ProgressTableContent) isProgress() {}

// FaultyBlock is a known-corrupt-or-missing block awaiting repair.
type FaultyBlock struct {
	Address  gridtypes.Address
	Checksum gridtypes.Checksum128
	State    State
	Progress Progress
}

// TableCallback fires exactly once per enqueued table, with its terminal
// result.
type TableCallback func(*RepairTable, TableResult)

// RepairTable tracks one table repair in progress: an index block plus
// however many content blocks it turns out to reference.
//
// Unlike spec.md's intrusive record owned by the caller, this
// implementation allocates RepairTable values from a fixed-capacity
// arena inside the Queue (Design Note §9's memory-safe alternative) and
// hands the caller a stable pointer into that arena from EnqueueTable.
// The caller must still not mutate the fields directly between
// EnqueueTable and the terminal callback.
type RepairTable struct {
	IndexAddress          gridtypes.Address
	IndexChecksum         gridtypes.Checksum128
	ContentBlocksReceived bitset
	TableBlocksWritten    uint32
	// TableBlocksTotal is nil until the index block arrives (None in
	// spec.md); then 1 + content block count.
	TableBlocksTotal *uint32
	Callback         TableCallback

	slot int // index into Queue.tableArena; not for caller use
}

// HasTotal reports whether the index block has arrived yet.
func (t *RepairTable) HasTotal() bool {
	return t.TableBlocksTotal != nil
}
