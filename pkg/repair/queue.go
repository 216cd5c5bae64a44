package repair

import (
	repairerrors "github.com/bobboyms/gridrepair/pkg/errors"
	"github.com/bobboyms/gridrepair/pkg/gridtypes"
)

// tableNode is one slot in the table arena: the RepairTable payload plus
// the doubly-linked FIFO pointers threading it through the Queue's active
// table list (tableHead .. tableTail).
// spec.md describes a singly-linked FIFO owned by the caller; here the
// arena is owned by the Queue (Design Note §9's memory-safe alternative)
// and is doubly linked so a table can be unlinked on completion without
// re-walking the whole list.
type tableNode struct {
	table      RepairTable
	next, prev int // -1 sentinel
	inUse      bool
}

type checkpointState struct {
	aborting int
}

// Queue is the grid's repair queue: spec.md §3's Queue record.
type Queue struct {
	options Options

	// FaultMap: dense array + address index, per spec.md §4.1.
	dense     []FaultyBlock
	blockIdx  map[gridtypes.Address]int
	repairIdx int // faulty_blocks_repair_index

	enqueuedBlocksSingle int
	enqueuedBlocksTable  int

	// Table arena: fixed capacity, doubly-linked active FIFO + free list.
	tableArena     []tableNode
	tableFreeStack []int
	tableHead      int
	tableTail      int
	tableCount     int

	checkpointing *checkpointState
	canceling     bool
}

// New allocates a Queue with the given Options. All storage is reserved
// here; no later public method can fail for lack of memory. The only
// failure mode is ErrOutOfMemory, returned when CapacityCeiling is set
// and the requested capacity would exceed it.
func New(options Options) (*Queue, error) {
	capacity := options.capacity()
	if options.CapacityCeiling > 0 && capacity > options.CapacityCeiling {
		return nil, &repairerrors.ErrOutOfMemory{
			BlocksMax:                options.BlocksMax,
			TablesMax:                options.TablesMax,
			LSMTableContentBlocksMax: options.LSMTableContentBlocksMax,
			CapacityCeiling:          options.CapacityCeiling,
		}
	}

	q := &Queue{
		options:   options,
		dense:     make([]FaultyBlock, 0, capacity),
		blockIdx:  make(map[gridtypes.Address]int, capacity),
		tableHead: -1,
		tableTail: -1,
	}

	q.tableArena = make([]tableNode, options.TablesMax)
	q.tableFreeStack = make([]int, options.TablesMax)
	for i := 0; i < options.TablesMax; i++ {
		q.tableFreeStack[i] = options.TablesMax - 1 - i
	}

	return q, nil
}

// EnqueueBlocksAvailable returns the slack available for standalone
// block inserts after reserving the worst-case footprint of every
// permitted table (spec.md §4.2). This conservative reservation is what
// gives tables_max a hard upper bound without dynamic growth.
func (q *Queue) EnqueueBlocksAvailable() int {
	reserved := q.options.TablesMax * q.options.LSMTableContentBlocksMax
	return cap(q.dense) - q.enqueuedBlocksSingle - reserved
}

// FaultyBlockCount returns |faulty_blocks| (I1's left-hand side).
func (q *Queue) FaultyBlockCount() int {
	return len(q.dense)
}

// FaultyTableCount returns |faulty_tables|.
func (q *Queue) FaultyTableCount() int {
	return q.tableCount
}

func (q *Queue) assert(cond bool, format string, args ...any) {
	repairerrors.Assert(q.options.Reporter, cond, format, args...)
}
