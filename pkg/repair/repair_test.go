package repair_test

import (
	"testing"

	repairerrors "github.com/bobboyms/gridrepair/pkg/errors"
	"github.com/bobboyms/gridrepair/pkg/freeset"
	"github.com/bobboyms/gridrepair/pkg/gridtypes"
	"github.com/bobboyms/gridrepair/pkg/lsmschema"
	"github.com/bobboyms/gridrepair/pkg/repair"
)

// schemaAdapter satisfies repair.IndexSchema by delegating to
// lsmschema.Decode; lsmschema.IndexBlock already implements
// repair.IndexSchemaBlock's method set.
type schemaAdapter struct{}

func (schemaAdapter) Decode(raw []byte) (repair.IndexSchemaBlock, error) {
	return lsmschema.Decode(raw)
}

func sum(lo uint64) gridtypes.Checksum128 { return gridtypes.Checksum128{Lo: lo} }

func newQueue(t *testing.T, blocksMax, tablesMax, lsmMax int, fs repair.FreeSet) *repair.Queue {
	t.Helper()
	q, err := repair.New(repair.Options{
		BlocksMax:                blocksMax,
		TablesMax:                tablesMax,
		LSMTableContentBlocksMax: lsmMax,
		FreeSet:                  fs,
		IndexSchema:              schemaAdapter{},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return q
}

func checkInvariants(t *testing.T, q *repair.Queue, fs repair.FreeSet) {
	t.Helper()
	if err := q.CheckInvariants(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
	if fs != nil {
		if err := q.CheckInvariantsAgainstFreeSet(fs); err != nil {
			t.Fatalf("invariant violated: %v", err)
		}
	}
}

// S1 — single-block happy path.
func TestS1_SingleBlockHappyPath(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 0, 0, fs)

	q.EnqueueBlock(100, sum(0xAA))
	checkInvariants(t, q, fs)

	reqs := make([]gridtypes.BlockRequest, 2)
	n := q.NextBatchOfBlockRequests(reqs)
	if n != 1 {
		t.Fatalf("expected 1 request, got %d", n)
	}
	if reqs[0].Address != 100 || !reqs[0].Checksum.Equal(sum(0xAA)) {
		t.Fatalf("unexpected request: %+v", reqs[0])
	}

	if !q.RepairWaiting(100, sum(0xAA)) {
		t.Fatal("expected fault 100 to be waiting")
	}

	q.RepairCommence(100, sum(0xAA))
	q.RepairComplete(100, sum(0xAA), nil)

	if q.FaultyBlockCount() != 0 {
		t.Fatalf("expected empty queue, got %d faults", q.FaultyBlockCount())
	}
	checkInvariants(t, q, fs)
}

// S2 — table repair with 3 content blocks.
func TestS2_TableRepairThreeContentBlocks(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 0, 1, 8, fs)

	var result repair.TableResult
	var fired bool
	table := q.EnqueueTable(func(tbl *repair.RepairTable, r repair.TableResult) {
		fired = true
		result = r
	}, 200, sum(0xBB))
	checkInvariants(t, q, fs)

	reqs := make([]gridtypes.BlockRequest, 4)
	n := q.NextBatchOfBlockRequests(reqs)
	if n != 1 || reqs[0].Address != 200 {
		t.Fatalf("expected single index-block request, got %d: %+v", n, reqs[:n])
	}

	q.RepairCommence(200, sum(0xBB))

	indexBlock := lsmschema.Encode(lsmschema.IndexBlock{Entries: []lsmschema.ContentEntry{
		{Address: 201, Checksum: sum(0x01)},
		{Address: 202, Checksum: sum(0x02)},
		{Address: 203, Checksum: sum(0x03)},
	}})
	q.RepairComplete(200, sum(0xBB), indexBlock)
	checkInvariants(t, q, fs)

	if q.FaultyBlockCount() != 3 {
		t.Fatalf("expected 3 content faults, got %d", q.FaultyBlockCount())
	}
	if q.FaultyTableCount() != 1 {
		t.Fatalf("expected 1 table, got %d", q.FaultyTableCount())
	}
	if *table.TableBlocksTotal != 4 {
		t.Fatalf("expected table_blocks_total=4, got %d", *table.TableBlocksTotal)
	}
	if table.TableBlocksWritten != 1 {
		t.Fatalf("expected table_blocks_written=1, got %d", table.TableBlocksWritten)
	}

	for _, addr := range []gridtypes.Address{201, 202, 203} {
		var s gridtypes.Checksum128
		switch addr {
		case 201:
			s = sum(0x01)
		case 202:
			s = sum(0x02)
		case 203:
			s = sum(0x03)
		}
		q.RepairCommence(addr, s)
		q.RepairComplete(addr, s, nil)
	}

	if !fired {
		t.Fatal("expected table callback to fire")
	}
	if result != repair.Repaired {
		t.Fatalf("expected Repaired, got %v", result)
	}
	if q.FaultyTableCount() != 0 {
		t.Fatalf("expected table unlinked, got count %d", q.FaultyTableCount())
	}
	checkInvariants(t, q, fs)
}

// S3 — upgrade scenario: a standalone block mid-write gets upgraded to a
// table index block, and no callback/progress is lost.
func TestS3_UpgradeScenario(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 1, 8, fs)

	q.EnqueueBlock(200, sum(0xBB))
	q.RepairCommence(200, sum(0xBB))
	checkInvariants(t, q, fs)

	var fired bool
	var result repair.TableResult
	table := q.EnqueueTable(func(tbl *repair.RepairTable, r repair.TableResult) {
		fired = true
		result = r
	}, 200, sum(0xBB))
	checkInvariants(t, q, fs)

	if q.FaultyBlockCount() != 1 {
		t.Fatalf("expected the upgraded fault to still be the only one, got %d", q.FaultyBlockCount())
	}

	indexBlock := lsmschema.Encode(lsmschema.IndexBlock{})
	q.RepairComplete(200, sum(0xBB), indexBlock)

	// A table with zero content blocks is done as soon as its index
	// block's write completes: table_blocks_written (1) reaches
	// table_blocks_total (1) with nothing left to wait on.
	if !fired {
		t.Fatal("expected the callback to fire once the (empty) index block finished writing")
	}
	if result != repair.Repaired {
		t.Fatalf("expected Repaired, got %v", result)
	}
	_ = table
}

// S3b — a more realistic upgrade with content blocks, verifying the
// index write still counts toward the table after the upgrade.
func TestS3_UpgradeThenCompletesTable(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 1, 8, fs)

	q.EnqueueBlock(200, sum(0xBB))
	q.RepairCommence(200, sum(0xBB))

	table := q.EnqueueTable(func(tbl *repair.RepairTable, r repair.TableResult) {}, 200, sum(0xBB))

	indexBlock := lsmschema.Encode(lsmschema.IndexBlock{Entries: []lsmschema.ContentEntry{
		{Address: 300, Checksum: sum(0x10)},
	}})
	q.RepairComplete(200, sum(0xBB), indexBlock)

	if table.TableBlocksWritten != 1 {
		t.Fatalf("expected index write to count toward table, got written=%d", table.TableBlocksWritten)
	}
	if *table.TableBlocksTotal != 2 {
		t.Fatalf("expected total=2, got %d", *table.TableBlocksTotal)
	}
}

// S4 — release during write: a writing fault is aborted by a checkpoint
// and only clears once its write drains.
func TestS4_ReleaseDuringWrite(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 0, 0, fs)

	q.EnqueueBlock(300, sum(0xCC))
	q.RepairCommence(300, sum(0xCC))

	fs.MarkReleased(300)
	q.CheckpointCommence(fs)

	aborting, inProgress := q.Checkpointing()
	if !inProgress || aborting != 1 {
		t.Fatalf("expected checkpointing.aborting=1, got %d (inProgress=%v)", aborting, inProgress)
	}

	if q.CheckpointComplete() {
		t.Fatal("expected CheckpointComplete to return false while a write is aborting")
	}

	q.RepairComplete(300, sum(0xCC), nil)

	if !q.CheckpointComplete() {
		t.Fatal("expected CheckpointComplete to return true once the aborting write drained")
	}
	if q.FaultyBlockCount() != 0 {
		t.Fatalf("expected fault removed, got count %d", q.FaultyBlockCount())
	}
}

// S5 — release of a waiting fault: removed outright, no write involved.
func TestS5_ReleaseOfWaitingFault(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 0, 0, fs)

	q.EnqueueBlock(400, sum(0xDD))
	fs.MarkReleased(400)

	q.CheckpointCommence(fs)
	if q.FaultyBlockCount() != 0 {
		t.Fatalf("expected waiting fault removed outright, got count %d", q.FaultyBlockCount())
	}
	if !q.CheckpointComplete() {
		t.Fatal("expected CheckpointComplete to return true immediately")
	}
}

// S6 — cancel fires callbacks in FIFO order, empties the FaultMap, and
// latches canceling.
func TestS6_Cancel(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 8, 2, 8, fs)

	var order []int
	q.EnqueueTable(func(tbl *repair.RepairTable, r repair.TableResult) {
		order = append(order, 1)
		if r != repair.Canceled {
			t.Errorf("expected Canceled, got %v", r)
		}
	}, 500, sum(0x50))
	q.EnqueueTable(func(tbl *repair.RepairTable, r repair.TableResult) {
		order = append(order, 2)
		if r != repair.Canceled {
			t.Errorf("expected Canceled, got %v", r)
		}
	}, 600, sum(0x60))

	for _, a := range []gridtypes.Address{700, 701, 702} {
		q.EnqueueBlock(a, sum(uint64(a)))
	}
	q.RepairCommence(700, sum(700))

	q.Cancel()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected callbacks in FIFO order [1 2], got %v", order)
	}
	if q.FaultyBlockCount() != 0 || q.FaultyTableCount() != 0 {
		t.Fatalf("expected empty queue after cancel, got blocks=%d tables=%d", q.FaultyBlockCount(), q.FaultyTableCount())
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected EnqueueBlock after Cancel to panic (canceling latch)")
		}
	}()
	q.EnqueueBlock(800, sum(800))
}

// P6 — duplicate enqueue_block is idempotent.
func TestP6_DuplicateEnqueueBlockIsIdempotent(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 0, 0, fs)

	q.EnqueueBlock(100, sum(0xAA))
	before := q.FaultyBlockCount()
	q.EnqueueBlock(100, sum(0xAA))
	after := q.FaultyBlockCount()

	if before != after {
		t.Fatalf("expected idempotent enqueue, before=%d after=%d", before, after)
	}
}

func TestEnqueueBlock_ChecksumMismatchPanics(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 0, 0, fs)
	q.EnqueueBlock(100, sum(0xAA))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on checksum mismatch")
		}
	}()
	q.EnqueueBlock(100, sum(0xBB))
}

// P3 — cycler fairness: with a batch size smaller than the fault count,
// every waiting fault appears at least once within ceil(k/b) calls.
func TestP3_CyclerFairness(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 10, 0, 0, fs)

	addrs := []gridtypes.Address{1, 2, 3, 4, 5}
	for _, a := range addrs {
		q.EnqueueBlock(a, sum(uint64(a)))
	}

	seen := make(map[gridtypes.Address]bool)
	batch := 2
	calls := (len(addrs) + batch - 1) / batch
	reqs := make([]gridtypes.BlockRequest, batch)
	for i := 0; i < calls; i++ {
		n := q.NextBatchOfBlockRequests(reqs)
		for _, r := range reqs[:n] {
			seen[r.Address] = true
		}
	}

	for _, a := range addrs {
		if !seen[a] {
			t.Errorf("address %d never appeared in %d calls", a, calls)
		}
	}
}

// P8 — checkpoint liveness: CheckpointComplete returns true after
// exactly checkpointing.aborting subsequent RepairComplete calls.
func TestP8_CheckpointLiveness(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 8, 0, 0, fs)

	addrs := []gridtypes.Address{10, 20, 30}
	for _, a := range addrs {
		q.EnqueueBlock(a, sum(uint64(a)))
		q.RepairCommence(a, sum(uint64(a)))
		fs.MarkReleased(uint64(a))
	}

	q.CheckpointCommence(fs)
	aborting, _ := q.Checkpointing()
	if aborting != len(addrs) {
		t.Fatalf("expected aborting=%d, got %d", len(addrs), aborting)
	}

	for i, a := range addrs {
		if q.CheckpointComplete() {
			t.Fatalf("expected CheckpointComplete to still be false after %d completions", i)
		}
		q.RepairComplete(a, sum(uint64(a)), nil)
	}

	if !q.CheckpointComplete() {
		t.Fatal("expected CheckpointComplete to return true after all aborting writes drained")
	}
}

func TestRepairCommence_NonWaitingPanics(t *testing.T) {
	fs := freeset.New(1000)
	q := newQueue(t, 4, 0, 0, fs)
	q.EnqueueBlock(100, sum(0xAA))
	q.RepairCommence(100, sum(0xAA))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic commencing an already-writing fault")
		}
	}()
	q.RepairCommence(100, sum(0xAA))
}

func TestNewQueue_CapacityCeilingReturnsOutOfMemory(t *testing.T) {
	_, err := repair.New(repair.Options{
		BlocksMax:                100,
		TablesMax:                10,
		LSMTableContentBlocksMax: 100,
		CapacityCeiling:          50,
	})
	if err == nil {
		t.Fatal("expected ErrOutOfMemory")
	}
	var oom *repairerrors.ErrOutOfMemory
	if !asErrOutOfMemory(err, &oom) {
		t.Fatalf("expected *repairerrors.ErrOutOfMemory, got %T", err)
	}
}

func asErrOutOfMemory(err error, target **repairerrors.ErrOutOfMemory) bool {
	if e, ok := err.(*repairerrors.ErrOutOfMemory); ok {
		*target = e
		return true
	}
	return false
}
