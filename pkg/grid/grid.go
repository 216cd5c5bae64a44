// Package grid owns a repair queue, a free-set, an LSM index-block
// codec, a block store, and a request cycler, and serializes every call
// into pkg/repair.Queue through a single command-loop goroutine — the
// same shape as wal.WALWriter owning a mutex plus a background-sync
// goroutine, generalized to a full command queue because the repair
// queue's contract (spec.md §5) forbids even read-only concurrent
// access, not just concurrent writes.
package grid

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bobboyms/gridrepair/pkg/blockstore"
	repairerrors "github.com/bobboyms/gridrepair/pkg/errors"
	"github.com/bobboyms/gridrepair/pkg/freeset"
	"github.com/bobboyms/gridrepair/pkg/gridtypes"
	"github.com/bobboyms/gridrepair/pkg/lsmschema"
	"github.com/bobboyms/gridrepair/pkg/repair"
	"github.com/bobboyms/gridrepair/pkg/transport"
)

// schemaAdapter satisfies repair.IndexSchema by delegating to
// lsmschema.Decode; lsmschema.IndexBlock already implements
// repair.IndexSchemaBlock's method set.
type schemaAdapter struct{}

func (schemaAdapter) Decode(raw []byte) (repair.IndexSchemaBlock, error) {
	return lsmschema.Decode(raw)
}

// Options configures a Grid.
type Options struct {
	BlocksMax                int
	TablesMax                int
	LSMTableContentBlocksMax int
	GridAddressSpace         uint64

	BlockStoreDir string
	Transport     transport.Options

	Reporter *repairerrors.Reporter
	Logger   *slog.Logger
	Metrics  *transport.Metrics
}

// Grid wires pkg/repair.Queue to its ambient collaborators: the
// checkpointed free-set, the index-block codec, durable block storage,
// and a request cycler. Every call into it is funneled through a single
// goroutine via cmds, so the queue's single-threaded contract holds
// regardless of how many goroutines call into Grid's exported methods.
type Grid struct {
	queue   *repair.Queue
	freeSet *freeset.Set
	store   *blockstore.Store
	cycler  *transport.Cycler
	sender  *transport.LoopbackSender
	logger  *slog.Logger
	metrics *transport.Metrics

	cmds chan func()
	done chan struct{}
}

// New constructs a Grid and starts its command-loop goroutine and
// transport cycler. Call Close to stop both.
func New(opts Options) (*Grid, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	store, err := blockstore.Open(opts.BlockStoreDir)
	if err != nil {
		return nil, fmt.Errorf("grid: open block store: %w", err)
	}

	queue, err := repair.New(repair.Options{
		BlocksMax:                opts.BlocksMax,
		TablesMax:                opts.TablesMax,
		LSMTableContentBlocksMax: opts.LSMTableContentBlocksMax,
		IndexSchema:              schemaAdapter{},
		Reporter:                 opts.Reporter,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("grid: new repair queue: %w", err)
	}

	sender := transport.NewLoopbackSender()
	g := &Grid{
		queue:   queue,
		freeSet: freeset.New(opts.GridAddressSpace),
		store:   store,
		sender:  sender,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		cmds:    make(chan func()),
		done:    make(chan struct{}),
	}

	sender.OnDelivered = g.onBlockDelivered

	// The cycler runs on its own ticker goroutine, so it is handed a
	// proxy that routes every queue touch back through g.run rather
	// than the queue itself — otherwise its goroutine would call
	// Queue.NextBatchOfBlockRequests concurrently with whatever the
	// command loop is doing, which pkg/repair's single-threaded
	// contract forbids.
	g.cycler = transport.NewCycler(queueProxy{g}, sender, opts.Transport, opts.Logger, opts.Metrics)

	go g.loop()
	g.cycler.Start(context.Background())

	return g, nil
}

// Close stops the cycler and the command loop, then closes the block
// store. It does not wait for in-flight commands submitted concurrently
// with Close to finish; callers should stop submitting new work first.
func (g *Grid) Close() error {
	g.cycler.Stop()
	close(g.done)
	return g.store.Close()
}

// loop is the single goroutine every queue-touching method funnels
// through, mirroring wal.WALWriter.backgroundSync's select-on-ticker-or-
// done shape but for an arbitrary command queue instead of a fixed sync
// action.
func (g *Grid) loop() {
	for {
		select {
		case cmd := <-g.cmds:
			cmd()
		case <-g.done:
			return
		}
	}
}

// run submits fn to the command loop and blocks until it has executed.
func (g *Grid) run(fn func()) {
	done := make(chan struct{})
	g.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// onBlockDelivered is the loopback sender's callback for an answered
// block request: it writes the bytes to the block store and reports the
// write's completion to the queue, all on the command-loop goroutine so
// it can safely call RepairCommence/RepairComplete.
func (g *Grid) onBlockDelivered(address gridtypes.Address, checksum gridtypes.Checksum128, data []byte) {
	g.run(func() {
		if !g.queue.RepairWaiting(address, checksum) {
			g.logger.Warn("delivered block no longer awaited", "address", address)
			return
		}
		g.queue.RepairCommence(address, checksum)

		if _, err := g.store.Put(address, data); err != nil {
			g.logger.Error("block store write failed", "address", address, "error", err)
			return
		}
		g.freeSet.MarkAllocated(uint64(address))
		g.queue.RepairComplete(address, checksum, data)

		if g.metrics != nil {
			g.metrics.FaultyBlocks.Set(float64(g.queue.FaultyBlockCount()))
		}
	})
}

// queueProxy adapts Grid to transport.Queue, serializing the cycler's
// ticker-goroutine calls through the command loop.
type queueProxy struct{ g *Grid }

func (p queueProxy) NextBatchOfBlockRequests(requests []gridtypes.BlockRequest) int {
	var n int
	p.g.run(func() { n = p.g.queue.NextBatchOfBlockRequests(requests) })
	return n
}

// EnqueueBlock registers a standalone block fault.
func (g *Grid) EnqueueBlock(address gridtypes.Address, checksum gridtypes.Checksum128) {
	g.run(func() { g.queue.EnqueueBlock(address, checksum) })
}

// SeedPeerBlock registers data as available from a simulated peer for
// address, so the next time the cycler requests it, the loopback
// transport can answer and drive the repair to completion. Real
// networking is out of scope; this is the seam tests use to exercise the
// whole grid without one.
func (g *Grid) SeedPeerBlock(address gridtypes.Address, data []byte) {
	g.sender.Seed(address, data)
}

// EnqueueTable registers a table repair, returning once the table has
// been installed; the callback itself still fires from the command-loop
// goroutine whenever the table reaches a terminal state.
func (g *Grid) EnqueueTable(callback repair.TableCallback, address gridtypes.Address, checksum gridtypes.Checksum128) {
	wrapped := callback
	if g.metrics != nil {
		wrapped = func(table *repair.RepairTable, result repair.TableResult) {
			g.metrics.TableCallbacks.WithLabelValues(result.String()).Inc()
			if callback != nil {
				callback(table, result)
			}
		}
	}
	g.run(func() { g.queue.EnqueueTable(wrapped, address, checksum) })
}

// ReconstructFromFaults replays faults observed during a startup-time
// grid read pass into EnqueueBlock calls, bounded by
// EnqueueBlocksAvailable — the spec's note that "the repair queue is
// reconstructed from grid-read faults after recovery". Faults beyond the
// available slack are reported, not enqueued, so the caller can decide
// whether that is fatal for its recovery policy.
func (g *Grid) ReconstructFromFaults(faults []gridtypes.BlockRequest) (enqueued int, skipped []gridtypes.BlockRequest) {
	g.run(func() {
		for _, f := range faults {
			if g.queue.EnqueueBlocksAvailable() <= 0 {
				skipped = append(skipped, f)
				continue
			}
			g.queue.EnqueueBlock(f.Address, f.Checksum)
			enqueued++
		}
	})
	return enqueued, skipped
}

// CheckpointCommence reconciles the queue against the grid's free-set.
func (g *Grid) CheckpointCommence() {
	g.run(func() { g.queue.CheckpointCommence(g.freeSet) })
}

// CheckpointComplete polls whether the most recent CheckpointCommence has
// fully drained; on success it also commits the free-set's staged
// releases, since that is only safe once every aborting write has
// drained.
func (g *Grid) CheckpointComplete() bool {
	var done bool
	g.run(func() {
		done = g.queue.CheckpointComplete()
		if done {
			g.freeSet.Commit()
		}
	})
	return done
}

// FaultyBlockCount returns the queue's current fault count.
func (g *Grid) FaultyBlockCount() int {
	var n int
	g.run(func() { n = g.queue.FaultyBlockCount() })
	return n
}

// FreeSet exposes the grid's free-set oracle for callers that need to
// stage releases (MarkReleased) ahead of the next CheckpointCommence.
func (g *Grid) FreeSet() *freeset.Set {
	return g.freeSet
}
