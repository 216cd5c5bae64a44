// Package repair implements the grid's repair queue: the in-memory
// bookkeeping that tracks corrupt-or-missing blocks, cycles outstanding
// repair requests to peers in bounded batches, and reconciles itself
// against the checkpointed free-set.
//
// A Queue is single-threaded and unsynchronized by design — every public
// method is meant to be called from one goroutine (the grid's event
// loop, see pkg/grid) and runs to completion without suspension. All
// storage is reserved up front in New; no public method can fail with an
// out-of-memory condition afterward. Violating one of the documented
// preconditions (capacity exhausted without checking
// EnqueueBlocksAvailable first, commencing a non-waiting fault, and so
// on) panics via pkg/errors.Assert rather than returning an error: these
// are programming mistakes in the caller, not recoverable conditions.
package repair
