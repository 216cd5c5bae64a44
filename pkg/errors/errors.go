// Package errors holds the repair queue's error and assertion types.
//
// Two error modes are in play, matching the module's contract: structural
// errors are ordinary Go errors a caller is expected to handle (today,
// only ErrOutOfMemory at init); everything else the queue's invariants
// forbid is a contract violation and is reported through Assertf, which
// panics rather than returning an error. The replica is a single state
// machine — failing fast and loud on an invariant violation is the
// correct behavior, not a bug to recover from.
package errors

import (
	"fmt"

	"github.com/bobboyms/gridrepair/pkg/gridtypes"
	cockroacherrors "github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
)

// ErrOutOfMemory is returned by repair.New when the requested
// options would need more capacity than the queue's owner is willing to
// reserve. It is the only structural error this module defines.
type ErrOutOfMemory struct {
	BlocksMax                int
	TablesMax                int
	LSMTableContentBlocksMax int
	CapacityCeiling          int
}

func (e *ErrOutOfMemory) Error() string {
	return fmt.Sprintf(
		"grid repair queue: requested capacity %d (blocks_max=%d + tables_max=%d * lsm_table_content_blocks_max=%d) exceeds ceiling %d",
		e.BlocksMax+e.TablesMax*e.LSMTableContentBlocksMax, e.BlocksMax, e.TablesMax, e.LSMTableContentBlocksMax, e.CapacityCeiling,
	)
}

// ChecksumMismatchError describes a caller referencing an address already
// tracked under a different checksum. The caller is expected to hold the
// authoritative reference; disagreement means the caller's bookkeeping,
// not the queue's, is wrong. Assert and Assertf never produce this type:
// pkg/repair reports a checksum mismatch as an InvariantError panic.
type ChecksumMismatchError struct {
	Address  gridtypes.Address
	Existing gridtypes.Checksum128
	Got      gridtypes.Checksum128
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("address %d: checksum mismatch, have %s want %s", e.Address, e.Existing, e.Got)
}

// InvariantError wraps any other contract violation: capacity exhausted
// without the caller checking availability first, commencing a
// non-waiting fault, completing a non-writing/non-aborting fault,
// re-entrant enqueue while canceling, and so on.
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return e.msg }

// Reporter optionally forwards fatal assertion failures to an external
// crash-reporting service before the process panics. A nil Reporter
// makes reporting a no-op, so tests and the simulation harness never
// need a live Sentry DSN configured.
type Reporter struct {
	Hub *sentry.Hub
}

// Report sends err to Sentry if a hub is configured.
func (r *Reporter) Report(err error) {
	if r == nil || r.Hub == nil {
		return
	}
	r.Hub.CaptureException(err)
}

// Assert panics with an InvariantError if cond is false. reporter may be
// nil.
func Assert(reporter *Reporter, cond bool, format string, args ...any) {
	if cond {
		return
	}
	Assertf(reporter, format, args...)
}

// Assertf unconditionally panics with a fresh InvariantError. Used where
// the impossible branch is reached via a switch's default case rather
// than a boolean condition. The reporter receives a separate
// cockroachdb/errors assertion error carrying a captured stack trace;
// the panic value itself is the plain *InvariantError.
func Assertf(reporter *Reporter, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	err := cockroacherrors.AssertionFailedf("grid repair queue: invariant violated: %s", msg)
	if reporter != nil {
		reporter.Report(err)
	}
	panic(&InvariantError{msg: msg})
}
