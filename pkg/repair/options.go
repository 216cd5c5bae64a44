package repair

import (
	repairerrors "github.com/bobboyms/gridrepair/pkg/errors"
	"github.com/bobboyms/gridrepair/pkg/gridtypes"
)

// FreeSet is the checkpointed free-set oracle the queue consults in
// CheckpointCommence. Both queries are pure reads over the current
// checkpoint's view; pkg/freeset.Set satisfies this interface.
type FreeSet interface {
	IsFree(address uint64) bool
	IsReleased(address uint64) bool
}

// IndexSchemaBlock is a decoded index block: the content blocks it
// references. lsmschema.IndexBlock satisfies this.
type IndexSchemaBlock interface {
	ContentBlocksUsed() uint32
	ContentBlock(i uint32) (gridtypes.Address, gridtypes.Checksum128)
}

// IndexSchema decodes raw index-block bytes. pkg/lsmschema provides a
// concrete implementation.
type IndexSchema interface {
	Decode(raw []byte) (IndexSchemaBlock, error)
}

// Options configures a Queue's fixed capacity and behavior.
type Options struct {
	// BlocksMax is the slack reserved for standalone block repairs.
	BlocksMax int
	// TablesMax is the maximum number of concurrent table repairs.
	TablesMax int
	// LSMTableContentBlocksMax is the worst-case number of content
	// blocks a single table can reference; used to size the reserved
	// slack for table repairs (tables_max * this).
	LSMTableContentBlocksMax int

	FreeSet     FreeSet
	IndexSchema IndexSchema

	// Reporter optionally forwards fatal assertion failures to an
	// external crash-reporting service before the process panics. May
	// be nil.
	Reporter *repairerrors.Reporter

	// CapacityCeiling, if non-zero, bounds the total FaultMap capacity
	// (BlocksMax + TablesMax*LSMTableContentBlocksMax) New will
	// accept, modeling the structural ErrOutOfMemory failure spec.md §7
	// allows at init. Zero means no ceiling is enforced.
	CapacityCeiling int
}

func (o Options) capacity() int {
	return o.BlocksMax + o.TablesMax*o.LSMTableContentBlocksMax
}
