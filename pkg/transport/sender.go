package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobboyms/gridrepair/pkg/gridtypes"
)

// Sender dispatches a batch of block requests to peers. Real networking
// is out of scope (spec's "Out of scope" list carries forward
// unchanged); this is the seam a grid owner plugs a transport into.
type Sender interface {
	SendBlockRequests(ctx context.Context, batchID string, requests []gridtypes.BlockRequest) error
}

// LoopbackSender answers block requests from a local peer-simulation
// map instead of a network — used by pkg/grid and by tests to drive a
// Grid end-to-end without real sockets.
type LoopbackSender struct {
	mu    sync.Mutex
	peers map[gridtypes.Address][]byte

	// OnDelivered, if set, is invoked synchronously for every request
	// this sender can answer from its peer map, with the block bytes it
	// "received" — the caller wires this to Queue.RepairComplete (via
	// Grid's command loop) to close the loop without real networking.
	OnDelivered func(address gridtypes.Address, checksum gridtypes.Checksum128, data []byte)
}

// NewLoopbackSender constructs a sender with an empty peer map.
func NewLoopbackSender() *LoopbackSender {
	return &LoopbackSender{peers: make(map[gridtypes.Address][]byte)}
}

// Seed registers the bytes a simulated peer holds for address, so a
// later SendBlockRequests for it can be answered.
func (s *LoopbackSender) Seed(address gridtypes.Address, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[address] = data
}

// SendBlockRequests answers every request it has peer data for via
// OnDelivered, and reports the ones it doesn't as an error listing their
// addresses (a real transport would retry those on the next tick; a
// standalone error type isn't warranted for a loopback test double).
func (s *LoopbackSender) SendBlockRequests(ctx context.Context, batchID string, requests []gridtypes.BlockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []gridtypes.Address
	for _, req := range requests {
		data, ok := s.peers[req.Address]
		if !ok {
			missing = append(missing, req.Address)
			continue
		}
		if s.OnDelivered != nil {
			s.OnDelivered(req.Address, req.Checksum, data)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("transport: batch %s: no peer has %v", batchID, missing)
	}
	return nil
}
