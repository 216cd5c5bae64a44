package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bobboyms/gridrepair/pkg/gridtypes"
	"github.com/google/uuid"
)

// Queue is the slice of pkg/repair.Queue's surface a Cycler needs. Kept
// narrow and local rather than importing pkg/repair directly, so
// pkg/transport stays usable against a fake in tests without pulling in
// the whole queue.
type Queue interface {
	NextBatchOfBlockRequests(requests []gridtypes.BlockRequest) int
}

// Cycler polls a Queue on a fixed interval and hands whatever batch it
// gets back to a Sender, the same ticker/done-channel shape as
// wal.WALWriter.backgroundSync. It does not call the queue directly from
// more than one goroutine; callers that also mutate the queue from
// elsewhere must serialize through the same command loop Grid provides.
type Cycler struct {
	queue   Queue
	sender  Sender
	opts    Options
	logger  *slog.Logger
	metrics *Metrics
	seq     *Sequence

	mu     sync.Mutex
	done   chan struct{}
	ticker *time.Ticker
	closed bool
}

// NewCycler constructs a Cycler. logger and metrics may be nil; a nil
// logger falls back to slog.Default(), a nil metrics set skips
// instrumentation entirely.
func NewCycler(queue Queue, sender Sender, opts Options, logger *slog.Logger, metrics *Metrics) *Cycler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cycler{
		queue:   queue,
		sender:  sender,
		opts:    opts.withDefaults(),
		logger:  logger,
		metrics: metrics,
		seq:     NewSequence(0),
		done:    make(chan struct{}),
	}
}

// Start launches the background ticker goroutine. Start must be called
// at most once per Cycler.
func (c *Cycler) Start(ctx context.Context) {
	c.ticker = time.NewTicker(c.opts.Interval)
	go c.run(ctx)
}

// Stop halts the ticker and signals the background goroutine to exit. It
// does not wait for that goroutine, or for a tick already in progress,
// to finish. Safe to call multiple times.
func (c *Cycler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.done)
}

func (c *Cycler) run(ctx context.Context) {
	for {
		select {
		case <-c.ticker.C:
			c.tick(ctx)
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

// tick is also exported indirectly via Start's goroutine, but kept
// callable directly so tests can drive a single cycle deterministically
// instead of racing a real ticker.
func (c *Cycler) Tick(ctx context.Context) {
	c.tick(ctx)
}

func (c *Cycler) tick(ctx context.Context) {
	requests := make([]gridtypes.BlockRequest, c.opts.BatchSize)
	n := c.queue.NextBatchOfBlockRequests(requests)
	if n == 0 {
		return
	}
	requests = requests[:n]

	batchID := uuid.NewString()
	seq := c.seq.Next()
	c.logger.Debug("dispatching repair batch", "batch_id", batchID, "sequence", seq, "count", n)

	if err := c.sender.SendBlockRequests(ctx, batchID, requests); err != nil {
		c.logger.Warn("repair batch send failed", "batch_id", batchID, "sequence", seq, "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.RequestsSent.Add(float64(n))
	}
}
