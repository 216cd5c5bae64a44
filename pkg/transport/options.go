// Package transport drives the repair queue's outstanding requests out
// to peers on a ticker, the way pkg/wal.WALWriter drives its background
// sync: a time.Ticker plus a done channel, owned entirely by this
// package so pkg/repair.Queue never has to know a goroutine exists.
package transport

import "time"

// Options configures a Cycler.
type Options struct {
	// Interval between NextBatchOfBlockRequests polls. Modeled on
	// wal.Options.SyncIntervalDuration; zero defaults to 200ms, the same
	// default the teacher's wal package picks for its own ticker.
	Interval time.Duration

	// BatchSize bounds how many requests a single tick asks the queue
	// for. Zero defaults to 16.
	BatchSize int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 200 * time.Millisecond
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	return o
}
