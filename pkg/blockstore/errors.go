package blockstore

import "errors"

// ErrBlockMissing is returned by Get when no value is stored at the
// requested address yet (the repair hasn't landed).
var ErrBlockMissing = errors.New("blockstore: block missing")

// ErrChecksumMismatch is returned by Get when the stored bytes no longer
// match the checksum the caller expected.
var ErrChecksumMismatch = errors.New("blockstore: checksum mismatch")
