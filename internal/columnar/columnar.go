package columnar

import "context"

// RowChunk is one bounded window of merged rows. Chunks are opaque to
// callers: produced by ReadChunks, consumed by Write
type RowChunk interface {
	NumRows() int
}

// IO is the columnar file capability the merge pipeline runs against.
// Merge-level problems (malformed file, schema mismatch, empty merge) are
// reported as CompactionErrors; store I/O errors pass through unwrapped
type IO interface {
	// ReadChunks streams all rows of the given files in key order, re-sliced
	// into chunks of at most chunkRows rows, invoking fn once per chunk. A
	// non-nil error from fn stops the stream and is returned unchanged
	ReadChunks(ctx context.Context, keys []string, chunkRows int, fn func(RowChunk) error) error

	// Write encodes one chunk as a snappy-compressed parquet object at destKey
	Write(ctx context.Context, chunk RowChunk, destKey string) error
}
