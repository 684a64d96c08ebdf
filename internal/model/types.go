package model

import (
	"strconv"
	"strings"
	"time"
)

// FileDescriptor is an immutable snapshot of one object-store entry taken at
// crawl time
type FileDescriptor struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// Partition is a leaf prefix (no further sub-prefixes) and the files directly
// under it. Prefix always ends with "/"
type Partition struct {
	Prefix string
	Files  []FileDescriptor
}

// FallbackSourceType is used when a partition path carries no source= segment
const FallbackSourceType = "data"

// SourceType derives the partition's source label from the first path segment
// after the literal "source=". The same value serves as the base name for
// compacted output files
func (p Partition) SourceType() string {
	idx := strings.Index(p.Prefix, "source=")
	if idx < 0 {
		return FallbackSourceType
	}
	rest := p.Prefix[idx+len("source="):]
	if cut := strings.IndexByte(rest, '/'); cut >= 0 {
		rest = rest[:cut]
	}
	if rest == "" {
		return FallbackSourceType
	}
	return rest
}

// YearMonth parses year=<Y> and month=<M> path segments. A missing or
// malformed segment yields zero for that component
func (p Partition) YearMonth() (year int, month int) {
	for _, seg := range strings.Split(p.Prefix, "/") {
		if v, ok := strings.CutPrefix(seg, "year="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				year = n
			}
		} else if v, ok := strings.CutPrefix(seg, "month="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				month = n
			}
		}
	}
	return year, month
}

// MergeBatch is a group of source files planned to be merged into one output.
// The planner guarantees TotalBytes <= the target byte budget and at least
// two members for every batch it emits
type MergeBatch struct {
	Files      []FileDescriptor
	TotalBytes int64
}

// Keys returns the object keys of the batch members in batch order
func (b MergeBatch) Keys() []string {
	keys := make([]string, len(b.Files))
	for i, f := range b.Files {
		keys[i] = f.Key
	}
	return keys
}

// CompactionOutcome is the per-batch result used to gate source deletion.
// OutputKeys lists every chunk output written before any failure; partial
// output from a failed batch is never rolled back
type CompactionOutcome struct {
	Succeeded   bool
	OutputKeys  []string
	RowsWritten int64
	Err         error
}

// CycleStats aggregates one compaction cycle for the final summary log
type CycleStats struct {
	PartitionsCrawled  int64
	PartitionsSkipped  int64
	PartitionsEmpty    int64
	BatchesPlanned     int64
	BatchesMerged      int64
	BatchesFailed      int64
	FilesCompacted     int64
	FilesDeleted       int64
	OutputFilesWritten int64
	BytesCompacted     int64
	Duration           time.Duration
}
