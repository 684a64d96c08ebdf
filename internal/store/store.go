package store

import (
	"context"
	"io"

	"github.com/project-koku/parquet-compactor/internal/model"
)

// Object is an open object-store entry. Parquet readers need random access,
// so ReaderAt is required alongside sequential reading
type Object interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

// ObjectStore is the object-store capability the compaction engine runs
// against. Listing is directory-style with "/" as the delimiter. All errors
// returned from these methods are transport failures and abort the cycle
type ObjectStore interface {
	// ListPrefixes returns the immediate sub-prefixes under prefix
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)

	// ListEntries returns the entries directly under a leaf prefix
	ListEntries(ctx context.Context, prefix string) ([]model.FileDescriptor, error)

	// Get opens one object for reading and returns its size
	Get(ctx context.Context, key string) (Object, int64, error)

	// Put stores size bytes from r at key
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// DeleteAll removes every key in the list
	DeleteAll(ctx context.Context, keys []string) error

	// URL renders key as <scheme>://<bucket>/<key> for logs
	URL(key string) string
}
