package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/project-koku/parquet-compactor/internal/model"
)

// MemoryStore is a map-backed ObjectStore used by tests and local runs.
// Listing order is lexicographic by key, matching S3 semantics
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject
}

type memObject struct {
	data         []byte
	lastModified time.Time
}

var _ ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store for the given bucket name
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]memObject),
	}
}

// Seed inserts an object with an explicit modification time
func (s *MemoryStore) Seed(key string, data []byte, lastModified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{data: data, lastModified: lastModified}
}

// Has reports whether key currently exists
func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Keys returns all keys in lexicographic order
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ListPrefixes returns the immediate sub-prefixes under prefix
func (s *MemoryStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var prefixes []string
	for key := range s.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || rest == "" {
			continue
		}
		cut := strings.IndexByte(rest, '/')
		if cut < 0 {
			continue
		}
		sub := prefix + rest[:cut+1]
		if _, dup := seen[sub]; dup {
			continue
		}
		seen[sub] = struct{}{}
		prefixes = append(prefixes, sub)
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

// ListEntries returns the entries directly under a leaf prefix
func (s *MemoryStore) ListEntries(ctx context.Context, prefix string) ([]model.FileDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []model.FileDescriptor
	for key, obj := range s.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || rest == "" || strings.ContainsRune(rest, '/') {
			continue
		}
		files = append(files, model.FileDescriptor{
			Key:          key,
			SizeBytes:    int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Get opens one object for reading
func (s *MemoryStore) Get(ctx context.Context, key string) (Object, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("object not found: %s", key)
	}
	return &memReader{Reader: bytes.NewReader(obj.data)}, int64(len(obj.data)), nil
}

// Put stores size bytes from r at key with the current time as mtime
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read payload for %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("payload for %s is %d bytes, declared %d", key, len(data), size)
	}
	s.mu.Lock()
	s.objects[key] = memObject{data: data, lastModified: time.Now().UTC()}
	s.mu.Unlock()
	return nil
}

// DeleteAll removes every key in the list. Missing keys are not an error,
// matching S3 delete semantics
func (s *MemoryStore) DeleteAll(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.objects, key)
	}
	return nil
}

// URL renders key as mem://<bucket>/<key>
func (s *MemoryStore) URL(key string) string {
	return "mem://" + s.bucket + "/" + key
}

type memReader struct {
	*bytes.Reader
}

func (r *memReader) Close() error { return nil }
