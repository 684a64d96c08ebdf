package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	apperrors "github.com/project-koku/parquet-compactor/internal/errors"
	"github.com/project-koku/parquet-compactor/internal/store"
)

// readBatchRows is the granularity of a single ReadRows call. Rows are
// re-sliced into caller-sized chunks by the sink, so this only bounds how
// often the reader is invoked
const readBatchRows = 1024

// ParquetIO implements IO on top of an ObjectStore using parquet-go.
// The schema of the first file in a batch is the reference schema; all
// other members must match it exactly
type ParquetIO struct {
	store  store.ObjectStore
	logger *zap.Logger
}

var _ IO = (*ParquetIO)(nil)

// NewParquetIO creates a parquet reader/writer bound to the given store
func NewParquetIO(objectStore store.ObjectStore, logger *zap.Logger) *ParquetIO {
	return &ParquetIO{
		store:  objectStore,
		logger: logger,
	}
}

// parquetChunk carries cloned rows plus the schema they decode under
type parquetChunk struct {
	schema *parquet.Schema
	rows   []parquet.Row
}

func (c *parquetChunk) NumRows() int { return len(c.rows) }

// rowSink re-slices an incoming row stream into fixed-size chunks
type rowSink struct {
	chunkRows int
	schema    *parquet.Schema
	rows      []parquet.Row
	total     int64
	fn        func(RowChunk) error
}

func (s *rowSink) push(row parquet.Row) error {
	s.rows = append(s.rows, row)
	if len(s.rows) >= s.chunkRows {
		return s.flush()
	}
	return nil
}

func (s *rowSink) flush() error {
	if len(s.rows) == 0 {
		return nil
	}
	if err := s.fn(&parquetChunk{schema: s.schema, rows: s.rows}); err != nil {
		return err
	}
	s.total += int64(len(s.rows))
	// fn may retain the chunk, so start a fresh buffer
	s.rows = make([]parquet.Row, 0, s.chunkRows)
	return nil
}

// ReadChunks streams all rows of the given files in key order, re-sliced
// into chunks of at most chunkRows rows
func (p *ParquetIO) ReadChunks(ctx context.Context, keys []string, chunkRows int, fn func(RowChunk) error) error {
	if chunkRows <= 0 {
		return fmt.Errorf("chunk row count must be positive, got %d", chunkRows)
	}
	if len(keys) == 0 {
		return apperrors.EmptyMerge(keys)
	}

	sink := &rowSink{
		chunkRows: chunkRows,
		rows:      make([]parquet.Row, 0, chunkRows),
		fn:        fn,
	}

	for _, key := range keys {
		if err := p.readFileInto(ctx, key, sink); err != nil {
			return err
		}
	}

	if err := sink.flush(); err != nil {
		return err
	}
	if sink.total == 0 {
		return apperrors.EmptyMerge(keys)
	}
	return nil
}

// readFileInto copies every row of one parquet object into the sink
func (p *ParquetIO) readFileInto(ctx context.Context, key string, sink *rowSink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	obj, size, err := p.store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer obj.Close()

	file, err := parquet.OpenFile(obj, size)
	if err != nil {
		return apperrors.MalformedInput(key, err)
	}

	schema := file.Schema()
	if sink.schema == nil {
		sink.schema = schema
	} else if schema.String() != sink.schema.String() {
		return apperrors.SchemaMismatch(key, sink.schema.String(), schema.String())
	}

	p.logger.Debug("Reading parquet file",
		zap.String("key", key),
		zap.Int64("rows", file.NumRows()),
		zap.Int64("size_bytes", size))

	buf := make([]parquet.Row, readBatchRows)
	for _, rowGroup := range file.RowGroups() {
		if err := copyRowGroup(key, rowGroup, buf, sink); err != nil {
			return err
		}
	}
	return nil
}

// copyRowGroup clones each row out of the group into the sink. Rows returned
// by ReadRows are only valid until the next call, so they must be cloned
// before buffering across calls
func copyRowGroup(key string, rowGroup parquet.RowGroup, buf []parquet.Row, sink *rowSink) error {
	rows := rowGroup.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for i := 0; i < n; i++ {
			if perr := sink.push(buf[i].Clone()); perr != nil {
				return perr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apperrors.MalformedInput(key, err)
		}
		if n == 0 {
			return nil
		}
	}
}

// Write encodes one chunk as a snappy-compressed parquet object at destKey
func (p *ParquetIO) Write(ctx context.Context, chunk RowChunk, destKey string) error {
	pc, ok := chunk.(*parquetChunk)
	if !ok {
		return fmt.Errorf("unsupported chunk type %T", chunk)
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, pc.schema, parquet.Compression(&parquet.Snappy))
	if _, err := w.WriteRows(pc.rows); err != nil {
		return apperrors.EncodeFailed(destKey, err)
	}
	if err := w.Close(); err != nil {
		return apperrors.EncodeFailed(destKey, err)
	}

	return p.store.Put(ctx, destKey, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
}
