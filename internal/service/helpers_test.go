package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/project-koku/parquet-compactor/internal/columnar"
	"github.com/project-koku/parquet-compactor/internal/metrics"
	"github.com/project-koku/parquet-compactor/internal/model"
	"github.com/project-koku/parquet-compactor/internal/store"
)

const mib = int64(1) << 20

// costRow is the row shape used by parquet fixtures in this package
type costRow struct {
	UsageStart string  `parquet:"usage_start"`
	Account    string  `parquet:"account"`
	Cost       float64 `parquet:"cost"`
}

func costRows(n int, account string) []costRow {
	rows := make([]costRow, n)
	for i := range rows {
		rows[i] = costRow{UsageStart: "2024-05-01", Account: account, Cost: float64(i)}
	}
	return rows
}

// encodeRows renders rows as snappy-compressed parquet bytes
func encodeRows(t *testing.T, rows []costRow) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[costRow](&buf, parquet.Compression(&parquet.Snappy))
	if len(rows) > 0 {
		_, err := w.Write(rows)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func seedRows(t *testing.T, s *store.MemoryStore, key string, rows []costRow, mtime time.Time) {
	t.Helper()
	s.Seed(key, encodeRows(t, rows), mtime)
}

// decodeRows reads a stored parquet object back into typed rows
func decodeRows(t *testing.T, s *store.MemoryStore, key string) []costRow {
	t.Helper()
	obj, size, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	defer obj.Close()
	rows, err := parquet.Read[costRow](obj, size)
	require.NoError(t, err)
	return rows
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry(), "test-bucket")
}

// newTestCompactor wires a full driver over the given store with a pinned
// clock so current-month skip decisions are reproducible. The driver's
// metrics are returned alongside it so tests can read the counters
func newTestCompactor(t *testing.T, objectStore store.ObjectStore, budget int64, chunkRows, workers int, now func() time.Time) (*CompactorService, *metrics.Metrics) {
	t.Helper()
	logger := zap.NewNop()

	eligibility := NewEligibilityService(&EligibilityConfig{
		TargetByteBudget:        budget,
		SkipCurrentMonthSources: []string{"AWS", "Azure"},
	}, logger)
	if now != nil {
		eligibility.now = now
	}

	m := newTestMetrics()
	compactor := NewCompactorService(
		&CompactorConfig{DataPrefix: "data/parquet/", Workers: workers},
		objectStore,
		NewCrawlerService(objectStore, logger),
		eligibility,
		NewPlannerService(budget, logger),
		NewMergeService(&MergeConfig{ChunkRows: chunkRows}, columnar.NewParquetIO(objectStore, logger), logger),
		m,
		logger,
	)
	return compactor, m
}

// flakyStore delegates to an inner store but fails selected operations
type flakyStore struct {
	store.ObjectStore
	listPrefixesErr error
	listEntriesErr  error
	getErr          error
	deleteErr       error
}

func (s *flakyStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if s.listPrefixesErr != nil {
		return nil, s.listPrefixesErr
	}
	return s.ObjectStore.ListPrefixes(ctx, prefix)
}

func (s *flakyStore) Get(ctx context.Context, key string) (store.Object, int64, error) {
	if s.getErr != nil {
		return nil, 0, s.getErr
	}
	return s.ObjectStore.Get(ctx, key)
}

func (s *flakyStore) ListEntries(ctx context.Context, prefix string) ([]model.FileDescriptor, error) {
	if s.listEntriesErr != nil {
		return nil, s.listEntriesErr
	}
	return s.ObjectStore.ListEntries(ctx, prefix)
}

func (s *flakyStore) DeleteAll(ctx context.Context, keys []string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.ObjectStore.DeleteAll(ctx, keys)
}
