package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/project-koku/parquet-compactor/internal/metrics"
	"github.com/project-koku/parquet-compactor/internal/model"
	"github.com/project-koku/parquet-compactor/internal/store"
)

// CompactorService drives one compaction cycle: crawl partitions, apply the
// skip policy, plan batches, execute merges, and delete sources for
// successful batches only
type CompactorService struct {
	config      *CompactorConfig
	store       store.ObjectStore
	crawler     *CrawlerService
	eligibility *EligibilityService
	planner     *PlannerService
	merger      *MergeService
	metrics     *metrics.Metrics
	logger      *zap.Logger

	// Atomic counters for the cycle summary
	partitionsCrawled atomic.Int64
	partitionsSkipped atomic.Int64
	partitionsEmpty   atomic.Int64
	batchesPlanned    atomic.Int64
	batchesMerged     atomic.Int64
	batchesFailed     atomic.Int64
	filesCompacted    atomic.Int64
	filesDeleted      atomic.Int64
	outputsWritten    atomic.Int64
	bytesCompacted    atomic.Int64
}

// CompactorConfig holds driver configuration
type CompactorConfig struct {
	DataPrefix string
	Workers    int
}

// NewCompactorService creates a new compaction driver
func NewCompactorService(
	cfg *CompactorConfig,
	objectStore store.ObjectStore,
	crawler *CrawlerService,
	eligibility *EligibilityService,
	planner *PlannerService,
	merger *MergeService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CompactorService {
	return &CompactorService{
		config:      cfg,
		store:       objectStore,
		crawler:     crawler,
		eligibility: eligibility,
		planner:     planner,
		merger:      merger,
		metrics:     m,
		logger:      logger,
	}
}

// Run executes one full compaction cycle and returns its aggregate
// statistics. Merge failures are logged and counted without stopping the
// cycle; transport failures abort it with a non-nil error
func (s *CompactorService) Run(ctx context.Context) (*model.CycleStats, error) {
	start := time.Now()
	s.logger.Info("Starting compaction cycle",
		zap.String("data_prefix", s.store.URL(s.config.DataPrefix)),
		zap.Int("workers", s.config.Workers))

	var err error
	if s.config.Workers > 1 {
		err = s.runParallel(ctx)
	} else {
		err = s.crawler.Walk(ctx, s.config.DataPrefix, func(p model.Partition) error {
			return s.processPartition(ctx, p)
		})
	}

	stats := s.snapshot(time.Since(start))
	if err != nil {
		s.logger.Error("Compaction cycle aborted",
			zap.Int64("partitions", stats.PartitionsCrawled),
			zap.Duration("duration", stats.Duration),
			zap.Error(err))
		return stats, err
	}

	s.logger.Info("Compaction cycle completed",
		zap.Int64("partitions", stats.PartitionsCrawled),
		zap.Int64("partitions_skipped", stats.PartitionsSkipped),
		zap.Int64("batches_merged", stats.BatchesMerged),
		zap.Int64("batches_failed", stats.BatchesFailed),
		zap.Int64("files_compacted", stats.FilesCompacted),
		zap.Int64("files_deleted", stats.FilesDeleted),
		zap.Int64("outputs_written", stats.OutputFilesWritten),
		zap.Int64("bytes_compacted", stats.BytesCompacted),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// runParallel fans partitions out to a bounded worker group. Partitions
// share no state and outputs are uniquely suffixed, so this is safe as long
// as deletions stay gated per batch, which processPartition guarantees
func (s *CompactorService) runParallel(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	walkErr := s.crawler.Walk(gctx, s.config.DataPrefix, func(p model.Partition) error {
		g.Go(func() error {
			return s.processPartition(gctx, p)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return walkErr
}

// processPartition runs skip policy, eligibility, planning, and merge
// execution for one leaf partition
func (s *CompactorService) processPartition(ctx context.Context, p model.Partition) error {
	s.partitionsCrawled.Add(1)
	s.metrics.RecordPartition()

	s.logger.Info("Handling partition",
		zap.String("partition", s.store.URL(p.Prefix)),
		zap.Int("files", len(p.Files)))

	if s.eligibility.ShouldSkip(p) {
		s.partitionsSkipped.Add(1)
		s.metrics.RecordPartitionSkipped()
		s.logger.Info("Skipping partition, source is still writing current-month data",
			zap.String("partition", s.store.URL(p.Prefix)),
			zap.String("source_type", p.SourceType()))
		return nil
	}

	candidates := s.eligibility.EligibleFiles(p)
	batches := s.planner.Plan(candidates)
	if len(batches) == 0 {
		s.partitionsEmpty.Add(1)
		s.metrics.RecordPartitionEmpty()
		s.logger.Info("No files to compact",
			zap.String("partition", s.store.URL(p.Prefix)))
		return nil
	}

	s.batchesPlanned.Add(int64(len(batches)))
	s.metrics.RecordBatchesPlanned(len(batches))
	s.logger.Info("Planned merge batches",
		zap.String("partition", s.store.URL(p.Prefix)),
		zap.Int("candidates", len(candidates)),
		zap.Int("batches", len(batches)))

	baseName := p.SourceType()
	for _, batch := range batches {
		if err := s.executeBatch(ctx, p, baseName, batch); err != nil {
			return err
		}
	}
	return nil
}

// executeBatch merges one batch and, only when the whole batch succeeded,
// deletes its source files. Failed batches keep their sources so the next
// run replans them. Counters mirror the cycle summary: absorbed merge
// failures count as failed merges, transport aborts count nothing, and the
// file, output, and byte counters move on success alone
func (s *CompactorService) executeBatch(ctx context.Context, p model.Partition, baseName string, batch model.MergeBatch) error {
	start := time.Now()
	outcome, err := s.merger.Execute(ctx, p.Prefix, baseName, batch)
	duration := time.Since(start)
	if err != nil {
		return fmt.Errorf("merge aborted in %s: %w", p.Prefix, err)
	}
	if !outcome.Succeeded {
		s.batchesFailed.Add(1)
		s.metrics.RecordMergeFailure(duration.Seconds())
		return nil
	}

	s.batchesMerged.Add(1)
	s.filesCompacted.Add(int64(len(batch.Files)))
	s.outputsWritten.Add(int64(len(outcome.OutputKeys)))
	s.bytesCompacted.Add(batch.TotalBytes)
	s.metrics.RecordMergeSuccess(duration.Seconds(), len(batch.Files), len(outcome.OutputKeys), batch.TotalBytes)

	if err := s.store.DeleteAll(ctx, batch.Keys()); err != nil {
		return fmt.Errorf("failed to delete merged sources in %s: %w", p.Prefix, err)
	}
	s.filesDeleted.Add(int64(len(batch.Files)))
	s.metrics.RecordFilesDeleted(len(batch.Files))

	s.logger.Info("Merged batch and deleted sources",
		zap.String("partition", s.store.URL(p.Prefix)),
		zap.Int("input_files", len(batch.Files)),
		zap.Int("output_files", len(outcome.OutputKeys)),
		zap.Int64("rows_written", outcome.RowsWritten),
		zap.Duration("duration", duration))
	return nil
}

// snapshot collects the atomic counters into a CycleStats
func (s *CompactorService) snapshot(elapsed time.Duration) *model.CycleStats {
	return &model.CycleStats{
		PartitionsCrawled:  s.partitionsCrawled.Load(),
		PartitionsSkipped:  s.partitionsSkipped.Load(),
		PartitionsEmpty:    s.partitionsEmpty.Load(),
		BatchesPlanned:     s.batchesPlanned.Load(),
		BatchesMerged:      s.batchesMerged.Load(),
		BatchesFailed:      s.batchesFailed.Load(),
		FilesCompacted:     s.filesCompacted.Load(),
		FilesDeleted:       s.filesDeleted.Load(),
		OutputFilesWritten: s.outputsWritten.Load(),
		BytesCompacted:     s.bytesCompacted.Load(),
		Duration:           elapsed,
	}
}
