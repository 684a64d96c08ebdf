package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/project-koku/parquet-compactor/internal/columnar"
	apperrors "github.com/project-koku/parquet-compactor/internal/errors"
	"github.com/project-koku/parquet-compactor/internal/model"
)

// MergeService executes one merge batch: stream the batch members through
// the columnar capability in bounded chunks and write each chunk to its own
// uniquely-named output. It never deletes anything; deletion is gated on the
// returned outcome by the driver
type MergeService struct {
	columnar  columnar.IO
	chunkRows int
	logger    *zap.Logger
}

// MergeConfig holds merge pipeline configuration
type MergeConfig struct {
	ChunkRows int
}

// NewMergeService creates a new merge service
func NewMergeService(cfg *MergeConfig, columnarIO columnar.IO, logger *zap.Logger) *MergeService {
	return &MergeService{
		columnar:  columnarIO,
		chunkRows: cfg.ChunkRows,
		logger:    logger,
	}
}

// Execute merges one batch into the partition. Merge failures (schema
// mismatch, malformed input, empty merge) are absorbed into a failed
// outcome; outputs written before the failure are left in place. A non-nil
// error is a transport failure and must abort the cycle
func (s *MergeService) Execute(ctx context.Context, partitionPrefix, baseName string, batch model.MergeBatch) (model.CompactionOutcome, error) {
	keys := batch.Keys()

	s.logger.Info("Combining files",
		zap.String("partition", partitionPrefix),
		zap.Int("input_files", len(keys)),
		zap.Int64("total_bytes", batch.TotalBytes))

	var outcome model.CompactionOutcome
	err := s.columnar.ReadChunks(ctx, keys, s.chunkRows, func(chunk columnar.RowChunk) error {
		destKey := partitionPrefix + model.CompactedFileName(baseName)
		if err := s.columnar.Write(ctx, chunk, destKey); err != nil {
			return err
		}
		outcome.OutputKeys = append(outcome.OutputKeys, destKey)
		outcome.RowsWritten += int64(chunk.NumRows())
		s.logger.Info("Wrote compacted file",
			zap.String("key", destKey),
			zap.Int("rows", chunk.NumRows()))
		return nil
	})
	if err != nil {
		if apperrors.IsMergeFailure(err) {
			outcome.Err = err
			s.logger.Warn("Merge failed, keeping source files for a future run",
				zap.String("partition", partitionPrefix),
				zap.Int("outputs_written", len(outcome.OutputKeys)),
				zap.Error(err))
			return outcome, nil
		}
		return outcome, err
	}

	outcome.Succeeded = true
	return outcome, nil
}
