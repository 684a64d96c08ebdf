package service

import (
	"go.uber.org/zap"

	"github.com/project-koku/parquet-compactor/internal/model"
)

// PlannerService groups merge candidates into batches bounded by the target
// byte budget
type PlannerService struct {
	budget int64
	logger *zap.Logger
}

// NewPlannerService creates a new planner service
func NewPlannerService(targetByteBudget int64, logger *zap.Logger) *PlannerService {
	return &PlannerService{
		budget: targetByteBudget,
		logger: logger,
	}
}

// bin is one open group in the packing arena
type bin struct {
	files []model.FileDescriptor
	total int64
}

// Plan packs candidates into merge batches with greedy first-fit, online in
// input order: each file goes into the first bin it keeps strictly under the
// byte budget, or opens a new bin. Bins with fewer than two files are
// dropped, so a leftover single file stays unmerged until a later run pairs
// it with new data. Pure function of its input, deterministic
func (s *PlannerService) Plan(candidates []model.FileDescriptor) []model.MergeBatch {
	if len(candidates) == 0 {
		return nil
	}

	bins := []*bin{{}}
	for _, f := range candidates {
		placed := false
		for _, b := range bins {
			if b.total+f.SizeBytes < s.budget {
				b.files = append(b.files, f)
				b.total += f.SizeBytes
				placed = true
				break
			}
		}
		if !placed {
			bins = append(bins, &bin{
				files: []model.FileDescriptor{f},
				total: f.SizeBytes,
			})
		}
	}

	var batches []model.MergeBatch
	for _, b := range bins {
		if len(b.files) < 2 {
			continue
		}
		batches = append(batches, model.MergeBatch{Files: b.files, TotalBytes: b.total})
	}

	s.logger.Debug("Planned merge batches",
		zap.Int("candidates", len(candidates)),
		zap.Int("bins", len(bins)),
		zap.Int("batches", len(batches)))

	return batches
}
