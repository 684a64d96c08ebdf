package service

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/project-koku/parquet-compactor/internal/model"
)

// EligibilityService decides which partitions may be touched and which files
// within a partition are merge candidates
type EligibilityService struct {
	budget     int64
	skipLabels map[string]struct{}
	logger     *zap.Logger
	now        func() time.Time // injectable for tests
}

// EligibilityConfig holds eligibility configuration
type EligibilityConfig struct {
	TargetByteBudget        int64
	SkipCurrentMonthSources []string
}

// NewEligibilityService creates a new eligibility service
func NewEligibilityService(cfg *EligibilityConfig, logger *zap.Logger) *EligibilityService {
	labels := make(map[string]struct{}, len(cfg.SkipCurrentMonthSources))
	for _, l := range cfg.SkipCurrentMonthSources {
		labels[l] = struct{}{}
	}
	return &EligibilityService{
		budget:     cfg.TargetByteBudget,
		skipLabels: labels,
		logger:     logger,
		now:        time.Now,
	}
}

// ShouldSkip reports whether the partition must be left untouched: its data
// is dated in the current UTC month and its source type is one whose
// current-month data is still being overwritten upstream
func (s *EligibilityService) ShouldSkip(p model.Partition) bool {
	year, month := p.YearMonth()
	nowUTC := s.now().UTC()
	if year != nowUTC.Year() || month != int(nowUTC.Month()) {
		return false
	}
	_, skip := s.skipLabels[p.SourceType()]
	return skip
}

// EligibleFiles returns the merge candidates for a partition: every file
// under the byte budget, except that among files already produced by a prior
// compaction only the most recent one stays a candidate. The pass is stable,
// preserving the relative input order of retained files, and idempotent
func (s *EligibilityService) EligibleFiles(p model.Partition) []model.FileDescriptor {
	base := p.SourceType()

	var newest model.FileDescriptor
	haveNewest := false
	for _, f := range p.Files {
		if f.SizeBytes >= s.budget {
			continue
		}
		if !model.IsCompactedFileName(fileName(f.Key, p.Prefix), base) {
			continue
		}
		if !haveNewest || moreRecent(f, newest) {
			newest = f
			haveNewest = true
		}
	}

	candidates := make([]model.FileDescriptor, 0, len(p.Files))
	for _, f := range p.Files {
		if f.SizeBytes >= s.budget {
			continue
		}
		if model.IsCompactedFileName(fileName(f.Key, p.Prefix), base) && f.Key != newest.Key {
			s.logger.Debug("Excluding stale compacted output",
				zap.String("key", f.Key))
			continue
		}
		candidates = append(candidates, f)
	}
	return candidates
}

// fileName strips the partition prefix off a full object key
func fileName(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}

// moreRecent orders files by modification time, breaking ties on key so the
// retained candidate is deterministic
func moreRecent(a, b model.FileDescriptor) bool {
	if a.LastModified.After(b.LastModified) {
		return true
	}
	return a.LastModified.Equal(b.LastModified) && a.Key > b.Key
}
