package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/project-koku/parquet-compactor/internal/model"
)

func newEligibility(t *testing.T, budget int64, skip []string, now time.Time) *EligibilityService {
	t.Helper()
	svc := NewEligibilityService(&EligibilityConfig{
		TargetByteBudget:        budget,
		SkipCurrentMonthSources: skip,
	}, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestEligibilityService_ShouldSkip(t *testing.T) {
	june2024 := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	svc := newEligibility(t, 10*mib, []string{"AWS", "Azure"}, june2024)

	tests := []struct {
		name   string
		prefix string
		want   bool
	}{
		{
			name:   "aws current month",
			prefix: "data/parquet/acct1/source=AWS/year=2024/month=06/",
			want:   true,
		},
		{
			name:   "azure current month",
			prefix: "data/parquet/acct1/source=Azure/year=2024/month=06/",
			want:   true,
		},
		{
			name:   "aws previous month",
			prefix: "data/parquet/acct1/source=AWS/year=2024/month=05/",
			want:   false,
		},
		{
			name:   "aws same month previous year",
			prefix: "data/parquet/acct1/source=AWS/year=2023/month=06/",
			want:   false,
		},
		{
			name:   "unlisted source current month",
			prefix: "data/parquet/acct1/source=GCP/year=2024/month=06/",
			want:   false,
		},
		{
			name:   "no source segment current month",
			prefix: "data/parquet/acct1/year=2024/month=06/",
			want:   false,
		},
		{
			name:   "no date segments",
			prefix: "data/parquet/acct1/source=AWS/",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.ShouldSkip(model.Partition{Prefix: tt.prefix})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEligibilityService_EligibleFiles_SizeFilter(t *testing.T) {
	svc := newEligibility(t, 10*mib, nil, time.Now())
	prefix := "data/parquet/acct1/source=GCP/year=2024/month=05/"
	p := model.Partition{
		Prefix: prefix,
		Files: []model.FileDescriptor{
			{Key: prefix + "raw1.parquet", SizeBytes: 5 * mib},
			{Key: prefix + "raw2.parquet", SizeBytes: 10 * mib},
			{Key: prefix + "raw3.parquet", SizeBytes: 15 * mib},
		},
	}

	got := svc.EligibleFiles(p)

	// A file at the budget is already full-size, same as one above it
	require.Len(t, got, 1)
	assert.Equal(t, prefix+"raw1.parquet", got[0].Key)
}

func TestEligibilityService_EligibleFiles_RetainsNewestCompacted(t *testing.T) {
	svc := newEligibility(t, 10*mib, nil, time.Now())
	prefix := "data/parquet/acct1/year=2024/month=05/"
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	uuidName := "data_3f9a" + strings.Repeat("0", 28) + ".parquet"
	p := model.Partition{
		Prefix: prefix,
		Files: []model.FileDescriptor{
			{Key: prefix + "data_0.parquet", SizeBytes: 1 * mib, LastModified: older},
			{Key: prefix + uuidName, SizeBytes: 2 * mib, LastModified: newer},
			{Key: prefix + "raw1.parquet", SizeBytes: 5 * mib, LastModified: older},
		},
	}

	got := svc.EligibleFiles(p)

	// Only the most recent compacted output stays a candidate; the legacy
	// one is done and left untouched
	require.Len(t, got, 2)
	assert.Equal(t, prefix+uuidName, got[0].Key)
	assert.Equal(t, prefix+"raw1.parquet", got[1].Key)
}

func TestEligibilityService_EligibleFiles_TieBreaksOnKey(t *testing.T) {
	svc := newEligibility(t, 10*mib, nil, time.Now())
	prefix := "data/parquet/acct1/year=2024/month=05/"
	mtime := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	nameA := "data_" + strings.Repeat("a", 32) + ".parquet"
	nameB := "data_" + strings.Repeat("b", 32) + ".parquet"
	p := model.Partition{
		Prefix: prefix,
		Files: []model.FileDescriptor{
			{Key: prefix + nameA, SizeBytes: 1 * mib, LastModified: mtime},
			{Key: prefix + nameB, SizeBytes: 1 * mib, LastModified: mtime},
		},
	}

	got := svc.EligibleFiles(p)

	require.Len(t, got, 1)
	assert.Equal(t, prefix+nameB, got[0].Key)
}

func TestEligibilityService_EligibleFiles_BaseNameScoped(t *testing.T) {
	svc := newEligibility(t, 10*mib, nil, time.Now())
	prefix := "data/parquet/acct1/source=AWS/year=2024/month=05/"
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	oldName := "AWS_" + strings.Repeat("1", 32) + ".parquet"
	newName := "AWS_" + strings.Repeat("2", 32) + ".parquet"
	otherBase := "data_" + strings.Repeat("3", 32) + ".parquet"
	p := model.Partition{
		Prefix: prefix,
		Files: []model.FileDescriptor{
			{Key: prefix + oldName, SizeBytes: 1 * mib, LastModified: older},
			{Key: prefix + newName, SizeBytes: 1 * mib, LastModified: newer},
			{Key: prefix + otherBase, SizeBytes: 1 * mib, LastModified: older},
		},
	}

	got := svc.EligibleFiles(p)

	// Files compacted under a different base name are ordinary candidates
	require.Len(t, got, 2)
	assert.Equal(t, prefix+newName, got[0].Key)
	assert.Equal(t, prefix+otherBase, got[1].Key)
}

func TestEligibilityService_EligibleFiles_OversizedCompactedInvisible(t *testing.T) {
	svc := newEligibility(t, 10*mib, nil, time.Now())
	prefix := "data/parquet/acct1/year=2024/month=05/"
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	bigName := "data_" + strings.Repeat("c", 32) + ".parquet"
	smallName := "data_" + strings.Repeat("d", 32) + ".parquet"
	p := model.Partition{
		Prefix: prefix,
		Files: []model.FileDescriptor{
			{Key: prefix + bigName, SizeBytes: 20 * mib, LastModified: newer},
			{Key: prefix + smallName, SizeBytes: 1 * mib, LastModified: older},
		},
	}

	got := svc.EligibleFiles(p)

	// The full-size compacted file is out on size alone; the older
	// under-sized one is then the most recent eligible output
	require.Len(t, got, 1)
	assert.Equal(t, prefix+smallName, got[0].Key)
}

func TestEligibilityService_EligibleFiles_Idempotent(t *testing.T) {
	svc := newEligibility(t, 10*mib, nil, time.Now())
	prefix := "data/parquet/acct1/year=2024/month=05/"
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	p := model.Partition{
		Prefix: prefix,
		Files: []model.FileDescriptor{
			{Key: prefix + "data_0.parquet", SizeBytes: 1 * mib, LastModified: older},
			{Key: prefix + "data_" + strings.Repeat("e", 32) + ".parquet", SizeBytes: 2 * mib, LastModified: older.Add(time.Hour)},
			{Key: prefix + "raw1.parquet", SizeBytes: 5 * mib, LastModified: older},
		},
	}

	first := svc.EligibleFiles(p)
	second := svc.EligibleFiles(model.Partition{Prefix: prefix, Files: first})
	assert.Equal(t, first, second)
}

func TestEligibilityService_EligibleFiles_EmptyPartition(t *testing.T) {
	svc := newEligibility(t, 10*mib, nil, time.Now())
	got := svc.EligibleFiles(model.Partition{Prefix: "data/parquet/acct1/year=2024/month=05/"})
	assert.Empty(t, got)
}
