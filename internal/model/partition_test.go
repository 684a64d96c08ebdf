package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionSourceType(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{
			name:   "aws source",
			prefix: "data/parquet/acct1/source=AWS/year=2024/month=06/",
			want:   "AWS",
		},
		{
			name:   "azure source",
			prefix: "data/parquet/acct1/source=Azure/year=2024/month=06/",
			want:   "Azure",
		},
		{
			name:   "source segment last",
			prefix: "data/parquet/source=OCP/",
			want:   "OCP",
		},
		{
			name:   "no source segment",
			prefix: "data/parquet/acct1/year=2024/month=06/",
			want:   "data",
		},
		{
			name:   "empty label",
			prefix: "data/parquet/source=/year=2024/",
			want:   "data",
		},
		{
			name:   "first occurrence wins",
			prefix: "data/source=GCP/nested/source=AWS/",
			want:   "GCP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Partition{Prefix: tt.prefix}
			assert.Equal(t, tt.want, p.SourceType())
		})
	}
}

func TestPartitionYearMonth(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		wantYear  int
		wantMonth int
	}{
		{
			name:      "both present",
			prefix:    "data/parquet/acct1/source=AWS/year=2024/month=06/",
			wantYear:  2024,
			wantMonth: 6,
		},
		{
			name:      "month without leading zero",
			prefix:    "data/source=AWS/year=2023/month=11/",
			wantYear:  2023,
			wantMonth: 11,
		},
		{
			name:      "year only",
			prefix:    "data/source=AWS/year=2024/",
			wantYear:  2024,
			wantMonth: 0,
		},
		{
			name:      "neither present",
			prefix:    "data/parquet/acct1/",
			wantYear:  0,
			wantMonth: 0,
		},
		{
			name:      "malformed month",
			prefix:    "data/source=AWS/year=2024/month=junk/",
			wantYear:  2024,
			wantMonth: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Partition{Prefix: tt.prefix}
			year, month := p.YearMonth()
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantMonth, month)
		})
	}
}

func TestMergeBatchKeys(t *testing.T) {
	batch := MergeBatch{
		Files: []FileDescriptor{
			{Key: "p/a.parquet", SizeBytes: 1},
			{Key: "p/b.parquet", SizeBytes: 2},
		},
		TotalBytes: 3,
	}
	assert.Equal(t, []string{"p/a.parquet", "p/b.parquet"}, batch.Keys())
}
