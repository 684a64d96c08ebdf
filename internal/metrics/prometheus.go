package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the compactor
type Metrics struct {
	// Partition metrics
	PartitionsTotal        prometheus.Counter
	PartitionsSkippedTotal prometheus.Counter
	PartitionsEmptyTotal   prometheus.Counter

	// Merge metrics
	BatchesPlannedTotal prometheus.Counter
	MergesTotal         prometheus.CounterVec
	MergeDuration       prometheus.Histogram

	// File metrics
	FilesCompactedTotal     prometheus.Counter
	FilesDeletedTotal       prometheus.Counter
	OutputFilesWrittenTotal prometheus.Counter
	BytesCompactedTotal     prometheus.Counter
}

// NewMetrics creates all compactor metrics on the given registerer. Each
// cycle builds its own registry, so registration happens per run
func NewMetrics(reg prometheus.Registerer, bucket string) *Metrics {
	labels := prometheus.Labels{"bucket": bucket}
	factory := promauto.With(reg)

	return &Metrics{
		// Partition metrics
		PartitionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "partitions",
			Name:        "crawled_total",
			Help:        "Total number of leaf partitions crawled",
			ConstLabels: labels,
		}),
		PartitionsSkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "partitions",
			Name:        "skipped_total",
			Help:        "Total number of partitions skipped by the current-month source policy",
			ConstLabels: labels,
		}),
		PartitionsEmptyTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "partitions",
			Name:        "empty_total",
			Help:        "Total number of partitions with nothing to compact",
			ConstLabels: labels,
		}),

		// Merge metrics
		BatchesPlannedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "merges",
			Name:        "batches_planned_total",
			Help:        "Total number of merge batches planned",
			ConstLabels: labels,
		}),
		MergesTotal: *factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "merges",
			Name:        "total",
			Help:        "Total number of executed merges by status",
			ConstLabels: labels,
		}, []string{"status"}),
		MergeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "compactor",
			Subsystem:   "merges",
			Name:        "duration_seconds",
			Help:        "Histogram of merge durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		// File metrics
		FilesCompactedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "files",
			Name:        "compacted_total",
			Help:        "Total number of source files merged into outputs",
			ConstLabels: labels,
		}),
		FilesDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "files",
			Name:        "deleted_total",
			Help:        "Total number of source files deleted after successful merges",
			ConstLabels: labels,
		}),
		OutputFilesWrittenTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "files",
			Name:        "outputs_written_total",
			Help:        "Total number of compacted output files written",
			ConstLabels: labels,
		}),
		BytesCompactedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "compactor",
			Subsystem:   "files",
			Name:        "bytes_compacted_total",
			Help:        "Total source bytes merged into outputs",
			ConstLabels: labels,
		}),
	}
}

// RecordPartition records one crawled partition
func (m *Metrics) RecordPartition() {
	m.PartitionsTotal.Inc()
}

// RecordPartitionSkipped records a partition excluded by the skip policy
func (m *Metrics) RecordPartitionSkipped() {
	m.PartitionsSkippedTotal.Inc()
}

// RecordPartitionEmpty records a partition with zero planned batches
func (m *Metrics) RecordPartitionEmpty() {
	m.PartitionsEmptyTotal.Inc()
}

// RecordBatchesPlanned records the number of batches planned for a partition
func (m *Metrics) RecordBatchesPlanned(count int) {
	m.BatchesPlannedTotal.Add(float64(count))
}

// RecordMergeSuccess records one successfully merged batch
func (m *Metrics) RecordMergeSuccess(duration float64, inputFiles, outputFiles int, bytesCompacted int64) {
	m.MergesTotal.WithLabelValues("success").Inc()
	m.MergeDuration.Observe(duration)
	m.FilesCompactedTotal.Add(float64(inputFiles))
	m.OutputFilesWrittenTotal.Add(float64(outputFiles))
	m.BytesCompactedTotal.Add(float64(bytesCompacted))
}

// RecordMergeFailure records one absorbed merge failure. The file, output,
// and byte counters track successful merges only, matching the cycle summary
func (m *Metrics) RecordMergeFailure(duration float64) {
	m.MergesTotal.WithLabelValues("failure").Inc()
	m.MergeDuration.Observe(duration)
}

// RecordFilesDeleted records source files deleted after a successful merge
func (m *Metrics) RecordFilesDeleted(count int) {
	m.FilesDeletedTotal.Add(float64(count))
}
