package archive

import "time"

// RuntimeProfile holds the tuning parameters derived from the host at
// start-up. It is constructed once and passed by value into the worker pool
// and loader rather than read from ambient global state.
type RuntimeProfile struct {
	// Workers is the fixed pool size for parallelizable stages: per-file
	// ingestion and export consumers.
	Workers int

	// BatchSize is the number of normalized records buffered before a bulk
	// load. It trades memory for bulk-load efficiency.
	BatchSize int

	// QueueDepth is the export scheduler's bounded queue capacity, in
	// batches.
	QueueDepth int

	// StatementTimeout bounds long-running aggregate queries.
	StatementTimeout time.Duration
}

const (
	defaultBatchSize   = 5000
	defaultQueueDepth  = 10
	defaultStmtTimeout = 60 * time.Second
	minWorkers         = 2
)

// NewRuntimeProfile derives a profile from the available CPU count:
// cores−1 workers, bounded below by 2.
func NewRuntimeProfile(numCPU int) RuntimeProfile {
	workers := numCPU - 1
	if workers < minWorkers {
		workers = minWorkers
	}
	return RuntimeProfile{
		Workers:          workers,
		BatchSize:        defaultBatchSize,
		QueueDepth:       defaultQueueDepth,
		StatementTimeout: defaultStmtTimeout,
	}
}

// WithBatchSize returns a copy of the profile with the batch size replaced,
// ignoring non-positive values.
func (p RuntimeProfile) WithBatchSize(n int) RuntimeProfile {
	if n > 0 {
		p.BatchSize = n
	}
	return p
}

// WithWorkers returns a copy of the profile with the worker count replaced,
// still bounded below by the minimum.
func (p RuntimeProfile) WithWorkers(n int) RuntimeProfile {
	if n >= minWorkers {
		p.Workers = n
	}
	return p
}
