package metrics

import (
	"context"
	"time"
)

// Snapshot is the current state of the processor.
type Snapshot struct {
	// QueueLengths maps endpoint to the number of entries in its job stream
	QueueLengths map[string]int64 `json:"queue_lengths"`

	// PendingJobs maps endpoint to deliveries not acknowledged yet
	PendingJobs map[string]int64 `json:"pending_jobs"`

	// RecordCounts maps endpoint to the records its store currently holds
	RecordCounts map[string]int64 `json:"record_counts"`

	// Workers maps endpoint to its active workers
	Workers map[string][]WorkerInfo `json:"workers"`

	Timestamp time.Time `json:"timestamp"`
}

// WorkerInfo represents information about an active worker.
type WorkerInfo struct {
	WorkerID      string    `json:"worker_id"`
	Endpoint      string    `json:"endpoint"`
	Status        string    `json:"status"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Collector gathers the gauges exported on /metrics.
type Collector interface {
	Collect(ctx context.Context) (Snapshot, error)
	QueueLengths(ctx context.Context) (map[string]int64, error)
	PendingJobs(ctx context.Context) (map[string]int64, error)
	RecordCounts(ctx context.Context) (map[string]int64, error)
	ActiveWorkers(ctx context.Context) (map[string][]WorkerInfo, error)
}
