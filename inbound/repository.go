package inbound

import (
	"context"
	"time"
)

/* Small, focused interfaces for the collaborators of the pipeline
 * Storage and queue adapters live in subpackages (redis, postgres)
 */

// Reader provides read operations for records
type Reader interface {
	Get(ctx context.Context, id string) (Record, error)
}

// Writer provides write operations for records
type Writer interface {
	Create(ctx context.Context, rec Record) error
	/* SetException overwrites the exception of a record, nil clears it
	 * Last write wins: there is no version check
	 */
	SetException(ctx context.Context, id string, exc *Exception, updatedAt time.Time) error
}

// Pruner provides the age-based selection and bulk delete used by the retention sweep
type Pruner interface {
	// CreatedBefore returns the ids of records created strictly before t
	CreatedBefore(ctx context.Context, t time.Time) ([]string, error)
	Delete(ctx context.Context, ids []string) (int64, error)
}

// Store is the record-storage capability an endpoint persists accepted calls with
type Store interface {
	Reader
	Writer
	Pruner
}

// Job is a reference to the asynchronous work bound to one record.
type Job struct {
	ID        string
	Type      string
	RecordID  string
	Endpoint  string
	CreatedAt time.Time
}

// JobFactory is the processing-job capability: it builds the job bound to a stored record.
type JobFactory interface {
	NewJob(rec Record) (Job, error)
}

// Queue hands jobs off for asynchronous execution. Enqueue must not wait for the job to run.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}
