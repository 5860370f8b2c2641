package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"
)

/* Dispatcher hands the job of a stored record off to the queue
 * Uses pointer semantics as it's an API, not data
 */
type Dispatcher struct {
	queue Queue
	now   func() time.Time
}

// NewDispatcher creates a dispatcher handing jobs to queue
func NewDispatcher(queue Queue) *Dispatcher {
	return &Dispatcher{queue: queue, now: time.Now}
}

// Dispatch builds the job bound to rec, clears any stale exception and enqueues it.
// It does not wait for the job to run.
//
// On failure the exception is persisted on the record before a *ProcessingError
// is returned, together with the record as last known.
func (d *Dispatcher) Dispatch(ctx context.Context, rec Record, cfg *EndpointConfig) (Record, error) {
	rec, err := d.attempt(ctx, rec, cfg)
	if err == nil {
		return rec, nil
	}

	procErr := &ProcessingError{RecordID: rec.ID, Err: err}
	saved, saveErr := SaveException(ctx, cfg.Store, rec, err, d.now())
	if saveErr != nil {
		return rec, errors.Join(procErr, saveErr)
	}
	return saved, procErr
}

func (d *Dispatcher) attempt(ctx context.Context, rec Record, cfg *EndpointConfig) (Record, error) {
	job, err := cfg.Jobs.NewJob(rec)
	if err != nil {
		return rec, fmt.Errorf("building job: %w", err)
	}

	rec, err = ClearException(ctx, cfg.Store, rec, d.now())
	if err != nil {
		return rec, err
	}

	if err := d.queue.Enqueue(ctx, job); err != nil {
		return rec, fmt.Errorf("enqueueing job %s: %w", job.Type, err)
	}
	return rec, nil
}
