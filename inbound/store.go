package inbound

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRecord builds the record of an accepted call: headers filtered per the
// endpoint policy, payload captured with attachment contents.
func NewRecord(cfg *EndpointConfig, call Call, now time.Time) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("generating record id: %w", err)
	}

	return Record{
		ID:        id.String(),
		Name:      cfg.Name(),
		URL:       call.URL,
		Headers:   cfg.StoreHeaders().Filter(call.Header),
		Payload:   BuildPayload(call),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// StoreInboundData persists an accepted call with the endpoint's store
func StoreInboundData(ctx context.Context, cfg *EndpointConfig, call Call, now time.Time) (Record, error) {
	rec, err := NewRecord(cfg, call, now)
	if err != nil {
		return Record{}, err
	}

	if err := cfg.Store.Create(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("storing inbound data: %w", err)
	}

	return rec, nil
}

// SaveException snapshots cause onto the record and persists it
func SaveException(ctx context.Context, w Writer, rec Record, cause error, now time.Time) (Record, error) {
	exc := NewException(cause)
	if err := w.SetException(ctx, rec.ID, exc, now); err != nil {
		return rec, fmt.Errorf("saving exception: %w", err)
	}

	rec.Exception = exc
	rec.UpdatedAt = now
	return rec, nil
}

// ClearException nulls the exception of the record and persists it
func ClearException(ctx context.Context, w Writer, rec Record, now time.Time) (Record, error) {
	if err := w.SetException(ctx, rec.ID, nil, now); err != nil {
		return rec, fmt.Errorf("clearing exception: %w", err)
	}

	rec.Exception = nil
	rec.UpdatedAt = now
	return rec, nil
}

// coder is implemented by errors that carry a numeric code
type coder interface {
	Code() int
}

// NewException builds the structured snapshot of err.
// The trace lists the wrapped error chain followed by the current goroutine stack.
func NewException(err error) *Exception {
	if err == nil {
		return nil
	}

	exc := &Exception{Message: err.Error()}

	var c coder
	if errors.As(err, &c) {
		exc.Code = c.Code()
	}

	var b strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%T: %v\n", e, e)
	}
	b.WriteString("\n")
	b.Write(debug.Stack())
	exc.Trace = b.String()

	return exc
}

func newJob(jobType string, rec Record) (Job, error) {
	if jobType == "" {
		return Job{}, fmt.Errorf("job type cannot be empty")
	}
	if rec.ID == "" {
		return Job{}, fmt.Errorf("record id cannot be empty")
	}
	return Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		RecordID:  rec.ID,
		Endpoint:  rec.Name,
		CreatedAt: time.Now(),
	}, nil
}
