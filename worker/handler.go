package worker

import (
	"context"
	"fmt"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/rs/zerolog"
)

// JobHandler runs the work bound to one stored record.
// A returned error is saved as the record exception.
type JobHandler interface {
	Handle(ctx context.Context, rec inbound.Record, job inbound.Job) error
}

// HandlerFunc adapts a function to a JobHandler
type HandlerFunc func(ctx context.Context, rec inbound.Record, job inbound.Job) error

func (f HandlerFunc) Handle(ctx context.Context, rec inbound.Record, job inbound.Job) error {
	return f(ctx, rec, job)
}

/* Handlers maps job types to the handler running them
 * Filled at boot, read-only once the runner starts
 */
type Handlers map[string]JobHandler

// Register binds a job type to its handler
func (h Handlers) Register(jobType string, handler JobHandler) error {
	if jobType == "" {
		return fmt.Errorf("job type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler for job type %s is nil", jobType)
	}
	h[jobType] = handler
	return nil
}

func (h Handlers) lookup(jobType string) (JobHandler, error) {
	handler, ok := h[jobType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for job type %s", jobType)
	}
	return handler, nil
}

// LogRecord is the default handler: it materializes the attachments of the
// record and logs what was received.
func LogRecord(logger zerolog.Logger) JobHandler {
	return HandlerFunc(func(ctx context.Context, rec inbound.Record, job inbound.Job) error {
		set, err := inbound.OpenAttachments(rec)
		if err != nil {
			return fmt.Errorf("opening attachments: %w", err)
		}
		defer set.Close()

		logger.Info().
			Str("endpoint", rec.Name).
			Str("record_id", rec.ID).
			Str("job_id", job.ID).
			Int("fields", len(rec.Payload)).
			Int("attachments", len(set.Files)).
			Msg("inbound data processed")
		return nil
	})
}
