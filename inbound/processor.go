package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

/* Processor runs one call through the pipeline:
 * signature -> profile -> store -> dispatch -> response
 * It holds no per-call state and is safe for concurrent use.
 */
type Processor struct {
	dispatcher *Dispatcher
	notifier   *Notifier
	logger     zerolog.Logger
	now        func() time.Time
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithLogger sets the logger transitions are written to
func WithLogger(logger zerolog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithClock overrides the clock used for record timestamps
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
		p.dispatcher.now = now
	}
}

// NewProcessor creates a processor dispatching through d and emitting events to n
func NewProcessor(d *Dispatcher, n *Notifier, opts ...ProcessorOption) *Processor {
	if n == nil {
		n = NewNotifier()
	}
	p := &Processor{
		dispatcher: d,
		notifier:   n,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs call through the pipeline of cfg and returns the reply.
//
// A rejected signature returns an error wrapping ErrSignatureInvalid and no reply.
// A failed dispatch returns a *ProcessingError; the failure is already on the record.
func (p *Processor) Process(ctx context.Context, call Call, cfg *EndpointConfig) (Reply, error) {
	log := p.logger.With().Str("endpoint", cfg.Name()).Logger()
	log.Debug().Stringer("state", Received).Msg("inbound call")

	if err := p.ensureValidSignature(ctx, call, cfg); err != nil {
		log.Debug().Stringer("state", SignatureRejected).Err(err).Msg("inbound call")
		return Reply{}, err
	}
	log.Debug().Stringer("state", SignatureChecked).Msg("inbound call")

	process := cfg.Profile.ShouldProcess(ctx, call)
	log.Debug().Stringer("state", ProfileGated).Bool("process", process).Msg("inbound call")

	if !process {
		p.notifier.Notify(ctx, Event{Kind: EventSkipped, Endpoint: cfg.Name(), Call: &call})
		log.Debug().Stringer("state", Skipped).Msg("inbound call")
		return p.respond(ctx, call, cfg, log)
	}

	rec, err := StoreInboundData(ctx, cfg, call, p.now())
	if err != nil {
		return Reply{}, err
	}
	p.notifier.Notify(ctx, Event{Kind: EventStored, Endpoint: cfg.Name(), Call: &call, RecordID: rec.ID})
	log.Debug().Stringer("state", Stored).Str("record_id", rec.ID).Msg("inbound call")

	if _, err := p.dispatcher.Dispatch(ctx, rec, cfg); err != nil {
		p.notifier.Notify(ctx, Event{Kind: EventDispatchFailed, Endpoint: cfg.Name(), Call: &call, RecordID: rec.ID, Err: err})
		log.Error().Stringer("state", DispatchFailed).Str("record_id", rec.ID).Err(err).Msg("inbound call")
		return Reply{}, err
	}
	p.notifier.Notify(ctx, Event{Kind: EventDispatched, Endpoint: cfg.Name(), Call: &call, RecordID: rec.ID})
	log.Debug().Stringer("state", DispatchOk).Str("record_id", rec.ID).Msg("inbound call")

	return p.respond(ctx, call, cfg, log)
}

// ensureValidSignature emits EventInvalidSignature and fails when the
// validator rejects the call or cannot run. A validator error is kept in the
// chain so a missing secret stays visible to operators.
func (p *Processor) ensureValidSignature(ctx context.Context, call Call, cfg *EndpointConfig) error {
	valid, err := cfg.Validator.IsValid(ctx, call, cfg)
	if err == nil && valid {
		return nil
	}

	p.notifier.Notify(ctx, Event{Kind: EventInvalidSignature, Endpoint: cfg.Name(), Call: &call, Err: err})

	if err != nil {
		return errors.Join(ErrSignatureInvalid, err)
	}
	return ErrSignatureInvalid
}

func (p *Processor) respond(ctx context.Context, call Call, cfg *EndpointConfig, log zerolog.Logger) (Reply, error) {
	reply, err := cfg.Response.RespondTo(ctx, call, cfg)
	if err != nil {
		return Reply{}, fmt.Errorf("responding to call: %w", err)
	}
	log.Debug().Stringer("state", ResponseEmitted).Int("status", reply.StatusCode).Msg("inbound call")
	return reply, nil
}
