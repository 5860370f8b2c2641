package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/redis"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StatusProcessing is the heartbeat status of a running worker
const StatusProcessing = "processing"

// Source hands out jobs and tracks worker liveness; *redis.Queue implements it
type Source interface {
	Consume(ctx context.Context, endpoint, consumer string, count int64, block time.Duration) ([]redis.Delivery, error)
	Acknowledge(ctx context.Context, endpoint, messageID string) error
	SetWorkerHeartbeat(ctx context.Context, workerID, endpoint, status string) error
}

// Config tunes a Runner. Zero values fall back to the defaults below.
type Config struct {
	WorkerID  string
	Endpoints []string
	// BatchSize is the max number of jobs read per poll, default 10
	BatchSize int64
	// Block is how long a poll waits for new jobs; <= 0 polls without blocking
	Block time.Duration
	// PollInterval is the pause after an empty non-blocking poll or a failed one, default 1s
	PollInterval time.Duration
	// HeartbeatInterval defaults to redis.HeartbeatTTL / 2
	HeartbeatInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = redis.HeartbeatTTL / 2
	}
	return c
}

/* Runner consumes the jobs of every configured endpoint and runs them
 * Each delivery is acknowledged once its outcome is on the record; a
 * delivery whose record cannot be read is left pending.
 */
type Runner struct {
	cfg      Config
	source   Source
	registry *inbound.Registry
	handlers Handlers
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRunner creates a runner; the registry resolves the store of each job's endpoint
func NewRunner(cfg Config, source Source, registry *inbound.Registry, handlers Handlers, logger zerolog.Logger) (*Runner, error) {
	if cfg.WorkerID == "" {
		return nil, fmt.Errorf("worker id cannot be empty")
	}
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints to consume")
	}
	for _, name := range cfg.Endpoints {
		if _, err := registry.Lookup(name); err != nil {
			return nil, err
		}
	}

	return &Runner{
		cfg:      cfg.withDefaults(),
		source:   source,
		registry: registry,
		handlers: handlers,
		logger:   logger.With().Str("worker_id", cfg.WorkerID).Logger(),
		now:      time.Now,
	}, nil
}

// Run polls every endpoint until ctx is cancelled. It returns nil on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.heartbeats(ctx)
		return nil
	})
	for _, endpoint := range r.cfg.Endpoints {
		g.Go(func() error {
			r.loop(ctx, endpoint)
			return nil
		})
	}

	r.logger.Info().Strs("endpoints", r.cfg.Endpoints).Msg("worker started")
	err := g.Wait()
	r.logger.Info().Msg("worker stopped")
	return err
}

func (r *Runner) loop(ctx context.Context, endpoint string) {
	for ctx.Err() == nil {
		n, err := r.Poll(ctx, endpoint)
		if err != nil && ctx.Err() == nil {
			r.logger.Error().Str("endpoint", endpoint).Err(err).Msg("polling jobs")
		}
		if err == nil && (n > 0 || r.cfg.Block > 0) {
			continue
		}
		sleep(ctx, r.cfg.PollInterval)
	}
}

// Poll reads one batch of jobs of endpoint and runs them. It returns how many were handled.
func (r *Runner) Poll(ctx context.Context, endpoint string) (int, error) {
	deliveries, err := r.source.Consume(ctx, endpoint, r.cfg.WorkerID, r.cfg.BatchSize, r.cfg.Block)
	if err != nil {
		return 0, err
	}

	var errs []error
	handled := 0
	for _, d := range deliveries {
		if err := r.process(ctx, endpoint, d); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", d.Job.ID, err))
			continue
		}
		handled++
	}
	return handled, errors.Join(errs...)
}

func (r *Runner) process(ctx context.Context, endpoint string, d redis.Delivery) error {
	job := d.Job
	log := r.logger.With().Str("endpoint", endpoint).Str("job_id", job.ID).Str("record_id", job.RecordID).Logger()

	cfg, err := r.registry.Lookup(job.Endpoint)
	if err != nil {
		log.Error().Err(err).Msg("dropping job of unknown endpoint")
		return r.source.Acknowledge(ctx, endpoint, d.MessageID)
	}

	rec, err := cfg.Store.Get(ctx, job.RecordID)
	if errors.Is(err, inbound.ErrRecordNotFound) {
		log.Warn().Msg("dropping job of a pruned record")
		return r.source.Acknowledge(ctx, endpoint, d.MessageID)
	}
	if err != nil {
		return fmt.Errorf("loading record: %w", err)
	}

	if err := r.run(ctx, rec, job, cfg, log); err != nil {
		return err
	}
	return r.source.Acknowledge(ctx, endpoint, d.MessageID)
}

// run executes the handler and persists its outcome on the record
func (r *Runner) run(ctx context.Context, rec inbound.Record, job inbound.Job, cfg *inbound.EndpointConfig, log zerolog.Logger) error {
	handler, err := r.handlers.lookup(job.Type)
	if err == nil {
		err = handler.Handle(ctx, rec, job)
	}

	if err != nil {
		log.Error().Str("job_type", job.Type).Err(err).Msg("job failed")
		_, saveErr := inbound.SaveException(ctx, cfg.Store, rec, err, r.now())
		return saveErr
	}

	if rec.Exception != nil {
		if _, err := inbound.ClearException(ctx, cfg.Store, rec, r.now()); err != nil {
			return err
		}
	}
	log.Debug().Str("job_type", job.Type).Msg("job done")
	return nil
}

func (r *Runner) heartbeats(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		for _, endpoint := range r.cfg.Endpoints {
			if err := r.source.SetWorkerHeartbeat(ctx, r.cfg.WorkerID, endpoint, StatusProcessing); err != nil && ctx.Err() == nil {
				r.logger.Warn().Str("endpoint", endpoint).Err(err).Msg("sending heartbeat")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
