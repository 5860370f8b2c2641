package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/marcelsud/inbound-processor/config"
	"github.com/marcelsud/inbound-processor/endpoints"
	"github.com/marcelsud/inbound-processor/events"
	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/postgres"
	"github.com/marcelsud/inbound-processor/inbound/redis"
	"github.com/marcelsud/inbound-processor/internal/http/chi"
	"github.com/marcelsud/inbound-processor/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

/* App holds the dependencies shared by the api, the worker and the CLIs
 * Build it with New, close it on shutdown
 */
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Redis      *goredis.Client
	Queue      *redis.Queue
	Stores     map[string]inbound.Store
	Components *inbound.Components
	Endpoints  *endpoints.Loader
	Registry   *inbound.Registry

	// Set by Observe
	Notifier *inbound.Notifier
	Metrics  *metrics.OTelExporter
	Sink     *events.Sink

	closers []func(context.Context) error
}

// NewLogger returns the process logger: JSON on stdout, or human readable on stderr
func NewLogger(jsonOutput bool) zerolog.Logger {
	if jsonOutput {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// New connects to Redis (and Postgres when configured), loads the endpoints
// file and builds the frozen registry.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	client, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		Redis:  client,
		Queue:  redis.NewQueue(client),
		Stores: map[string]inbound.Store{StoreRedis: redis.NewStore(client)},
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	if cfg.PostgresDSN != "" {
		if err := a.connectPostgres(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	if err := a.loadEndpoints(cfg.EndpointsFile); err != nil {
		a.Close(ctx)
		return nil, err
	}

	return a, nil
}

func (a *App) connectPostgres(ctx context.Context) error {
	store, err := postgres.NewStoreWithPoolConfig(
		a.Config.PostgresDSN,
		a.Config.PostgresMaxOpenConns,
		a.Config.PostgresMaxIdleConns,
		a.Config.PostgresConnMaxLifeMinutes,
	)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	a.Stores[StorePostgres] = store
	return nil
}

func (a *App) loadEndpoints(path string) error {
	loader := endpoints.NewLoader()
	if err := loader.Load(path); err != nil {
		return fmt.Errorf("loading endpoints: %w", err)
	}

	components, err := NewComponents(a.Stores, loader.EventTypeProfiles())
	if err != nil {
		return err
	}

	registry, err := loader.Build(components)
	if err != nil {
		return err
	}

	a.Endpoints = loader
	a.Components = components
	a.Registry = registry
	return nil
}

// Observe builds the notifier: log listener, metrics exporter and, when
// EVENT_SINK_URL is set, the CloudEvents sink. A nil reg uses the default Prometheus registry.
func (a *App) Observe(ctx context.Context, reg *prom.Registry) error {
	exporter, err := metrics.NewOTelExporter(a.collector(), reg)
	if err != nil {
		return err
	}
	a.Metrics = exporter
	a.closers = append(a.closers, exporter.Shutdown)

	a.Notifier = inbound.NewNotifier(events.LogListener(a.Logger), exporter)

	if a.Config.EventSinkURL != "" {
		a.Sink = events.NewSink(events.SinkConfig{TargetURL: a.Config.EventSinkURL, Logger: a.Logger})
		a.Sink.Start(ctx)
		a.Notifier.Subscribe(a.Sink)
		a.closers = append(a.closers, func(context.Context) error {
			a.Sink.Close()
			return nil
		})
	}
	return nil
}

// collector counts records with the store of each endpoint, when it can count
func (a *App) collector() *metrics.EndpointCollector {
	names := a.Registry.Names()
	counters := make(map[string]metrics.RecordCounter, len(names))
	for _, name := range names {
		cfg, err := a.Registry.Lookup(name)
		if err != nil {
			continue
		}
		if c, ok := cfg.Store.(metrics.RecordCounter); ok {
			counters[name] = c
		}
	}
	return metrics.NewCollector(names, counters, a.Queue)
}

// Processor returns a processor dispatching to the Redis queue.
// Call Observe first so events reach the listeners.
func (a *App) Processor() *inbound.Processor {
	return inbound.NewProcessor(inbound.NewDispatcher(a.Queue), a.Notifier, inbound.WithLogger(a.Logger))
}

// Server returns the HTTP dependencies of the api
func (a *App) Server() chi.Server {
	s := chi.Server{
		Registry:       a.Registry,
		Endpoints:      a.Endpoints.List(),
		Processor:      a.Processor(),
		Notifier:       a.Notifier,
		MaxUploadBytes: a.Config.MaxUploadBytes(),
		LogJSON:        a.Config.LogJSON,
	}
	if a.Metrics != nil {
		s.Metrics = a.Metrics.Handler()
	}
	return s
}

// Close releases everything New and Observe opened, last opened first
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
