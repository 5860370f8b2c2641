package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/inbound-processor/config"
	"github.com/marcelsud/inbound-processor/internal/app"
	"github.com/marcelsud/inbound-processor/worker"
	"github.com/spf13/pflag"
)

/* worker - consumes the jobs of stored records
 * Usage: go run cmd/worker/main.go [--endpoint name ...] [--batch 10] [--block 2s]
 */

func main() {
	endpointNames := pflag.StringSlice("endpoint", nil, "endpoints to consume (default: all)")
	workerID := pflag.String("id", "", "worker id (default: WORKER_ID or hostname)")
	batch := pflag.Int64("batch", 10, "jobs read per poll")
	block := pflag.Duration("block", 2*time.Second, "how long a poll waits for jobs")
	pflag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("starting worker")
		os.Exit(1)
	}
	defer a.Close(context.Background())

	id := *workerID
	if id == "" {
		id = cfg.WorkerID
	}
	if id == "" {
		host, _ := os.Hostname()
		id = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	names := *endpointNames
	if len(names) == 0 {
		names = a.Registry.Names()
	}

	handlers := worker.Handlers{}
	if err := handlers.Register(app.JobProcessRecord, worker.LogRecord(logger)); err != nil {
		logger.Error().Err(err).Msg("registering handlers")
		os.Exit(1)
	}

	runner, err := worker.NewRunner(worker.Config{
		WorkerID:  id,
		Endpoints: names,
		BatchSize: *batch,
		Block:     *block,
	}, a.Queue, a.Registry, handlers, logger)
	if err != nil {
		logger.Error().Err(err).Msg("starting worker")
		os.Exit(1)
	}

	if err := runner.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("worker failed")
		os.Exit(1)
	}
}
