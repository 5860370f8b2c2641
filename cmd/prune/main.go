package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/marcelsud/inbound-processor/config"
	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/internal/app"
	"github.com/spf13/pflag"
)

/* prune - deletes the records older than the retention window
 * Usage: go run cmd/prune/main.go [--days 30] [--dry-run]
 * RETENTION_DAYS is used when --days is not given; "null" keeps everything.
 * Exit codes: 0 = ok, 1 = failure (including an invalid retention window)
 */

func main() {
	days := pflag.String("days", "", "retention window in days, \"null\" to never prune (default: RETENTION_DAYS)")
	dryRun := pflag.Bool("dry-run", false, "only report what would be deleted")
	pflag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogJSON)
	ctx := context.Background()

	retention := cfg.Retention()
	if pflag.CommandLine.Changed("days") {
		retention = *days
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("starting prune")
		os.Exit(1)
	}
	defer a.Close(ctx)

	ids := make([]string, 0, len(a.Stores))
	for id := range a.Stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now()
	failed := false
	for _, id := range ids {
		store := a.Stores[id]
		log := logger.With().Str("store", id).Logger()

		if *dryRun {
			prunable, err := inbound.Prunable(ctx, store, retention, now)
			if err != nil {
				log.Error().Err(err).Msg("selecting prunable records")
				failed = true
				continue
			}
			log.Info().Int("prunable", len(prunable)).Msg("dry run")
			continue
		}

		deleted, err := inbound.Sweep(ctx, store, retention, now)
		if err != nil {
			log.Error().Err(err).Int64("deleted", deleted).Msg("pruning records")
			failed = true
			continue
		}
		log.Info().Int64("deleted", deleted).Msg("records pruned")
	}

	if failed {
		a.Close(ctx)
		os.Exit(1)
	}
}
