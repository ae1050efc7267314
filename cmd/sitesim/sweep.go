package main

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/site-awareness/internal/batch"
	"github.com/talgya/site-awareness/internal/entropy"
)

var sweepOpts struct {
	runs           int
	workers        int
	seed           int64
	configurations []string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a batch of simulations across reporting structures",
	Long: `sweep runs batch.runs simulations for every configured reporting/org
pair on a pool of workers, stores each run and prints the aggregate table.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := *cfg
		f := cmd.Flags()
		if f.Changed("runs") {
			c.Batch.Runs = sweepOpts.runs
		}
		if f.Changed("workers") {
			c.Batch.Workers = sweepOpts.workers
		}
		if f.Changed("configurations") {
			c.Batch.Configurations = sweepOpts.configurations
		}
		if f.Changed("seed") {
			c.Run.Seed = sweepOpts.seed
		}
		if err := c.Validate(); err != nil {
			return err
		}

		base := entropy.Seed(c.Run.Seed)
		jobs, err := batch.Plan(&c, base)
		if err != nil {
			return err
		}

		db, err := openStore(&c)
		if err != nil {
			return err
		}
		defer db.Close()

		var done atomic.Int64
		start := time.Now()
		runner := batch.NewRunner(&c, db)
		runner.OnDone = func(s batch.RunSummary) {
			n := done.Add(1)
			slog.Info("run finished",
				"run_id", s.RunID,
				"configuration", s.ReportingStructure+"/"+s.OrgStructure,
				"done", n,
				"of", len(jobs),
			)
		}

		slog.Info("sweep started", "base_seed", base, "jobs", len(jobs), "store", db.Path())
		out, err := runner.Run(cmd.Context(), jobs)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			slog.Warn("sweep interrupted", "completed", done.Load(), "of", len(jobs))
		}
		slog.Info("sweep finished", "elapsed", time.Since(start).Round(time.Millisecond))

		printSummary(cmd.OutOrStdout(), batch.Summarize(out))
		return nil
	},
}

func init() {
	f := sweepCmd.Flags()
	f.IntVar(&sweepOpts.runs, "runs", 0, "runs per configuration (overrides batch.runs)")
	f.IntVar(&sweepOpts.workers, "workers", 0, "parallel workers (overrides batch.workers)")
	f.Int64Var(&sweepOpts.seed, "seed", 0, "base seed, 0 draws one")
	f.StringSliceVar(&sweepOpts.configurations, "configurations", nil, "reporting/org pairs, e.g. dedicated/flat,none/flat")
}
