package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/site-awareness/internal/engine"
	"github.com/talgya/site-awareness/internal/entropy"
)

var runOpts struct {
	steps     int
	seed      int64
	runID     int
	reporting string
	org       string
	noStore   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and store its metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := *cfg
		f := cmd.Flags()
		if f.Changed("steps") {
			c.Run.Steps = runOpts.steps
		}
		if f.Changed("seed") {
			c.Run.Seed = runOpts.seed
		}
		if f.Changed("run-id") {
			c.Run.ID = runOpts.runID
		}
		if f.Changed("reporting") {
			c.Run.ReportingStructure = runOpts.reporting
		}
		if f.Changed("org") {
			c.Run.OrgStructure = runOpts.org
		}
		if err := c.Validate(); err != nil {
			return err
		}

		seed := entropy.Seed(c.Run.Seed)
		org, err := engine.New(&c, c.Run.ID, seed)
		if err != nil {
			return err
		}

		eng := engine.NewEngine(org)
		eng.OnStep = func(m engine.StepMetrics) {
			if m.Step%10 == 0 {
				slog.Debug("progress",
					"step", m.Step,
					"phase", m.ProjectPhase,
					"worker_sa", fmt.Sprintf("%.3f", m.WorkerSA),
					"incidents", m.SafetyIncidents,
				)
			}
		}

		res, runErr := eng.Run(cmd.Context())
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return runErr
		}

		if !runOpts.noStore {
			db, err := openStore(&c)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Save(cmd.Context(), &res); err != nil {
				return err
			}
		}

		printRun(cmd.OutOrStdout(), &res)
		if res.Cancelled {
			slog.Warn("run interrupted, partial results kept", "run_id", res.RunID, "steps", res.CompletedSteps)
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runOpts.steps, "steps", 0, "number of steps (overrides run.steps)")
	f.Int64Var(&runOpts.seed, "seed", 0, "random seed, 0 draws one (overrides run.seed)")
	f.IntVar(&runOpts.runID, "run-id", 0, "run number used in the run identifier")
	f.StringVar(&runOpts.reporting, "reporting", "", "reporting structure: dedicated, self or none")
	f.StringVar(&runOpts.org, "org", "", "organizational structure: hierarchical, flat or functional")
	f.BoolVar(&runOpts.noStore, "no-store", false, "do not write results to the store")
}
