// Package batch runs many independent simulations in parallel. Every run
// owns its organization and RNG; the only shared resource is the sink.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/site-awareness/internal/config"
	"github.com/talgya/site-awareness/internal/engine"
	"github.com/talgya/site-awareness/internal/entropy"
)

// Sink stores finished runs. Implementations must be safe for concurrent use.
type Sink interface {
	Save(ctx context.Context, res *engine.Result) error
}

// Job is one planned run.
type Job struct {
	Run                int    `json:"run"`
	Seed               int64  `json:"seed"`
	ReportingStructure string `json:"reporting_structure"`
	OrgStructure       string `json:"org_structure"`
}

// Plan expands the batch configuration into jobs: batch.runs runs for each
// configured reporting/org pair, numbered from 1, each seeded from base.
func Plan(cfg *config.Config, base int64) ([]Job, error) {
	var jobs []Job
	n := 0
	for _, pair := range cfg.Batch.Configurations {
		rep, org, err := config.ParsePair(pair)
		if err != nil {
			return nil, err
		}
		for i := 0; i < cfg.Batch.Runs; i++ {
			n++
			jobs = append(jobs, Job{
				Run:                n,
				Seed:               entropy.RunSeed(base, n),
				ReportingStructure: rep.String(),
				OrgStructure:       org.String(),
			})
		}
	}
	return jobs, nil
}

// RunSummary is the outcome of one job.
type RunSummary struct {
	Job
	RunID     string             `json:"run_id"`
	Cancelled bool               `json:"cancelled"`
	Final     engine.StepMetrics `json:"final"`
	SaveError string             `json:"save_error,omitempty"`
}

// Runner executes jobs on a bounded number of workers.
type Runner struct {
	cfg     *config.Config
	sink    Sink
	workers int

	// OnDone is called after each run is stored. It may be called from
	// several goroutines at once.
	OnDone func(RunSummary)
}

// NewRunner creates a runner. A nil sink discards results.
func NewRunner(cfg *config.Config, sink Sink) *Runner {
	return &Runner{cfg: cfg, sink: sink, workers: cfg.Batch.Workers}
}

// SetWorkers overrides the configured worker count.
func (r *Runner) SetWorkers(n int) {
	if n > 0 {
		r.workers = n
	}
}

// Run executes every job and returns their summaries in job order. A
// storage failure is recorded on the summary and does not stop the batch.
// Cancelling ctx stops runs at their next step boundary; partial runs are
// still handed to the sink.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]RunSummary, error) {
	out := make([]RunSummary, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	slog.Info("batch started", "jobs", len(jobs), "workers", r.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := r.runOne(gctx, job)
			out[i] = s
			if r.OnDone != nil && s.RunID != "" {
				r.OnDone(s)
			}
			return err
		})
	}

	err := g.Wait()
	slog.Info("batch finished", "jobs", len(jobs), "error", err)
	return out, err
}

func (r *Runner) runOne(ctx context.Context, job Job) (RunSummary, error) {
	cfg := *r.cfg
	cfg.Run.ID = job.Run
	cfg.Run.Seed = job.Seed
	cfg.Run.ReportingStructure = job.ReportingStructure
	cfg.Run.OrgStructure = job.OrgStructure

	org, err := engine.New(&cfg, job.Run, job.Seed)
	if err != nil {
		return RunSummary{Job: job}, fmt.Errorf("run %d: %w", job.Run, err)
	}
	res, runErr := engine.NewEngine(org).Run(ctx)

	s := RunSummary{Job: job, RunID: res.RunID, Cancelled: res.Cancelled}
	s.Final, _ = res.Final()

	if r.sink != nil {
		if err := r.sink.Save(ctx, &res); err != nil {
			slog.Error("run not stored", "run_id", res.RunID, "error", err)
			s.SaveError = err.Error()
		}
	}
	return s, runErr
}
