// Package engine provides the construction organization and the step loop
// that drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine drives an organization forward for a fixed number of steps.
type Engine struct {
	Org   *Organization
	Steps int // terminal step count

	// OnStep is called after every completed step.
	OnStep func(m StepMetrics)
}

// NewEngine creates an engine running org for its configured step count.
func NewEngine(org *Organization) *Engine {
	return &Engine{
		Org:   org,
		Steps: org.cfg.Run.Steps,
	}
}

// Run advances the organization until the step count is reached or ctx is
// cancelled. Cancellation takes effect at a step boundary; the result then
// holds every row collected so far together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (Result, error) {
	slog.Info("simulation engine started", "run_id", e.Org.RunID(), "steps", e.Steps)
	start := time.Now()

	var runErr error
	for e.Org.Step() < e.Steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		m := e.Org.Advance()
		if e.OnStep != nil {
			e.OnStep(m)
		}
	}

	res := e.Org.Result()
	res.Cancelled = runErr != nil
	out := e.Org.Outcomes()

	slog.Info("simulation engine stopped",
		"run_id", res.RunID,
		"steps", res.CompletedSteps,
		"cancelled", res.Cancelled,
		"incidents", out.SafetyIncidents,
		"adherence", fmt.Sprintf("%.3f", out.ScheduleAdherence()),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, runErr
}
