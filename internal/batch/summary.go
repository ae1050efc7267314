package batch

import (
	"context"
	"fmt"
	"math"

	"github.com/talgya/site-awareness/internal/engine"
	"github.com/talgya/site-awareness/internal/persistence"
)

// Store reads finished runs back.
type Store interface {
	ListRuns(ctx context.Context) ([]persistence.RunRecord, error)
	StepMetrics(ctx context.Context, runID string) ([]engine.StepMetrics, error)
}

// Stored rebuilds run summaries from the last step row of every stored run.
func Stored(ctx context.Context, st Store) ([]RunSummary, error) {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		steps, err := st.StepMetrics(ctx, r.RunID)
		if err != nil {
			return nil, fmt.Errorf("load steps of %s: %w", r.RunID, err)
		}
		if len(steps) == 0 {
			continue
		}
		out = append(out, RunSummary{
			Job: Job{
				Run:                r.Run,
				Seed:               r.Seed,
				ReportingStructure: r.ReportingStructure,
				OrgStructure:       r.OrgStructure,
			},
			RunID:     r.RunID,
			Cancelled: r.Cancelled,
			Final:     steps[len(steps)-1],
		})
	}
	return out, nil
}

// Stat is the sample mean and standard deviation of one metric.
type Stat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Group aggregates the final metrics of all runs of one configuration.
type Group struct {
	ReportingStructure string `json:"reporting_structure"`
	OrgStructure       string `json:"org_structure"`
	Runs               int    `json:"runs"`

	ScheduleAdherence Stat `json:"schedule_adherence"`
	SafetyIncidents   Stat `json:"safety_incidents"`
	IncidentPoints    Stat `json:"incident_points"`
	CostOverruns      Stat `json:"cost_overruns"`
	WorkerSA          Stat `json:"worker_sa"`
	ManagerSA         Stat `json:"manager_sa"`
	ReportsSent       Stat `json:"reports_sent"`
}

// Summarize groups runs by configuration, in order of first appearance.
// Runs that never completed a step are skipped.
func Summarize(runs []RunSummary) []Group {
	type key struct{ rep, org string }
	var order []key
	byKey := map[key][]engine.StepMetrics{}
	for _, r := range runs {
		if r.RunID == "" || r.Final.Step == 0 {
			continue
		}
		k := key{r.ReportingStructure, r.OrgStructure}
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], r.Final)
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		finals := byKey[k]
		groups = append(groups, Group{
			ReportingStructure: k.rep,
			OrgStructure:       k.org,
			Runs:               len(finals),
			ScheduleAdherence:  stat(finals, func(m engine.StepMetrics) float64 { return m.ScheduleAdherence }),
			SafetyIncidents:    stat(finals, func(m engine.StepMetrics) float64 { return float64(m.SafetyIncidents) }),
			IncidentPoints:     stat(finals, func(m engine.StepMetrics) float64 { return m.IncidentPoints }),
			CostOverruns:       stat(finals, func(m engine.StepMetrics) float64 { return m.CostOverruns }),
			WorkerSA:           stat(finals, func(m engine.StepMetrics) float64 { return m.WorkerSA }),
			ManagerSA:          stat(finals, func(m engine.StepMetrics) float64 { return m.ManagerSA }),
			ReportsSent:        stat(finals, reportsSent),
		})
	}
	return groups
}

func reportsSent(m engine.StepMetrics) float64 {
	return float64(m.WorkerReportsSent + m.ManagerReportsSent + m.DirectorReportsSent + m.ReporterReportsSent)
}

// stat computes the mean and sample standard deviation (0 for one value).
func stat(rows []engine.StepMetrics, f func(engine.StepMetrics) float64) Stat {
	if len(rows) == 0 {
		return Stat{}
	}
	sum := 0.0
	for _, r := range rows {
		sum += f(r)
	}
	mean := sum / float64(len(rows))
	if len(rows) == 1 {
		return Stat{Mean: mean}
	}
	ss := 0.0
	for _, r := range rows {
		d := f(r) - mean
		ss += d * d
	}
	return Stat{Mean: mean, Std: math.Sqrt(ss / float64(len(rows)-1))}
}
