package persistence

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/talgya/site-awareness/internal/engine"
)

// WriteCSV writes a run as <run_id>_run.csv, <run_id>_metrics.csv and
// <run_id>_agents.csv in dir, returning the paths written.
func WriteCSV(dir string, res *engine.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}

	rec := RunRecord{
		RunID:              res.RunID,
		Run:                res.Run,
		Seed:               res.Seed,
		ReportingStructure: res.ReportingStructure,
		OrgStructure:       res.OrgStructure,
		PlannedSteps:       res.PlannedSteps,
		CompletedSteps:     res.CompletedSteps,
		Cancelled:          res.Cancelled,
		StartedAt:          res.StartedAt,
		FinishedAt:         res.FinishedAt,
		Config:             res.Config,
	}

	files := []struct {
		suffix  string
		columns []string
		rows    [][]string
	}{
		{"run", runColumns, [][]string{record(rec, runColumns)}},
		{"metrics", stepColumns, records(res.Steps, stepColumns)},
		{"agents", agentColumns, records(res.Agents, agentColumns)},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", res.RunID, f.suffix))
		if err := writeFile(path, f.columns, f.rows); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func records[T any](rows []T, columns []string) [][]string {
	out := make([][]string, len(rows))
	for i := range rows {
		out[i] = record(rows[i], columns)
	}
	return out
}

func writeFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
