// Package persistence provides SQLite storage for simulation results, with
// a CSV fallback when the database stays locked.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/site-awareness/internal/config"
	"github.com/talgya/site-awareness/internal/engine"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Options controls locking, retries and the fallback location.
type Options struct {
	LockTimeout time.Duration // SQLite busy timeout
	Attempts    int
	Backoff     time.Duration // first retry delay, doubled each attempt
	FallbackDir string        // empty disables the CSV fallback
}

// OptionsFrom converts the storage configuration.
func OptionsFrom(c config.StorageConfig) Options {
	return Options{
		LockTimeout: c.LockTimeoutDuration(),
		Attempts:    c.Attempts,
		Backoff:     c.BackoffDuration(),
		FallbackDir: c.FallbackDir,
	}
}

// RunRecord is the stored summary of one run.
type RunRecord struct {
	RunID              string    `db:"run_id" json:"run_id"`
	Run                int       `db:"run" json:"run"`
	Seed               int64     `db:"seed" json:"seed"`
	ReportingStructure string    `db:"reporting_structure" json:"reporting_structure"`
	OrgStructure       string    `db:"org_structure" json:"org_structure"`
	PlannedSteps       int       `db:"planned_steps" json:"planned_steps"`
	CompletedSteps     int       `db:"completed_steps" json:"completed_steps"`
	Cancelled          bool      `db:"cancelled" json:"cancelled"`
	StartedAt          time.Time `db:"started_at" json:"started_at"`
	FinishedAt         time.Time `db:"finished_at" json:"finished_at"`
	Config             string    `db:"config" json:"-"`
}

// DB wraps a SQLite connection holding simulation results.
type DB struct {
	conn *sqlx.DB
	path string
	opts Options
}

// Open opens or creates a SQLite database at the given path.
func Open(path string, opts Options) (*DB, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, opts.LockTimeout.Milliseconds())
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, path: path, opts: opts}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		run INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		reporting_structure TEXT NOT NULL,
		org_structure TEXT NOT NULL,
		planned_steps INTEGER NOT NULL,
		completed_steps INTEGER NOT NULL,
		cancelled INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		config TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS step_metrics (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		reporting_structure TEXT NOT NULL,
		org_structure TEXT NOT NULL,
		worker_sa REAL NOT NULL,
		manager_sa REAL NOT NULL,
		director_sa REAL NOT NULL,
		reporter_sa REAL NOT NULL,
		worker_reports_sent INTEGER NOT NULL,
		manager_reports_sent INTEGER NOT NULL,
		director_reports_sent INTEGER NOT NULL,
		reporter_reports_sent INTEGER NOT NULL,
		worker_reports_received INTEGER NOT NULL,
		manager_reports_received INTEGER NOT NULL,
		director_reports_received INTEGER NOT NULL,
		reporter_reports_received INTEGER NOT NULL,
		safety_incidents INTEGER NOT NULL,
		incident_points REAL NOT NULL,
		schedule_adherence REAL NOT NULL,
		cost_overruns REAL NOT NULL,
		comm_failure_rate REAL NOT NULL,
		hazard_events INTEGER NOT NULL,
		delay_events INTEGER NOT NULL,
		resource_shortage_events INTEGER NOT NULL,
		total_tasks INTEGER NOT NULL,
		tasks_completed_on_time INTEGER NOT NULL,
		budget_remaining REAL NOT NULL,
		equipment_available INTEGER NOT NULL,
		report_actions INTEGER NOT NULL,
		act_actions INTEGER NOT NULL,
		escalate_actions INTEGER NOT NULL,
		substitute_actions INTEGER NOT NULL,
		worker_act_count INTEGER NOT NULL,
		manager_act_count INTEGER NOT NULL,
		director_act_count INTEGER NOT NULL,
		reporter_act_count INTEGER NOT NULL,
		project_phase TEXT NOT NULL,
		critical_tasks INTEGER NOT NULL,
		supplier_communications INTEGER NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE TABLE IF NOT EXISTS agent_metrics (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		sa_score REAL NOT NULL,
		sa_delta REAL NOT NULL,
		reports_sent INTEGER NOT NULL,
		reports_received INTEGER NOT NULL,
		workload REAL NOT NULL,
		fatigue REAL NOT NULL,
		experience REAL NOT NULL,
		risk_tolerance REAL NOT NULL,
		PRIMARY KEY (run_id, step, agent_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_structure ON runs(reporting_structure, org_structure);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save writes a run result. Writes to one database file are serialized
// within the process; lock contention is retried with exponential backoff.
// When every attempt fails the rows go to CSV files in the fallback
// directory, and Save only returns an error if that fails too.
func (db *DB) Save(ctx context.Context, res *engine.Result) error {
	// rows of a cancelled run are still written
	ctx = context.WithoutCancel(ctx)

	mu := pathLock(db.path)
	mu.Lock()
	defer mu.Unlock()

	err := retry(ctx, db.opts.Attempts, db.opts.Backoff, func() error {
		return db.insert(ctx, res)
	})
	if err == nil {
		slog.Info("run saved", "run_id", res.RunID, "db", db.path, "steps", len(res.Steps), "agent_rows", len(res.Agents))
		return nil
	}

	slog.Error("saving run failed", "run_id", res.RunID, "db", db.path, "error", err)
	if db.opts.FallbackDir == "" {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	files, ferr := WriteCSV(db.opts.FallbackDir, res)
	if ferr != nil {
		return fmt.Errorf("save run %s: %w (csv fallback: %w)", res.RunID, err, ferr)
	}
	slog.Warn("run saved to csv fallback", "run_id", res.RunID, "files", files)
	return nil
}

// insert writes the run in one transaction, replacing earlier rows of the
// same run.
func (db *DB) insert(ctx context.Context, res *engine.Result) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"runs", "step_metrics", "agent_metrics"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", res.RunID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
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
		StartedAt:          res.StartedAt.UTC(),
		FinishedAt:         res.FinishedAt.UTC(),
		Config:             res.Config,
	}
	if _, err := tx.NamedExecContext(ctx, insertQuery("runs", runColumns), rec); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := insertRows(ctx, tx, "step_metrics", stepColumns, res.Steps); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, "agent_metrics", agentColumns, res.Agents); err != nil {
		return err
	}

	return tx.Commit()
}

func insertRows[T any](ctx context.Context, tx *sqlx.Tx, table string, columns []string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, insertQuery(table, columns))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
	}
	return nil
}

// ListRuns returns every stored run, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.SelectContext(ctx, &runs, "SELECT * FROM runs ORDER BY started_at DESC, run_id")
	return runs, err
}

// GetRun returns one run.
func (db *DB) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	var rec RunRecord
	err := db.conn.GetContext(ctx, &rec, "SELECT * FROM runs WHERE run_id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	return rec, err
}

// StepMetrics returns the step rows of a run in step order.
func (db *DB) StepMetrics(ctx context.Context, runID string) ([]engine.StepMetrics, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	var rows []engine.StepMetrics
	err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM step_metrics WHERE run_id = ? ORDER BY step", runID)
	return rows, err
}

// AgentMetrics returns the agent rows of a run, optionally limited to one step.
func (db *DB) AgentMetrics(ctx context.Context, runID string, step *int) ([]engine.AgentMetrics, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	var rows []engine.AgentMetrics
	var err error
	if step != nil {
		err = db.conn.SelectContext(ctx, &rows,
			"SELECT * FROM agent_metrics WHERE run_id = ? AND step = ? ORDER BY agent_id",
			runID, *step,
		)
	} else {
		err = db.conn.SelectContext(ctx, &rows,
			"SELECT * FROM agent_metrics WHERE run_id = ? ORDER BY step, agent_id",
			runID,
		)
	}
	return rows, err
}

// LoadResult rebuilds a stored run result.
func (db *DB) LoadResult(ctx context.Context, runID string) (*engine.Result, error) {
	rec, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	steps, err := db.StepMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	agentRows, err := db.AgentMetrics(ctx, runID, nil)
	if err != nil {
		return nil, err
	}
	return &engine.Result{
		RunID:              rec.RunID,
		Run:                rec.Run,
		Seed:               rec.Seed,
		ReportingStructure: rec.ReportingStructure,
		OrgStructure:       rec.OrgStructure,
		PlannedSteps:       rec.PlannedSteps,
		CompletedSteps:     rec.CompletedSteps,
		Cancelled:          rec.Cancelled,
		StartedAt:          rec.StartedAt,
		FinishedAt:         rec.FinishedAt,
		Config:             rec.Config,
		Steps:              steps,
		Agents:             agentRows,
	}, nil
}
