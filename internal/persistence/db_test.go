package persistence

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/site-awareness/internal/config"
	"github.com/talgya/site-awareness/internal/engine"
)

func runResult(t *testing.T, steps int, seed int64) *engine.Result {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Run.Steps = steps
	cfg.Run.AgentLogInterval = 5
	org, err := engine.New(cfg, 1, seed)
	require.NoError(t, err)
	res, err := engine.NewEngine(org).Run(context.Background())
	require.NoError(t, err)
	return &res
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "results.db"), Options{
		LockTimeout: time.Second,
		Attempts:    3,
		Backoff:     time.Millisecond,
		FallbackDir: filepath.Join(dir, "fallback"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	res := runResult(t, 10, 21)

	require.NoError(t, db.Save(ctx, res))

	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].RunID)
	assert.Equal(t, 10, runs[0].CompletedSteps)
	assert.False(t, runs[0].Cancelled)
	assert.WithinDuration(t, res.StartedAt, runs[0].StartedAt, time.Second)

	steps, err := db.StepMetrics(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Steps, steps)

	step := 5
	agentRows, err := db.AgentMetrics(ctx, res.RunID, &step)
	require.NoError(t, err)
	require.NotEmpty(t, agentRows)
	for _, r := range agentRows {
		assert.Equal(t, 5, r.Step)
	}

	loaded, err := db.LoadResult(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Agents, loaded.Agents)
	assert.Equal(t, res.Config, loaded.Config)
}

func TestSaveReplacesRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	res := runResult(t, 5, 3)

	require.NoError(t, db.Save(ctx, res))
	require.NoError(t, db.Save(ctx, res))

	steps, err := db.StepMetrics(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, steps, 5)
}

func TestSaveWithCancelledContext(t *testing.T) {
	db := openTestDB(t)
	res := runResult(t, 3, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, db.Save(ctx, res))

	_, err := db.GetRun(context.Background(), res.RunID)
	assert.NoError(t, err)
}

func TestMissingRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetRun(ctx, "sim_nothing_run001")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.StepMetrics(ctx, "sim_nothing_run001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveFallsBackToCSV(t *testing.T) {
	db := openTestDB(t)
	res := runResult(t, 4, 5)
	require.NoError(t, db.conn.Close())

	require.NoError(t, db.Save(context.Background(), res))

	path := filepath.Join(db.opts.FallbackDir, res.RunID+"_metrics.csv")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, stepColumns, rows[0])
	assert.Equal(t, res.RunID, rows[1][0])
	assert.Equal(t, "1", rows[1][1])

	assert.FileExists(t, filepath.Join(db.opts.FallbackDir, res.RunID+"_agents.csv"))
	assert.FileExists(t, filepath.Join(db.opts.FallbackDir, res.RunID+"_run.csv"))
}

func TestColumnsFollowStructs(t *testing.T) {
	assert.Len(t, stepColumns, 39)
	assert.Len(t, agentColumns, 12)
	assert.Len(t, runColumns, 11)
	assert.Equal(t, []string{"run_id", "step"}, stepColumns[:2])
	assert.Equal(t, "supplier_communications", stepColumns[len(stepColumns)-1])
	assert.Equal(t, "INSERT INTO t (a, b) VALUES (:a, :b)", insertQuery("t", []string{"a", "b"}))
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	busy := errors.New("database is locked (5) (SQLITE_BUSY)")

	calls := 0
	err := retry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return busy
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return busy
	})
	assert.ErrorIs(t, err, busy)
	assert.Equal(t, 3, calls)

	calls = 0
	other := errors.New("no such table")
	err = retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return other
	})
	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, calls)
}

func TestPathLockIsShared(t *testing.T) {
	dir := t.TempDir()
	a := pathLock(filepath.Join(dir, "x.db"))
	b := pathLock(filepath.Join(dir, ".", "x.db"))
	c := pathLock(filepath.Join(dir, "y.db"))
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
