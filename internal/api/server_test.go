package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/site-awareness/internal/batch"
	"github.com/talgya/site-awareness/internal/config"
	"github.com/talgya/site-awareness/internal/engine"
	"github.com/talgya/site-awareness/internal/persistence"
)

type fakeStore struct {
	runs   []persistence.RunRecord
	steps  map[string][]engine.StepMetrics
	agents map[string][]engine.AgentMetrics
}

func (f *fakeStore) ListRuns(context.Context) ([]persistence.RunRecord, error) {
	return f.runs, nil
}

func (f *fakeStore) GetRun(_ context.Context, id string) (persistence.RunRecord, error) {
	for _, r := range f.runs {
		if r.RunID == id {
			return r, nil
		}
	}
	return persistence.RunRecord{}, persistence.ErrNotFound
}

func (f *fakeStore) StepMetrics(ctx context.Context, id string) ([]engine.StepMetrics, error) {
	if _, err := f.GetRun(ctx, id); err != nil {
		return nil, err
	}
	return f.steps[id], nil
}

func (f *fakeStore) AgentMetrics(ctx context.Context, id string, step *int) ([]engine.AgentMetrics, error) {
	if _, err := f.GetRun(ctx, id); err != nil {
		return nil, err
	}
	var out []engine.AgentMetrics
	for _, a := range f.agents[id] {
		if step == nil || a.Step == *step {
			out = append(out, a)
		}
	}
	return out, nil
}

func newFakeStore() *fakeStore {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &fakeStore{
		runs: []persistence.RunRecord{
			{RunID: "sim_a_run001", Run: 1, ReportingStructure: "dedicated", OrgStructure: "flat", CompletedSteps: 2, StartedAt: started},
			{RunID: "sim_b_run002", Run: 2, ReportingStructure: "none", OrgStructure: "flat", CompletedSteps: 2, StartedAt: started},
		},
		steps: map[string][]engine.StepMetrics{
			"sim_a_run001": {{RunID: "sim_a_run001", Step: 1}, {RunID: "sim_a_run001", Step: 2, ScheduleAdherence: 80}},
			"sim_b_run002": {{RunID: "sim_b_run002", Step: 1}, {RunID: "sim_b_run002", Step: 2, ScheduleAdherence: 40}},
		},
		agents: map[string][]engine.AgentMetrics{
			"sim_a_run001": {
				{RunID: "sim_a_run001", Step: 0, AgentID: 0},
				{RunID: "sim_a_run001", Step: 0, AgentID: 1},
				{RunID: "sim_a_run001", Step: 2, AgentID: 0},
			},
		},
	}
}

func testConfig() config.APIConfig {
	return config.APIConfig{Addr: ":0"}
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s := NewServer(newFakeStore(), testConfig())
	rec := get(t, s, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 2.0, body["runs"])
}

func TestListRunsFilter(t *testing.T) {
	s := NewServer(newFakeStore(), testConfig())

	rec := get(t, s, "/api/v1/runs?reporting=none")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []persistence.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "sim_b_run002", runs[0].RunID)

	rec = get(t, s, "/api/v1/runs")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestGetRun(t *testing.T) {
	s := NewServer(newFakeStore(), testConfig())

	rec := get(t, s, "/api/v1/runs/sim_a_run001")
	require.Equal(t, http.StatusOK, rec.Code)
	var run persistence.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "dedicated", run.ReportingStructure)

	rec = get(t, s, "/api/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSteps(t *testing.T) {
	s := NewServer(newFakeStore(), testConfig())

	rec := get(t, s, "/api/v1/runs/sim_a_run001/steps")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []engine.StepMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 80.0, rows[1].ScheduleAdherence)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/v1/runs/missing/steps").Code)
}

func TestAgentsStepFilter(t *testing.T) {
	s := NewServer(newFakeStore(), testConfig())

	var rows []engine.AgentMetrics
	rec := get(t, s, "/api/v1/runs/sim_a_run001/agents?step=0")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)

	rec = get(t, s, "/api/v1/runs/sim_a_run001/agents")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 3)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/runs/sim_a_run001/agents?step=x").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/runs/sim_a_run001/agents?step=-1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/v1/runs/missing/agents").Code)
}

func TestSummary(t *testing.T) {
	s := NewServer(newFakeStore(), testConfig())

	rec := get(t, s, "/api/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []batch.Group
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, "dedicated", groups[0].ReportingStructure)
	assert.Equal(t, 80.0, groups[0].ScheduleAdherence.Mean)
	assert.Equal(t, 40.0, groups[1].ScheduleAdherence.Mean)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerMinute = 2
	s := NewServer(newFakeStore(), cfg)

	assert.Equal(t, http.StatusOK, get(t, s, "/api/v1/status").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/v1/status").Code)
	rec := get(t, s, "/api/v1/status")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 60, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))

	now = now.Add(5 * time.Minute)
	rl.Allow("c")
	assert.NotContains(t, rl.buckets, "b")
}

func TestCORSHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = []string{"http://localhost:5173"}
	s := NewServer(newFakeStore(), cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
