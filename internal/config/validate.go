package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/talgya/site-awareness/internal/site"
	"github.com/talgya/site-awareness/internal/world"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the configuration, failing on the first problem.
func (c *Config) Validate() error {
	if _, err := site.ParseReportingStructure(c.Run.ReportingStructure); err != nil {
		return fmt.Errorf("%w: run.reporting_structure: %w", ErrInvalid, err)
	}
	if _, err := site.ParseOrgStructure(c.Run.OrgStructure); err != nil {
		return fmt.Errorf("%w: run.org_structure: %w", ErrInvalid, err)
	}
	if _, err := world.ParsePlacement(c.Site.Placement); err != nil {
		return fmt.Errorf("%w: site.placement: %w", ErrInvalid, err)
	}

	checks := []struct {
		ok   bool
		what string
	}{
		{c.Run.Steps > 0, "run.steps must be positive"},
		{c.Run.AgentLogInterval > 0, "run.agent_log_interval must be positive"},
		{c.Site.Width > 0 && c.Site.Height > 0, "site dimensions must be positive"},
		{c.Site.InitialBudget >= 0, "site.initial_budget must not be negative"},
		{c.Site.InitialEquipment > 0, "site.initial_equipment must be positive"},
		{c.Comm.MaxRelayHops >= 0, "communication.max_relay_hops must not be negative"},
		{c.Storage.Attempts > 0, "storage.attempts must be positive"},
		{c.Batch.Runs > 0, "batch.runs must be positive"},
		{c.Batch.Workers > 0, "batch.workers must be positive"},
		{c.API.RequestsPerMinute >= 0, "api.requests_per_minute must not be negative"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, ch.what)
		}
	}

	probs := map[string]float64{
		"events.hazard_prob":              c.Events.HazardProb,
		"events.delay_prob":               c.Events.DelayProb,
		"events.resource_prob":            c.Events.ResourceProb,
		"communication.failure_dedicated": c.Comm.FailureDedicated,
		"communication.failure_self":      c.Comm.FailureSelf,
		"communication.failure_none":      c.Comm.FailureNone,
		"roles.worker.detection":          c.Roles.Worker.Detection,
		"roles.worker.reporting":          c.Roles.Worker.Reporting,
		"roles.manager.detection":         c.Roles.Manager.Detection,
		"roles.manager.reporting":         c.Roles.Manager.Reporting,
		"roles.director.detection":        c.Roles.Director.Detection,
		"roles.director.reporting":        c.Roles.Director.Reporting,
		"roles.reporter.detection":        c.Roles.Reporter.Detection,
		"roles.reporter.reporting":        c.Roles.Reporter.Reporting,
	}
	for _, key := range slices.Sorted(maps.Keys(probs)) {
		if v := probs[key]; v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %g", ErrInvalid, key, v)
		}
	}

	for _, p := range []*int{c.Population.Workers, c.Population.Managers, c.Population.Directors, c.Population.Reporters} {
		if p != nil && *p < 0 {
			return fmt.Errorf("%w: population counts must not be negative", ErrInvalid)
		}
	}

	for _, d := range []struct{ key, val string }{
		{"storage.backoff", c.Storage.Backoff},
		{"storage.lock_timeout", c.Storage.LockTimeout},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, d.key, err)
		}
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalid, err)
	}

	for _, pair := range c.Batch.Configurations {
		if _, _, err := ParsePair(pair); err != nil {
			return fmt.Errorf("%w: batch.configurations: %w", ErrInvalid, err)
		}
	}
	return nil
}

// ParsePair parses a "reporting/org" configuration name.
func ParsePair(s string) (site.ReportingStructure, site.OrgStructure, error) {
	rep, org, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("configuration %q: want reporting/org", s)
	}
	r, err := site.ParseReportingStructure(rep)
	if err != nil {
		return 0, 0, err
	}
	o, err := site.ParseOrgStructure(org)
	if err != nil {
		return 0, 0, err
	}
	return r, o, nil
}

// Counts returns the number of agents per role. Unset counts default to
// 50 workers, 10 managers and 3 directors (5 and 1 in a flat organization),
// with 5 reporters only under dedicated reporting.
func (c *Config) Counts(rep site.ReportingStructure, org site.OrgStructure) [site.NumRoles]int {
	var n [site.NumRoles]int
	n[site.RoleWorker] = 50
	n[site.RoleManager] = 10
	n[site.RoleDirector] = 3
	if org == site.OrgFlat {
		n[site.RoleManager] = 5
		n[site.RoleDirector] = 1
	}
	if rep == site.ReportingDedicated {
		n[site.RoleReporter] = 5
	}

	overrides := [site.NumRoles]*int{
		site.RoleWorker:   c.Population.Workers,
		site.RoleManager:  c.Population.Managers,
		site.RoleDirector: c.Population.Directors,
		site.RoleReporter: c.Population.Reporters,
	}
	for role, p := range overrides {
		if p != nil {
			n[role] = *p
		}
	}
	return n
}

// BackoffDuration returns the initial storage retry delay.
func (s StorageConfig) BackoffDuration() time.Duration {
	d, _ := time.ParseDuration(s.Backoff)
	return d
}

// LockTimeoutDuration returns the SQLite busy timeout.
func (s StorageConfig) LockTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.LockTimeout)
	return d
}

// SlogLevel returns the configured level, Info when it does not parse.
func (l LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
