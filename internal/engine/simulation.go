package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/site-awareness/internal/agents"
	"github.com/talgya/site-awareness/internal/config"
	"github.com/talgya/site-awareness/internal/decision"
	"github.com/talgya/site-awareness/internal/entropy"
	"github.com/talgya/site-awareness/internal/events"
	"github.com/talgya/site-awareness/internal/routing"
	"github.com/talgya/site-awareness/internal/site"
	"github.com/talgya/site-awareness/internal/world"
)

// Replenishment schedule.
const (
	ReplenishInterval = 5
	BudgetFloor       = 900_000
	BudgetTopUp       = 200_000
	EquipmentFloor    = 400
	EquipmentTopUp    = 100
)

// memoryWindow is how many steps back an event counts as recent.
const memoryWindow = 5

// runNamespace scopes run identifiers.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/talgya/site-awareness/runs"))

// memoryEntry is one event remembered by the organization.
type memoryEntry struct {
	Step int
	Kind site.EventKind
}

// SupplierContact records one communication with a supplier.
type SupplierContact struct {
	Step  int        `json:"step"`
	Event site.Event `json:"event"`
}

// Organization is the construction organization of one run. It owns the
// agent population and every piece of shared state; agents reach it only
// through the agents.Organization interface. Not safe for concurrent use.
type Organization struct {
	cfg       *config.Config
	run       int
	runID     string
	cfgTOML   string
	seed      int64
	reporting site.ReportingStructure
	structure site.OrgStructure

	rng        *rand.Rand
	agents     []*agents.Agent // indexed by ID
	grid       *world.Grid
	router     *routing.Router
	classifier agents.Classifier

	phase            site.Phase
	outcomes         site.Outcomes
	budget           float64
	equipment        int
	initialEquipment int

	memory        []memoryEntry
	eventCounts   [site.NumEventKinds]int
	criticalTasks int
	supplierLog   []SupplierContact
	lastProbs     events.Probabilities

	hazardActed bool
	taskAdded   bool
	steps       int

	startedAt time.Time
	stepRows  []StepMetrics
	agentRows []AgentMetrics
}

// RunName returns the deterministic identifier of a run: a name-based UUID
// over the configuration and seed, formatted sim_<uuid8>_run<NNN>.
func RunName(cfg *config.Config, run int, seed int64) (string, error) {
	enc, err := encodeConfig(cfg)
	if err != nil {
		return "", err
	}
	return runName(enc, run, seed), nil
}

func runName(enc []byte, run int, seed int64) string {
	name := fmt.Appendf(append([]byte(nil), enc...), "\nseed=%d\nrun=%d\n", seed, run)
	id := uuid.NewSHA1(runNamespace, name)
	return fmt.Sprintf("sim_%s_run%03d", id.String()[:8], run)
}

func encodeConfig(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// New builds the organization for one run. The run's reporting policy and
// topology come from cfg.Run; seed drives every random draw.
func New(cfg *config.Config, run int, seed int64) (*Organization, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rep, _ := site.ParseReportingStructure(cfg.Run.ReportingStructure)
	org, _ := site.ParseOrgStructure(cfg.Run.OrgStructure)
	placement, _ := world.ParsePlacement(cfg.Site.Placement)
	enc, err := encodeConfig(cfg)
	if err != nil {
		return nil, err
	}
	runID := runName(enc, run, seed)

	o := &Organization{
		cfg:              cfg,
		run:              run,
		runID:            runID,
		cfgTOML:          string(enc),
		seed:             seed,
		reporting:        rep,
		structure:        org,
		rng:              entropy.New(seed, entropy.StreamSimulation),
		grid:             world.NewGrid(cfg.Site.Width, cfg.Site.Height),
		classifier:       decision.Default(),
		phase:            site.PhaseAt(0),
		budget:           cfg.Site.InitialBudget,
		equipment:        cfg.Site.InitialEquipment,
		initialEquipment: cfg.Site.InitialEquipment,
		startedAt:        time.Now(),
	}

	profiles := [site.NumRoles]agents.Profile{
		site.RoleWorker:   {DetectionAccuracy: cfg.Roles.Worker.Detection, ReportingProb: cfg.Roles.Worker.Reporting},
		site.RoleManager:  {DetectionAccuracy: cfg.Roles.Manager.Detection, ReportingProb: cfg.Roles.Manager.Reporting},
		site.RoleDirector: {DetectionAccuracy: cfg.Roles.Director.Detection, ReportingProb: cfg.Roles.Director.Reporting},
		site.RoleReporter: {DetectionAccuracy: cfg.Roles.Reporter.Detection, ReportingProb: cfg.Roles.Reporter.Reporting},
	}
	spawner := agents.NewSpawner(o.rng, profiles)
	counts := cfg.Counts(rep, org)
	for _, role := range site.Roles {
		o.agents = append(o.agents, spawner.Spawn(role, counts[role])...)
	}

	placer := world.NewPlacer(o.grid, placement, seed+entropy.StreamNoise, entropy.New(seed, entropy.StreamPlacement))
	ids := make([]int, len(o.agents))
	for i, a := range o.agents {
		ids[i] = a.ID
	}
	if err := placer.PlaceAll(ids); err != nil {
		return nil, fmt.Errorf("placing agents: %w", err)
	}
	for _, a := range o.agents {
		a.Position, _ = o.grid.Position(a.ID)
		a.InitialScore = a.Awareness.Score()
		a.Bind(o)
	}

	o.router = routing.NewRouter(routing.Policy{
		Reporting:    rep,
		Structure:    org,
		CommFailure:  [3]float64{cfg.Comm.FailureDedicated, cfg.Comm.FailureSelf, cfg.Comm.FailureNone},
		MaxRelayHops: cfg.Comm.MaxRelayHops,
	}, o.grid, o.agents, o, o.rng)

	o.agentRows = append(o.agentRows, o.agentMetrics()...)

	slog.Info("organization created",
		"run_id", runID,
		"reporting", rep.String(),
		"org", org.String(),
		"workers", counts[site.RoleWorker],
		"managers", counts[site.RoleManager],
		"directors", counts[site.RoleDirector],
		"reporters", counts[site.RoleReporter],
		"seed", seed,
	)
	return o, nil
}

// Advance runs one step and returns its metrics row.
func (o *Organization) Advance() StepMetrics {
	o.phase = site.PhaseAt(o.steps)

	if o.steps%ReplenishInterval == 0 {
		o.replenish()
	}

	o.hazardActed = false
	o.taskAdded = false

	res := events.Generate(o.eventState(), o.rng)
	o.lastProbs = res.Probs
	o.record(res.Present())

	order := make([]int, len(o.agents))
	for i := range order {
		order[i] = i
	}
	o.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for _, i := range order {
		o.agents[i].Step(res.Events)
	}

	o.steps++
	o.trimMemory()

	m := o.stepMetrics()
	o.stepRows = append(o.stepRows, m)
	if o.steps%o.cfg.Run.AgentLogInterval == 0 {
		o.agentRows = append(o.agentRows, o.agentMetrics()...)
	}

	slog.Debug("step complete",
		"run_id", o.runID,
		"step", o.steps,
		"phase", o.phase.String(),
		"adherence", fmt.Sprintf("%.3f", m.ScheduleAdherence),
		"incidents", m.SafetyIncidents,
		"budget", fmt.Sprintf("%.3f", o.budget),
		"equipment", o.equipment,
	)
	return m
}

func (o *Organization) replenish() {
	if o.budget < BudgetFloor {
		o.budget += BudgetTopUp
		slog.Info("budget replenished", "run_id", o.runID, "step", o.steps, "budget", humanize.Commaf(o.budget))
	}
	if o.equipment < EquipmentFloor {
		o.equipment += EquipmentTopUp
		slog.Info("equipment replenished", "run_id", o.runID, "step", o.steps, "equipment", humanize.Comma(int64(o.equipment)))
	}
}

func (o *Organization) eventState() events.State {
	fatigue, workers := 0.0, 0
	for _, a := range o.agents {
		if a.Role == site.RoleWorker {
			fatigue += a.Fatigue
			workers++
		}
	}
	avg := 0.5
	if workers > 0 {
		avg = fatigue / float64(workers)
	}
	return events.State{
		AvgWorkerFatigue:  avg,
		Budget:            o.budget,
		ReferenceBudget:   o.cfg.Site.InitialBudget,
		Structure:         o.structure,
		SafetyIncidents:   o.outcomes.SafetyIncidents,
		Phase:             o.phase,
		BaseHazardProb:    o.cfg.Events.HazardProb,
		BaseDelayProb:     o.cfg.Events.DelayProb,
		BaseResourceProb:  o.cfg.Events.ResourceProb,
		TaskAddedThisStep: o.taskAdded,
	}
}

// record books the generated events into counters and memory.
func (o *Organization) record(evs []*site.Event) {
	for _, e := range evs {
		o.eventCounts[e.Kind]++
		o.memory = append(o.memory, memoryEntry{Step: o.steps, Kind: e.Kind})
		if e.Criticality == site.Critical {
			o.criticalTasks++
		}
		switch e.Kind {
		case site.EventDelay:
			o.outcomes.TotalTasks++
			o.taskAdded = true
		case site.EventResourceShortage:
			o.RecordSupplierCommunication(*e)
		}
		slog.Info("event generated",
			"run_id", o.runID,
			"step", o.steps,
			"kind", e.Kind.String(),
			"severity", fmt.Sprintf("%.3f", e.Severity),
			"criticality", e.Criticality.String(),
		)
	}
}

func (o *Organization) trimMemory() {
	cutoff := o.steps - memoryWindow
	keep := o.memory[:0]
	for _, m := range o.memory {
		if m.Step >= cutoff {
			keep = append(keep, m)
		}
	}
	o.memory = keep
}

// Result returns the rows collected so far.
func (o *Organization) Result() Result {
	return Result{
		RunID:              o.runID,
		Run:                o.run,
		Seed:               o.seed,
		ReportingStructure: o.reporting.String(),
		OrgStructure:       o.structure.String(),
		PlannedSteps:       o.cfg.Run.Steps,
		CompletedSteps:     o.steps,
		StartedAt:          o.startedAt,
		FinishedAt:         time.Now(),
		Config:             o.cfgTOML,
		Steps:              o.stepRows,
		Agents:             o.agentRows,
	}
}

// RunID returns the run identifier.
func (o *Organization) RunID() string { return o.runID }

// Agents returns the population indexed by ID.
func (o *Organization) Agents() []*agents.Agent { return o.agents }

// Outcomes returns the project counters.
func (o *Organization) Outcomes() site.Outcomes { return o.outcomes }

// Probabilities returns the event probabilities of the latest step.
func (o *Organization) Probabilities() events.Probabilities { return o.lastProbs }

// RoutingStats returns cumulative delivery counts.
func (o *Organization) RoutingStats() routing.Stats { return o.router.Stats() }

// SupplierLog returns every supplier communication so far.
func (o *Organization) SupplierLog() []SupplierContact { return o.supplierLog }

// Equipment returns the remaining equipment units.
func (o *Organization) Equipment() int { return o.equipment }

// SetClassifier replaces the decision classifier.
func (o *Organization) SetClassifier(c agents.Classifier) { o.classifier = c }
