package engine

import (
	"time"

	"github.com/talgya/site-awareness/internal/agents"
	"github.com/talgya/site-awareness/internal/site"
)

// StepMetrics is the organization-level row recorded after every step.
type StepMetrics struct {
	RunID              string `db:"run_id" json:"run_id"`
	Step               int    `db:"step" json:"step"`
	ReportingStructure string `db:"reporting_structure" json:"reporting_structure"`
	OrgStructure       string `db:"org_structure" json:"org_structure"`

	WorkerSA   float64 `db:"worker_sa" json:"worker_sa"`
	ManagerSA  float64 `db:"manager_sa" json:"manager_sa"`
	DirectorSA float64 `db:"director_sa" json:"director_sa"`
	ReporterSA float64 `db:"reporter_sa" json:"reporter_sa"`

	WorkerReportsSent   int `db:"worker_reports_sent" json:"worker_reports_sent"`
	ManagerReportsSent  int `db:"manager_reports_sent" json:"manager_reports_sent"`
	DirectorReportsSent int `db:"director_reports_sent" json:"director_reports_sent"`
	ReporterReportsSent int `db:"reporter_reports_sent" json:"reporter_reports_sent"`

	WorkerReportsReceived   int `db:"worker_reports_received" json:"worker_reports_received"`
	ManagerReportsReceived  int `db:"manager_reports_received" json:"manager_reports_received"`
	DirectorReportsReceived int `db:"director_reports_received" json:"director_reports_received"`
	ReporterReportsReceived int `db:"reporter_reports_received" json:"reporter_reports_received"`

	SafetyIncidents   int     `db:"safety_incidents" json:"safety_incidents"`
	IncidentPoints    float64 `db:"incident_points" json:"incident_points"`
	ScheduleAdherence float64 `db:"schedule_adherence" json:"schedule_adherence"`
	CostOverruns      float64 `db:"cost_overruns" json:"cost_overruns"`
	CommFailureRate   float64 `db:"comm_failure_rate" json:"comm_failure_rate"`

	HazardEvents           int `db:"hazard_events" json:"hazard_events"`
	DelayEvents            int `db:"delay_events" json:"delay_events"`
	ResourceShortageEvents int `db:"resource_shortage_events" json:"resource_shortage_events"`

	TotalTasks           int `db:"total_tasks" json:"total_tasks"`
	TasksCompletedOnTime int `db:"tasks_completed_on_time" json:"tasks_completed_on_time"`

	BudgetRemaining    float64 `db:"budget_remaining" json:"budget_remaining"`
	EquipmentAvailable int     `db:"equipment_available" json:"equipment_available"`

	ReportActions     int `db:"report_actions" json:"report_actions"`
	ActActions        int `db:"act_actions" json:"act_actions"`
	EscalateActions   int `db:"escalate_actions" json:"escalate_actions"`
	SubstituteActions int `db:"substitute_actions" json:"substitute_actions"`

	WorkerActCount   int `db:"worker_act_count" json:"worker_act_count"`
	ManagerActCount  int `db:"manager_act_count" json:"manager_act_count"`
	DirectorActCount int `db:"director_act_count" json:"director_act_count"`
	ReporterActCount int `db:"reporter_act_count" json:"reporter_act_count"`

	ProjectPhase           string `db:"project_phase" json:"project_phase"`
	CriticalTasks          int    `db:"critical_tasks" json:"critical_tasks"`
	SupplierCommunications int    `db:"supplier_communications" json:"supplier_communications"`
}

// AgentMetrics is one agent's row for a logged step.
type AgentMetrics struct {
	RunID           string  `db:"run_id" json:"run_id"`
	Step            int     `db:"step" json:"step"`
	AgentID         int     `db:"agent_id" json:"agent_id"`
	Role            string  `db:"role" json:"role"`
	SAScore         float64 `db:"sa_score" json:"sa_score"`
	SADelta         float64 `db:"sa_delta" json:"sa_delta"`
	ReportsSent     int     `db:"reports_sent" json:"reports_sent"`
	ReportsReceived int     `db:"reports_received" json:"reports_received"`
	Workload        float64 `db:"workload" json:"workload"`
	Fatigue         float64 `db:"fatigue" json:"fatigue"`
	Experience      float64 `db:"experience" json:"experience"`
	RiskTolerance   float64 `db:"risk_tolerance" json:"risk_tolerance"`
}

// Result is everything one run produced. A cancelled run carries the rows
// collected up to the last completed step.
type Result struct {
	RunID              string    `json:"run_id"`
	Run                int       `json:"run"`
	Seed               int64     `json:"seed"`
	ReportingStructure string    `json:"reporting_structure"`
	OrgStructure       string    `json:"org_structure"`
	PlannedSteps       int       `json:"planned_steps"`
	CompletedSteps     int       `json:"completed_steps"`
	Cancelled          bool      `json:"cancelled"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	Config             string    `json:"config"` // TOML

	Steps  []StepMetrics  `json:"steps"`
	Agents []AgentMetrics `json:"agents"`
}

// Final returns the last step row, or false if no step completed.
func (r *Result) Final() (StepMetrics, bool) {
	if len(r.Steps) == 0 {
		return StepMetrics{}, false
	}
	return r.Steps[len(r.Steps)-1], true
}

// roleTotals accumulates per-role aggregates over the population.
type roleTotals struct {
	count    [site.NumRoles]int
	sa       [site.NumRoles]float64
	sent     [site.NumRoles]int
	received [site.NumRoles]int
	acts     [site.NumRoles]int
	actions  [site.NumActions]int
}

func collectRoles(all []*agents.Agent) roleTotals {
	var t roleTotals
	for _, a := range all {
		r := a.Role
		t.count[r]++
		t.sa[r] += a.Awareness.Score()
		t.sent[r] += a.ReportsSent
		t.received[r] += a.ReportsReceived
		t.acts[r] += a.Actions[site.ActionAct]
		for k, n := range a.Actions {
			t.actions[k] += n
		}
	}
	return t
}

// meanSA is the average SA score of a role, 0 for an absent role.
func (t roleTotals) meanSA(r site.Role) float64 {
	if t.count[r] == 0 {
		return 0
	}
	return t.sa[r] / float64(t.count[r])
}

func (o *Organization) stepMetrics() StepMetrics {
	t := collectRoles(o.agents)
	return StepMetrics{
		RunID:              o.runID,
		Step:               o.steps,
		ReportingStructure: o.reporting.String(),
		OrgStructure:       o.structure.String(),

		WorkerSA:   t.meanSA(site.RoleWorker),
		ManagerSA:  t.meanSA(site.RoleManager),
		DirectorSA: t.meanSA(site.RoleDirector),
		ReporterSA: t.meanSA(site.RoleReporter),

		WorkerReportsSent:   t.sent[site.RoleWorker],
		ManagerReportsSent:  t.sent[site.RoleManager],
		DirectorReportsSent: t.sent[site.RoleDirector],
		ReporterReportsSent: t.sent[site.RoleReporter],

		WorkerReportsReceived:   t.received[site.RoleWorker],
		ManagerReportsReceived:  t.received[site.RoleManager],
		DirectorReportsReceived: t.received[site.RoleDirector],
		ReporterReportsReceived: t.received[site.RoleReporter],

		SafetyIncidents:   o.outcomes.SafetyIncidents,
		IncidentPoints:    o.outcomes.IncidentPoints,
		ScheduleAdherence: o.outcomes.ScheduleAdherence(),
		CostOverruns:      o.outcomes.CostOverruns,
		CommFailureRate:   o.router.CommFailure(),

		HazardEvents:           o.eventCounts[site.EventHazard],
		DelayEvents:            o.eventCounts[site.EventDelay],
		ResourceShortageEvents: o.eventCounts[site.EventResourceShortage],

		TotalTasks:           o.outcomes.TotalTasks,
		TasksCompletedOnTime: o.outcomes.TasksCompletedOnTime,

		BudgetRemaining:    o.budget,
		EquipmentAvailable: o.equipment,

		ReportActions:     t.actions[site.ActionReport],
		ActActions:        t.actions[site.ActionAct],
		EscalateActions:   t.actions[site.ActionEscalate],
		SubstituteActions: t.actions[site.ActionSubstitute],

		WorkerActCount:   t.acts[site.RoleWorker],
		ManagerActCount:  t.acts[site.RoleManager],
		DirectorActCount: t.acts[site.RoleDirector],
		ReporterActCount: t.acts[site.RoleReporter],

		ProjectPhase:           o.phase.String(),
		CriticalTasks:          o.criticalTasks,
		SupplierCommunications: len(o.supplierLog),
	}
}

func (o *Organization) agentMetrics() []AgentMetrics {
	out := make([]AgentMetrics, 0, len(o.agents))
	for _, a := range o.agents {
		out = append(out, AgentMetrics{
			RunID:           o.runID,
			Step:            o.steps,
			AgentID:         a.ID,
			Role:            a.Role.String(),
			SAScore:         a.Awareness.Score(),
			SADelta:         a.SADelta(),
			ReportsSent:     a.ReportsSent,
			ReportsReceived: a.ReportsReceived,
			Workload:        a.Workload,
			Fatigue:         a.Fatigue,
			Experience:      a.Experience,
			RiskTolerance:   a.RiskTolerance,
		})
	}
	return out
}
