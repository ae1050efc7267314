// Package agents provides the site agent: observation, situational-awareness
// updates, decisions and action execution. Agents never touch organization
// state directly; they go through the Organization interface.
package agents

import (
	"math/rand"

	"github.com/talgya/site-awareness/internal/decision"
	"github.com/talgya/site-awareness/internal/site"
	"github.com/talgya/site-awareness/internal/world"
)

// Organization is the agent's non-owning handle on the site organization.
type Organization interface {
	Step() int
	Phase() site.Phase
	Structure() site.OrgStructure
	SafetyIncidents() int

	Budget() float64
	// RequestBudget debits amount only if the budget covers it.
	RequestBudget(amount float64) bool
	RefundBudget(amount float64)
	// ConsumeEquipment takes one unit if any is left.
	ConsumeEquipment() bool
	// EquipmentRatio is remaining equipment over the initial stock.
	EquipmentRatio() float64

	RecentHazard() bool
	TimePressure() float64

	RecordIncident(severity float64)
	CompleteTasks(n int)
	RecordSupplierCommunication(ev site.Event)
	RecordCostOverrun(amount float64)

	HazardActed() bool
	MarkHazardActed()

	// SendReport routes a report and returns true if anyone received it.
	SendReport(sender *Agent, r *site.Report) bool

	Rand() *rand.Rand
	Classifier() Classifier
}

// Classifier picks an action for ambiguous events.
type Classifier interface {
	Choose(x decision.Features, rng *rand.Rand) (site.ActionKind, decision.Probs)
}

// Profile holds the per-role constants supplied by configuration.
type Profile struct {
	DetectionAccuracy float64 `json:"detection_accuracy"`
	ReportingProb     float64 `json:"reporting_prob"`
}

// Agent is one member of the site organization.
type Agent struct {
	ID       int         `json:"id"`
	Role     site.Role   `json:"role"`
	Position world.Coord `json:"position"`

	Awareness    site.Awareness `json:"awareness"`
	InitialScore float64        `json:"initial_score"`

	// Traits, sampled once at construction.
	Workload      float64 `json:"workload"` // 0–5
	Fatigue       float64 `json:"fatigue"`
	Experience    float64 `json:"experience"`
	RiskTolerance float64 `json:"risk_tolerance"`

	DetectionAccuracy float64 `json:"detection_accuracy"`
	ReportingProb     float64 `json:"reporting_prob"`

	ReportsSent     int                  `json:"reports_sent"`
	ReportsReceived int                  `json:"reports_received"`
	Actions         [site.NumActions]int `json:"actions"`

	// Pending holds delivered reports awaiting a follow-up on the next activation.
	Pending []*site.Report `json:"-"`

	// inbox holds reports delivered during inboxStep, for aggregation.
	inbox     []*site.Report
	inboxStep int

	org Organization
}

// Bind attaches the agent to its organization.
func (a *Agent) Bind(org Organization) {
	a.org = org
}

// DetectionModifier is the role multiplier on detection probability.
func (a *Agent) DetectionModifier() float64 {
	if a.Role == site.RoleReporter {
		return 1.5
	}
	return 1.0
}

// Deliver hands a routed report to the agent.
func (a *Agent) Deliver(r *site.Report, step int) {
	a.ReportsReceived++
	a.Pending = append(a.Pending, r)
	if a.inboxStep != step {
		a.inbox = a.inbox[:0]
		a.inboxStep = step
	}
	a.inbox = append(a.inbox, r)
}

// ReceivedThisStep returns reports delivered during step.
func (a *Agent) ReceivedThisStep(step int) []*site.Report {
	if a.inboxStep != step {
		return nil
	}
	return a.inbox
}

// SADelta is the change in SA score since construction.
func (a *Agent) SADelta() float64 {
	return a.Awareness.Score() - a.InitialScore
}
