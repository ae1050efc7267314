package engine

import (
	"math/rand"

	"github.com/talgya/site-awareness/internal/agents"
	"github.com/talgya/site-awareness/internal/routing"
	"github.com/talgya/site-awareness/internal/site"
)

// Organization implements agents.Organization and routing.Site.
var (
	_ agents.Organization = (*Organization)(nil)
	_ routing.Site        = (*Organization)(nil)
)

// Step returns the index of the step being executed.
func (o *Organization) Step() int { return o.steps }

func (o *Organization) Phase() site.Phase             { return o.phase }
func (o *Organization) Structure() site.OrgStructure  { return o.structure }
func (o *Organization) SafetyIncidents() int          { return o.outcomes.SafetyIncidents }
func (o *Organization) Budget() float64               { return o.budget }
func (o *Organization) Rand() *rand.Rand              { return o.rng }
func (o *Organization) Classifier() agents.Classifier { return o.classifier }
func (o *Organization) HazardActed() bool             { return o.hazardActed }
func (o *Organization) MarkHazardActed()              { o.hazardActed = true }

// RequestBudget debits amount if the budget covers it.
func (o *Organization) RequestBudget(amount float64) bool {
	if amount > o.budget {
		return false
	}
	o.budget -= amount
	return true
}

func (o *Organization) RefundBudget(amount float64) {
	o.budget += amount
}

func (o *Organization) ConsumeEquipment() bool {
	if o.equipment <= 0 {
		return false
	}
	o.equipment--
	return true
}

func (o *Organization) EquipmentRatio() float64 {
	if o.initialEquipment <= 0 {
		return 0
	}
	return float64(o.equipment) / float64(o.initialEquipment)
}

// RecentHazard reports whether a hazard occurred within the memory window.
func (o *Organization) RecentHazard() bool {
	for _, m := range o.memory {
		if m.Kind == site.EventHazard && m.Step >= o.steps-memoryWindow {
			return true
		}
	}
	return false
}

// TimePressure is 1.0 in the last fifth of the run, else 0.5.
func (o *Organization) TimePressure() float64 {
	if float64(o.steps) > 0.8*float64(o.cfg.Run.Steps) {
		return 1.0
	}
	return 0.5
}

// RecordIncident books a safety incident worth severity×100 points.
func (o *Organization) RecordIncident(severity float64) {
	o.outcomes.SafetyIncidents++
	o.outcomes.IncidentPoints += severity * 100
}

func (o *Organization) CompleteTasks(n int) {
	o.outcomes.TasksCompletedOnTime += n
}

func (o *Organization) RecordSupplierCommunication(ev site.Event) {
	o.supplierLog = append(o.supplierLog, SupplierContact{Step: o.steps, Event: ev})
}

func (o *Organization) RecordCostOverrun(amount float64) {
	o.outcomes.CostOverruns += amount
}

// SendReport routes a report through the organization's router.
func (o *Organization) SendReport(sender *agents.Agent, r *site.Report) bool {
	return o.router.Send(sender, r)
}
