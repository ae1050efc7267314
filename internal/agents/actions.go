package agents

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/site-awareness/internal/site"
)

// Budget cost per action.
const (
	CostReport     = 1000
	CostAct        = 1000
	CostActHazard  = 10000
	CostEscalate   = 1500
	CostSubstitute = 500
)

// Action-specific SA gain multipliers.
const (
	actGainScale      = 0.7
	escalateGainScale = 0.5
)

// Cost returns the nominal budget cost of an action on an event.
func Cost(ev site.Event, action site.ActionKind) float64 {
	switch action {
	case site.ActionReport:
		return CostReport
	case site.ActionAct:
		if ev.Kind == site.EventHazard {
			return CostActHazard
		}
		return CostAct
	case site.ActionEscalate:
		return CostEscalate
	default:
		return CostSubstitute
	}
}

// Execute carries out an action. Overridden events (high-severity hazards
// and critical events) skip the budget gate and are never debited; any
// shortfall against the remaining budget is booked as a cost overrun.
// Other actions reserve their cost first and fail without side effects
// when the budget cannot cover it.
func (a *Agent) Execute(ev site.Event, action site.ActionKind, hops int) bool {
	cost := Cost(ev, action)
	override := ev.Overrides()

	if override {
		if b := a.org.Budget(); cost > b {
			a.org.RecordCostOverrun(cost - b)
		}
	} else if !a.org.RequestBudget(cost) {
		slog.Warn("insufficient budget",
			"agent", a.ID,
			"role", a.Role.String(),
			"action", action.String(),
			"event", ev.Kind.String(),
			"cost", humanize.Commaf(cost),
			"budget", humanize.Commaf(a.org.Budget()),
			"step", a.org.Step(),
		)
		return false
	}

	switch action {
	case site.ActionAct:
		a.act(ev, override)
		return true

	case site.ActionEscalate:
		a.Awareness.Add(a.Gain(ev.Severity, a.noise(), a.env()).Scale(escalateGainScale))
		if !a.send(ev, hops) {
			if !override {
				a.org.RefundBudget(cost)
			}
			return false
		}
		a.ReportsSent++
		a.Actions[site.ActionEscalate]++
		return true

	case site.ActionReport:
		if !a.send(ev, hops) {
			if !override {
				a.org.RefundBudget(cost)
			}
			return false
		}
		a.ReportsSent++
		a.Actions[site.ActionReport]++
		return true

	default:
		a.Actions[site.ActionSubstitute]++
		return true
	}
}

func (a *Agent) act(ev site.Event, override bool) {
	a.Awareness.Add(a.Gain(ev.Severity, a.noise(), a.env()).Scale(actGainScale))

	switch ev.Kind {
	case site.EventHazard:
		a.org.RecordIncident(ev.Severity)
		a.org.ConsumeEquipment()
		slog.Info("safety incident",
			"agent", a.ID,
			"role", a.Role.String(),
			"severity", fmt.Sprintf("%.3f", ev.Severity),
			"step", a.org.Step(),
		)
	case site.EventDelay:
		a.org.CompleteTasks(1)
		if a.Role == site.RoleManager && a.Experience > 0.7 && a.org.Rand().Float64() < 0.8 {
			if override || a.org.RequestBudget(CostAct) {
				a.org.CompleteTasks(2)
				slog.Debug("extra tasks completed", "agent", a.ID, "step", a.org.Step())
			}
		}
	case site.EventResourceShortage:
		a.org.ConsumeEquipment()
	}

	a.Actions[site.ActionAct]++
}

func (a *Agent) send(ev site.Event, hops int) bool {
	r := &site.Report{
		Event:      ev,
		SenderID:   a.ID,
		SenderRole: a.Role,
		Step:       a.org.Step(),
		Hops:       hops,
	}
	return a.org.SendReport(a, r)
}
