package agents

import (
	"fmt"
	"log/slog"

	"github.com/talgya/site-awareness/internal/decision"
	"github.com/talgya/site-awareness/internal/site"
)

// Env is the organizational context that modulates SA gains.
type Env struct {
	Structure       site.OrgStructure
	SafetyIncidents int
	Phase           site.Phase
}

// Modifier is the product of the org, safety-feedback and phase modifiers.
func (e Env) Modifier() float64 {
	m := e.Structure.SAModifier()
	if e.SafetyIncidents > 5 {
		m *= 0.7
	}
	if e.Phase == site.PhaseFoundation {
		m *= 1.5
	}
	return m
}

// Gain returns the SA gain from perceiving an event of the given severity.
// Reporters weight perception; others weight comprehension and experience.
func (a *Agent) Gain(severity, noise float64, env Env) site.Awareness {
	base := a.DetectionAccuracy * (1 + noise) * severity * env.Modifier()
	if a.Role == site.RoleReporter {
		return site.Awareness{
			Perception:    base * 50 * (1 - a.Fatigue),
			Comprehension: base * 30 * (1 - a.Workload/5),
			Projection:    base * 20 * a.Experience,
		}
	}
	return site.Awareness{
		Perception:    base * 40 * (1 + a.Experience),
		Comprehension: base * 20 * (1 - a.Workload/5),
		Projection:    base * 15 * a.Experience,
	}
}

func (a *Agent) env() Env {
	return Env{
		Structure:       a.org.Structure(),
		SafetyIncidents: a.org.SafetyIncidents(),
		Phase:           a.org.Phase(),
	}
}

func (a *Agent) noise() float64 {
	return a.org.Rand().NormFloat64() * (0.2 + 0.3*a.Fatigue)
}

// Step activates the agent once: it observes every event of the step, then
// follows up on queued reports nobody has acted on yet.
func (a *Agent) Step(events []*site.Event) {
	for _, ev := range events {
		if ev != nil {
			a.Observe(*ev)
		}
	}

	queued := a.Pending
	a.Pending = nil
	for _, r := range queued {
		if r.ActedOn {
			continue
		}
		r.ActedOn = true
		a.FollowUp(r)
	}
}

// Observe handles one event. It returns false if the agent missed it.
func (a *Agent) Observe(ev site.Event) bool {
	rng := a.org.Rand()
	if rng.Float64() >= a.DetectionAccuracy*a.DetectionModifier() {
		return false
	}

	n := a.noise()
	a.Awareness.Add(a.Gain(ev.Severity, n, a.env()))
	slog.Debug("event observed",
		"agent", a.ID,
		"role", a.Role.String(),
		"event", ev.Kind.String(),
		"sa", fmt.Sprintf("%.3f", a.Awareness.Score()),
		"noise", fmt.Sprintf("%.3f", n),
	)

	action := a.Decide(ev)
	if action == site.ActionAct && (ev.Kind != site.EventHazard || (a.Role == site.RoleWorker && !a.org.HazardActed())) {
		if a.Execute(ev, action, 0) && ev.Kind == site.EventHazard {
			a.org.MarkHazardActed()
		}
		return true
	}

	if ev.IsRegulatory() || rng.Float64() < a.ReportingProb || ev.Criticality == site.Critical {
		if a.send(ev, 0) {
			a.ReportsSent++
		}
	}
	return true
}

// FollowUp decides and acts on every event a received report carries.
func (a *Agent) FollowUp(r *site.Report) {
	for _, ev := range r.Events() {
		a.Respond(ev, r.Hops+1)
	}
}

// Respond decides on an event and executes the decision. Reports it sends
// carry the given hop count.
func (a *Agent) Respond(ev site.Event, hops int) site.ActionKind {
	action := a.Decide(ev)
	a.Execute(ev, action, hops)
	return action
}

// Decide picks an action. Fixed rules cover hazards, critical delays and
// shortages; everything else is sampled from the classifier.
func (a *Agent) Decide(ev site.Event) site.ActionKind {
	switch ev.Kind {
	case site.EventHazard:
		switch {
		case ev.Severity > 0.8:
			return site.ActionEscalate
		case ev.Severity >= 0.5:
			if a.org.Budget() >= 1000 {
				return site.ActionAct
			}
			return site.ActionEscalate
		default:
			return site.ActionReport
		}
	case site.EventDelay:
		if ev.Criticality == site.Critical {
			return site.ActionAct
		}
	case site.EventResourceShortage:
		if ev.Severity < 0.4 && a.org.EquipmentRatio() > 0.5 {
			return site.ActionSubstitute
		}
		a.org.RecordSupplierCommunication(ev)
		return site.ActionEscalate
	}

	action, probs := a.org.Classifier().Choose(a.Features(ev), a.org.Rand())
	slog.Debug("classifier decision",
		"agent", a.ID,
		"event", ev.Kind.String(),
		"action", action.String(),
		"p_report", fmt.Sprintf("%.3f", probs[site.ActionReport]),
		"p_act", fmt.Sprintf("%.3f", probs[site.ActionAct]),
		"p_escalate", fmt.Sprintf("%.3f", probs[site.ActionEscalate]),
		"p_substitute", fmt.Sprintf("%.3f", probs[site.ActionSubstitute]),
	)
	return action
}

// Features builds the classifier input for an event.
func (a *Agent) Features(ev site.Event) decision.Features {
	recent := 0.0
	if a.org.RecentHazard() {
		recent = 1
	}
	critical := 0.0
	if ev.Criticality == site.Critical {
		critical = 1
	}
	return decision.Features{
		a.Workload,
		a.Fatigue,
		ev.Severity,
		a.Experience,
		a.org.TimePressure(),
		a.org.EquipmentRatio(),
		a.RiskTolerance,
		min(a.Workload/5+a.Fatigue, 1),
		recent,
		a.org.Phase().Encoding(),
		critical,
	}
}
