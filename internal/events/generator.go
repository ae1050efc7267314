// Package events generates the typed site events for each simulation step.
// Probabilities depend on organizational state, closing feedback loops
// between incidents, budget pressure and new hazards.
package events

import (
	"math"
	"math/rand"

	"github.com/talgya/site-awareness/internal/site"
)

// MaxHazardProb caps the hazard probability regardless of state.
const MaxHazardProb = 0.4

// Severity ranges per event kind.
const (
	hazardSeverityMin   = 0.5
	hazardSeverityMax   = 1.0
	delaySeverityMin    = 0.3
	delaySeverityMax    = 0.7
	resourceSeverityMin = 0.2
	resourceSeverityMax = 0.5

	incidentFactorCap = 2.0
)

// State is the organizational snapshot the generator draws against.
type State struct {
	AvgWorkerFatigue float64 // 0.5 when there are no workers
	Budget           float64
	ReferenceBudget  float64 // budget at which pressure bottoms out
	Structure        site.OrgStructure
	SafetyIncidents  int
	Phase            site.Phase

	BaseHazardProb   float64
	BaseDelayProb    float64
	BaseResourceProb float64

	// TaskAddedThisStep suppresses a second delay-driven task in one step.
	TaskAddedThisStep bool
}

// Probabilities records the values each event was drawn against.
type Probabilities struct {
	Hazard   float64 `json:"hazard"`
	Delay    float64 `json:"delay"`
	Resource float64 `json:"resource"`
}

// Result is the output of one generation pass.
type Result struct {
	// Events holds Hazard, Delay, ResourceShortage in that order when present.
	// A step without events holds a single nil marker.
	Events []*site.Event
	Probs  Probabilities
}

// Empty reports whether the step produced no events.
func (r Result) Empty() bool {
	return len(r.Events) == 1 && r.Events[0] == nil
}

// Present returns the non-nil events.
func (r Result) Present() []*site.Event {
	out := make([]*site.Event, 0, len(r.Events))
	for _, e := range r.Events {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// BudgetFactor is the budget-pressure term, never below 0.1.
func BudgetFactor(budget, reference float64) float64 {
	if reference <= 0 {
		return 0.1
	}
	return math.Max(0.1, 1-budget/reference)
}

// HazardProb computes the clamped hazard probability for a state.
func HazardProb(s State) float64 {
	orgFactor := 1.0
	if s.Structure == site.OrgFlat {
		orgFactor = 0.8
	}
	incidentFactor := math.Min(incidentFactorCap, 1+0.05*float64(s.SafetyIncidents))
	p := s.BaseHazardProb *
		(1 + 0.3*s.AvgWorkerFatigue) *
		(1 + 0.5*BudgetFactor(s.Budget, s.ReferenceBudget)) *
		orgFactor * incidentFactor * phaseFactor(s.Phase)
	return math.Min(p, MaxHazardProb)
}

func phaseFactor(p site.Phase) float64 {
	if p == site.PhaseFoundation {
		return 1.5
	}
	return 1.0
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Generate draws this step's events. Each kind is an independent Bernoulli
// trial; a hazard raises the delay and shortage probabilities for the same step.
func Generate(s State, rng *rand.Rand) Result {
	probs := Probabilities{
		Hazard:   HazardProb(s),
		Delay:    s.BaseDelayProb * (1 + 0.01*BudgetFactor(s.Budget, s.ReferenceBudget)) * phaseFactor(s.Phase),
		Resource: s.BaseResourceProb,
	}
	var out []*site.Event

	if rng.Float64() < probs.Hazard {
		sev := uniform(rng, hazardSeverityMin, hazardSeverityMax)
		crit := site.NonCritical
		if sev > 0.8 && s.Phase == site.PhaseFoundation {
			crit = site.Critical
		}
		out = append(out, &site.Event{
			Kind:        site.EventHazard,
			Severity:    sev,
			Criticality: crit,
			Description: "Loose scaffold",
		})
		probs.Delay += 0.05 * sev
		probs.Resource += 0.03 * sev
	}

	if rng.Float64() < probs.Delay && !s.TaskAddedThisStep {
		sev := uniform(rng, delaySeverityMin, delaySeverityMax)
		crit := site.NonCritical
		if s.Phase == site.PhaseFoundation {
			crit = site.Critical
		}
		out = append(out, &site.Event{
			Kind:        site.EventDelay,
			Severity:    sev,
			Criticality: crit,
			Description: "Supply chain delay",
		})
		probs.Resource += 0.02 * sev
	}

	if rng.Float64() < probs.Resource {
		out = append(out, &site.Event{
			Kind:        site.EventResourceShortage,
			Severity:    uniform(rng, resourceSeverityMin, resourceSeverityMax),
			Criticality: site.NonCritical,
			Description: "Material unavailability",
		})
	}

	if len(out) == 0 {
		out = []*site.Event{nil}
	}
	return Result{Events: out, Probs: probs}
}
