package site

import "math"

// Event is a transient occurrence generated for one step.
type Event struct {
	Kind        EventKind   `json:"kind"`
	Severity    float64     `json:"severity"` // 0.0–1.0
	Criticality Criticality `json:"criticality"`
	Description string      `json:"description"`
}

// IsRegulatory reports whether the event must be reported by regulation.
func (e Event) IsRegulatory() bool {
	return e.Kind == EventHazard && e.Severity >= 0.5
}

// IsHighSeverityHazard reports whether the event is a hazard above 0.8 severity.
func (e Event) IsHighSeverityHazard() bool {
	return e.Kind == EventHazard && e.Severity > 0.8
}

// Overrides reports whether actions on the event bypass the budget gate.
func (e Event) Overrides() bool {
	return e.IsHighSeverityHazard() || e.Criticality == Critical
}

// Report carries an event from a sender to its receivers. A report is shared
// by every receiver of one send; ActedOn is set by the first one to follow up.
type Report struct {
	Event      Event `json:"event"`
	SenderID   int   `json:"sender_id"`
	SenderRole Role  `json:"sender_role"`
	Step       int   `json:"step"`
	Hops       int   `json:"hops"`
	ActedOn    bool  `json:"acted_on"`

	// Aggregate is set on reports rebroadcast by a dedicated reporter.
	Aggregate *AggregatedReport `json:"aggregate,omitempty"`
}

// Events returns the events a receiver should follow up on.
func (r *Report) Events() []Event {
	if r.Aggregate != nil {
		return r.Aggregate.Events
	}
	return []Event{r.Event}
}

// Amplify raises the carried severity for a retransmission, capped at 1.0.
func (r *Report) Amplify(factor float64) {
	r.Event.Severity = math.Min(r.Event.Severity*factor, 1.0)
}

// AggregatedReport holds at most one event per kind, keeping the highest severity.
type AggregatedReport struct {
	Events []Event `json:"events"`
}

// Merge folds an event into the aggregate.
func (a *AggregatedReport) Merge(e Event) {
	for i := range a.Events {
		if a.Events[i].Kind == e.Kind {
			if e.Severity > a.Events[i].Severity {
				a.Events[i].Severity = e.Severity
			}
			return
		}
	}
	a.Events = append(a.Events, e)
}

// Outcomes are the organization's monotonic project counters.
type Outcomes struct {
	SafetyIncidents      int     `json:"safety_incidents"`
	IncidentPoints       float64 `json:"incident_points"`
	TotalTasks           int     `json:"total_tasks"`
	TasksCompletedOnTime int     `json:"tasks_completed_on_time"`
	CostOverruns         float64 `json:"cost_overruns"`
}

// ScheduleAdherence is tasks completed on time as a percentage of all tasks.
func (o Outcomes) ScheduleAdherence() float64 {
	if o.TotalTasks == 0 {
		return 0
	}
	return float64(o.TasksCompletedOnTime) / float64(o.TotalTasks) * 100
}

// Awareness is an agent's situational-awareness triple, each in [0, 100].
type Awareness struct {
	Perception    float64 `json:"perception"`
	Comprehension float64 `json:"comprehension"`
	Projection    float64 `json:"projection"`
}

// Score is the mean of the three components.
func (a Awareness) Score() float64 {
	return (a.Perception + a.Comprehension + a.Projection) / 3
}

// Scale multiplies every component by f.
func (a Awareness) Scale(f float64) Awareness {
	return Awareness{a.Perception * f, a.Comprehension * f, a.Projection * f}
}

// Add applies a gain to every component, clamping to [0, 100].
func (a *Awareness) Add(g Awareness) {
	a.Perception = clampSA(a.Perception + g.Perception)
	a.Comprehension = clampSA(a.Comprehension + g.Comprehension)
	a.Projection = clampSA(a.Projection + g.Projection)
}

func clampSA(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
