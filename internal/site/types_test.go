package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseAtIsMonotonic(t *testing.T) {
	assert.Equal(t, PhaseFoundation, PhaseAt(0))
	assert.Equal(t, PhaseFoundation, PhaseAt(32))
	assert.Equal(t, PhaseFraming, PhaseAt(33))
	assert.Equal(t, PhaseFraming, PhaseAt(65))
	assert.Equal(t, PhaseInterior, PhaseAt(66))
	assert.Equal(t, PhaseInterior, PhaseAt(1000))

	prev := PhaseAt(0)
	for step := 1; step < 200; step++ {
		p := PhaseAt(step)
		assert.GreaterOrEqual(t, p, prev, "phase regressed at step %d", step)
		prev = p
	}
}

func TestParseStructures(t *testing.T) {
	r, err := ParseReportingStructure("Dedicated")
	require.NoError(t, err)
	assert.Equal(t, ReportingDedicated, r)

	o, err := ParseOrgStructure(" hierarchical ")
	require.NoError(t, err)
	assert.Equal(t, OrgHierarchical, o)

	_, err = ParseReportingStructure("matrix")
	assert.ErrorIs(t, err, ErrInvalidReporting)

	_, err = ParseOrgStructure("")
	assert.ErrorIs(t, err, ErrInvalidOrg)
}

func TestAwarenessClamps(t *testing.T) {
	var a Awareness
	a.Add(Awareness{Perception: 150, Comprehension: -20, Projection: 30})
	assert.Equal(t, 100.0, a.Perception)
	assert.Equal(t, 0.0, a.Comprehension)
	assert.Equal(t, 30.0, a.Projection)
	assert.InDelta(t, 130.0/3, a.Score(), 1e-9)
}

func TestAggregatedReportKeepsMaxPerKind(t *testing.T) {
	var agg AggregatedReport
	agg.Merge(Event{Kind: EventHazard, Severity: 0.6})
	agg.Merge(Event{Kind: EventDelay, Severity: 0.4})
	agg.Merge(Event{Kind: EventHazard, Severity: 0.9})
	agg.Merge(Event{Kind: EventHazard, Severity: 0.7})

	require.Len(t, agg.Events, 2)
	assert.Equal(t, EventHazard, agg.Events[0].Kind)
	assert.Equal(t, 0.9, agg.Events[0].Severity)
	assert.Equal(t, 0.4, agg.Events[1].Severity)
}

func TestReportAmplifyCaps(t *testing.T) {
	r := &Report{Event: Event{Kind: EventHazard, Severity: 0.95}}
	r.Amplify(1.1)
	assert.Equal(t, 1.0, r.Event.Severity)

	r = &Report{Event: Event{Kind: EventDelay, Severity: 0.5}}
	r.Amplify(1.1)
	assert.InDelta(t, 0.55, r.Event.Severity, 1e-12)
}

func TestEventOverrides(t *testing.T) {
	assert.True(t, Event{Kind: EventHazard, Severity: 0.85}.Overrides())
	assert.True(t, Event{Kind: EventDelay, Severity: 0.3, Criticality: Critical}.Overrides())
	assert.False(t, Event{Kind: EventHazard, Severity: 0.8}.Overrides())
	assert.True(t, Event{Kind: EventHazard, Severity: 0.5}.IsRegulatory())
}
