package agents

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/site-awareness/internal/decision"
	"github.com/talgya/site-awareness/internal/site"
)

type fixedClassifier site.ActionKind

func (c fixedClassifier) Choose(decision.Features, *rand.Rand) (site.ActionKind, decision.Probs) {
	var p decision.Probs
	p[c] = 1
	return site.ActionKind(c), p
}

type fakeOrg struct {
	step      int
	phase     site.Phase
	structure site.OrgStructure
	incidents int
	points    float64

	budget        float64
	equipment     int
	initEquipment int
	overruns      float64
	tasks         int
	supplier      int
	recent        bool
	pressure      float64
	hazardActed   bool

	sendOK bool
	sent   []*site.Report

	rng        *rand.Rand
	classifier Classifier
}

func newFakeOrg() *fakeOrg {
	return &fakeOrg{
		phase:         site.PhaseFraming,
		structure:     site.OrgFunctional,
		budget:        1_000_000,
		equipment:     500,
		initEquipment: 500,
		pressure:      0.5,
		sendOK:        true,
		rng:           rand.New(rand.NewSource(1)),
		classifier:    fixedClassifier(site.ActionSubstitute),
	}
}

func (o *fakeOrg) Step() int                    { return o.step }
func (o *fakeOrg) Phase() site.Phase            { return o.phase }
func (o *fakeOrg) Structure() site.OrgStructure { return o.structure }
func (o *fakeOrg) SafetyIncidents() int         { return o.incidents }
func (o *fakeOrg) Budget() float64              { return o.budget }
func (o *fakeOrg) RefundBudget(amount float64)  { o.budget += amount }
func (o *fakeOrg) RecentHazard() bool           { return o.recent }
func (o *fakeOrg) TimePressure() float64        { return o.pressure }
func (o *fakeOrg) CompleteTasks(n int)          { o.tasks += n }
func (o *fakeOrg) RecordCostOverrun(a float64)  { o.overruns += a }
func (o *fakeOrg) HazardActed() bool            { return o.hazardActed }
func (o *fakeOrg) MarkHazardActed()             { o.hazardActed = true }
func (o *fakeOrg) Rand() *rand.Rand             { return o.rng }
func (o *fakeOrg) Classifier() Classifier       { return o.classifier }

func (o *fakeOrg) RequestBudget(amount float64) bool {
	if o.budget < amount {
		return false
	}
	o.budget -= amount
	return true
}

func (o *fakeOrg) ConsumeEquipment() bool {
	if o.equipment <= 0 {
		return false
	}
	o.equipment--
	return true
}

func (o *fakeOrg) EquipmentRatio() float64 {
	return float64(o.equipment) / float64(o.initEquipment)
}

func (o *fakeOrg) RecordIncident(severity float64) {
	o.incidents++
	o.points += severity * 100
}

func (o *fakeOrg) RecordSupplierCommunication(site.Event) { o.supplier++ }

func (o *fakeOrg) SendReport(_ *Agent, r *site.Report) bool {
	o.sent = append(o.sent, r)
	return o.sendOK
}

func newAgent(org *fakeOrg, role site.Role) *Agent {
	a := &Agent{
		Role:              role,
		DetectionAccuracy: 1.0,
		ReportingProb:     0,
		Workload:          1,
		Fatigue:           0.2,
		Experience:        0.5,
		inboxStep:         -1,
	}
	a.Bind(org)
	return a
}

func TestGainScenario(t *testing.T) {
	a := &Agent{Role: site.RoleWorker, DetectionAccuracy: 0.8}
	env := Env{Structure: site.OrgFlat, Phase: site.PhaseFoundation}
	g := a.Gain(1.0, 0, env)
	assert.InDelta(t, 57.6, g.Perception, 1e-9)
	assert.InDelta(t, 0.8*20*1.8, g.Comprehension, 1e-9)
	assert.Zero(t, g.Projection)

	env.SafetyIncidents = 6
	assert.InDelta(t, 57.6*0.7, a.Gain(1.0, 0, env).Perception, 1e-9)
}

func TestReporterGainWeightsPerception(t *testing.T) {
	a := &Agent{Role: site.RoleReporter, DetectionAccuracy: 1, Fatigue: 0.5, Workload: 2.5, Experience: 1}
	g := a.Gain(1.0, 0, Env{Structure: site.OrgFunctional, Phase: site.PhaseInterior})
	assert.InDelta(t, 25, g.Perception, 1e-9)
	assert.InDelta(t, 15, g.Comprehension, 1e-9)
	assert.InDelta(t, 20, g.Projection, 1e-9)
}

func TestActFailsWhenBudgetShort(t *testing.T) {
	org := newFakeOrg()
	org.budget = 500
	a := newAgent(org, site.RoleWorker)

	ev := site.Event{Kind: site.EventDelay, Severity: 0.5, Criticality: site.NonCritical}
	ok := a.Execute(ev, site.ActionAct, 0)

	assert.False(t, ok)
	assert.Equal(t, 500.0, org.budget)
	assert.Zero(t, a.Actions[site.ActionAct])
	assert.Zero(t, org.tasks)
	assert.Equal(t, site.Awareness{}, a.Awareness)
}

func TestOverrideSkipsDebitAndBooksOverrun(t *testing.T) {
	org := newFakeOrg()
	org.budget = 4000
	a := newAgent(org, site.RoleWorker)

	ev := site.Event{Kind: site.EventHazard, Severity: 0.9, Criticality: site.Critical}
	require.True(t, a.Execute(ev, site.ActionAct, 0))

	assert.Equal(t, 4000.0, org.budget)
	assert.InDelta(t, 6000, org.overruns, 1e-9)
	assert.Equal(t, 1, org.incidents)
	assert.InDelta(t, 90, org.points, 1e-9)
	assert.Equal(t, 499, org.equipment)
	assert.Equal(t, 1, a.Actions[site.ActionAct])
}

func TestGatedActionsDebit(t *testing.T) {
	org := newFakeOrg()
	org.budget = 20000
	a := newAgent(org, site.RoleWorker)

	ev := site.Event{Kind: site.EventResourceShortage, Severity: 0.3}
	require.True(t, a.Execute(ev, site.ActionSubstitute, 0))
	require.True(t, a.Execute(ev, site.ActionReport, 0))
	require.True(t, a.Execute(ev, site.ActionEscalate, 0))
	assert.Equal(t, 20000.0-500-1000-1500, org.budget)
	assert.Equal(t, 2, a.ReportsSent)
	assert.Len(t, org.sent, 2)
}

func TestFailedSendRefunds(t *testing.T) {
	org := newFakeOrg()
	org.sendOK = false
	a := newAgent(org, site.RoleManager)

	ev := site.Event{Kind: site.EventDelay, Severity: 0.4}
	assert.False(t, a.Execute(ev, site.ActionReport, 0))
	assert.False(t, a.Execute(ev, site.ActionEscalate, 0))
	assert.Equal(t, 1_000_000.0, org.budget)
	assert.Zero(t, a.ReportsSent)
	assert.Zero(t, a.Actions[site.ActionReport])
	assert.Zero(t, a.Actions[site.ActionEscalate])
}

func TestSentReportsCarryHops(t *testing.T) {
	org := newFakeOrg()
	org.step = 12
	a := newAgent(org, site.RoleDirector)
	a.ID = 7

	require.True(t, a.Execute(site.Event{Kind: site.EventDelay, Severity: 0.4}, site.ActionReport, 3))
	require.Len(t, org.sent, 1)
	r := org.sent[0]
	assert.Equal(t, 3, r.Hops)
	assert.Equal(t, 12, r.Step)
	assert.Equal(t, 7, r.SenderID)
	assert.Equal(t, site.RoleDirector, r.SenderRole)
}

func TestDecideRules(t *testing.T) {
	tests := []struct {
		name     string
		ev       site.Event
		budget   float64
		equip    int
		want     site.ActionKind
		supplier int
	}{
		{"severe hazard", site.Event{Kind: site.EventHazard, Severity: 0.85}, 1e6, 500, site.ActionEscalate, 0},
		{"hazard funded", site.Event{Kind: site.EventHazard, Severity: 0.6}, 1e6, 500, site.ActionAct, 0},
		{"hazard unfunded", site.Event{Kind: site.EventHazard, Severity: 0.8}, 999, 500, site.ActionEscalate, 0},
		{"minor hazard", site.Event{Kind: site.EventHazard, Severity: 0.3}, 1e6, 500, site.ActionReport, 0},
		{"critical delay", site.Event{Kind: site.EventDelay, Severity: 0.4, Criticality: site.Critical}, 0, 500, site.ActionAct, 0},
		{"mild shortage", site.Event{Kind: site.EventResourceShortage, Severity: 0.3}, 1e6, 400, site.ActionSubstitute, 0},
		{"shortage low stock", site.Event{Kind: site.EventResourceShortage, Severity: 0.3}, 1e6, 200, site.ActionEscalate, 1},
		{"severe shortage", site.Event{Kind: site.EventResourceShortage, Severity: 0.45}, 1e6, 500, site.ActionEscalate, 1},
		{"ordinary delay", site.Event{Kind: site.EventDelay, Severity: 0.4}, 1e6, 500, site.ActionSubstitute, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := newFakeOrg()
			org.budget = tt.budget
			org.equipment = tt.equip
			a := newAgent(org, site.RoleWorker)
			assert.Equal(t, tt.want, a.Decide(tt.ev))
			assert.Equal(t, tt.supplier, org.supplier)
		})
	}
}

func TestSAStaysInBounds(t *testing.T) {
	org := newFakeOrg()
	org.structure = site.OrgFlat
	org.phase = site.PhaseFoundation
	a := newAgent(org, site.RoleReporter)
	a.Fatigue = 1 // widest noise

	for i := 0; i < 500; i++ {
		a.Observe(site.Event{Kind: site.EventDelay, Severity: org.rng.Float64()})
		for _, v := range []float64{a.Awareness.Perception, a.Awareness.Comprehension, a.Awareness.Projection} {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 100.0)
		}
		s := a.Awareness
		assert.InDelta(t, (s.Perception+s.Comprehension+s.Projection)/3, s.Score(), 1e-9)
	}
}

func TestHazardGuardAllowsOneWorker(t *testing.T) {
	org := newFakeOrg()
	first := newAgent(org, site.RoleWorker)
	second := newAgent(org, site.RoleWorker)

	ev := site.Event{Kind: site.EventHazard, Severity: 0.6}
	require.True(t, first.Observe(ev))
	require.True(t, second.Observe(ev))

	assert.Equal(t, 1, org.incidents)
	assert.Equal(t, 1, first.Actions[site.ActionAct])
	assert.Zero(t, second.Actions[site.ActionAct])
	// the regulatory hazard is reported instead
	assert.Equal(t, 1, second.ReportsSent)
	require.Len(t, org.sent, 1)
	assert.Equal(t, 0, org.sent[0].Hops)
}

func TestManagersReportHazardsTheyCannotAct(t *testing.T) {
	org := newFakeOrg()
	m := newAgent(org, site.RoleManager)
	require.True(t, m.Observe(site.Event{Kind: site.EventHazard, Severity: 0.7}))
	assert.Zero(t, org.incidents)
	assert.Equal(t, 1, m.ReportsSent)
}

func TestStepFollowsUpOnPendingReports(t *testing.T) {
	org := newFakeOrg()
	a := newAgent(org, site.RoleWorker)

	fresh := &site.Report{Event: site.Event{Kind: site.EventDelay, Severity: 0.5, Criticality: site.Critical}, Hops: 2}
	done := &site.Report{Event: site.Event{Kind: site.EventDelay, Severity: 0.5, Criticality: site.Critical}, ActedOn: true}
	a.Deliver(fresh, 0)
	a.Deliver(done, 0)
	assert.Equal(t, 2, a.ReportsReceived)

	a.Step([]*site.Event{nil})

	assert.True(t, fresh.ActedOn)
	assert.Equal(t, 1, a.Actions[site.ActionAct])
	assert.Equal(t, 1, org.tasks)
	assert.Empty(t, a.Pending)
}

func TestFollowUpOnAggregate(t *testing.T) {
	org := newFakeOrg()
	a := newAgent(org, site.RoleManager)
	agg := &site.AggregatedReport{}
	agg.Merge(site.Event{Kind: site.EventHazard, Severity: 0.3})
	agg.Merge(site.Event{Kind: site.EventDelay, Severity: 0.4, Criticality: site.Critical})

	a.FollowUp(&site.Report{Aggregate: agg, Hops: 1})

	assert.Equal(t, 1, a.Actions[site.ActionReport])
	assert.Equal(t, 1, a.Actions[site.ActionAct])
	require.Len(t, org.sent, 1)
	assert.Equal(t, 2, org.sent[0].Hops)
}

func TestReceivedThisStep(t *testing.T) {
	a := newAgent(newFakeOrg(), site.RoleReporter)
	r1 := &site.Report{}
	r2 := &site.Report{}
	a.Deliver(r1, 3)
	assert.Equal(t, []*site.Report{r1}, a.ReceivedThisStep(3))
	a.Deliver(r2, 4)
	assert.Equal(t, []*site.Report{r2}, a.ReceivedThisStep(4))
	assert.Nil(t, a.ReceivedThisStep(3))
}

func TestSpawnerSamplesTraitRanges(t *testing.T) {
	var profiles [site.NumRoles]Profile
	profiles[site.RoleManager] = Profile{DetectionAccuracy: 0.9, ReportingProb: 0.85}
	s := NewSpawner(rand.New(rand.NewSource(5)), profiles)

	ms := s.Spawn(site.RoleManager, 20)
	ws := s.Spawn(site.RoleWorker, 5)
	require.Len(t, ms, 20)
	assert.Equal(t, 20, ws[0].ID)
	for _, a := range ms {
		assert.Equal(t, 0.9, a.DetectionAccuracy)
		assert.Equal(t, 0.85, a.ReportingProb)
		assert.GreaterOrEqual(t, a.Workload, 0.0)
		assert.Less(t, a.Workload, 5.0)
		assert.Less(t, a.RiskTolerance, 1.0)
	}
}
