// Package routing delivers reports between agents according to the
// organization's reporting policy and topology.
package routing

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/site-awareness/internal/agents"
	"github.com/talgya/site-awareness/internal/site"
	"github.com/talgya/site-awareness/internal/world"
)

// DefaultMaxRelayHops bounds immediate follow-up chains.
const DefaultMaxRelayHops = 6

// amplification applied to a report each time a reporter receives it
const reporterAmplification = 1.1

// Policy is the routing configuration of one run.
type Policy struct {
	Reporting site.ReportingStructure
	Structure site.OrgStructure

	// CommFailure holds the base failure rate per reporting structure.
	CommFailure [3]float64

	// MaxRelayHops is the hop count at which receivers stop following up
	// immediately and queue the report instead.
	MaxRelayHops int
}

// Site is the organization state the router reads.
type Site interface {
	Step() int
	SafetyIncidents() int
}

// Stats counts delivery attempts.
type Stats struct {
	Attempts int `json:"attempts"`
	Failures int `json:"failures"`
}

// Router routes reports. It is owned by one organization and is not safe
// for concurrent use.
type Router struct {
	policy Policy
	grid   *world.Grid
	byID   []*agents.Agent
	site   Site
	rng    *rand.Rand

	stats Stats
}

// NewRouter creates a router. Agents must be indexed by ID.
func NewRouter(p Policy, g *world.Grid, byID []*agents.Agent, s Site, rng *rand.Rand) *Router {
	return &Router{policy: p, grid: g, byID: byID, site: s, rng: rng}
}

// Stats returns cumulative delivery counts.
func (rt *Router) Stats() Stats {
	return rt.stats
}

// CommFailure returns the current per-delivery failure probability.
func (rt *Router) CommFailure() float64 {
	f := rt.policy.CommFailure[rt.policy.Reporting]
	if rt.site.SafetyIncidents() > 5 {
		f *= 1.3
	}
	switch rt.policy.Structure {
	case site.OrgFlat:
		f *= 0.8
	case site.OrgHierarchical:
		f *= 1.2
	}
	return f
}

// ChainTarget returns the role a sender reports up the chain to.
// Reporters sit outside the chain.
func ChainTarget(r site.Role) (site.Role, bool) {
	switch r {
	case site.RoleWorker:
		return site.RoleManager, true
	case site.RoleManager:
		return site.RoleDirector, true
	case site.RoleDirector:
		return site.RoleManager, true
	default:
		return 0, false
	}
}

// Send routes a report from sender. It returns true if at least one
// receiver got it.
func (rt *Router) Send(sender *agents.Agent, r *site.Report) bool {
	failure := rt.CommFailure()
	neighbors := rt.neighbors(sender)
	viaChain := rt.policy.Structure == site.OrgFunctional || r.Event.IsRegulatory()

	if rt.policy.Reporting == site.ReportingDedicated {
		if sender.Role == site.RoleReporter {
			return rt.broadcast(sender, r, neighbors, failure)
		}

		ok := false
		for _, a := range neighbors {
			if a.Role != site.RoleReporter {
				continue
			}
			if rt.deliver(sender, a, r, failure) {
				ok = true
				r.Amplify(reporterAmplification)
			}
		}
		if viaChain && rt.relay(sender, r, neighbors, failure, chainOnly(sender.Role)) {
			ok = true
		}
		return ok
	}

	// Self and None route identically; they differ only in failure rate.
	match := crewOnly
	if viaChain {
		match = chainOnly(sender.Role)
	}
	return rt.relay(sender, r, neighbors, failure, match)
}

// Aggregate folds a reporter's own report and every report it received
// this step into one event per kind at max severity.
func (rt *Router) Aggregate(sender *agents.Agent, r *site.Report) *site.AggregatedReport {
	agg := &site.AggregatedReport{}
	for _, ev := range r.Events() {
		agg.Merge(ev)
	}
	for _, in := range sender.ReceivedThisStep(rt.site.Step()) {
		for _, ev := range in.Events() {
			agg.Merge(ev)
		}
	}
	return agg
}

func (rt *Router) broadcast(sender *agents.Agent, r *site.Report, neighbors []*agents.Agent, failure float64) bool {
	out := &site.Report{
		Event:      r.Event,
		SenderID:   sender.ID,
		SenderRole: sender.Role,
		Step:       r.Step,
		Hops:       r.Hops,
		Aggregate:  rt.Aggregate(sender, r),
	}
	return rt.relay(sender, out, neighbors, failure, func(role site.Role) bool {
		return role != site.RoleReporter
	})
}

// relay delivers r to every matching neighbor. The first successful
// receiver follows up immediately unless the report ran out of hops.
func (rt *Router) relay(sender *agents.Agent, r *site.Report, neighbors []*agents.Agent, failure float64, match func(site.Role) bool) bool {
	ok := false
	for _, a := range neighbors {
		if !match(a.Role) {
			continue
		}
		if !rt.deliver(sender, a, r, failure) {
			continue
		}
		ok = true
		if !r.ActedOn && r.Hops < rt.policy.MaxRelayHops {
			r.ActedOn = true
			a.FollowUp(r)
		}
	}
	return ok
}

func (rt *Router) deliver(sender, to *agents.Agent, r *site.Report, failure float64) bool {
	rt.stats.Attempts++
	if rt.rng.Float64() < failure {
		rt.stats.Failures++
		return false
	}
	to.Deliver(r, rt.site.Step())
	slog.Debug("report delivered",
		"from", sender.ID,
		"from_role", sender.Role.String(),
		"to", to.ID,
		"to_role", to.Role.String(),
		"event", r.Event.Kind.String(),
		"hops", r.Hops,
	)
	return true
}

func (rt *Router) neighbors(sender *agents.Agent) []*agents.Agent {
	ids := rt.grid.Within(sender.Position, rt.policy.Structure.CommRadius(), sender.ID)
	out := make([]*agents.Agent, 0, len(ids))
	for _, id := range ids {
		out = append(out, rt.byID[id])
	}
	return out
}

func chainOnly(sender site.Role) func(site.Role) bool {
	target, ok := ChainTarget(sender)
	return func(r site.Role) bool {
		return ok && r == target
	}
}

func crewOnly(r site.Role) bool {
	return r != site.RoleReporter
}
