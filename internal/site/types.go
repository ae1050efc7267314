// Package site provides the shared vocabulary of the construction-site model:
// roles, events, reports, organizational policies and project outcomes.
package site

import (
	"errors"
	"fmt"
	"strings"
)

// Role is an agent's position in the site organization.
type Role uint8

const (
	RoleWorker Role = iota
	RoleManager
	RoleDirector
	RoleReporter
)

// NumRoles is the number of agent roles.
const NumRoles = 4

// Roles lists every role in reporting order.
var Roles = [NumRoles]Role{RoleWorker, RoleManager, RoleDirector, RoleReporter}

var roleNames = [NumRoles]string{"worker", "manager", "director", "reporter"}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", r)
}

// Title returns the capitalized role name used in metric column prefixes.
func (r Role) Title() string {
	s := r.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// EventKind classifies a site event.
type EventKind uint8

const (
	EventHazard EventKind = iota
	EventDelay
	EventResourceShortage
)

// NumEventKinds is the number of event kinds.
const NumEventKinds = 3

var eventKindNames = [NumEventKinds]string{"hazard", "delay", "resource_shortage"}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("event(%d)", k)
}

// Criticality marks whether an event sits on the critical path.
type Criticality uint8

const (
	NonCritical Criticality = iota
	Critical
)

func (c Criticality) String() string {
	if c == Critical {
		return "critical"
	}
	return "non_critical"
}

// ActionKind is one of the responses an agent can choose for an event.
type ActionKind uint8

const (
	ActionReport ActionKind = iota
	ActionAct
	ActionEscalate
	ActionSubstitute
)

// NumActions is the number of action kinds.
const NumActions = 4

// Actions lists the action kinds in classifier output order.
var Actions = [NumActions]ActionKind{ActionReport, ActionAct, ActionEscalate, ActionSubstitute}

var actionNames = [NumActions]string{"report", "act", "escalate", "substitute"}

func (a ActionKind) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", a)
}

// Phase is the project phase. Phases only ever advance.
type Phase uint8

const (
	PhaseFoundation Phase = iota
	PhaseFraming
	PhaseInterior
)

// Phase boundaries in completed steps.
const (
	FramingStartStep  = 33
	InteriorStartStep = 66
)

var phaseNames = [3]string{"foundation", "framing", "interior"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", p)
}

// PhaseAt returns the project phase after the given number of completed steps.
func PhaseAt(step int) Phase {
	switch {
	case step < FramingStartStep:
		return PhaseFoundation
	case step < InteriorStartStep:
		return PhaseFraming
	default:
		return PhaseInterior
	}
}

// Encoding returns the phase feature used by the decision classifier.
func (p Phase) Encoding() float64 {
	switch p {
	case PhaseFoundation:
		return 1.0
	case PhaseFraming:
		return 0.5
	default:
		return 0.0
	}
}

// ReportingStructure is the reporting policy of the organization.
type ReportingStructure uint8

const (
	ReportingDedicated ReportingStructure = iota
	ReportingSelf
	ReportingNone
)

var reportingNames = [3]string{"dedicated", "self", "none"}

func (r ReportingStructure) String() string {
	if int(r) < len(reportingNames) {
		return reportingNames[r]
	}
	return fmt.Sprintf("reporting(%d)", r)
}

// OrgStructure is the organizational topology.
type OrgStructure uint8

const (
	OrgFunctional OrgStructure = iota
	OrgFlat
	OrgHierarchical
)

var orgNames = [3]string{"functional", "flat", "hierarchical"}

func (o OrgStructure) String() string {
	if int(o) < len(orgNames) {
		return orgNames[o]
	}
	return fmt.Sprintf("org(%d)", o)
}

// SAModifier scales situational-awareness gains by topology.
func (o OrgStructure) SAModifier() float64 {
	switch o {
	case OrgFlat:
		return 1.2
	case OrgHierarchical:
		return 0.8
	default:
		return 1.0
	}
}

// CommRadius is the communication neighborhood in grid cells.
func (o OrgStructure) CommRadius() int {
	switch o {
	case OrgFlat:
		return 5
	case OrgHierarchical:
		return 2
	default:
		return 3
	}
}

// Configuration errors.
var (
	ErrInvalidReporting = errors.New("invalid reporting structure")
	ErrInvalidOrg       = errors.New("invalid organizational structure")
)

// ParseReportingStructure parses a policy name, case-insensitively.
func ParseReportingStructure(s string) (ReportingStructure, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range reportingNames {
		if n == name {
			return ReportingStructure(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidReporting, s)
}

// ParseOrgStructure parses a topology name, case-insensitively.
func ParseOrgStructure(s string) (OrgStructure, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range orgNames {
		if n == name {
			return OrgStructure(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOrg, s)
}
