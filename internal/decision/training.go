package decision

import "github.com/talgya/site-awareness/internal/site"

var (
	report     = site.ActionReport
	act        = site.ActionAct
	escalate   = site.ActionEscalate
	substitute = site.ActionSubstitute
)

// trainingRows are the labeled scenarios the classifier is fitted on.
// Columns follow Features.
var trainingRows = []Sample{
	{Features{1, 0.2, 1.0, 0.5, 0.2, 0.8, 0.5, 0.5, 0.0, 1.0, 1.0}, escalate}, // hazard, foundation, critical
	{Features{3, 0.7, 1.0, 0.3, 0.6, 0.5, 0.7, 1.0, 1.0, 1.0, 1.0}, act},      // hazard, high workload
	{Features{2, 0.5, 0.7, 0.6, 0.4, 0.7, 0.4, 0.5, 0.0, 0.5, 1.0}, act},      // delay, framing, critical
	{Features{4, 0.8, 0.7, 0.2, 0.8, 0.3, 0.6, 1.0, 0.0, 0.5, 0.0}, report},   // delay, framing
	{Features{2, 0.3, 0.5, 0.7, 0.4, 0.9, 0.3, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{5, 0.9, 0.5, 0.1, 1.0, 0.2, 0.8, 1.0, 0.0, 0.0, 0.0}, escalate}, // shortage under stress
	{Features{1, 0.1, 1.0, 0.9, 0.2, 0.9, 0.2, 0.5, 1.0, 1.0, 1.0}, act},      // experienced crew
	{Features{3, 0.6, 0.7, 0.4, 0.6, 0.6, 0.5, 0.5, 0.0, 0.5, 1.0}, report},
	{Features{2, 0.4, 0.5, 0.8, 0.4, 0.8, 0.4, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{4, 0.7, 1.0, 0.3, 0.8, 0.4, 0.6, 1.0, 1.0, 1.0, 1.0}, escalate},
	{Features{2, 0.5, 1.0, 0.6, 0.5, 0.7, 0.5, 0.5, 1.0, 1.0, 1.0}, escalate},
	{Features{3, 0.6, 0.7, 0.5, 0.6, 0.6, 0.4, 0.5, 0.0, 0.5, 1.0}, act},
	{Features{1, 0.3, 0.5, 0.7, 0.3, 0.9, 0.3, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{5, 0.8, 1.0, 0.2, 0.9, 0.3, 0.7, 1.0, 1.0, 1.0, 1.0}, escalate},
	{Features{2, 0.4, 0.7, 0.6, 0.4, 0.8, 0.4, 0.5, 0.0, 0.5, 0.0}, act},
	{Features{3, 0.5, 0.5, 0.5, 0.5, 0.7, 0.5, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{1, 0.2, 1.0, 0.8, 0.2, 0.9, 0.3, 0.5, 1.0, 1.0, 1.0}, act},
	{Features{4, 0.7, 0.7, 0.3, 0.7, 0.4, 0.6, 1.0, 0.0, 0.5, 0.0}, report},
	{Features{2, 0.3, 0.5, 0.7, 0.3, 0.8, 0.4, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{3, 0.6, 1.0, 0.4, 0.6, 0.5, 0.5, 1.0, 1.0, 1.0, 1.0}, escalate},
	{Features{2, 0.4, 0.7, 0.6, 0.4, 0.7, 0.4, 0.5, 0.0, 0.5, 0.0}, act},
	{Features{1, 0.2, 0.5, 0.8, 0.2, 0.9, 0.3, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{5, 0.9, 1.0, 0.1, 0.9, 0.2, 0.8, 1.0, 1.0, 1.0, 1.0}, escalate},
	{Features{3, 0.5, 0.7, 0.5, 0.5, 0.6, 0.5, 0.5, 0.0, 0.5, 0.0}, act},
	{Features{2, 0.3, 0.5, 0.7, 0.3, 0.8, 0.4, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{4, 0.7, 1.0, 0.3, 0.7, 0.4, 0.6, 1.0, 1.0, 1.0, 1.0}, escalate},
	{Features{2, 0.4, 0.7, 0.6, 0.4, 0.7, 0.4, 0.5, 0.0, 0.5, 0.0}, act},
	{Features{1, 0.2, 0.5, 0.8, 0.2, 0.9, 0.3, 0.5, 0.0, 0.0, 0.0}, substitute},
	{Features{3, 0.6, 1.0, 0.4, 0.6, 0.5, 0.5, 1.0, 1.0, 1.0, 1.0}, escalate},
	{Features{2, 0.4, 0.7, 0.6, 0.4, 0.7, 0.4, 0.5, 0.0, 0.5, 0.0}, act},
}

// TrainingSet returns a copy of the built-in labeled rows.
func TrainingSet() []Sample {
	return append([]Sample(nil), trainingRows...)
}
