package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/talgya/site-awareness/internal/batch"
	"github.com/talgya/site-awareness/internal/engine"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D4FF"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Width(22)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEEEEE"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FD971F"))
	cellStyle   = lipgloss.NewStyle().Width(16).Align(lipgloss.Right)
	keyStyle    = lipgloss.NewStyle().Width(24).Bold(true)
)

func printRun(w io.Writer, res *engine.Result) {
	fmt.Fprintln(w, headerStyle.Render(res.RunID))

	final, ok := res.Final()
	if !ok {
		fmt.Fprintln(w, warnStyle.Render("no steps completed"))
		return
	}

	line := func(label, value string) {
		fmt.Fprintln(w, labelStyle.Render(label)+valueStyle.Render(value))
	}
	line("configuration", res.ReportingStructure+"/"+res.OrgStructure)
	line("seed", fmt.Sprint(res.Seed))
	line("steps", fmt.Sprintf("%d of %d", res.CompletedSteps, res.PlannedSteps))
	line("phase", final.ProjectPhase)
	line("schedule adherence", fmt.Sprintf("%.1f%%", final.ScheduleAdherence))
	line("safety incidents", humanize.Comma(int64(final.SafetyIncidents)))
	line("incident points", humanize.Commaf(final.IncidentPoints))
	line("cost overruns", "$"+humanize.Commaf(final.CostOverruns))
	line("budget remaining", "$"+humanize.Commaf(final.BudgetRemaining))
	line("equipment", humanize.Comma(int64(final.EquipmentAvailable)))
	line("comm failure rate", fmt.Sprintf("%.3f", final.CommFailureRate))
	line("SA worker/manager", fmt.Sprintf("%.3f / %.3f", final.WorkerSA, final.ManagerSA))
	line("SA director/reporter", fmt.Sprintf("%.3f / %.3f", final.DirectorSA, final.ReporterSA))
	if res.Cancelled {
		fmt.Fprintln(w, warnStyle.Render("interrupted before the last step"))
	}
}

func printSummary(w io.Writer, groups []batch.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, warnStyle.Render("no completed runs"))
		return
	}

	header := []string{"runs", "adherence %", "incidents", "overruns $", "worker SA", "manager SA", "reports"}
	var b strings.Builder
	b.WriteString(keyStyle.Render("configuration"))
	for _, h := range header {
		b.WriteString(cellStyle.Render(h))
	}
	fmt.Fprintln(w, headerStyle.Render(b.String()))

	for _, g := range groups {
		b.Reset()
		b.WriteString(keyStyle.Render(g.ReportingStructure + "/" + g.OrgStructure))
		cells := []string{
			humanize.Comma(int64(g.Runs)),
			stat(g.ScheduleAdherence, "%.1f"),
			stat(g.SafetyIncidents, "%.2f"),
			humanize.Comma(int64(g.CostOverruns.Mean)),
			stat(g.WorkerSA, "%.3f"),
			stat(g.ManagerSA, "%.3f"),
			stat(g.ReportsSent, "%.0f"),
		}
		for _, c := range cells {
			b.WriteString(cellStyle.Render(c))
		}
		fmt.Fprintln(w, b.String())
	}
}

func stat(s batch.Stat, format string) string {
	return fmt.Sprintf(format+" ±"+format, s.Mean, s.Std)
}
