// Package report renders a month summary for the terminal, colouring the
// efficiency figure by its green/yellow/red band.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/efficiency"
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styles used by Render.
type Theme struct {
	Box    lipgloss.Style
	Header lipgloss.Style
	Label  lipgloss.Style
	Muted  lipgloss.Style
	Green  lipgloss.Style
	Yellow lipgloss.Style
	Red    lipgloss.Style

	// BarFull and BarEmpty draw the efficiency bar.
	BarFull  string
	BarEmpty string
}

// DefaultTheme uses 256-colour codes.
func DefaultTheme() Theme {
	return Theme{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1),
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Green:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("120")),
		Yellow:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		Red:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		BarFull:  "█",
		BarEmpty: "░",
	}
}

// PlainTheme has no colours and an ASCII bar, for pipes and logs.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Box:      plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		Header:   plain,
		Label:    plain,
		Muted:    plain,
		Green:    plain,
		Yellow:   plain,
		Red:      plain,
		BarFull:  "#",
		BarEmpty: ".",
	}
}

func (t Theme) band(s efficiency.Status) lipgloss.Style {
	switch s {
	case efficiency.StatusGreen:
		return t.Green
	case efficiency.StatusYellow:
		return t.Yellow
	default:
		return t.Red
	}
}

// =============================================================================
// RENDER
// =============================================================================

// Summary is the input of Render.
type Summary struct {
	Stats   efficiency.MonthlyStats
	Formula efficiency.FormulaConfig

	// Jobs are listed under the figures when non-empty.
	Jobs []efficiency.Job
}

const barWidth = 20

// Render draws the summary box followed by the optional job table.
func Render(sum Summary, theme Theme) string {
	s := sum.Stats
	var sb strings.Builder

	title := fmt.Sprintf("AW REPORT  %s %d", s.Period.Start.Month(), s.Period.Start.Year())
	sb.WriteString(theme.Header.Render(title))
	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("as of %s", s.AsOf)))
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(theme.Label.Render(fmt.Sprintf("%-18s", label)))
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	row("Jobs", fmt.Sprintf("%d", s.TotalJobs))
	row("AWs", fmt.Sprintf("%d", s.TotalAWs))
	row("Sold hours", hours(s.TotalSoldHours))
	row("Available hours", fmt.Sprintf("%s  (%d working days)", hours(s.TotalAvailableHours), s.WorkingDays))
	row("Target hours", hours(s.EffectiveTargetHours))
	row("Utilisation", s.UtilizationPercentage.StringFixed(2)+"%")

	style := theme.band(s.Status)
	eff := fmt.Sprintf("%d%% %s", s.EfficiencyPercentage, strings.ToUpper(string(s.Status)))
	row("Efficiency", style.Render(eff)+"  "+style.Render(bar(s.EfficiencyPercentage, theme)))
	row("Expected AWs", s.ExpectedAWs.StringFixed(0))

	if s.AbsenceHoursApplied.IsPositive() {
		row("Absence", theme.Muted.Render(fmt.Sprintf("-%s from %s", hours(s.AbsenceHoursApplied), absenceLabel(s.AbsenceTarget))))
	}

	out := theme.Box.Render(strings.TrimRight(sb.String(), "\n"))
	if len(sum.Jobs) == 0 {
		return out + "\n"
	}
	return out + "\n" + jobTable(sum.Jobs, sum.Formula, theme)
}

func jobTable(jobs []efficiency.Job, f efficiency.FormulaConfig, theme Theme) string {
	var sb strings.Builder
	sb.WriteString(theme.Header.Render(fmt.Sprintf("%-11s %-12s %-10s %5s %8s", "DATE", "WIP", "REG", "AW", "MINUTES")))
	sb.WriteString("\n")
	for _, j := range jobs {
		sb.WriteString(fmt.Sprintf("%-11s %-12s %-10s %5d %8s\n",
			j.Day(), truncate(j.WIPNumber, 12), truncate(j.VehicleRegistration, 10),
			j.AWValue, j.TimeInMinutes(f).StringFixed(0)))
	}
	return sb.String()
}

// bar fills one cell per 5%, capped at 100%.
func bar(pct int, theme Theme) string {
	filled := pct * barWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat(theme.BarFull, filled) + strings.Repeat(theme.BarEmpty, barWidth-filled)
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(2) + "h"
}

func absenceLabel(t efficiency.DeductionTarget) string {
	if t == efficiency.DeductFromTarget {
		return "target"
	}
	return "available"
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
