package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/geocovid/geocovid/internal/sim"
	"github.com/geocovid/geocovid/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	infectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	deadStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func line(label, value string) string {
	return labelStyle.Render(label) + value
}

func renderResult(res Result) string {
	s := res.Summary
	lines := []string{
		titleStyle.Render("geocovid run " + res.RunID.String()),
		"",
		line("hours simulated", fmt.Sprintf("%d", s.Ticks)),
		line("dropped rows", fmt.Sprintf("%d", res.Dropped)),
		line("initial cohort", fmt.Sprintf("%d", res.Seeded)),
		line("peak infected", infectedStyle.Render(fmt.Sprintf("%d", s.PeakInfected))+
			fmt.Sprintf(" at day %d (tick %d)", s.PeakTick/sim.StepsPerDay, s.PeakTick)),
		line("infections", fmt.Sprintf("%d", s.Infections)),
		line("attack rate", fmt.Sprintf("%.2f%%", 100*s.AttackRate)),
		line("deaths", deadStyle.Render(fmt.Sprintf("%d", s.Deaths))),
		line("final S/I/R/D", fmt.Sprintf("%d / %d / %d / %d",
			s.Final.Susceptible, s.Final.Infected, s.Final.Recovered, s.Final.Dead)),
	}
	if len(res.Files) > 0 {
		lines = append(lines, "", titleStyle.Render("outputs"))
		lines = append(lines, res.Files...)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderRuns(runs []store.Run) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("RUN", "STARTED", "P(INFECT)", "P(DEATH)", "TREATMENT", "MIN DEATH", "EXPOSURE", "SEED")
	for _, r := range runs {
		p := r.Params
		t.Row(
			r.ID.String(),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%g", p.InfectionProb),
			fmt.Sprintf("%g", p.DeathProb),
			fmt.Sprintf("%d", p.TreatmentPeriod),
			fmt.Sprintf("%d", p.MinDeathPeriod),
			fmt.Sprintf("%g", p.ExposureDistance),
			fmt.Sprintf("%d", p.Seed),
		)
	}
	return t.String()
}
