package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"repolens/internal/telemetry"
	"repolens/internal/types"
)

var (
	primary     = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	muted       = lipgloss.Color("#6b7a90")
	border      = lipgloss.Color("#2a3850")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle   = lipgloss.NewStyle().Foreground(muted).Width(16)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(primary).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(destructive).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted).Italic(true)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)
)

// renderStats draws the run summary box.
func renderStats(stats *types.AnalysisStats, err error) string {
	if stats == nil {
		return ""
	}

	outcome := successStyle.Render(telemetry.Outcome(err))
	if err != nil {
		outcome = errorStyle.Render(telemetry.Outcome(err))
	}

	model := stats.Model
	if model == "" {
		model = "none"
	}
	if len(stats.ModelAttempts) > 1 {
		model = fmt.Sprintf("%s (tried %s)", model, strings.Join(stats.ModelAttempts, ", "))
	}

	tools := fmt.Sprintf("%d", len(stats.ToolCalls))
	if failed := stats.FailedToolCalls(); failed > 0 {
		tools = fmt.Sprintf("%d (%d failed)", len(stats.ToolCalls), failed)
	}

	rows := [][2]string{
		{"Outcome", outcome},
		{"Mode", stats.Mode},
		{"Model", model},
		{"Attempts", fmt.Sprintf("%d", stats.Attempts)},
		{"Tool calls", tools},
		{"Events", fmt.Sprintf("%d", stats.TotalEvents)},
		{"Response", fmt.Sprintf("%d bytes", stats.ResponseLength)},
		{"Duration", stats.Duration().Round(time.Millisecond).String()},
	}

	lines := []string{titleStyle.Render("repolens")}
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r[0]), valueStyle.Render(r[1])))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
