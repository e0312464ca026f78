package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/smithyrt/cli/reader"
)

// SummaryModel shows aggregated attempt statistics.
type SummaryModel struct {
	stats    *reader.AttemptStats
	width    int
	height   int
	quitting bool
}

// NewSummaryModel creates a summary model.
func NewSummaryModel(stats *reader.AttemptStats) SummaryModel {
	return SummaryModel{stats: stats}
}

// Init implements tea.Model.
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}
	if m.stats == nil {
		return "No attempt statistics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Attempt Statistics"))
	b.WriteString("\n\n")

	boxes := []string{
		renderStatBox("Invocations", m.stats.Invocations, highlightColor),
		renderStatBox("Attempts", m.stats.Attempts, primaryColor),
		renderStatBox("Retries", m.stats.Retries, warningColor),
		renderStatBox("Succeeded", m.stats.Succeeded, successColor),
		renderStatBox("Failed", m.stats.Failed, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	if len(m.stats.ByErrorKind) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Failed Attempts by Kind"))
		b.WriteString("\n")
		kinds := make([]string, 0, len(m.stats.ByErrorKind))
		for k := range m.stats.ByErrorKind {
			kinds = append(kinds, k)
		}
		slices.Sort(kinds)
		for _, k := range kinds {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render(k+":"),
				ErrorStyle.Render(fmt.Sprintf("%d", m.stats.ByErrorKind[k]))))
		}
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// RunSummaryTUI runs the summary TUI. data must be *reader.AttemptStats.
func RunSummaryTUI(data any) error {
	stats, ok := data.(*reader.AttemptStats)
	if !ok {
		return fmt.Errorf("invalid data type for %s: %T", ViewAttemptsSummary, data)
	}
	p := tea.NewProgram(NewSummaryModel(stats), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderSummaryStatic renders the summary without a full TUI (for fallback).
func RenderSummaryStatic(stats *reader.AttemptStats) string {
	model := NewSummaryModel(stats)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
