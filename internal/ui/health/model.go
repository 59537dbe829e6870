// Package health renders the API health panel.
package health

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/keys"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/theme"
)

// CheckMsg asks the parent to run a health check now.
type CheckMsg struct{}

// BackMsg asks the parent to return to the previous screen.
type BackMsg struct{}

// Model is the health panel.
type Model struct {
	keys     *keys.KeyMap
	result   *model.HealthResult
	checking bool
	width    int
	height   int
}

// New creates the health panel.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetResult shows the latest check.
func (m *Model) SetResult(r *model.HealthResult) {
	m.result = r
	m.checking = false
}

// SetChecking marks a check in flight.
func (m *Model) SetChecking() {
	m.checking = true
}

// Update handles key input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Refresh):
		if !m.checking {
			m.checking = true
			return m, func() tea.Msg { return CheckMsg{} }
		}
	case key.Matches(keyMsg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }
	}
	return m, nil
}

// View renders the panel.
func (m Model) View() string {
	sections := []string{theme.TitleStyle.Render("LNemail API Health")}

	switch {
	case m.checking:
		sections = append(sections, theme.DimmedStyle.Render("Checking API health..."))
	case m.result == nil:
		sections = append(sections, theme.DimmedStyle.Render("No health check has run yet."))
	case m.result.Healthy():
		d := m.result.Data
		sections = append(sections,
			row("Status:", theme.HealthStyle(true).Render("● "+orDash(d.Status))),
			row("Version:", orDash(d.Version)),
			row("Server time:", orDash(d.Timestamp)),
		)
	default:
		sections = append(sections,
			row("Status:", theme.HealthStyle(false).Render("● unavailable")),
			row("Error:", orDash(m.result.Error)),
		)
	}

	if m.result != nil && !m.result.CheckedAt.IsZero() && !m.checking {
		sections = append(sections, row("Checked:", m.result.CheckedAt.Format("Jan 2, 2006 3:04:05 PM")))
	}

	sections = append(sections, "", theme.HelpStyle.Render("r check again · esc back"))

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func row(label, value string) string {
	return fmt.Sprintf("%s %s", theme.LabelStyle.Width(13).Render(label), theme.ValueStyle.Render(value))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
