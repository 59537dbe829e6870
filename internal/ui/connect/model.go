// Package connect is the screen shown while no session is active: an
// access token prompt plus the current API health.
package connect

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/theme"
)

// SubmitMsg is dispatched when the user submits a token.
type SubmitMsg struct {
	Token string
}

// QuitMsg is dispatched when the user aborts the prompt.
type QuitMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	token string
}

// Model is the connect screen.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	health     *model.HealthResult
	connecting bool
	errText    string
	width      int
	height     int
}

// New creates the connect screen.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start resets the prompt and returns its init command.
func (m *Model) Start() tea.Cmd {
	m.fb.token = ""
	m.connecting = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Access token").
				Description("Paste the token you received when you created your LNemail account.").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// SetHealth updates the API status line.
func (m *Model) SetHealth(h *model.HealthResult) {
	m.health = h
}

// SetConnecting shows that a token is being validated.
func (m *Model) SetConnecting(connecting bool) {
	m.connecting = connecting
	if connecting {
		m.errText = ""
	}
}

// SetError shows why the last attempt failed.
func (m *Model) SetError(msg string) {
	m.errText = msg
	m.connecting = false
}

// Update handles messages for the connect screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.connecting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		token := m.fb.token
		m.connecting = true
		m.errText = ""
		return m, func() tea.Msg { return SubmitMsg{Token: token} }
	case huh.StateAborted:
		return m, func() tea.Msg { return QuitMsg{} }
	}

	return m, cmd
}

// View renders the connect screen.
func (m Model) View() string {
	var sections []string

	sections = append(sections, theme.TitleStyle.Render("Connect to LNemail"))
	sections = append(sections, m.healthLine(), "")

	switch {
	case m.connecting:
		sections = append(sections, theme.DimmedStyle.Render("Connecting..."))
	case m.form != nil:
		sections = append(sections, m.form.View())
	}

	if m.errText != "" {
		sections = append(sections, "", lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errText))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) healthLine() string {
	label := theme.LabelStyle.Render("API status:")
	switch {
	case m.health == nil:
		return fmt.Sprintf("%s %s", label, theme.DimmedStyle.Render("checking..."))
	case m.health.Healthy():
		status := strings.ToUpper(m.health.Data.Status)
		if status == "" {
			status = "OK"
		}
		return fmt.Sprintf("%s %s", label, theme.HealthStyle(true).Render("● "+status))
	default:
		return fmt.Sprintf("%s %s", label, theme.HealthStyle(false).Render("● unavailable: "+m.health.Error))
	}
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}
