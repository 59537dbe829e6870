package compose

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/session"
	"github.com/nhle/lnemail-client/internal/theme"
)

// SubmitMsg is dispatched when the user sends the form.
type SubmitMsg struct {
	Recipient string
	Subject   string
	Body      string
}

// CancelMsg is dispatched when the user leaves the form without sending.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	recipient string
	subject   string
	body      string
}

// Model is the compose form.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	sending bool
	errText string
	width   int
	height  int
}

// New creates a new compose form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start clears the fields and builds a fresh form.
func (m *Model) Start() tea.Cmd {
	m.fb.recipient = ""
	m.fb.subject = ""
	m.fb.body = ""
	m.errText = ""
	m.sending = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Retry rebuilds the form keeping what the user typed, after a failed send.
func (m *Model) Retry(errText string) tea.Cmd {
	m.errText = errText
	m.sending = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Sending reports whether a submit is in flight.
func (m Model) Sending() bool { return m.sending }

// Update handles messages for the compose form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.sending {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.sending = true
		m.errText = ""
		out := SubmitMsg{
			Recipient: m.fb.recipient,
			Subject:   m.fb.subject,
			Body:      m.fb.body,
		}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the compose form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	content := theme.TitleStyle.Render("New Message") + "\n"
	if m.sending {
		content += theme.DimmedStyle.Render("Sending...")
	} else {
		content += m.form.View()
	}
	if m.errText != "" {
		content += "\n" + lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errText)
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("To").
				Placeholder("recipient@example.com").
				Value(&m.fb.recipient).
				Validate(validateRecipient),
			huh.NewInput().
				Title("Subject").
				Value(&m.fb.subject).
				Validate(validateRequired("Subject")),
			huh.NewText().
				Title("Message").
				Value(&m.fb.body).
				Validate(validateRequired("Message")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return &session.ValidationError{Field: strings.ToLower(fieldName), Message: fieldName + " is required"}
		}
		return nil
	}
}

// validateRecipient applies the same address rule the session enforces on
// send, so a bad address is caught before the form completes.
func validateRecipient(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return &session.ValidationError{Field: "recipient", Message: "Recipient is required"}
	}
	return session.ValidateOutgoing(s, "-", "-")
}
