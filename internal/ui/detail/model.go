package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/attachment"
	"github.com/nhle/lnemail-client/internal/inbox"
	"github.com/nhle/lnemail-client/internal/keys"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/theme"
)

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// DownloadMsg asks the parent to save one attachment.
type DownloadMsg struct {
	Index int
}

// PreviewMsg asks the parent to preview one attachment.
type PreviewMsg struct {
	Index int
}

// ExportMsg asks the parent to save the open email as an .eml file.
type ExportMsg struct{}

// Model is the email detail view: headers, body and attachment list, or
// an attachment preview when one is open.
type Model struct {
	email    *model.Email
	cursor   int
	preview  *attachment.PreviewResult
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, max(height-2, 1))
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			if m.preview != nil {
				m.ClosePreview()
				return m, nil
			}
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.NextAttachment):
			if n := m.attachmentCount(); n > 0 && m.preview == nil {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.Download):
			if idx, ok := m.currentAttachment(); ok {
				return m, func() tea.Msg { return DownloadMsg{Index: idx} }
			}
			return m, nil

		case key.Matches(msg, m.keys.Preview):
			if idx, ok := m.currentAttachment(); ok && m.preview == nil {
				return m, func() tea.Msg { return PreviewMsg{Index: idx} }
			}
			return m, nil

		case key.Matches(msg, m.keys.Export):
			if m.email != nil && m.preview == nil {
				return m, func() tea.Msg { return ExportMsg{} }
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		return m.centered("Loading email...")
	}
	if m.email == nil {
		return m.centered("No email selected")
	}
	return m.viewport.View()
}

func (m Model) centered(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// SetEmail shows e and resets the attachment cursor.
func (m *Model) SetEmail(e *model.Email) {
	m.email = e
	m.cursor = 0
	m.preview = nil
	m.loading = false
	m.refresh()
	m.viewport.GotoTop()
}

// Email returns the email on screen, or nil.
func (m Model) Email() *model.Email { return m.email }

// SetPreview replaces the body with an attachment preview.
func (m *Model) SetPreview(p *attachment.PreviewResult) {
	m.preview = p
	m.refresh()
	m.viewport.GotoTop()
}

// ClosePreview returns to the email body.
func (m *Model) ClosePreview() {
	m.preview = nil
	m.refresh()
	m.viewport.GotoTop()
}

// Previewing reports whether an attachment preview is open.
func (m Model) Previewing() bool { return m.preview != nil }

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 1)
	m.refresh()
}

func (m Model) attachmentCount() int {
	if m.email == nil {
		return 0
	}
	return len(m.email.Attachments)
}

func (m Model) currentAttachment() (int, bool) {
	if m.cursor < 0 || m.cursor >= m.attachmentCount() {
		return 0, false
	}
	return m.cursor, true
}

func (m *Model) refresh() {
	if m.preview != nil {
		m.viewport.SetContent(m.renderPreview())
		return
	}
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.email == nil {
		return ""
	}

	e := m.email
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(inbox.Subject(e.Subject)))
	sections = append(sections, "")

	sections = append(sections,
		field("From:", inbox.SenderOrUnknown(e.From)),
		field("Date:", inbox.FormatFullDate(e.Date, time.Now())),
	)
	if e.ID != "" {
		sections = append(sections, field("ID:", e.ID))
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	body := e.Body
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No content")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(m.width-2, 20)).Render(body))

	if len(e.Attachments) > 0 {
		sections = append(sections, "", separator, "")
		sections = append(sections, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(
			fmt.Sprintf("Attachments (%d)", len(e.Attachments)),
		))
		for i, a := range e.Attachments {
			sections = append(sections, m.renderAttachment(a, i))
		}
		sections = append(sections, "", theme.HelpStyle.Render("tab next · s save · p preview"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderAttachment(a model.Attachment, i int) string {
	name := attachment.DisplayName(a, i)
	line := fmt.Sprintf("%s %s %s",
		attachment.KindOf(name).Icon(),
		name,
		theme.DimmedStyle.Render(fmt.Sprintf("(%d KB)", attachment.SizeKB(a))),
	)
	if i == m.cursor {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (m Model) renderPreview() string {
	p := m.preview
	var sections []string

	sections = append(sections, theme.TitleStyle.Render("Preview: "+p.Filename))

	switch p.Kind {
	case attachment.PreviewImage:
		sections = append(sections,
			field("Type:", p.MIMEType),
			field("Size:", fmt.Sprintf("%d bytes", len(p.Data))),
		)
		if p.Width > 0 && p.Height > 0 {
			sections = append(sections, field("Dimensions:", fmt.Sprintf("%dx%d", p.Width, p.Height)))
		}
		sections = append(sections, "", theme.HelpStyle.Render("Images cannot be drawn in the terminal. Press s to save it."))
	default:
		sections = append(sections, lipgloss.NewStyle().Width(max(m.width-2, 20)).Render(p.Text))
	}

	sections = append(sections, "", theme.HelpStyle.Render("esc close preview"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s",
		theme.LabelStyle.Width(12).Render(label),
		theme.ValueStyle.Render(value),
	)
}
