package inboxlist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/inbox"
	"github.com/nhle/lnemail-client/internal/keys"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/theme"
)

// OpenMsg asks the parent to open an email.
type OpenMsg struct {
	ID string
}

// ToggleMsg asks the parent to flip the selection of one email.
type ToggleMsg struct {
	ID string
}

// ToggleAllMsg asks the parent to flip the selection of the visible page.
type ToggleAllMsg struct{}

// PageMsg asks the parent to move Delta pages.
type PageMsg struct {
	Delta int
}

// DeleteMsg asks the parent to delete the selected emails.
type DeleteMsg struct{}

// Model is the inbox table: one line per email on the current page.
type Model struct {
	keys        *keys.KeyMap
	view        inbox.View
	account     *model.AccountInfo
	lastRefresh time.Time
	cursor      int
	confirm     bool
	width       int
	height      int
}

// New creates an empty inbox view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetView replaces the rendered page, keeping the cursor in range.
func (m *Model) SetView(v inbox.View) {
	m.view = v
	if m.cursor >= len(v.Rows) {
		m.cursor = max(len(v.Rows)-1, 0)
	}
}

// SetAccount sets the account shown above the table.
func (m *Model) SetAccount(a *model.AccountInfo, lastRefresh time.Time) {
	m.account = a
	m.lastRefresh = lastRefresh
}

// ResetCursor moves the cursor to the first row, used after a page change.
func (m *Model) ResetCursor() {
	m.cursor = 0
}

// Cursor returns the index of the highlighted row.
func (m Model) Cursor() int { return m.cursor }

// Confirming reports whether a delete confirmation is pending.
func (m Model) Confirming() bool { return m.confirm }

// Update handles key input for the inbox.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.confirm {
		m.confirm = false
		if keyMsg.String() == "y" || keyMsg.String() == "Y" {
			return m, func() tea.Msg { return DeleteMsg{} }
		}
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.view.Rows)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.NextPage):
		if m.view.Page.HasNext() {
			return m, func() tea.Msg { return PageMsg{Delta: 1} }
		}
	case key.Matches(keyMsg, m.keys.PrevPage):
		if m.view.Page.HasPrev() {
			return m, func() tea.Msg { return PageMsg{Delta: -1} }
		}
	case key.Matches(keyMsg, m.keys.Open):
		if row, ok := m.selectedRow(); ok {
			return m, func() tea.Msg { return OpenMsg{ID: row.ID} }
		}
	case key.Matches(keyMsg, m.keys.Toggle):
		if row, ok := m.selectedRow(); ok {
			return m, func() tea.Msg { return ToggleMsg{ID: row.ID} }
		}
	case key.Matches(keyMsg, m.keys.ToggleAll):
		if len(m.view.Rows) > 0 {
			return m, func() tea.Msg { return ToggleAllMsg{} }
		}
	case key.Matches(keyMsg, m.keys.Delete):
		if m.view.Selected > 0 {
			m.confirm = true
			return m, nil
		}
		return m, func() tea.Msg { return DeleteMsg{} }
	}
	return m, nil
}

func (m Model) selectedRow() (inbox.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return inbox.Row{}, false
	}
	return m.view.Rows[m.cursor], true
}

// View renders the inbox.
func (m Model) View() string {
	sections := []string{m.renderAccount(), m.renderToolbar()}

	if m.view.Empty() {
		sections = append(sections, m.renderEmptyState())
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	for i, row := range m.view.Rows {
		sections = append(sections, m.renderRow(row, i == m.cursor))
	}

	sections = append(sections, "", m.renderPager())
	if m.confirm {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorRed).Bold(true).Render(
			fmt.Sprintf("Delete %d selected email(s)? y/N", m.view.Selected),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderAccount() string {
	if m.account == nil {
		return ""
	}
	line := fmt.Sprintf("%s %s  %s",
		theme.LabelStyle.Render("Account:"),
		theme.ValueStyle.Render(m.account.EmailAddress),
		theme.DimmedStyle.Render(inbox.ExpiryText(m.account.ExpiresAt, time.Now())),
	)
	if !m.lastRefresh.IsZero() {
		line += theme.DimmedStyle.Render("  updated " + m.lastRefresh.Format("3:04:05 PM"))
	}
	return line
}

func (m Model) renderToolbar() string {
	box := checkbox(m.view.SelectAll)
	parts := []string{box + " Select all"}
	if m.view.Selected > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", m.view.Selected))
	}
	parts = append(parts, fmt.Sprintf("Total %d emails", m.view.Page.Total))
	if m.view.Unread > 0 {
		parts = append(parts, fmt.Sprintf("%d unread", m.view.Unread))
	}
	return theme.ListItemStyle.Render(theme.DimmedStyle.Render(strings.Join(parts, " · ")))
}

func (m Model) renderRow(row inbox.Row, isCursor bool) string {
	box := "[ ]"
	if row.Selected {
		box = "[x]"
	}

	marker := " "
	if row.Unread {
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("●")
	}

	clip := " "
	if row.HasAttachments {
		clip = "📎"
	}

	senderWidth := 22
	dateWidth := 10
	subjectWidth := max(m.width-senderWidth-dateWidth-16, 10)

	sender := truncate(row.Sender, senderWidth)
	subject := truncate(row.Subject, subjectWidth)
	if row.Unread {
		sender = theme.UnreadStyle.Render(sender)
		subject = theme.UnreadStyle.Render(subject)
	}

	line := fmt.Sprintf("%s %s %s %s %s %s",
		box,
		marker,
		lipgloss.NewStyle().Width(senderWidth).Render(sender),
		lipgloss.NewStyle().Width(subjectWidth).Render(subject),
		clip,
		theme.DimmedStyle.Width(dateWidth).Align(lipgloss.Right).Render(row.Date),
	)

	if isCursor {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (m Model) renderPager() string {
	p := m.view.Page
	return theme.ListItemStyle.Render(theme.DimmedStyle.Render(fmt.Sprintf(
		"Page %d of %d · showing %d-%d of %d",
		p.Current, max(p.TotalPages, 1), p.Start+1, p.End, p.Total,
	)))
}

// renderEmptyState shows guidance text when the inbox has no emails.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-4, 1)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	return style.Render("No emails found.\n\nPress n to compose a message.")
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func checkbox(st inbox.CheckState) string {
	switch st {
	case inbox.Checked:
		return "[x]"
	case inbox.Indeterminate:
		return "[-]"
	default:
		return "[ ]"
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
