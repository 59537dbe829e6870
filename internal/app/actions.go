package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lnemail-client/internal/attachment"
	"github.com/nhle/lnemail-client/internal/export"
	"github.com/nhle/lnemail-client/internal/lnemail"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/session"
	"github.com/nhle/lnemail-client/internal/ui/command"
	"github.com/nhle/lnemail-client/internal/ui/compose"
)

// refreshResultMsg is sent after a manual inbox refresh.
type refreshResultMsg struct{ err error }

// openResultMsg is sent after an email has been loaded for the detail view.
type openResultMsg struct {
	id  string
	err error
}

// sendResultMsg is sent after the compose form has been submitted.
type sendResultMsg struct {
	res *model.SendResult
	err error
}

// deleteResultMsg is sent after a batch delete.
type deleteResultMsg struct {
	count int
	err   error
}

// fileResultMsg is sent after an attachment or .eml file was written.
type fileResultMsg struct {
	name    string
	path    string
	export  bool
	skipped []export.Skipped
	err     error
}

// previewResultMsg carries a decoded attachment preview.
type previewResultMsg struct {
	name   string
	result *attachment.PreviewResult
	err    error
}

func (m Model) refresh() tea.Cmd {
	s := m.session
	return m.request(func(ctx context.Context) tea.Msg {
		err := s.RefreshInbox(ctx)
		if errors.Is(err, session.ErrStaleRefresh) {
			err = nil
		}
		return refreshResultMsg{err: err}
	})
}

func (m Model) openEmail(id string) tea.Cmd {
	s := m.session
	return m.request(func(ctx context.Context) tea.Msg {
		return openResultMsg{id: id, err: s.OpenEmail(ctx, id)}
	})
}

func (m *Model) handleOpen(msg openResultMsg) tea.Cmd {
	if msg.err != nil {
		if errors.Is(msg.err, session.ErrEmailNotFound) {
			m.addNotice(model.NoticeError, "Email not found")
		} else {
			m.addNotice(model.NoticeError, "Failed to load email: "+session.UserMessage(msg.err))
		}
		m.detailView.SetLoading(false)
		m.setView(ViewInbox)
		return nil
	}

	snap := m.session.Snapshot()
	if m.currentView != ViewDetail || snap.OpenEmail == nil || snap.OpenEmail.ID != msg.id {
		// The user navigated away before the email arrived.
		return nil
	}
	m.snapshot = snap
	m.detailView.SetEmail(snap.OpenEmail)
	return nil
}

func (m Model) send(msg compose.SubmitMsg) tea.Cmd {
	s := m.session
	return m.request(func(ctx context.Context) tea.Msg {
		res, err := s.SendEmail(ctx, msg.Recipient, msg.Subject, msg.Body)
		return sendResultMsg{res: res, err: err}
	})
}

func (m *Model) handleSend(msg sendResultMsg) tea.Cmd {
	if msg.err == nil {
		m.setView(ViewInbox)
		return nil
	}

	var text string
	var sendErr *lnemail.SendError
	switch {
	case session.IsValidationError(msg.err):
		text = session.UserMessage(msg.err)
		m.addNotice(model.NoticeWarning, text)
	case errors.As(msg.err, &sendErr):
		text = "Failed to send email: " + sendErr.Err.Error()
		m.addNotice(model.NoticeError, text)
	default:
		text = "Failed to send email: " + session.UserMessage(msg.err)
		m.addNotice(model.NoticeError, text)
	}
	return m.composeView.Retry(text)
}

func (m Model) deleteSelected() tea.Cmd {
	s := m.session
	return m.request(func(ctx context.Context) tea.Msg {
		n, err := s.DeleteSelected(ctx)
		return deleteResultMsg{count: n, err: err}
	})
}

func (m *Model) handleDelete(msg deleteResultMsg) {
	switch {
	case msg.err == nil:
		m.addNotice(model.NoticeSuccess, fmt.Sprintf("Deleted %d email(s)", msg.count))
		m.syncInbox()
	case session.IsValidationError(msg.err):
		m.addNotice(model.NoticeWarning, session.UserMessage(msg.err))
	default:
		m.addNotice(model.NoticeError, msg.err.Error())
	}
}

// currentAttachment returns the attachment at index on the open email.
func (m Model) currentAttachment(index int) (model.Attachment, string, bool) {
	e := m.detailView.Email()
	if e == nil || index < 0 || index >= len(e.Attachments) {
		return model.Attachment{}, "", false
	}
	a := e.Attachments[index]
	return a, attachment.DisplayName(a, index), true
}

func (m Model) download(index int) tea.Cmd {
	a, name, ok := m.currentAttachment(index)
	if !ok {
		return nil
	}
	dir := m.cfg.DownloadsDir
	return func() tea.Msg {
		path, err := attachment.Save(dir, a, index)
		return fileResultMsg{name: name, path: path, err: err}
	}
}

func (m Model) preview(index int) tea.Cmd {
	a, name, ok := m.currentAttachment(index)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		res, err := attachment.Preview(a)
		return previewResultMsg{name: name, result: res, err: err}
	}
}

func (m Model) exportEmail() tea.Cmd {
	e := m.detailView.Email()
	if e == nil {
		return nil
	}
	email := *e
	dir := m.cfg.DownloadsDir
	recipient := ""
	if m.snapshot.Account != nil {
		recipient = m.snapshot.Account.EmailAddress
	}
	now := m.now()
	return func() tea.Msg {
		path, skipped, err := export.SaveEML(dir, email, recipient, now)
		return fileResultMsg{name: export.FileName(email), path: path, export: true, skipped: skipped, err: err}
	}
}

func (m *Model) handleFile(msg fileResultMsg) {
	switch {
	case errors.Is(msg.err, attachment.ErrNoContent):
		m.addNotice(model.NoticeError, "No content available for "+msg.name)
	case msg.err != nil && msg.export:
		m.addNotice(model.NoticeError, fmt.Sprintf("Failed to export %s: %v", msg.name, msg.err))
	case msg.err != nil:
		m.addNotice(model.NoticeError, fmt.Sprintf("Failed to download %s: %v", msg.name, msg.err))
	case msg.export:
		m.addNotice(model.NoticeSuccess, "Saved email to "+msg.path)
		for _, s := range msg.skipped {
			m.addNotice(model.NoticeWarning, fmt.Sprintf("Skipped attachment %s: %v", s.Filename, s.Err))
		}
	default:
		m.log.Info().Str("path", msg.path).Msg("Attachment saved")
		m.addNotice(model.NoticeSuccess, "Downloaded "+msg.name)
	}
}

func (m *Model) handlePreview(msg previewResultMsg) {
	switch {
	case msg.err == nil:
		if m.currentView == ViewDetail {
			m.detailView.SetPreview(msg.result)
		}
	case errors.Is(msg.err, attachment.ErrNoContent):
		m.addNotice(model.NoticeError, "No content available for "+msg.name)
	case errors.Is(msg.err, attachment.ErrPreviewUnavailable):
		m.addNotice(model.NoticeInfo, "Preview not available for this file type. Try downloading instead.")
	default:
		m.addNotice(model.NoticeError, fmt.Sprintf("Failed to preview %s: %v", msg.name, msg.err))
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(raw string) tea.Cmd {
	name, arg := command.Parse(raw)
	connected := m.session.Snapshot().Connected()

	switch name {
	case "quit", "q":
		return tea.Quit
	case "health":
		m.setView(ViewHealth)
		return nil
	}

	if !connected {
		m.addNotice(model.NoticeWarning, session.UserMessage(session.ErrNotConnected))
		return nil
	}

	switch name {
	case "refresh", "r":
		m.setView(ViewInbox)
		return m.refresh()
	case "compose", "new":
		return m.startCompose()
	case "select all":
		m.setView(ViewInbox)
		m.session.SetVisibleSelected(true)
		m.syncInbox()
	case "select none":
		m.setView(ViewInbox)
		m.session.SetVisibleSelected(false)
		m.syncInbox()
	case "delete":
		m.setView(ViewInbox)
		return m.deleteSelected()
	case "page":
		page, err := strconv.Atoi(arg)
		if err != nil {
			m.addNotice(model.NoticeWarning, "Usage: page <number>")
			return nil
		}
		m.setView(ViewInbox)
		m.session.SetPage(page)
		m.inboxView.ResetCursor()
		m.syncInbox()
	case "disconnect", "logout":
		m.session.Disconnect()
	default:
		m.addNotice(model.NoticeWarning, "Unknown command: "+raw)
	}
	return nil
}
