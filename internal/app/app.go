package app

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nhle/lnemail-client/internal/inbox"
	"github.com/nhle/lnemail-client/internal/keys"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/session"
	"github.com/nhle/lnemail-client/internal/ui"
	"github.com/nhle/lnemail-client/internal/ui/command"
	"github.com/nhle/lnemail-client/internal/ui/compose"
	"github.com/nhle/lnemail-client/internal/ui/connect"
	"github.com/nhle/lnemail-client/internal/ui/detail"
	"github.com/nhle/lnemail-client/internal/ui/health"
	helpview "github.com/nhle/lnemail-client/internal/ui/help"
	"github.com/nhle/lnemail-client/internal/ui/inboxlist"
	"github.com/nhle/lnemail-client/internal/ui/payment"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewConnect ViewState = iota
	ViewInbox
	ViewDetail
	ViewCompose
	ViewHealth
	ViewHelp
	ViewCommand
)

// Config holds what the root model needs besides the session.
type Config struct {
	DownloadsDir   string
	RequestTimeout time.Duration
}

// Model is the root Bubble Tea model that manages view routing, layout,
// notices, and access to the session controller.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	session      *session.Controller
	keys         *keys.KeyMap
	cfg          Config
	log          zerolog.Logger
	now          func() time.Time

	connectView connect.Model
	inboxView   inboxlist.Model
	detailView  detail.Model
	composeView compose.Model
	healthView  health.Model
	helpView    helpview.Model
	commandView command.Model

	snapshot session.State
	notices  []model.Notice
	ready    bool
}

// Option configures the root model.
type Option func(*Model)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Model) { m.log = log.With().Str("component", "ui").Logger() }
}

// WithClock overrides the time source used for notices.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New creates the root application model around a session controller.
func New(s *session.Controller, cfg Config, opts ...Option) Model {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	k := keys.DefaultKeyMap()

	m := Model{
		currentView: ViewConnect,
		session:     s,
		keys:        k,
		cfg:         cfg,
		log:         zerolog.Nop(),
		now:         time.Now,
		layout:      ui.NewLayout(80, 24),
		connectView: connect.New(80, 24),
		inboxView:   inboxlist.New(k, 80, 24),
		detailView:  detail.New(k, 80, 24),
		composeView: compose.New(80, 24),
		healthView:  health.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		snapshot:    s.Snapshot(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts listening for session events, tries the saved token, runs
// the first health check and starts the notice clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		session.WaitForEvent(m.session.Events()),
		m.connectView.Start(),
		m.autoConnect(),
		m.checkHealth(false),
		noticeTick(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case session.Event:
		cmd := m.handleEvent(msg)
		return m, tea.Batch(cmd, session.WaitForEvent(m.session.Events()))

	case noticeTickMsg:
		m.pruneNotices()
		return m, noticeTick()

	case autoConnectResultMsg:
		return m, m.handleAutoConnect(msg)

	case connectResultMsg:
		return m, m.handleConnect(msg)

	case refreshResultMsg:
		if msg.err != nil {
			m.addNotice(model.NoticeError, "Failed to load emails: "+session.UserMessage(msg.err))
		}
		return m, nil

	case openResultMsg:
		return m, m.handleOpen(msg)

	case sendResultMsg:
		return m, m.handleSend(msg)

	case deleteResultMsg:
		m.handleDelete(msg)
		return m, nil

	case healthResultMsg:
		m.handleHealth(msg)
		return m, nil

	case fileResultMsg:
		m.handleFile(msg)
		return m, nil

	case previewResultMsg:
		m.handlePreview(msg)
		return m, nil

	case connect.SubmitMsg:
		m.connectView.SetConnecting(true)
		return m, m.connect(msg.Token)

	case connect.QuitMsg:
		return m, tea.Quit

	case inboxlist.OpenMsg:
		m.detailView.SetLoading(true)
		m.setView(ViewDetail)
		return m, m.openEmail(msg.ID)

	case inboxlist.ToggleMsg:
		m.session.ToggleSelected(msg.ID)
		m.syncInbox()
		return m, nil

	case inboxlist.ToggleAllMsg:
		m.session.ToggleVisibleSelected()
		m.syncInbox()
		return m, nil

	case inboxlist.PageMsg:
		if msg.Delta > 0 {
			m.session.NextPage()
		} else {
			m.session.PrevPage()
		}
		m.inboxView.ResetCursor()
		m.syncInbox()
		return m, nil

	case inboxlist.DeleteMsg:
		return m, m.deleteSelected()

	case detail.BackMsg:
		m.setView(ViewInbox)
		return m, nil

	case detail.DownloadMsg:
		return m, m.download(msg.Index)

	case detail.PreviewMsg:
		return m, m.preview(msg.Index)

	case detail.ExportMsg:
		return m, m.exportEmail()

	case compose.SubmitMsg:
		return m, m.send(msg)

	case compose.CancelMsg:
		m.setView(ViewInbox)
		return m, nil

	case health.CheckMsg:
		m.healthView.SetChecking()
		return m, m.checkHealth(true)

	case health.BackMsg:
		m.setView(m.homeView())
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work regardless of the active view.
// Form views receive printable keys untouched.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	inForm := m.currentView == ViewConnect || m.currentView == ViewCompose || m.currentView == ViewCommand

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true

	case "q":
		if m.currentView == ViewInbox && !m.inboxView.Confirming() {
			return m, tea.Quit, true
		}

	case "?":
		if inForm {
			break
		}
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case ":":
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}
		if inForm {
			break
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case "esc":
		if m.currentView == ViewHelp || m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}
	}

	if m.currentView != ViewInbox || m.inboxView.Confirming() {
		return m, nil, false
	}

	switch msg.String() {
	case "r":
		return m, m.refresh(), true
	case "n":
		return m, m.startCompose(), true
	case "H":
		m.setView(ViewHealth)
		return m, nil, true
	case "x":
		if m.snapshot.Payment != nil {
			m.session.DismissPayment()
			return m, nil, true
		}
	case "ctrl+d":
		m.session.Disconnect()
		return m, nil, true
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewConnect:
		m.connectView, cmd = m.connectView.Update(msg)
	case ViewInbox:
		m.inboxView, cmd = m.inboxView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	case ViewHealth:
		m.healthView, cmd = m.healthView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// handleEvent applies a session event to the UI.
func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	switch ev.Kind {
	case session.EventNotice:
		if ev.Notice != nil {
			m.pushNotice(*ev.Notice)
		}
	case session.EventConnected:
		m.syncInbox()
		if m.currentView == ViewConnect {
			m.currentView = ViewInbox
		}
	case session.EventInboxRefreshed, session.EventPaymentUpdated:
		m.syncInbox()
	case session.EventHealthUpdated:
		m.snapshot = m.session.Snapshot()
		m.connectView.SetHealth(m.snapshot.Health)
		m.healthView.SetResult(m.snapshot.Health)
	case session.EventSessionEnded:
		m.snapshot = m.session.Snapshot()
		m.currentView = ViewConnect
		m.previousView = ViewConnect
		m.detailView.SetEmail(nil)
		return m.connectView.Start()
	}
	return nil
}

// syncInbox re-reads the session and re-renders the inbox page.
func (m *Model) syncInbox() {
	m.snapshot = m.session.Snapshot()
	m.inboxView.SetView(m.session.InboxPage())
	m.inboxView.SetAccount(m.snapshot.Account, m.snapshot.LastRefresh)
	m.resize()
}

// setView switches screens and tells the session, which only auto-refreshes
// while the inbox is visible.
func (m *Model) setView(v ViewState) {
	m.currentView = v
	switch v {
	case ViewInbox:
		m.session.SetView(session.ViewInbox)
		m.syncInbox()
	case ViewDetail:
		m.session.SetView(session.ViewDetail)
	case ViewCompose:
		m.session.SetView(session.ViewCompose)
	case ViewHealth:
		m.session.SetView(session.ViewHealth)
		m.healthView.SetResult(m.session.Snapshot().Health)
	}
}

// homeView is the inbox when connected and the connect screen otherwise.
func (m Model) homeView() ViewState {
	if m.session.Snapshot().Connected() {
		return ViewInbox
	}
	return ViewConnect
}

func (m *Model) startCompose() tea.Cmd {
	m.setView(ViewCompose)
	return m.composeView.Start()
}

// resize recomputes sub-view sizes after the window or the notice area
// changes.
func (m *Model) resize() {
	m.layout.SetNotices(len(m.notices))
	w := m.layout.ContentWidth()
	h := m.layout.ContentHeight()

	m.connectView.SetSize(w, h)
	m.inboxView.SetSize(w, max(h-m.paymentHeight(), 0))
	m.detailView.SetSize(w, h)
	m.composeView.SetSize(w, h)
	m.healthView.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
}

func (m Model) paymentHeight() int {
	if m.snapshot.Payment == nil {
		return 0
	}
	return lipgloss.Height(payment.View(m.snapshot.Payment, m.layout.ContentWidth()))
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.connectionStatus())
	content := m.renderContent()
	notices := m.layout.RenderNotices(m.notices)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, notices, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewConnect:
		return m.connectView.View()
	case ViewInbox:
		if m.snapshot.Payment != nil {
			return payment.View(m.snapshot.Payment, m.layout.ContentWidth()) + "\n" + m.inboxView.View()
		}
		return m.inboxView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewCompose:
		return m.composeView.View()
	case ViewHealth:
		return m.healthView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	title := "LNemail"
	if m.snapshot.Account != nil {
		title = fmt.Sprintf("LNemail · %s", m.snapshot.Account.EmailAddress)
	}
	if unread := inbox.UnreadCount(m.snapshot.Emails); unread > 0 {
		title = fmt.Sprintf("%s [%d unread]", title, unread)
	}
	return title
}

// connectionStatus returns a short string describing the session and the
// API health.
func (m Model) connectionStatus() string {
	status := m.snapshot.Phase.String()
	if h := m.snapshot.Health; h != nil {
		if h.Healthy() {
			status += " · API ok"
		} else {
			status += " · API down"
		}
	}
	return status
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewConnect:
		return "enter connect | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		if m.detailView.Previewing() {
			return "esc close preview | s save | j/k scroll"
		}
		return "esc back | tab attachment | s save | p preview | e export | j/k scroll"
	case ViewCompose:
		return "enter next/send | esc cancel"
	case ViewHealth:
		return "r check | esc back"
	default:
		hints := "q quit | ? help | n compose | space select | a page | d delete | h/l page | r refresh"
		if m.snapshot.Payment != nil {
			hints += " | x dismiss invoice"
		}
		return hints
	}
}
