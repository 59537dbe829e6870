package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/session"
)

// autoConnectResultMsg is sent after the saved token has been tried.
type autoConnectResultMsg struct{ err error }

// connectResultMsg is sent after a typed token has been validated.
type connectResultMsg struct{ err error }

// healthResultMsg carries a health check run on request. Background checks
// arrive as session events instead.
type healthResultMsg struct {
	result model.HealthResult
	manual bool
}

// request wraps a blocking session call in a tea.Cmd bounded by the
// request timeout.
func (m Model) request(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

// autoConnect validates the token saved by a previous run, if any.
func (m Model) autoConnect() tea.Cmd {
	s := m.session
	return m.request(func(ctx context.Context) tea.Msg {
		return autoConnectResultMsg{err: s.AutoConnect(ctx)}
	})
}

func (m *Model) handleAutoConnect(msg autoConnectResultMsg) tea.Cmd {
	switch {
	case msg.err == nil:
		m.log.Info().Msg("Reconnected with saved token")
	case errors.Is(msg.err, session.ErrNoStoredToken), errors.Is(msg.err, session.ErrSuperseded):
		// First run, the user disconnected last time, or a typed token
		// won the race.
	default:
		m.log.Info().Err(msg.err).Msg("Saved token no longer valid")
		m.addNotice(model.NoticeWarning, session.UserMessage(msg.err))
	}
	return nil
}

// connect validates a token typed into the connect screen.
func (m Model) connect(token string) tea.Cmd {
	s := m.session
	return m.request(func(ctx context.Context) tea.Msg {
		return connectResultMsg{err: s.Connect(ctx, token)}
	})
}

func (m *Model) handleConnect(msg connectResultMsg) tea.Cmd {
	if msg.err == nil || errors.Is(msg.err, session.ErrSuperseded) {
		return nil
	}

	text := session.UserMessage(msg.err)
	m.connectView.SetError(text)
	if session.IsValidationError(msg.err) {
		m.addNotice(model.NoticeWarning, text)
	} else {
		m.addNotice(model.NoticeError, "Connection failed: "+text)
	}
	return m.connectView.Start()
}

// checkHealth probes the API. manual checks report their outcome as a
// notice.
func (m Model) checkHealth(manual bool) tea.Cmd {
	s := m.session
	return m.request(func(ctx context.Context) tea.Msg {
		return healthResultMsg{result: s.CheckHealth(ctx), manual: manual}
	})
}

func (m *Model) handleHealth(msg healthResultMsg) {
	res := msg.result
	m.connectView.SetHealth(&res)
	m.healthView.SetResult(&res)

	if !msg.manual {
		return
	}
	if res.Healthy() {
		m.addNotice(model.NoticeSuccess, "API health check completed successfully")
		return
	}
	m.addNotice(model.NoticeError, "Health check failed: "+res.Error)
}
