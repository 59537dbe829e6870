package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lnemail-client/internal/model"
)

// noticeTickMsg drives notice expiry.
type noticeTickMsg time.Time

func noticeTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return noticeTickMsg(t)
	})
}

// addNotice shows a notice raised by the UI itself.
func (m *Model) addNotice(level model.NoticeLevel, message string) {
	n := model.NewNotice(level, message)
	n.CreatedAt = m.now()
	m.pushNotice(n)
}

func (m *Model) pushNotice(n model.Notice) {
	m.notices = append(m.notices, n)
	m.resize()
}

// pruneNotices drops notices older than model.NoticeTTL.
func (m *Model) pruneNotices() {
	now := m.now()
	var kept []model.Notice
	for _, n := range m.notices {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	if len(kept) != len(m.notices) {
		m.notices = kept
		m.resize()
	}
}

// Notices returns the notices currently on screen.
func (m Model) Notices() []model.Notice {
	out := make([]model.Notice, len(m.notices))
	copy(out, m.notices)
	return out
}
