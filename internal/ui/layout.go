package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/theme"
)

// MaxNotices is how many notices are shown at once; older ones wait.
const MaxNotices = 3

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
	NoticeHeight    int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1; notices get no rows until
// SetNotices is called.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// SetNotices reserves one row per visible notice.
func (l *Layout) SetNotices(n int) {
	l.NoticeHeight = min(n, MaxNotices)
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, notices and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight-l.NoticeHeight, 0)
}

// RenderHeader renders the top bar with a title on the left and the
// connection status on the right.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderNotices renders the newest notices, one per line.
func (l Layout) RenderNotices(notices []model.Notice) string {
	if len(notices) > MaxNotices {
		notices = notices[len(notices)-MaxNotices:]
	}
	lines := make([]string, 0, len(notices))
	for _, n := range notices {
		lines = append(lines, theme.NoticeStyle(n.Level).
			MaxWidth(l.Width).
			Render(noticeIcon(n.Level)+" "+n.Message))
	}
	return strings.Join(lines, "\n")
}

func noticeIcon(level model.NoticeLevel) string {
	switch level {
	case model.NoticeSuccess:
		return "✓"
	case model.NoticeWarning:
		return "!"
	case model.NoticeError:
		return "✗"
	default:
		return "•"
	}
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, notices, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	notices string,
	statusBar string,
) string {
	parts := []string{header, content}
	if notices != "" {
		parts = append(parts, notices)
	}
	parts = append(parts, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
