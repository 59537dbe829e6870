package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lnemail-client/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for rows in the inbox.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the row under the cursor.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// UnreadStyle marks emails explicitly flagged as unread.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// DimmedStyle renders secondary text such as previews and dates.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// LabelStyle is used for field names in detail and payment panels.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ValueStyle is used for field values next to a LabelStyle.
var ValueStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

// TitleStyle is used for panel titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	MarginBottom(1)

// NoticeStyle returns a color-coded style for a notice level.
func NoticeStyle(level model.NoticeLevel) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch level {
	case model.NoticeSuccess:
		return base.Foreground(ColorGreen)
	case model.NoticeWarning:
		return base.Foreground(ColorYellow)
	case model.NoticeError:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorBlue)
	}
}

// HealthStyle colors the API status indicator.
func HealthStyle(healthy bool) lipgloss.Style {
	if healthy {
		return lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
}

// PaymentStyle colors an invoice status.
func PaymentStyle(st model.PaymentStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case st.Settled():
		return base.Foreground(ColorGreen)
	case st.Failed():
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorOrange)
	}
}
