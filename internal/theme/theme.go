package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cvconnect/interviewsync/internal/channel"
	"github.com/cvconnect/interviewsync/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
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

// PanelStyle wraps a bordered content panel.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// InfoStyle is used for the non-alarming informational messages queued by
// the sync engine.
var InfoStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

// UnreadStyle marks unread notifications.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow)

// StatusStyle returns a color-coded style for the given interview status.
func StatusStyle(status model.InterviewStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.StatusScheduled:
		return base.Foreground(ColorBlue)
	case model.StatusAccepted, model.StatusConfirmed:
		return base.Foreground(ColorGreen)
	case model.StatusInProgress:
		return base.Foreground(ColorYellow)
	case model.StatusCompleted:
		return base.Foreground(ColorGray)
	case model.StatusDeclined, model.StatusCancelled:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// ConnectionStyle returns a color-coded style for the channel state.
func ConnectionStyle(state channel.State) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch state {
	case channel.StateConnected:
		return base.Foreground(ColorGreen)
	case channel.StateConnecting:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorRed)
	}
}
