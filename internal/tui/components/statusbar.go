package components

import (
	"strings"

	"github.com/theirongolddev/exptrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the status bar reports.
type StatusInfo struct {
	User        string
	Fresh       bool
	Refreshing  bool
	AutoRefresh bool
	Age         string // human-readable age of the displayed data
	Message     string
	Err         string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	bg := lipgloss.NewStyle().Background(t.SurfaceHover)
	muted := bg.Foreground(t.TextMuted)
	keyStyle := bg.Foreground(t.Accent)

	left := keyStyle.Render(" [?]") + muted.Render("help ") +
		keyStyle.Render("[r]") + muted.Render("efresh ") +
		keyStyle.Render("[q]") + muted.Render("uit")

	midText, midColor := info.Message, t.Green
	if info.Err != "" {
		midText, midColor = info.Err, t.Red
	}

	var right []string
	if info.User != "" {
		right = append(right, bg.Foreground(t.TextPrimary).Render(info.User))
	}
	switch {
	case info.Refreshing:
		right = append(right, bg.Foreground(t.Cyan).Render("syncing"))
	case info.Fresh:
		right = append(right, bg.Foreground(t.Green).Render("live"))
	default:
		right = append(right, bg.Foreground(t.Orange).Render("cached"))
	}
	if info.Age != "" {
		right = append(right, muted.Render(info.Age))
	}
	if info.AutoRefresh {
		right = append(right, muted.Render("auto"))
	}
	rightStr := strings.Join(right, muted.Render(" · ")) + bg.Render(" ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	if room := gap - 4; midText != "" && room >= 8 {
		left += bg.Render("  ") + bg.Foreground(midColor).Render(truncateRunes(midText, room))
		gap = width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	}

	return left + bg.Render(strings.Repeat(" ", max(gap, 1))) + rightStr
}
