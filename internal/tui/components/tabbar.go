package components

import (
	"strings"

	"github.com/theirongolddev/exptrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab is one entry of the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // index of the shortcut letter in Name, -1 if absent
}

// Tab indexes.
const (
	TabOverview = iota
	TabLedger
	TabStats
	TabMonthly
	TabSettings
)

// Tabs lists the dashboard tabs in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Ledger", Key: 'l', KeyPos: 0},
	{Name: "Stats", Key: 's', KeyPos: 0},
	{Name: "Monthly", Key: 'm', KeyPos: 0},
	{Name: "Settings", Key: 'x', KeyPos: -1},
}

const tabGap = 2

// TabVisualWidth returns the rendered cell width of a tab label.
func TabVisualWidth(tab Tab, active bool) int {
	if active {
		return lipgloss.Width(tab.Name)
	}
	// inactive tabs gain "[" and "]" around the key, or "[k]" appended
	if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
		return lipgloss.Width(tab.Name) + 2
	}
	return lipgloss.Width(tab.Name) + 3
}

// TabAtX maps a column of the tab bar to a tab index, or -1.
func TabAtX(x, activeIdx int) int {
	pos := 1 // leading space
	for i, tab := range Tabs {
		w := TabVisualWidth(tab, i == activeIdx)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + tabGap
	}
	return -1
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	bg := lipgloss.NewStyle().Background(t.Background)
	activeStyle := bg.Foreground(t.Accent).Bold(true).Underline(true)
	inactiveStyle := bg.Foreground(t.TextMuted)
	keyStyle := bg.Foreground(t.Accent).Bold(true)
	bracketStyle := bg.Foreground(t.TextDim)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
			continue
		}
		bracketed := bracketStyle.Render("[") + keyStyle.Render(string(tab.Key)) + bracketStyle.Render("]")
		if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
			parts = append(parts, inactiveStyle.Render(tab.Name[:tab.KeyPos])+
				bracketed+inactiveStyle.Render(tab.Name[tab.KeyPos+1:]))
		} else {
			parts = append(parts, inactiveStyle.Render(tab.Name)+bracketed)
		}
	}

	row := bg.Render(" ") + strings.Join(parts, bg.Render(strings.Repeat(" ", tabGap)))
	if w := lipgloss.Width(row); w < width {
		row += bg.Render(strings.Repeat(" ", width-w))
	}
	return row
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
