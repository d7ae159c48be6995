package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/tui/components"
	"github.com/theirongolddev/exptrack/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (a App) updateStatsKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "f":
		m, cmd := a.openFilterForm()
		return m, cmd, true
	case "c":
		if a.dash.Filter().IsZero() {
			return a, nil, true
		}
		a.pending++
		return a, fetchCmd(a.dash, "fetch statistics", false, a.dash.ResetFilter), true
	case "E":
		a.pending++
		return a, exportCmd(a.dash, a.dash.Filter(), a.exportDir()), true
	}
	return a, nil, false
}

func (a App) exportDir() string {
	if a.cfg.General.ExportDir != "" {
		return a.cfg.General.ExportDir
	}
	return "."
}

// exportCmd streams the CSV into a temporary file in dir, then renames it
// to the server-suggested filename.
func exportCmd(d *dashboard.Dashboard, f model.Filter, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := exportTo(context.Background(), d, f, dir)
		return exportMsg{dash: d, path: path, err: err}
	}
}

func exportTo(ctx context.Context, d *dashboard.Dashboard, f model.Filter, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".exptrack-export-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	name, err := d.Export(ctx, f, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("saving export: %w", err)
	}
	return path, nil
}

func (a App) renderStatsTab(cw int) string {
	t := theme.Active
	if !a.dash.Loaded(model.ViewStats) {
		return a.emptyCard("Statistics", model.ViewStats, cw)
	}
	stats := a.dash.Stats()
	shares := a.dash.Shares()
	var b strings.Builder

	// Filter pill
	pill := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Background)
	pillAccent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Background).Bold(true)
	b.WriteString(pill.Render(" Filter: ") + pillAccent.Render(filterNote(a.dash.Filter())) +
		pill.Render("   [f]ilter  [c]lear  [E]xport CSV"))
	b.WriteString("\n")

	top, topPct := "-", "-"
	if len(shares) > 0 {
		top = shares[0].Category
		topPct = cli.FormatShare(shares[0].Percent)
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Total Spent", Value: cli.FormatMoney(stats.TotalSpent), Color: t.GreenBright},
		{Label: "Categories", Value: cli.FormatNumber(int64(len(shares)))},
		{Label: "Largest", Value: top, Note: topPct},
	}, cw))
	b.WriteString("\n")

	if len(shares) == 0 {
		muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		b.WriteString(components.ContentCard("By Category", muted.Render("No expenses match this filter."), cw))
		return b.String()
	}

	innerW := components.CardInnerWidth(cw)
	labelW := 14
	amountW := 14
	barW := max(innerW-labelW-amountW-10, 8)

	var rows strings.Builder
	for i, s := range shares {
		rows.WriteString(components.ShareBar(s.Category, s.Percent, cli.FormatMoney(s.Total),
			t.CategoryColor(i), labelW, barW))
		if i < len(shares)-1 {
			rows.WriteString("\n")
		}
	}
	b.WriteString(components.ContentCard("By Category", rows.String(), cw))
	b.WriteString("\n")

	if len(stats.MonthlyTrend) > 0 {
		points := make([]components.ChartPoint, len(stats.MonthlyTrend))
		for i, m := range stats.MonthlyTrend {
			points[i] = components.ChartPoint{Label: monthLabel(m.Month), Value: m.Total.InexactFloat64()}
		}
		b.WriteString(components.ContentCard("Monthly Trend",
			components.TrendChart(points, t.Magenta, innerW, 8), cw))
	}
	return b.String()
}

// monthLabel shortens "2024-03" to "Mar".
func monthLabel(key string) string {
	if t, err := parseMonth(key); err == nil {
		return t.Format("Jan")
	}
	return key
}
