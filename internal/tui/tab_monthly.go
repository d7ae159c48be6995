package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/tui/components"
	"github.com/theirongolddev/exptrack/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

func parseMonth(key string) (time.Time, error) {
	return time.ParseInLocation(model.MonthLayout, key, time.Local)
}

func (a App) updateMonthlyKey(key string) (tea.Model, tea.Cmd, bool) {
	d := a.dash
	var fn func(context.Context) error
	switch key {
	case "[":
		fn = func(ctx context.Context) error { return d.ShiftMonth(ctx, -1) }
	case "]":
		fn = func(ctx context.Context) error { return d.ShiftMonth(ctx, 1) }
	case "t":
		now := a.now()
		fn = func(ctx context.Context) error { return d.SelectMonth(ctx, now) }
	default:
		return a, nil, false
	}
	a.pending++
	return a, fetchCmd(d, "fetch monthly summary", false, fn), true
}

func (a App) renderMonthlyTab(cw int) string {
	t := theme.Active
	var b strings.Builder

	selected := a.dash.Month()
	pill := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Background)
	pillAccent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Background).Bold(true)
	b.WriteString(pill.Render(" Month: ") + pillAccent.Render(selected.Format("January 2006")) +
		pill.Render("   [ previous  ] next  [t]his month"))
	b.WriteString("\n")

	m := a.dash.Monthly()
	if !a.dash.Loaded(model.ViewMonthly) {
		b.WriteString(a.emptyCard("Monthly Summary", model.ViewMonthly, cw))
		return b.String()
	}

	label := m.Month
	if label == "" {
		label = selected.Format("January 2006")
	}
	avg := "-"
	if m.Count > 0 {
		avg = cli.FormatMoney(m.Total.Div(decimal.NewFromInt(int64(m.Count))))
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: label, Value: cli.FormatMoney(m.Total), Color: t.GreenBright},
		{Label: "Expenses", Value: cli.FormatNumber(int64(m.Count))},
		{Label: "Average", Value: avg, Note: "per expense"},
	}, cw))
	b.WriteString("\n")

	items := a.dash.MonthlyItems()
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(items) == 0 {
		b.WriteString(components.ContentCard("Expenses", muted.Render("No expenses this month."), cw))
		return b.String()
	}

	text := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	money := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	innerW := components.CardInnerWidth(cw)
	dateW, amountW := 11, 14
	labelW := max(innerW-dateW-amountW-2, 8)

	var rows strings.Builder
	for i, e := range items {
		rows.WriteString(muted.Render(fmt.Sprintf("%-*s", dateW, cli.FormatDate(e.Date))))
		rows.WriteString(space.Render(" "))
		rows.WriteString(text.Render(fmt.Sprintf("%-*s", labelW, cli.Truncate(expenseLabel(e), labelW))))
		rows.WriteString(space.Render(" "))
		rows.WriteString(money.Render(fmt.Sprintf("%*s", amountW, cli.FormatMoney(e.Amount))))
		if i < len(items)-1 {
			rows.WriteString("\n")
		}
	}
	if len(m.Expenses) > len(items) {
		rows.WriteString("\n")
		rows.WriteString(muted.Render(fmt.Sprintf("%d shown of %d", len(items), len(m.Expenses))))
	}
	title := fmt.Sprintf("Expenses (up to %d)", dashboard.MonthlyItemLimit)
	b.WriteString(components.ContentCard(title, rows.String(), cw))
	return b.String()
}
