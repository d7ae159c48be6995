package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/tui/components"
	"github.com/theirongolddev/exptrack/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

const overviewDays = 30

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	sum := a.dash.Summary()
	var b strings.Builder

	top := sum.TopCategory
	if top == "" {
		top = "-"
	}
	predicted := "-"
	if a.dash.Loaded(model.ViewPredict) {
		predicted = cli.FormatMoney(sum.Predicted)
	}
	monthLabel := sum.MonthLabel
	if monthLabel == "" {
		monthLabel = a.dash.Month().Format("January 2006")
	}

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Total Spent", Value: cli.FormatMoney(sum.TotalSpent), Note: filterNote(a.dash.Filter()), Color: t.GreenBright},
		{Label: "Entries", Value: cli.FormatNumber(int64(sum.Entries)), Note: fmt.Sprintf("%d categories", sum.Categories)},
		{Label: monthLabel, Value: cli.FormatMoney(sum.MonthTotal), Note: fmt.Sprintf("%d expenses", sum.MonthCount)},
		{Label: "Top Category", Value: top},
		{Label: "Predicted", Value: predicted, Note: sum.SpenderType},
	}, cw))
	b.WriteString("\n")

	// Daily spend over the last month, from the ledger
	expenses := a.dash.Expenses()
	if len(expenses) > 0 {
		now := a.now()
		daily := dashboard.DailyTotals(expenses, now, overviewDays)
		points := make([]components.ChartPoint, len(daily))
		for i, d := range daily {
			day := now.AddDate(0, 0, i-(len(daily)-1))
			label := fmt.Sprintf("%d", day.Day())
			if i == 0 || day.Day() == 1 {
				label = day.Format("Jan 2")
			}
			points[i] = components.ChartPoint{Label: label, Value: d.InexactFloat64()}
		}
		b.WriteString(components.ContentCard(
			fmt.Sprintf("Daily Spend (%dd)", overviewDays),
			components.TrendChart(points, t.Blue, components.CardInnerWidth(cw), 6),
			cw,
		))
		b.WriteString("\n")
	}

	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		b.WriteString(a.renderRecentCard(cw))
		b.WriteString("\n")
		b.WriteString(a.renderPredictionCard(cw))
		return b.String()
	}
	b.WriteString(components.CardRow([]string{
		a.renderRecentCard(halves[0]),
		a.renderPredictionCard(halves[1]),
	}))
	return b.String()
}

func (a App) renderRecentCard(w int) string {
	t := theme.Active
	recent, total := a.dash.Recent()
	if len(recent) == 0 {
		return a.emptyCard("Recent Expenses", model.ViewExpenses, w)
	}

	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	text := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	money := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	innerW := components.CardInnerWidth(w)
	amountW := 14
	dateW := 11
	catW := max(innerW-amountW-dateW-2, 6)

	var b strings.Builder
	for i, e := range recent {
		amount := cli.FormatMoney(e.Amount)
		b.WriteString(muted.Render(fmt.Sprintf("%-*s", dateW, cli.FormatDate(e.Date))))
		b.WriteString(space.Render(" "))
		b.WriteString(text.Render(fmt.Sprintf("%-*s", catW, cli.Truncate(expenseLabel(e), catW))))
		b.WriteString(space.Render(" "))
		b.WriteString(money.Render(fmt.Sprintf("%*s", amountW, amount)))
		if i < len(recent)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(muted.Render(fmt.Sprintf("%d shown of %d", len(recent), total)))

	return components.ContentCard("Recent Expenses", b.String(), w)
}

func (a App) renderPredictionCard(w int) string {
	t := theme.Active
	if !a.dash.Loaded(model.ViewPredict) {
		return a.emptyCard("Next Month", model.ViewPredict, w)
	}
	p := a.dash.Prediction()

	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	text := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	kind := lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface).Bold(true)

	var b strings.Builder
	b.WriteString(muted.Render("Predicted  "))
	b.WriteString(value.Render(cli.FormatMoney(p.PredictedAmount)))
	b.WriteString("\n")
	b.WriteString(muted.Render("Recent avg "))
	b.WriteString(text.Render(cli.FormatMoney(p.RecentAverage)))
	if p.SpenderType != "" {
		b.WriteString("\n")
		b.WriteString(muted.Render("Profile    "))
		b.WriteString(kind.Render(p.SpenderType))
	}
	if p.Suggestion != "" {
		b.WriteString("\n\n")
		wrapped := lipgloss.NewStyle().
			Foreground(t.TextMuted).
			Background(t.Surface).
			Width(components.CardInnerWidth(w)).
			Render(p.Suggestion)
		b.WriteString(wrapped)
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("[p] refresh"))

	return components.ContentCard("Next Month", b.String(), w)
}

func expenseLabel(e model.Expense) string {
	if e.Description == "" {
		return e.Category
	}
	return e.Category + " · " + e.Description
}

func filterNote(f model.Filter) string {
	if f.IsZero() {
		return "all time"
	}
	var parts []string
	switch {
	case f.StartDate != "" && f.EndDate != "":
		parts = append(parts, f.StartDate+" → "+f.EndDate)
	case f.StartDate != "":
		parts = append(parts, "from "+f.StartDate)
	case f.EndDate != "":
		parts = append(parts, "until "+f.EndDate)
	}
	if f.Category != "" {
		parts = append(parts, f.Category)
	}
	return strings.Join(parts, " · ")
}
