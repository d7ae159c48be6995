package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/tui/components"
	"github.com/theirongolddev/exptrack/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ledgerState tracks the ledger tab cursor and scroll offset.
type ledgerState struct {
	cursor int
	offset int
}

// ledgerChrome is the card border, title, header and footer lines around
// the rows.
const ledgerChrome = 6

// ledgerRows is how many expense rows fit in a content area of height h.
func ledgerRows(h int) int {
	return max(h-ledgerChrome, 3)
}

func (a *App) ledgerMove(delta int) {
	n := len(a.dash.Expenses())
	a.ledger.cursor = min(max(a.ledger.cursor+delta, 0), max(n-1, 0))

	// header and status bar take one line each
	rows := ledgerRows(a.height - 2)
	if a.ledger.cursor < a.ledger.offset {
		a.ledger.offset = a.ledger.cursor
	}
	if a.ledger.cursor >= a.ledger.offset+rows {
		a.ledger.offset = a.ledger.cursor - rows + 1
	}
}

func (a *App) clampLedgerCursor() {
	a.ledgerMove(0)
}

func (a App) selectedExpense() (model.Expense, bool) {
	expenses := a.dash.Expenses()
	if a.ledger.cursor < 0 || a.ledger.cursor >= len(expenses) {
		return model.Expense{}, false
	}
	return expenses[a.ledger.cursor], true
}

func (a App) updateLedgerKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		a.ledgerMove(1)
	case "k", "up":
		a.ledgerMove(-1)
	case "g":
		a.ledgerMove(-a.ledger.cursor)
	case "G":
		a.ledgerMove(len(a.dash.Expenses()))
	case "e", "enter":
		e, ok := a.selectedExpense()
		if !ok {
			return a, nil, true
		}
		m, cmd := a.openExpenseForm(e.ID)
		return m, cmd, true
	case "d":
		e, ok := a.selectedExpense()
		if !ok {
			return a, nil, true
		}
		m, cmd := a.openDeleteForm(e)
		return m, cmd, true
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) renderLedgerTab(cw, h int) string {
	t := theme.Active
	expenses := a.dash.Expenses()
	if len(expenses) == 0 {
		return a.emptyCard("Ledger", model.ViewExpenses, cw)
	}

	rowsH := ledgerRows(h)
	cursor := min(a.ledger.cursor, len(expenses)-1)
	offset := min(a.ledger.offset, cursor)
	if cursor >= offset+rowsH {
		offset = cursor - rowsH + 1
	}

	innerW := components.CardInnerWidth(cw)
	idW, dateW, amountW := 6, 11, 14
	catW := 16
	if a.isCompactLayout() {
		catW = 12
	}
	descW := max(innerW-idW-dateW-catW-amountW-4, 8)

	header := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	row := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	sel := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)

	format := func(id, date, cat, desc, amount string) string {
		return fmt.Sprintf("%-*s %-*s %-*s %-*s %*s",
			idW, id, dateW, date, catW, cli.Truncate(cat, catW), descW, cli.Truncate(desc, descW), amountW, amount)
	}

	var b strings.Builder
	b.WriteString(header.Render(format("ID", "Date", "Category", "Description", "Amount")))
	b.WriteString("\n")

	end := min(offset+rowsH, len(expenses))
	for i := offset; i < end; i++ {
		e := expenses[i]
		line := format(fmt.Sprintf("#%d", e.ID), cli.FormatDate(e.Date), e.Category, e.Description, cli.FormatMoney(e.Amount))
		if i == cursor {
			b.WriteString(sel.Render(line))
		} else {
			b.WriteString(row.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString(dim.Render(fmt.Sprintf("%d of %d  ·  [n]ew  [e]dit  [d]elete", cursor+1, len(expenses))))

	return components.ContentCard("Ledger", b.String(), cw)
}
