package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/exptrack/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Share is one category's portion of the total spend.
type Share struct {
	Category string
	Total    decimal.Decimal
	Percent  float64
}

// CategoryShares computes each category's percentage of stats.TotalSpent,
// largest first. A zero total yields zero percentages.
func CategoryShares(stats model.Stats) []Share {
	shares := make([]Share, 0, len(stats.CategoryTotals))
	for _, ct := range stats.CategoryTotals {
		s := Share{Category: ct.Category, Total: ct.Total}
		if !stats.TotalSpent.IsZero() {
			s.Percent = ct.Total.Div(stats.TotalSpent).Mul(hundred).InexactFloat64()
		}
		shares = append(shares, s)
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Total.GreaterThan(shares[j].Total)
	})
	return shares
}

// Summary is the headline figures shown on the overview.
type Summary struct {
	Entries       int
	TotalSpent    decimal.Decimal
	Categories    int
	TopCategory   string
	MonthLabel    string
	MonthTotal    decimal.Decimal
	MonthCount    int
	Predicted     decimal.Decimal
	RecentAverage decimal.Decimal
	SpenderType   string
	Suggestion    string
}

// Summary assembles the overview figures from the current views.
func (d *Dashboard) Summary() Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Summary{
		Entries:       len(d.expenses),
		TotalSpent:    d.stats.TotalSpent,
		Categories:    len(d.stats.CategoryTotals),
		MonthLabel:    d.monthly.Month,
		MonthTotal:    d.monthly.Total,
		MonthCount:    d.monthly.Count,
		Predicted:     d.prediction.PredictedAmount,
		RecentAverage: d.prediction.RecentAverage,
		SpenderType:   d.prediction.SpenderType,
		Suggestion:    d.prediction.Suggestion,
	}
	if shares := CategoryShares(d.stats); len(shares) > 0 {
		s.TopCategory = shares[0].Category
	}
	return s
}

// DailyTotals sums expenses per calendar day over the n days ending at
// until, oldest first. Days without spend are zero.
func DailyTotals(expenses []model.Expense, until time.Time, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	end := model.NewDate(until)
	start := end.AddDate(0, 0, -(n - 1))

	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	for _, e := range expenses {
		if e.Date.IsZero() || e.Date.Before(start) || e.Date.After(end.Time) {
			continue
		}
		idx := int(e.Date.Sub(start).Hours() / 24)
		if idx >= 0 && idx < n {
			out[idx] = out[idx].Add(e.Amount)
		}
	}
	return out
}

// Categories returns the distinct categories in the ledger, sorted.
func Categories(expenses []model.Expense) []string {
	seen := make(map[string]struct{})
	for _, e := range expenses {
		if e.Category != "" {
			seen[e.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
