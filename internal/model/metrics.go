package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout is the wire form of a month selector.
const MonthLayout = "2006-01"

// Filter narrows the statistics and export queries. Empty fields are omitted.
type Filter struct {
	StartDate string
	EndDate   string
	Category  string
}

// IsZero reports whether no filter field is set.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.StartDate) == "" &&
		strings.TrimSpace(f.EndDate) == "" &&
		strings.TrimSpace(f.Category) == ""
}

// Validate checks that any set date parses.
func (f Filter) Validate() error {
	if s := strings.TrimSpace(f.StartDate); s != "" {
		if _, err := ParseDate(s); err != nil {
			return &ValidationError{Field: "start_date", Message: "start date must be YYYY-MM-DD"}
		}
	}
	if s := strings.TrimSpace(f.EndDate); s != "" {
		if _, err := ParseDate(s); err != nil {
			return &ValidationError{Field: "end_date", Message: "end date must be YYYY-MM-DD"}
		}
	}
	return nil
}

// Query encodes the set fields as start_date, end_date and category.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(f.StartDate); s != "" {
		q.Set("start_date", s)
	}
	if s := strings.TrimSpace(f.EndDate); s != "" {
		q.Set("end_date", s)
	}
	if s := strings.TrimSpace(f.Category); s != "" {
		q.Set("category", s)
	}
	return q
}

// CategoryTotal is the spend of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthTotal is the spend of one calendar month, keyed "YYYY-MM".
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// Stats is the aggregate returned by the statistics endpoint.
type Stats struct {
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	CategoryTotals []CategoryTotal `json:"categoryTotals"`
	MonthlyTrend   []MonthTotal    `json:"monthlyTrend,omitempty"`
}

// Monthly is the summary of one selected month.
type Monthly struct {
	Month    string          `json:"month"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Expenses []Expense       `json:"expenses"`
}

// MonthKey formats t as the month selector "YYYY-MM".
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthStart returns the first day of t's month in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
