package dashboard

import (
	"time"

	"github.com/theirongolddev/exptrack/internal/model"
)

// Expenses returns a copy of the full ledger, most recent first.
func (d *Dashboard) Expenses() []model.Expense {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.Expense(nil), d.expenses...)
}

// Recent returns at most RecentLimit expenses and the full count.
func (d *Dashboard) Recent() ([]model.Expense, int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := min(len(d.expenses), RecentLimit)
	return append([]model.Expense(nil), d.expenses[:n]...), len(d.expenses)
}

// Expense looks up one ledger entry by id.
func (d *Dashboard) Expense(id int64) (model.Expense, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.expenses {
		if e.ID == id {
			return e, true
		}
	}
	return model.Expense{}, false
}

// Stats returns the latest statistics.
func (d *Dashboard) Stats() model.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// Shares returns the category shares of the latest statistics.
func (d *Dashboard) Shares() []Share {
	return CategoryShares(d.Stats())
}

// Monthly returns the latest monthly summary.
func (d *Dashboard) Monthly() model.Monthly {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.monthly
}

// MonthlyItems returns at most MonthlyItemLimit expenses of the month.
func (d *Dashboard) MonthlyItems() []model.Expense {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := min(len(d.monthly.Expenses), MonthlyItemLimit)
	return append([]model.Expense(nil), d.monthly.Expenses[:n]...)
}

// Prediction returns the latest prediction.
func (d *Dashboard) Prediction() model.Prediction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.prediction
}

// Filter returns the statistics filter.
func (d *Dashboard) Filter() model.Filter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter
}

// Month returns the first day of the selected month.
func (d *Dashboard) Month() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.month
}

// MonthKey returns the selected month as "YYYY-MM".
func (d *Dashboard) MonthKey() string {
	return model.MonthKey(d.Month())
}

// Loaded reports whether view holds data, cached or fresh.
func (d *Dashboard) Loaded(view model.View) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded[view]
}

// Fresh reports whether view was fetched in this process.
func (d *Dashboard) Fresh(view model.View) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fresh[view]
}

// FetchedAt returns when view's data was fetched.
func (d *Dashboard) FetchedAt(view model.View) time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fetchedAt[view]
}

// Stale reports whether any loaded view is still showing cached data.
func (d *Dashboard) Stale() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for view, ok := range d.loaded {
		if ok && !d.fresh[view] {
			return true
		}
	}
	return false
}

// LastError returns the most recent fetch failure.
func (d *Dashboard) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// ClearError forgets the last fetch failure.
func (d *Dashboard) ClearError() {
	d.mu.Lock()
	d.lastErr = nil
	d.mu.Unlock()
}
