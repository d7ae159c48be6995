package model

import "time"

// View names one cached dashboard payload.
type View string

const (
	ViewExpenses View = "expenses"
	ViewStats    View = "stats"
	ViewMonthly  View = "monthly"
	ViewPredict  View = "predict"
)

// AllViews lists every cached view in refresh order.
var AllViews = []View{ViewExpenses, ViewStats, ViewMonthly, ViewPredict}

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}

// Snapshot is the last successful payload of a view for a user.
type Snapshot struct {
	UserID    int64
	View      View
	Payload   []byte
	FetchedAt time.Time
	Stale     bool
}
