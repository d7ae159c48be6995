package model

import "github.com/shopspring/decimal"

// Prediction is the server-computed next-month estimate. It is display only.
type Prediction struct {
	PredictedAmount decimal.Decimal `json:"predictedAmount"`
	SpenderType     string          `json:"spenderType"`
	Suggestion      string          `json:"suggestion"`
	RecentAverage   decimal.Decimal `json:"recentAverage"`
	DataPoints      int             `json:"dataPoints,omitempty"`
}
