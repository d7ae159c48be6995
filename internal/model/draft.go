package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError reports a locally rejected field. No request is sent for
// input that fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Draft holds user-entered expense fields before they are coerced.
type Draft struct {
	Amount      string
	Category    string
	Date        string
	Description string
}

// DraftFrom pre-fills a draft from an existing expense for editing.
func DraftFrom(e Expense) Draft {
	return Draft{
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        e.Date.String(),
		Description: e.Description,
	}
}

// Validate checks required fields and coerces the amount.
func (d Draft) Validate() error {
	_, err := d.Payload()
	return err
}

// Payload validates the draft and builds the request body.
func (d Draft) Payload() (ExpensePayload, error) {
	amount := strings.TrimSpace(d.Amount)
	category := strings.TrimSpace(d.Category)
	date := strings.TrimSpace(d.Date)

	if category == "" {
		return ExpensePayload{}, &ValidationError{Field: "category", Message: "category is required"}
	}
	if date == "" {
		return ExpensePayload{}, &ValidationError{Field: "date", Message: "date is required"}
	}

	value, err := ParseAmount(amount)
	if err != nil {
		return ExpensePayload{}, err
	}

	parsed, err := ParseDate(date)
	if err != nil {
		return ExpensePayload{}, &ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}

	return ExpensePayload{
		Amount:      json.Number(value.String()),
		Category:    category,
		Date:        parsed.String(),
		Description: strings.TrimSpace(d.Description),
	}, nil
}

// ParseAmount coerces user input to a non-negative decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, &ValidationError{Field: "amount", Message: "amount is required"}
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Field: "amount", Message: "amount must be a number"}
	}
	if value.IsNegative() {
		return decimal.Decimal{}, &ValidationError{Field: "amount", Message: "amount must not be negative"}
	}
	return value, nil
}
