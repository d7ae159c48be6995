package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDraftPayloadRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		draft Draft
		field string
	}{
		{"empty amount", Draft{Category: "Food", Date: "2024-01-10"}, "amount"},
		{"blank amount", Draft{Amount: "   ", Category: "Food", Date: "2024-01-10"}, "amount"},
		{"empty category", Draft{Amount: "12.5", Date: "2024-01-10"}, "category"},
		{"empty date", Draft{Amount: "12.5", Category: "Food"}, "date"},
		{"not a number", Draft{Amount: "abc", Category: "Food", Date: "2024-01-10"}, "amount"},
		{"negative", Draft{Amount: "-1", Category: "Food", Date: "2024-01-10"}, "amount"},
		{"bad date", Draft{Amount: "1", Category: "Food", Date: "10/01/2024"}, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Errorf("Field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestDraftPayloadEncodesAmountAsNumber(t *testing.T) {
	d := Draft{Amount: " 12.50 ", Category: " Food ", Date: "2024-01-10", Description: "Lunch"}
	p, err := d.Payload()
	if err != nil {
		t.Fatalf("Payload() error: %v", err)
	}
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"amount":12.5,"category":"Food","date":"2024-01-10","description":"Lunch"}`
	if string(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestExpenseDecodesNumericStringsAndNumbers(t *testing.T) {
	raw := `[{"id":1,"user_id":7,"amount":12.5,"category":"Food","description":"","date":"2024-01-10"},
		{"id":2,"amount":"3.25","category":"Travel","description":"Bus","date":"2024-01-11T00:00:00Z"}]`
	var got []Expense
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got[0].Amount.String() != "12.5" || got[1].Amount.String() != "3.25" {
		t.Errorf("amounts = %s, %s", got[0].Amount, got[1].Amount)
	}
	if got[1].Date.String() != "2024-01-11" {
		t.Errorf("date = %s, want 2024-01-11", got[1].Date)
	}
}

func TestDraftFromRoundTrips(t *testing.T) {
	var e Expense
	if err := json.Unmarshal([]byte(`{"id":3,"amount":99,"category":"Rent","description":"Jan","date":"2024-01-01"}`), &e); err != nil {
		t.Fatal(err)
	}
	d := DraftFrom(e)
	if d.Amount != "99" || d.Category != "Rent" || d.Date != "2024-01-01" || d.Description != "Jan" {
		t.Errorf("DraftFrom = %+v", d)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("prefilled draft should validate: %v", err)
	}
}

func TestFilterQueryOmitsEmptyFields(t *testing.T) {
	cases := []struct {
		filter Filter
		want   string
	}{
		{Filter{}, ""},
		{Filter{Category: "Food"}, "category=Food"},
		{Filter{StartDate: "2024-01-01", EndDate: " "}, "start_date=2024-01-01"},
		{Filter{StartDate: "2024-01-01", EndDate: "2024-01-31", Category: "Food"}, "category=Food&end_date=2024-01-31&start_date=2024-01-01"},
	}
	for _, tc := range cases {
		if got := tc.filter.Query().Encode(); got != tc.want {
			t.Errorf("Query(%+v) = %q, want %q", tc.filter, got, tc.want)
		}
	}
	if !(Filter{EndDate: "  "}).IsZero() {
		t.Error("whitespace-only filter should be zero")
	}
}

func TestDateJSONNullIsZero(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`null`), &d); err != nil {
		t.Fatal(err)
	}
	if !d.IsZero() {
		t.Errorf("null date = %v, want zero", d)
	}
	out, _ := json.Marshal(Date{})
	if string(out) != "null" {
		t.Errorf("zero date marshals to %s", out)
	}
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC))
	if MonthKey(got) != "2024-03" || got.Day() != 1 {
		t.Errorf("MonthStart = %v", got)
	}
}
