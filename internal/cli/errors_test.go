package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/session"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		action string
		err    error
		want   string
	}{
		{"nil", "add expense", nil, ""},
		{"validation", "add expense", &model.ValidationError{Field: "amount", Message: "amount is required"}, "amount is required"},
		{"captcha", ActionSignup, session.ErrCaptchaMismatch, "Incorrect captcha answer. Please try again."},
		{"missing fields", ActionLogin, session.ErrMissingFields, "Please complete all fields."},
		{"not logged in", "fetch expenses", session.ErrNotLoggedIn, "Login to view your expenses."},
		{"cancelled", "delete expense", dashboard.ErrCancelled, "Cancelled."},
		{"expired", "fetch expenses", &api.Error{Status: 401, Message: "Unauthorized"}, SessionExpired},
		{"bad credentials", ActionLogin, &api.Error{Status: 401, Message: "Invalid credentials"}, "Invalid credentials"},
		{"server", "add expense", &api.Error{Status: 400, Message: "Amount must be positive"}, "Failed to add expense: Amount must be positive"},
		{"server no action", "", &api.Error{Status: 500, Message: "Request failed"}, "Request failed"},
		{"wrapped server", "delete expense", fmt.Errorf("api: delete: %w", &api.Error{Status: 404, Message: "Not found"}), "Failed to delete expense: Not found"},
		{"network", "fetch expenses", errors.New("dial tcp: connection refused"), "Failed to fetch expenses. Make sure the server is running."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.action, tt.err); got != tt.want {
				t.Errorf("ErrorMessage(%q) = %q, want %q", tt.action, got, tt.want)
			}
		})
	}
}
