package cli

import (
	"errors"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/session"
)

// SessionExpired is shown when the server rejects the stored token.
const SessionExpired = "Session expired. Please log in again."

// Actions whose 401 responses carry a credential message rather than an
// expired session.
const (
	ActionLogin  = "log in"
	ActionSignup = "sign up"
)

// ErrorMessage turns an operation error into the line shown to the user.
// action names what failed ("add expense", "fetch expenses") and is used
// for server and network failures.
func ErrorMessage(action string, err error) string {
	if err == nil {
		return ""
	}

	var verr *model.ValidationError
	var apiErr *api.Error
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, session.ErrCaptchaMismatch),
		errors.Is(err, session.ErrMissingFields):
		return err.Error()
	case errors.Is(err, session.ErrNotLoggedIn):
		return "Login to view your expenses."
	case errors.Is(err, dashboard.ErrCancelled):
		return "Cancelled."
	case errors.Is(err, api.ErrUnauthorized):
		if errors.As(err, &apiErr) && apiErr.Message != "" && (action == ActionLogin || action == ActionSignup) {
			return apiErr.Message
		}
		return SessionExpired
	case errors.As(err, &apiErr):
		if action == "" {
			return apiErr.Message
		}
		return "Failed to " + action + ": " + apiErr.Message
	}
	if action == "" {
		return "Request failed. Make sure the server is running."
	}
	return "Failed to " + action + ". Make sure the server is running."
}
