package tui

import (
	"errors"
	"strings"

	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/session"

	"github.com/charmbracelet/huh"
)

type formKind int

const (
	formNone formKind = iota
	formAuth
	formExpense
	formDelete
	formFilter
)

const (
	modeLogin  = "login"
	modeSignup = "signup"
)

// authValues is bound to the login/signup form. It lives on the heap so
// the form keeps writing to it across App copies.
type authValues struct {
	mode     string
	email    string
	username string
	password string
	captcha  string
}

// expenseValues is bound to the add/edit form.
type expenseValues struct {
	id    int64 // 0 for a new expense
	draft model.Draft
}

type deleteValues struct {
	id      int64
	label   string
	confirm bool
}

type filterValues struct {
	start    string
	end      string
	category string
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func optionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := model.ParseDate(s); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

// newAuthForm builds the login/signup form. The signup group, which holds
// the username and the captcha row, is hidden in login mode.
func newAuthForm(v *authValues, challenge session.Challenge) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Expense Tracker").
				Description("Log in or create an account").
				Options(
					huh.NewOption("Login", modeLogin),
					huh.NewOption("Sign up", modeSignup),
				).
				Value(&v.mode),
			huh.NewInput().
				Title("Email").
				Value(&v.email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&v.password).
				Validate(required("password")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&v.username).
				Validate(required("username")),
			huh.NewInput().
				Title(challenge.Question()).
				Description("Answer to create your account").
				Value(&v.captcha).
				Validate(required("captcha answer")),
		).WithHideFunc(func() bool { return v.mode != modeSignup }),
	).WithShowHelp(true)
}

// newExpenseForm builds the add/edit form, pre-filled from v.draft.
func newExpenseForm(v *expenseValues, categories []string) *huh.Form {
	title := "New expense"
	if v.id != 0 {
		title = "Edit expense"
	}

	category := huh.NewInput().
		Title("Category").
		Value(&v.draft.Category).
		Validate(required("category"))
	if len(categories) > 0 {
		category = category.Suggestions(categories)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount").
				Description(title).
				Placeholder("0.00").
				Value(&v.draft.Amount).
				Validate(func(s string) error {
					_, err := model.ParseAmount(s)
					return err
				}),
			category,
			huh.NewInput().
				Title("Date").
				Placeholder(model.DateLayout).
				Value(&v.draft.Date).
				Validate(func(s string) error {
					if err := required("date")(s); err != nil {
						return err
					}
					return optionalDate(s)
				}),
			huh.NewText().
				Title("Description").
				Lines(2).
				Value(&v.draft.Description),
		),
	).WithShowHelp(true)
}

// newDeleteForm asks before removing an expense.
func newDeleteForm(v *deleteValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete this expense?").
				Description(v.label).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&v.confirm),
		),
	).WithShowHelp(true)
}

// newFilterForm edits the statistics filter. Empty fields are unbounded.
func newFilterForm(v *filterValues, categories []string) *huh.Form {
	category := huh.NewInput().
		Title("Category").
		Placeholder("all").
		Value(&v.category)
	if len(categories) > 0 {
		category = category.Suggestions(categories)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("From").
				Placeholder(model.DateLayout).
				Value(&v.start).
				Validate(optionalDate),
			huh.NewInput().
				Title("To").
				Placeholder(model.DateLayout).
				Value(&v.end).
				Validate(optionalDate),
			category,
		),
	).WithShowHelp(true)
}

func (v filterValues) filter() model.Filter {
	return model.Filter{
		StartDate: strings.TrimSpace(v.start),
		EndDate:   strings.TrimSpace(v.end),
		Category:  strings.TrimSpace(v.category),
	}
}
