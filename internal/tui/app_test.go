package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/config"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/session"
	"github.com/theirongolddev/exptrack/internal/store"
	"github.com/theirongolddev/exptrack/internal/tui/components"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

type fakeAuth struct {
	token string
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (model.Session, error) {
	return model.Session{Token: "tok", User: model.User{ID: 7, Email: email, Username: "asha"}}, nil
}

func (f *fakeAuth) Signup(_ context.Context, email, username, _ string) (model.Session, error) {
	return model.Session{Token: "tok", User: model.User{ID: 7, Email: email, Username: username}}, nil
}

func (f *fakeAuth) Me(context.Context) (model.User, error) {
	return model.User{ID: 7, Email: "asha@example.com", Username: "asha"}, nil
}

func (f *fakeAuth) SetToken(token string) { f.token = token }

type fakeLedger struct {
	expenses []model.Expense
	err      error
	statsErr error
	export   string

	// rejectList makes ListExpenses answer 401 after running the hook,
	// the way the API client reports an expired token.
	rejectList func()
}

func (f *fakeLedger) ListExpenses(context.Context) ([]model.Expense, error) {
	if f.rejectList != nil {
		f.rejectList()
		return nil, &api.Error{Status: 401, Message: "Invalid token"}
	}
	return f.expenses, f.err
}

func (f *fakeLedger) CreateExpense(_ context.Context, p model.ExpensePayload) (model.Expense, error) {
	if f.err != nil {
		return model.Expense{}, f.err
	}
	amount, _ := decimal.NewFromString(p.Amount.String())
	date, _ := model.ParseDate(p.Date)
	e := model.Expense{ID: int64(len(f.expenses) + 1), Amount: amount, Category: p.Category, Date: date}
	f.expenses = append([]model.Expense{e}, f.expenses...)
	return e, nil
}

func (f *fakeLedger) UpdateExpense(_ context.Context, id int64, _ model.ExpensePayload) (model.Expense, error) {
	return model.Expense{ID: id}, f.err
}

func (f *fakeLedger) DeleteExpense(context.Context, int64) error {
	return f.err
}

func (f *fakeLedger) Stats(context.Context, model.Filter) (model.Stats, error) {
	total := decimal.Zero
	byCat := map[string]decimal.Decimal{}
	for _, e := range f.expenses {
		total = total.Add(e.Amount)
		byCat[e.Category] = byCat[e.Category].Add(e.Amount)
	}
	s := model.Stats{TotalSpent: total}
	for c, v := range byCat {
		s.CategoryTotals = append(s.CategoryTotals, model.CategoryTotal{Category: c, Total: v})
	}
	if f.statsErr != nil {
		return model.Stats{}, f.statsErr
	}
	return s, f.err
}

func (f *fakeLedger) Monthly(_ context.Context, month string) (model.Monthly, error) {
	return model.Monthly{Month: "March 2024", Count: len(f.expenses), Expenses: f.expenses}, f.err
}

func (f *fakeLedger) Predict(context.Context) (model.Prediction, error) {
	return model.Prediction{PredictedAmount: decimal.NewFromInt(1200), SpenderType: "Moderate"}, f.err
}

func (f *fakeLedger) Export(_ context.Context, _ model.Filter, w io.Writer) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, err := io.WriteString(w, "id,amount\n1,250\n")
	return f.export, err
}

type harness struct {
	app    App
	mgr    *session.Manager
	ledger *fakeLedger
	saves  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ledger: &fakeLedger{
			export: "expenses.csv",
			expenses: []model.Expense{
				{ID: 2, Amount: decimal.NewFromInt(250), Category: "Food", Description: "Lunch", Date: model.NewDate(fixedNow)},
				{ID: 1, Amount: decimal.NewFromInt(900), Category: "Travel", Date: model.NewDate(fixedNow.AddDate(0, 0, -3))},
			},
		},
	}
	h.mgr = session.NewManager(&fakeAuth{}, store.NewMemoryCredentials(""))
	h.app = NewApp(Options{
		Config: config.DefaultConfig(),
		Auth:   h.mgr,
		NewDashboard: func() *dashboard.Dashboard {
			return dashboard.New(h.ledger, h.mgr, dashboard.WithClock(func() time.Time { return fixedNow }))
		},
		SaveConfig: func(config.Config) error {
			h.saves++
			return nil
		},
		Now: func() time.Time { return fixedNow },
	})
	h.app.width, h.app.height = 120, 40
	return h
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	m, cmd := h.app.Update(msg)
	app, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	h.app = app
	return cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// login establishes a session and runs the first full refresh.
func (h *harness) login(t *testing.T) {
	t.Helper()
	if _, err := h.mgr.Login(context.Background(), "asha@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cmd := h.send(t, resumeMsg{})
	if h.app.screen != screenMain {
		t.Fatalf("screen = %d, want main", h.app.screen)
	}
	if cmd == nil {
		t.Fatal("entering the dashboard should start a refresh")
	}
	h.send(t, cmd())
}

func TestResumeWithoutTokenShowsLoginForm(t *testing.T) {
	h := newHarness(t)
	h.send(t, resumeMsg{err: session.ErrNotLoggedIn})

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.app.form == nil || h.app.formKind != formAuth {
		t.Fatal("login form should be open")
	}
	if h.app.errMsg != "" {
		t.Errorf("missing token should not be an error, got %q", h.app.errMsg)
	}
}

func TestResumeFailureShowsMessage(t *testing.T) {
	h := newHarness(t)
	h.send(t, resumeMsg{err: errors.New("dial tcp: refused")})
	if !strings.Contains(h.app.errMsg, "Make sure the server is running") {
		t.Errorf("errMsg = %q", h.app.errMsg)
	}
}

func TestLoginThenRefreshLoadsViews(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	if h.app.pending != 0 {
		t.Errorf("pending = %d after refresh", h.app.pending)
	}
	if got := len(h.app.dash.Expenses()); got != 2 {
		t.Errorf("expenses = %d, want 2", got)
	}
	if h.mgr.State() != session.StateLoggedInFresh {
		t.Errorf("state = %v, want fresh", h.mgr.State())
	}
	if !h.app.statusInfo().Fresh {
		t.Error("status bar should report fresh data")
	}
	if h.app.lastRefresh != fixedNow {
		t.Errorf("lastRefresh = %v", h.app.lastRefresh)
	}
}

func TestAuthFailureReopensFormWithMessage(t *testing.T) {
	h := newHarness(t)
	h.send(t, resumeMsg{err: session.ErrNotLoggedIn})
	h.app.authVals.password = "secret"

	h.send(t, authMsg{mode: modeLogin, err: &api.Error{Status: 401, Message: "Invalid credentials"}})

	if h.app.errMsg != "Invalid credentials" {
		t.Errorf("errMsg = %q", h.app.errMsg)
	}
	if h.app.form == nil {
		t.Fatal("form should reopen")
	}
	if h.app.authVals.password != "" {
		t.Error("password should be cleared after a failed attempt")
	}
}

func TestUnauthorizedRefreshReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	old := h.app.dash

	h.ledger.err = &api.Error{Status: 401, Message: "Unauthorized"}
	cmd := h.send(t, key("r"))
	if cmd == nil {
		t.Fatal("r should start a refresh")
	}
	h.send(t, cmd())

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.app.errMsg != cli.SessionExpired {
		t.Errorf("errMsg = %q", h.app.errMsg)
	}
	if h.app.dash == old {
		t.Error("dashboard should be recreated after the session ends")
	}
	if len(h.app.dash.Expenses()) != 0 {
		t.Error("new dashboard should be empty")
	}
	if h.mgr.State() != session.StateLoggedOut {
		t.Errorf("state = %v, want logged out", h.mgr.State())
	}
}

func TestExpiredTokenDuringPostCreateRefreshReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.ledger.rejectList = h.mgr.HandleUnauthorized

	h.app.expenseVals = &expenseValues{draft: model.Draft{Amount: "40", Category: "Books", Date: "2024-03-14"}}
	h.app.formKind = formExpense
	m, cmd := h.app.submitForm()
	h.app = m.(App)
	if cmd == nil {
		t.Fatal("submit should run the mutation")
	}
	h.send(t, cmd())

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.app.errMsg != cli.SessionExpired {
		t.Errorf("errMsg = %q", h.app.errMsg)
	}
	if h.app.status == "Expense added." {
		t.Error("success flash shown after the session ended")
	}
	if h.mgr.State() != session.StateLoggedOut {
		t.Errorf("state = %v, want logged out", h.mgr.State())
	}
}

func TestUnauthorizedBehindServerErrorReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.ledger.rejectList = h.mgr.HandleUnauthorized
	h.ledger.statsErr = &api.Error{Status: 500, Message: "Internal error"}

	cmd := h.send(t, key("r"))
	if cmd == nil {
		t.Fatal("r should start a refresh")
	}
	h.send(t, cmd())

	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.app.errMsg != cli.SessionExpired {
		t.Errorf("errMsg = %q", h.app.errMsg)
	}
}

func TestResultsForOldDashboardAreDropped(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	old := h.app.dash

	h.send(t, key("L"))
	if h.app.screen != screenLogin {
		t.Fatalf("screen = %d, want login", h.app.screen)
	}
	if h.app.status != "Logged out." {
		t.Errorf("status = %q", h.app.status)
	}

	h.send(t, refreshMsg{dash: old, full: true, err: errors.New("boom")})
	if h.app.errMsg != "" {
		t.Errorf("stale result should be ignored, errMsg = %q", h.app.errMsg)
	}
}

func TestTabNavigation(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.send(t, key("s"))
	if h.app.activeTab != components.TabStats {
		t.Errorf("s -> tab %d", h.app.activeTab)
	}
	h.send(t, key("right"))
	if h.app.activeTab != components.TabMonthly {
		t.Errorf("right -> tab %d", h.app.activeTab)
	}
	h.send(t, key("x"))
	h.send(t, key("right"))
	if h.app.activeTab != components.TabOverview {
		t.Errorf("right from settings should wrap, got %d", h.app.activeTab)
	}
	h.send(t, key("left"))
	if h.app.activeTab != components.TabSettings {
		t.Errorf("left from overview should wrap, got %d", h.app.activeTab)
	}
}

func TestLedgerCursorAndForms(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.send(t, key("l"))

	h.send(t, key("j"))
	h.send(t, key("j"))
	if h.app.ledger.cursor != 1 {
		t.Errorf("cursor = %d, want clamped to 1", h.app.ledger.cursor)
	}

	h.send(t, key("e"))
	if h.app.formKind != formExpense {
		t.Fatalf("formKind = %d, want expense", h.app.formKind)
	}
	if h.app.expenseVals.id != 1 || h.app.expenseVals.draft.Category != "Travel" {
		t.Errorf("edit draft = %+v", h.app.expenseVals)
	}

	h.send(t, key("esc"))
	if h.app.form != nil {
		t.Fatal("esc should close the form")
	}

	h.send(t, key("d"))
	if h.app.formKind != formDelete || h.app.deleteVals.id != 1 {
		t.Fatalf("delete form = %d %+v", h.app.formKind, h.app.deleteVals)
	}
}

func TestNewExpenseDefaultsToToday(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.send(t, key("n"))
	if h.app.formKind != formExpense {
		t.Fatalf("formKind = %d", h.app.formKind)
	}
	if h.app.expenseVals.id != 0 || h.app.expenseVals.draft.Date != "2024-03-15" {
		t.Errorf("new draft = %+v", h.app.expenseVals.draft)
	}
}

func TestSubmittedExpenseIsCreated(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.app.expenseVals = &expenseValues{draft: model.Draft{Amount: "40", Category: "Books", Date: "2024-03-14"}}
	h.app.formKind = formExpense
	m, cmd := h.app.submitForm()
	h.app = m.(App)
	if cmd == nil {
		t.Fatal("submit should run the mutation")
	}
	h.send(t, cmd())

	if h.app.status != "Expense added." {
		t.Errorf("status = %q, err = %q", h.app.status, h.app.errMsg)
	}
	if got := len(h.app.dash.Expenses()); got != 3 {
		t.Errorf("expenses = %d, want 3 after refresh", got)
	}
}

func TestInvalidDraftShowsValidationMessage(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.app.expenseVals = &expenseValues{draft: model.Draft{Amount: "-5", Category: "Books", Date: "2024-03-14"}}
	h.app.formKind = formExpense
	m, cmd := h.app.submitForm()
	h.app = m.(App)
	h.send(t, cmd())

	if h.app.errMsg != "amount must not be negative" {
		t.Errorf("errMsg = %q", h.app.errMsg)
	}
}

func TestCancelledDeleteFlashes(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.app.pending = 1
	h.send(t, mutationMsg{dash: h.app.dash, action: "delete expense", err: dashboard.ErrCancelled})
	if h.app.status != "Cancelled." || h.app.errMsg != "" {
		t.Errorf("status = %q, errMsg = %q", h.app.status, h.app.errMsg)
	}
}

func TestAutoRefreshOnTick(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.send(t, key("R"))
	if !h.app.autoRefresh || h.saves != 1 {
		t.Fatalf("autoRefresh = %v saves = %d", h.app.autoRefresh, h.saves)
	}

	h.send(t, tickMsg{})
	if h.app.pending != 0 {
		t.Fatal("tick before the interval should not refresh")
	}

	h.app.lastRefresh = fixedNow.Add(-2 * h.app.refreshInterval)
	h.send(t, tickMsg{})
	if h.app.pending != 1 {
		t.Errorf("pending = %d, want a refresh in flight", h.app.pending)
	}
}

func TestSettingsRejectsUnknownTheme(t *testing.T) {
	h := newHarness(t)
	h.app.settings.cursor = settingsFieldTheme
	h.app.settings.input = newSettingsInput()
	h.app.settings.input.SetValue("solarized")

	h.app.settingsSave()

	if h.app.settings.invalid == "" {
		t.Error("unknown theme should be rejected")
	}
	if h.saves != 0 {
		t.Error("invalid input should not be saved")
	}
}

func TestSettingsSavesInterval(t *testing.T) {
	h := newHarness(t)
	h.app.settings.cursor = settingsFieldRefreshInterval
	h.app.settings.input = newSettingsInput()
	h.app.settings.input.SetValue("90")

	h.app.settingsSave()

	if h.app.refreshInterval != 90*time.Second || h.app.cfg.TUI.RefreshIntervalSec != 90 {
		t.Errorf("interval = %v / %d", h.app.refreshInterval, h.app.cfg.TUI.RefreshIntervalSec)
	}
	if h.saves != 1 || !h.app.settings.saved {
		t.Errorf("saves = %d saved = %v", h.saves, h.app.settings.saved)
	}

	h.app.settings.input.SetValue("3")
	h.app.settingsSave()
	if h.app.settings.invalid == "" || h.saves != 1 {
		t.Error("interval below 10s should be rejected")
	}
}

func TestViewFillsTerminal(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	for tab := range components.Tabs {
		h.app.activeTab = tab
		out := h.app.View()
		if got := lipgloss.Height(out); got != h.app.height {
			t.Errorf("tab %d: view height = %d, want %d", tab, got, h.app.height)
		}
	}

	h.app.activeTab = components.TabOverview
	if out := h.app.View(); !strings.Contains(out, "2 shown of 2") {
		t.Error("overview should show the recent-list count")
	}
}

func TestOverviewMetricsIncludePrediction(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	lines := strings.Split(h.app.renderOverviewTab(120), "\n")
	var labels, values string
	for i, line := range lines {
		if strings.Contains(line, "Top Category") && i+1 < len(lines) {
			labels, values = line, lines[i+1]
			break
		}
	}
	if !strings.Contains(labels, "Predicted") {
		t.Fatalf("metric labels = %q, want a Predicted card", labels)
	}
	if !strings.Contains(values, "₹1,200.00") {
		t.Errorf("metric values = %q, want the predicted amount", values)
	}
}

func TestViewTooNarrow(t *testing.T) {
	h := newHarness(t)
	h.app.width = 40
	if out := h.app.View(); !strings.Contains(out, "too narrow") {
		t.Errorf("narrow view = %q", out)
	}
}

func TestExportWritesServerFilename(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	dir := t.TempDir()
	h.ledger.export = "report-2024.csv"

	path, err := exportTo(context.Background(), h.app.dash, model.Filter{}, dir)
	if err != nil {
		t.Fatalf("exportTo: %v", err)
	}
	if path != filepath.Join(dir, "report-2024.csv") {
		t.Errorf("path = %q", path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "id,amount\n1,250\n" {
		t.Errorf("body = %q", body)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestExportFailureLeavesNoFile(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	dir := t.TempDir()
	h.ledger.err = &api.Error{Status: 500, Message: "Request failed"}

	if _, err := exportTo(context.Background(), h.app.dash, model.Filter{}, dir); err == nil {
		t.Fatal("expected an error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed export left %d files", len(entries))
	}
}
