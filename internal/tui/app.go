// Package tui provides the interactive Bubble Tea dashboard for exptrack.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/config"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/log"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/session"
	"github.com/theirongolddev/exptrack/internal/tui/components"
	"github.com/theirongolddev/exptrack/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Auth is the session surface the dashboard drives. *session.Manager
// implements it.
type Auth interface {
	Login(ctx context.Context, email, password string) (model.Session, error)
	Signup(ctx context.Context, email, username, password, captchaAnswer string) (model.Session, error)
	Resume(ctx context.Context) (model.Session, error)
	Logout()
	Current() (model.Session, bool)
	State() session.State
	Challenge() session.Challenge
}

// Options wires the App to its collaborators.
type Options struct {
	Config config.Config
	Auth   Auth
	// NewDashboard builds an empty dashboard. It is called at start and
	// after every logout so no state outlives a session.
	NewDashboard func() *dashboard.Dashboard
	Logger       *log.Logger
	// SaveConfig persists settings edits. Defaults to config.Save.
	SaveConfig func(config.Config) error
	Now        func() time.Time
}

type screen int

const (
	screenResume screen = iota
	screenLogin
	screenMain
)

type resumeMsg struct {
	err error
}

type authMsg struct {
	mode string
	err  error
}

// refreshMsg reports a finished fetch. dash identifies the dashboard the
// fetch ran against so results from before a logout are dropped.
type refreshMsg struct {
	dash   *dashboard.Dashboard
	action string
	full   bool
	err    error
}

type mutationMsg struct {
	dash   *dashboard.Dashboard
	action string
	done   string
	err    error
}

type exportMsg struct {
	dash *dashboard.Dashboard
	path string
	err  error
}

type tickMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	cfg     config.Config
	auth    Auth
	newDash func() *dashboard.Dashboard
	dash    *dashboard.Dashboard
	log     *log.Logger
	save    func(config.Config) error
	now     func() time.Time

	screen    screen
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	pending         int // in-flight fetches

	status   string
	statusAt time.Time
	errMsg   string

	// Active huh form, if any
	form        *huh.Form
	formKind    formKind
	authVals    *authValues
	expenseVals *expenseValues
	deleteVals  *deleteValues
	filterVals  *filterValues
	authPending bool

	// Per-tab state
	ledger   ledgerState
	settings settingsState

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 160
	minContentHeight = 5

	minRefreshInterval = 10 * time.Second
	statusTTL          = 4 * time.Second
)

// NewApp creates the TUI model. It starts by resuming the persisted session.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	a := App{
		cfg:             opts.Config,
		auth:            opts.Auth,
		newDash:         opts.NewDashboard,
		log:             opts.Logger,
		save:            opts.SaveConfig,
		now:             opts.Now,
		autoRefresh:     opts.Config.TUI.AutoRefresh,
		refreshInterval: max(opts.Config.RefreshInterval(), minRefreshInterval),
		authVals:        &authValues{mode: modeLogin},
		spinner:         sp,
	}
	if a.log == nil {
		a.log = log.Discard()
	}
	a.log = a.log.WithComponent(log.ComponentTUI)
	if a.save == nil {
		a.save = config.Save
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.dash = a.newDash()
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		resumeCmd(a.auth),
		a.spinner.Tick,
		tickCmd(),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(a.formWidth())
		}
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case resumeMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, session.ErrNotLoggedIn) {
				a.errMsg = cli.ErrorMessage("restore session", msg.err)
			}
			return a.toLogin()
		}
		return a.enterMain()

	case authMsg:
		a.authPending = false
		if msg.err != nil {
			action := cli.ActionLogin
			if msg.mode == modeSignup {
				action = cli.ActionSignup
			}
			a.errMsg = cli.ErrorMessage(action, msg.err)
			a.authVals.password = ""
			a.authVals.captcha = ""
			return a.openAuthForm()
		}
		a.errMsg = ""
		return a.enterMain()

	case refreshMsg:
		if msg.dash != a.dash {
			return a, nil
		}
		a.pending = max(a.pending-1, 0)
		if msg.full {
			a.lastRefresh = a.now()
		}
		if msg.err != nil {
			return a.handleErr(msg.action, msg.err)
		}
		if msg.full {
			a.errMsg = ""
		}
		return a, nil

	case mutationMsg:
		if msg.dash != a.dash {
			return a, nil
		}
		a.pending = max(a.pending-1, 0)
		if errors.Is(msg.err, dashboard.ErrCancelled) {
			a.flash("Cancelled.")
			return a, nil
		}
		if msg.err != nil {
			return a.handleErr(msg.action, msg.err)
		}
		// The follow-up refresh may have hit a 401 that ended the session.
		if a.auth.State() == session.StateLoggedOut {
			a.errMsg = cli.SessionExpired
			return a.resetToLogin()
		}
		a.lastRefresh = a.now()
		a.errMsg = ""
		if err := a.dash.LastError(); err != nil {
			a.errMsg = cli.ErrorMessage("refresh", err)
			a.dash.ClearError()
		}
		a.flash(msg.done)
		a.clampLedgerCursor()
		return a, nil

	case exportMsg:
		if msg.dash != a.dash {
			return a, nil
		}
		a.pending = max(a.pending-1, 0)
		if msg.err != nil {
			return a.handleErr("export expenses", msg.err)
		}
		a.flash("Exported to " + msg.path)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		now := a.now()
		if a.status != "" && now.Sub(a.statusAt) >= statusTTL {
			a.status = ""
		}
		if a.screen == screenMain && a.autoRefresh && a.pending == 0 &&
			now.Sub(a.lastRefresh) >= a.refreshInterval {
			cmds = append(cmds, a.startRefresh())
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the form (cursor blinks, etc.)
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.form != nil {
		if key == "esc" && a.formKind != formAuth {
			return a.closeForm(), nil
		}
		return a.updateForm(msg)
	}

	if a.screen != screenMain {
		if key == "q" {
			return a, tea.Quit
		}
		return a, nil
	}

	if a.activeTab == components.TabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	// Tab-local bindings
	switch a.activeTab {
	case components.TabLedger:
		if m, cmd, ok := a.updateLedgerKey(key); ok {
			return m, cmd
		}
	case components.TabStats:
		if m, cmd, ok := a.updateStatsKey(key); ok {
			return m, cmd
		}
	case components.TabMonthly:
		if m, cmd, ok := a.updateMonthlyKey(key); ok {
			return m, cmd
		}
	case components.TabSettings:
		if m, cmd, ok := a.updateSettingsKey(key); ok {
			return m, cmd
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.pending == 0 {
			cmd := a.startRefresh()
			return a, cmd
		}
		return a, nil
	case "R":
		a.autoRefresh = !a.autoRefresh
		a.cfg.TUI.AutoRefresh = a.autoRefresh
		if err := a.save(a.cfg); err != nil {
			a.log.Warn("saving auto-refresh setting", log.FieldError, err)
		}
		if a.autoRefresh {
			a.flash("Auto-refresh on")
		} else {
			a.flash("Auto-refresh off")
		}
		return a, nil
	case "p":
		a.pending++
		return a, fetchCmd(a.dash, "fetch prediction", false, a.dash.RefreshPrediction)
	case "n":
		return a.openExpenseForm(0)
	case "L":
		a.auth.Logout()
		a.flash("Logged out.")
		return a.resetToLogin()
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if a.screen != screenMain || a.form != nil || a.showHelp {
		if a.form != nil {
			return a.updateForm(msg)
		}
		return a, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == components.TabLedger {
			a.ledgerMove(-1)
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == components.TabLedger {
			a.ledgerMove(1)
		}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
func (a App) tabAtX(x int) int {
	return components.TabAtX(x, a.activeTab)
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		return a.submitForm()
	case huh.StateAborted:
		if a.formKind == formAuth {
			return a, tea.Quit
		}
		return a.closeForm(), nil
	}
	return a, cmd
}

func (a App) closeForm() App {
	a.form = nil
	a.formKind = formNone
	return a
}

func (a App) submitForm() (tea.Model, tea.Cmd) {
	kind := a.formKind
	a = a.closeForm()

	switch kind {
	case formAuth:
		a.authPending = true
		a.errMsg = ""
		return a, authCmd(a.auth, *a.authVals)

	case formExpense:
		v, d := *a.expenseVals, a.dash
		a.pending++
		if v.id == 0 {
			return a, mutateCmd(d, "add expense", "Expense added.", func(ctx context.Context) error {
				_, err := d.Create(ctx, v.draft)
				return err
			})
		}
		return a, mutateCmd(d, "update expense", "Expense updated.", func(ctx context.Context) error {
			_, err := d.Update(ctx, v.id, v.draft)
			return err
		})

	case formDelete:
		v, d := *a.deleteVals, a.dash
		a.pending++
		return a, mutateCmd(d, "delete expense", "Expense deleted.", func(ctx context.Context) error {
			return d.Delete(ctx, v.id, func() bool { return v.confirm })
		})

	case formFilter:
		f, d := a.filterVals.filter(), a.dash
		a.pending++
		return a, fetchCmd(d, "fetch statistics", false, func(ctx context.Context) error {
			return d.SetFilter(ctx, f)
		})
	}
	return a, nil
}

func (a App) formWidth() int {
	return min(max(a.width-8, 40), 72)
}

func (a App) showForm(kind formKind, f *huh.Form) (tea.Model, tea.Cmd) {
	a.form = f.WithWidth(a.formWidth())
	a.formKind = kind
	return a, a.form.Init()
}

func (a App) openAuthForm() (tea.Model, tea.Cmd) {
	return a.showForm(formAuth, newAuthForm(a.authVals, a.auth.Challenge()))
}

func (a App) openExpenseForm(id int64) (tea.Model, tea.Cmd) {
	v := &expenseValues{id: id, draft: model.Draft{Date: model.NewDate(a.now()).String()}}
	if id != 0 {
		e, ok := a.dash.Expense(id)
		if !ok {
			return a, nil
		}
		v.draft = model.DraftFrom(e)
	}
	a.expenseVals = v
	return a.showForm(formExpense, newExpenseForm(v, dashboard.Categories(a.dash.Expenses())))
}

func (a App) openDeleteForm(e model.Expense) (tea.Model, tea.Cmd) {
	a.deleteVals = &deleteValues{
		id:    e.ID,
		label: fmt.Sprintf("%s  %s  %s", cli.FormatDate(e.Date), e.Category, cli.FormatMoney(e.Amount)),
	}
	return a.showForm(formDelete, newDeleteForm(a.deleteVals))
}

func (a App) openFilterForm() (tea.Model, tea.Cmd) {
	f := a.dash.Filter()
	a.filterVals = &filterValues{start: f.StartDate, end: f.EndDate, category: f.Category}
	return a.showForm(formFilter, newFilterForm(a.filterVals, dashboard.Categories(a.dash.Expenses())))
}

// enterMain shows cached views at once and starts a full refresh.
func (a App) enterMain() (tea.Model, tea.Cmd) {
	a.screen = screenMain
	a.activeTab = components.TabOverview
	if n := a.dash.LoadCached(); n > 0 {
		a.log.Debug("restored cached views", "count", n)
	}
	cmd := a.startRefresh()
	return a, cmd
}

func (a App) toLogin() (tea.Model, tea.Cmd) {
	a.screen = screenLogin
	a.showHelp = false
	return a.openAuthForm()
}

// resetToLogin drops all dashboard state and returns to the login form.
func (a App) resetToLogin() (tea.Model, tea.Cmd) {
	a.dash = a.newDash()
	a.pending = 0
	a.ledger = ledgerState{}
	a.settings = settingsState{}
	a.authVals = &authValues{mode: modeLogin, email: a.authVals.email}
	a = a.closeForm()
	return a.toLogin()
}

// handleErr shows a failed operation. A rejected token ends the session.
func (a App) handleErr(action string, err error) (tea.Model, tea.Cmd) {
	if a.auth.State() == session.StateLoggedOut {
		a.errMsg = cli.SessionExpired
		return a.resetToLogin()
	}
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrNotLoggedIn) {
		if a.auth.State() != session.StateLoggedOut {
			a.auth.Logout()
		}
		a.errMsg = cli.SessionExpired
		return a.resetToLogin()
	}
	a.errMsg = cli.ErrorMessage(action, err)
	a.dash.ClearError()
	return a, nil
}

func (a *App) flash(s string) {
	a.status = s
	a.statusAt = a.now()
}

func (a *App) startRefresh() tea.Cmd {
	a.pending++
	return fetchCmd(a.dash, "fetch expenses", true, a.dash.Refresh)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	switch a.screen {
	case screenResume:
		return a.viewLoading("Restoring session...")
	case screenLogin:
		if a.authPending {
			return a.viewLoading("Signing in...")
		}
		return a.viewLogin()
	}

	if a.form != nil {
		return a.viewForm()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  exptrack needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading(label string) string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := logoStyle.Render("◈ exptrack") + subtitleStyle.Render(" · Expense Tracker") + "\n\n" +
		a.spinner.View() + subtitleStyle.Render(" "+label)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewLogin() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 2)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	errStyle := lipgloss.NewStyle().Foreground(t.Red)
	okStyle := lipgloss.NewStyle().Foreground(t.Green)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ exptrack"))
	b.WriteString(mutedStyle.Render(" · Login to view your expenses."))
	b.WriteString("\n")
	switch {
	case a.errMsg != "":
		b.WriteString(errStyle.Render(a.errMsg))
		b.WriteString("\n")
	case a.status != "":
		b.WriteString(okStyle.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if a.form != nil {
		b.WriteString(a.form.View())
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewForm() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 2)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	body := a.form.View() + "\n" + hintStyle.Render("esc to cancel")
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"o l s m x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move in the ledger"},
		}},
		{"Ledger", [][2]string{
			{"n", "New expense"},
			{"e Enter", "Edit selected"},
			{"d", "Delete selected"},
		}},
		{"Stats & Monthly", [][2]string{
			{"f / c", "Filter / clear filter"},
			{"E", "Export CSV"},
			{"[ ]", "Previous / next month"},
			{"t", "This month"},
		}},
		{"General", [][2]string{
			{"r", "Refresh all"},
			{"R", "Toggle auto-refresh"},
			{"p", "Refresh prediction"},
			{"L", "Log out"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) statusInfo() components.StatusInfo {
	now := a.now()
	info := components.StatusInfo{
		Fresh:       a.auth.State() == session.StateLoggedInFresh && !a.dash.Stale(),
		Refreshing:  a.pending > 0,
		AutoRefresh: a.autoRefresh,
		Message:     a.status,
		Err:         a.errMsg,
	}
	if sess, ok := a.auth.Current(); ok {
		info.User = sess.User.DisplayName()
	}
	if at := a.dash.FetchedAt(model.ViewExpenses); !at.IsZero() {
		info.Age = cli.FormatAge(at, now)
	}
	return info
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)
	statusBar := components.RenderStatusBar(w, a.statusInfo())

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case components.TabOverview:
		content = a.renderOverviewTab(cw)
	case components.TabLedger:
		content = a.renderLedgerTab(cw, contentH)
	case components.TabStats:
		content = a.renderStatsTab(cw)
	case components.TabMonthly:
		content = a.renderMonthlyTab(cw)
	case components.TabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// emptyCard renders the placeholder for a view with no data yet.
func (a App) emptyCard(title string, view model.View, cw int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	msg := "No data yet."
	if a.pending > 0 && !a.dash.Loaded(view) {
		msg = a.spinner.View() + muted.Render(" Loading...")
		return components.ContentCard(title, msg, cw)
	}
	return components.ContentCard(title, muted.Render(msg), cw)
}

// ─── Commands ───────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func resumeCmd(auth Auth) tea.Cmd {
	return func() tea.Msg {
		_, err := auth.Resume(context.Background())
		return resumeMsg{err: err}
	}
}

func authCmd(auth Auth, v authValues) tea.Cmd {
	return func() tea.Msg {
		var err error
		if v.mode == modeSignup {
			_, err = auth.Signup(context.Background(), v.email, v.username, v.password, v.captcha)
		} else {
			_, err = auth.Login(context.Background(), v.email, v.password)
		}
		return authMsg{mode: v.mode, err: err}
	}
}

func fetchCmd(d *dashboard.Dashboard, action string, full bool, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{dash: d, action: action, full: full, err: fn(context.Background())}
	}
}

func mutateCmd(d *dashboard.Dashboard, action, done string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return mutationMsg{dash: d, action: action, done: done, err: fn(context.Background())}
	}
}

// ─── Layout helpers ─────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
