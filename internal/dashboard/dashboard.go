// Package dashboard holds the in-memory application state: the ledger,
// statistics, monthly summary and prediction of the logged-in user.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/exptrack/internal/log"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/store"
)

const (
	// RecentLimit caps the recent-expense list.
	RecentLimit = 10
	// MonthlyItemLimit caps the expenses listed under the monthly summary.
	MonthlyItemLimit = 8
)

// ErrCancelled is returned when a destructive action is not confirmed.
var ErrCancelled = errors.New("cancelled")

// ConfirmFunc asks the user to confirm a destructive action.
type ConfirmFunc func() bool

// Ledger is the remote API surface the dashboard uses.
type Ledger interface {
	ListExpenses(ctx context.Context) ([]model.Expense, error)
	CreateExpense(ctx context.Context, p model.ExpensePayload) (model.Expense, error)
	UpdateExpense(ctx context.Context, id int64, p model.ExpensePayload) (model.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	Stats(ctx context.Context, f model.Filter) (model.Stats, error)
	Monthly(ctx context.Context, month string) (model.Monthly, error)
	Predict(ctx context.Context) (model.Prediction, error)
	Export(ctx context.Context, f model.Filter, w io.Writer) (string, error)
}

// Sessions reports the active session and receives refresh completion.
type Sessions interface {
	RequireSession() (model.Session, error)
	MarkFresh()
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithCache sets the snapshot cache. Without one nothing is persisted.
func WithCache(c store.Snapshots) Option {
	return func(d *Dashboard) { d.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Dashboard) { d.log = l.WithComponent(log.ComponentDashboard) }
}

// WithClock overrides the clock used for the default month.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// Dashboard is the application state object. Views update independently;
// the last response to arrive wins.
type Dashboard struct {
	api   Ledger
	sess  Sessions
	cache store.Snapshots
	log   *log.Logger
	now   func() time.Time

	mu         sync.RWMutex
	expenses   []model.Expense
	stats      model.Stats
	monthly    model.Monthly
	prediction model.Prediction
	filter     model.Filter
	month      time.Time
	loaded     map[model.View]bool
	fresh      map[model.View]bool
	fetchedAt  map[model.View]time.Time
	lastErr    error
}

// New creates an empty dashboard with the selected month set to the
// current calendar month.
func New(api Ledger, sess Sessions, opts ...Option) *Dashboard {
	d := &Dashboard{
		api:  api,
		sess: sess,
		log:  log.Discard(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.month = model.MonthStart(d.now())
	d.resetLocked()
	return d
}

// Reset clears all in-memory state, keeping the selected month.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Dashboard) resetLocked() {
	d.expenses = nil
	d.stats = model.Stats{}
	d.monthly = model.Monthly{}
	d.prediction = model.Prediction{}
	d.filter = model.Filter{}
	d.loaded = make(map[model.View]bool)
	d.fresh = make(map[model.View]bool)
	d.fetchedAt = make(map[model.View]time.Time)
	d.lastErr = nil
}

// LoadCached fills views from the snapshot cache, marking them stale until
// refreshed. It returns the number of views restored.
func (d *Dashboard) LoadCached() int {
	if d.cache == nil {
		return 0
	}
	sess, err := d.sess.RequireSession()
	if err != nil {
		return 0
	}
	uid := sess.User.ID
	if err := d.cache.MarkStale(uid); err != nil {
		d.log.Warn("marking snapshots stale", log.FieldError, err)
	}

	restored := 0
	for _, view := range model.AllViews {
		snap, ok, err := d.cache.Get(uid, view)
		if err != nil {
			d.log.Warn("reading snapshot", log.FieldView, view, log.FieldError, err)
			continue
		}
		if !ok {
			continue
		}
		if err := d.applySnapshot(snap); err != nil {
			d.log.Warn("decoding snapshot", log.FieldView, view, log.FieldError, err)
			_ = d.cache.Invalidate(uid, view)
			continue
		}
		restored++
	}
	return restored
}

func (d *Dashboard) applySnapshot(snap model.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	switch snap.View {
	case model.ViewExpenses:
		var v []model.Expense
		if err = json.Unmarshal(snap.Payload, &v); err == nil {
			d.expenses = v
		}
	case model.ViewStats:
		var v model.Stats
		if err = json.Unmarshal(snap.Payload, &v); err == nil {
			d.stats = v
		}
	case model.ViewMonthly:
		var v model.Monthly
		if err = json.Unmarshal(snap.Payload, &v); err == nil {
			d.monthly = v
		}
	case model.ViewPredict:
		var v model.Prediction
		if err = json.Unmarshal(snap.Payload, &v); err == nil {
			d.prediction = v
		}
	default:
		return errors.New("unknown view " + string(snap.View))
	}
	if err != nil {
		return err
	}
	d.loaded[snap.View] = true
	d.fresh[snap.View] = false
	d.fetchedAt[snap.View] = snap.FetchedAt
	return nil
}

// Refresh re-fetches every view concurrently. Each view updates on its own
// success; every failure is returned joined so a 401 from one view is never
// hidden behind another view's error. The session is marked fresh only when
// all four succeed.
func (d *Dashboard) Refresh(ctx context.Context) error {
	fetches := []func(context.Context) error{d.List, d.RefreshStats, d.RefreshMonthly, d.RefreshPrediction}
	errs := make([]error, len(fetches))

	var g errgroup.Group
	for i, fn := range fetches {
		g.Go(func() error {
			errs[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	d.sess.MarkFresh()
	return nil
}

// List fetches the full ledger.
func (d *Dashboard) List(ctx context.Context) error {
	return fetch(ctx, d, model.ViewExpenses, log.OpList, d.api.ListExpenses, func(v []model.Expense) {
		d.expenses = v
	})
}

// RefreshStats fetches statistics for the current filter.
func (d *Dashboard) RefreshStats(ctx context.Context) error {
	f := d.Filter()
	return fetch(ctx, d, model.ViewStats, log.OpStats, func(ctx context.Context) (model.Stats, error) {
		return d.api.Stats(ctx, f)
	}, func(v model.Stats) {
		d.stats = v
	})
}

// RefreshMonthly fetches the summary of the selected month.
func (d *Dashboard) RefreshMonthly(ctx context.Context) error {
	month := d.MonthKey()
	return fetch(ctx, d, model.ViewMonthly, log.OpMonthly, func(ctx context.Context) (model.Monthly, error) {
		return d.api.Monthly(ctx, month)
	}, func(v model.Monthly) {
		d.monthly = v
	})
}

// RefreshPrediction fetches the next-month prediction.
func (d *Dashboard) RefreshPrediction(ctx context.Context) error {
	return fetch(ctx, d, model.ViewPredict, log.OpPredict, d.api.Predict, func(v model.Prediction) {
		d.prediction = v
	})
}

// fetch runs one view request. On success it applies the value under the
// lock and writes the payload to the cache; on failure the view keeps its
// previous value.
func fetch[T any](ctx context.Context, d *Dashboard, view model.View, op string,
	get func(context.Context) (T, error), apply func(T)) error {
	sess, err := d.sess.RequireSession()
	if err != nil {
		return err
	}

	v, err := get(ctx)
	if err != nil {
		d.log.Warn("fetch failed", log.FieldOperation, op, log.FieldView, view, log.FieldError, err)
		d.setErr(err)
		return err
	}

	d.mu.Lock()
	apply(v)
	d.loaded[view] = true
	d.fresh[view] = true
	d.fetchedAt[view] = d.now()
	d.mu.Unlock()

	d.persist(sess.User.ID, view, v)
	return nil
}

func (d *Dashboard) persist(uid int64, view model.View, v any) {
	if d.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		d.log.Warn("encoding snapshot", log.FieldView, view, log.FieldError, err)
		return
	}
	if err := d.cache.Set(uid, view, payload); err != nil {
		d.log.Warn("saving snapshot", log.FieldView, view, log.FieldError, err)
	}
}

func (d *Dashboard) setErr(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

// Create validates the draft, posts it and refreshes every view.
func (d *Dashboard) Create(ctx context.Context, draft model.Draft) (model.Expense, error) {
	p, err := draft.Payload()
	if err != nil {
		return model.Expense{}, err
	}
	if _, err := d.sess.RequireSession(); err != nil {
		return model.Expense{}, err
	}
	e, err := d.api.CreateExpense(ctx, p)
	if err != nil {
		d.log.Warn("create failed", log.FieldOperation, log.OpCreate, log.FieldError, err)
		return model.Expense{}, err
	}
	d.log.Info("expense created", log.FieldExpenseID, e.ID)
	d.afterMutation(ctx)
	return e, nil
}

// Update validates the draft, replaces expense id and refreshes every view.
func (d *Dashboard) Update(ctx context.Context, id int64, draft model.Draft) (model.Expense, error) {
	p, err := draft.Payload()
	if err != nil {
		return model.Expense{}, err
	}
	if _, err := d.sess.RequireSession(); err != nil {
		return model.Expense{}, err
	}
	e, err := d.api.UpdateExpense(ctx, id, p)
	if err != nil {
		d.log.Warn("update failed", log.FieldOperation, log.OpUpdate, log.FieldExpenseID, id, log.FieldError, err)
		return model.Expense{}, err
	}
	d.log.Info("expense updated", log.FieldExpenseID, id)
	d.afterMutation(ctx)
	return e, nil
}

// Delete removes expense id once confirm returns true.
func (d *Dashboard) Delete(ctx context.Context, id int64, confirm ConfirmFunc) error {
	if confirm == nil || !confirm() {
		return ErrCancelled
	}
	if _, err := d.sess.RequireSession(); err != nil {
		return err
	}
	if err := d.api.DeleteExpense(ctx, id); err != nil {
		d.log.Warn("delete failed", log.FieldOperation, log.OpDelete, log.FieldExpenseID, id, log.FieldError, err)
		return err
	}
	d.log.Info("expense deleted", log.FieldExpenseID, id)
	d.afterMutation(ctx)
	return nil
}

// afterMutation re-fetches everything. Refresh failures are recorded in
// LastError and do not fail the mutation.
func (d *Dashboard) afterMutation(ctx context.Context) {
	_ = d.Refresh(ctx)
}

// SetFilter replaces the statistics filter and re-fetches statistics.
func (d *Dashboard) SetFilter(ctx context.Context, f model.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.filter = f
	d.mu.Unlock()
	return d.RefreshStats(ctx)
}

// ResetFilter clears the statistics filter and re-fetches statistics.
func (d *Dashboard) ResetFilter(ctx context.Context) error {
	return d.SetFilter(ctx, model.Filter{})
}

// SelectMonth selects the month containing t and re-fetches it.
func (d *Dashboard) SelectMonth(ctx context.Context, t time.Time) error {
	d.mu.Lock()
	d.month = model.MonthStart(t)
	d.mu.Unlock()
	return d.RefreshMonthly(ctx)
}

// ShiftMonth moves the selected month by n and re-fetches it.
func (d *Dashboard) ShiftMonth(ctx context.Context, n int) error {
	d.mu.Lock()
	d.month = d.month.AddDate(0, n, 0)
	d.mu.Unlock()
	return d.RefreshMonthly(ctx)
}

// Export streams the CSV for f into w and returns the suggested filename.
func (d *Dashboard) Export(ctx context.Context, f model.Filter, w io.Writer) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	if _, err := d.sess.RequireSession(); err != nil {
		return "", err
	}
	name, err := d.api.Export(ctx, f, w)
	if err != nil {
		d.log.Warn("export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		return "", err
	}
	return name, nil
}
