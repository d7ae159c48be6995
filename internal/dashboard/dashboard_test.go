package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/session"
	"github.com/theirongolddev/exptrack/internal/store"
)

// fakeServer is an in-memory ledger speaking the REST contract.
type fakeServer struct {
	mu       sync.Mutex
	nextID   int64
	expenses []model.Expense
	hits     map[string]int
	queries  map[string]string
	fail     map[string]int
}

func newFakeServer() *fakeServer {
	return &fakeServer{nextID: 1, hits: map[string]int{}, queries: map[string]string{}, fail: map[string]int{}}
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if rest, ok := strings.CutPrefix(r.URL.Path, "/expenses/"); ok {
		if _, err := strconv.ParseInt(rest, 10, 64); err == nil {
			key = r.Method + " /expenses/:id"
		}
	}
	s.hits[key]++
	s.queries[key] = r.URL.RawQuery

	if status, ok := s.fail[key]; ok {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":"forced %d"}`, status)
		return
	}

	switch key {
	case "POST /auth/login":
		writeJSON(w, map[string]any{"token": "tok", "user": map[string]any{"id": 7, "email": "a@b.co", "username": "ann"}})
	case "GET /expenses":
		writeJSON(w, s.expenses)
	case "POST /expenses":
		var p model.ExpensePayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		e := s.toExpense(s.nextID, p)
		s.nextID++
		s.expenses = append([]model.Expense{e}, s.expenses...)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, e)
	case "PUT /expenses/:id", "DELETE /expenses/:id":
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/expenses/"), 10, 64)
		idx := -1
		for i, e := range s.expenses {
			if e.ID == id {
				idx = i
			}
		}
		if idx < 0 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Expense not found."}`))
			return
		}
		if r.Method == http.MethodDelete {
			s.expenses = append(s.expenses[:idx], s.expenses[idx+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var p model.ExpensePayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		s.expenses[idx] = s.toExpense(id, p)
		writeJSON(w, s.expenses[idx])
	case "GET /expenses/stats":
		writeJSON(w, s.stats(r.URL.Query().Get("category")))
	case "GET /expenses/monthly":
		writeJSON(w, map[string]any{"month": "January 2024", "total": 0, "count": len(s.expenses), "expenses": s.expenses})
	case "GET /predict":
		writeJSON(w, map[string]any{"predictedAmount": 1000, "spenderType": "Average", "suggestion": "Keep going", "recentAverage": 900})
	case "GET /expenses/export":
		w.Header().Set("Content-Disposition", "attachment; filename=expenses_20240110_120000.csv")
		_, _ = w.Write([]byte("id,date,category,description,amount\n"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *fakeServer) toExpense(id int64, p model.ExpensePayload) model.Expense {
	amt, _ := decimal.NewFromString(p.Amount.String())
	d, _ := model.ParseDate(p.Date)
	return model.Expense{ID: id, UserID: 7, Amount: amt, Category: p.Category, Date: d, Description: p.Description}
}

func (s *fakeServer) stats(category string) model.Stats {
	totals := map[string]decimal.Decimal{}
	var order []string
	total := decimal.Zero
	for _, e := range s.expenses {
		if category != "" && e.Category != category {
			continue
		}
		if _, ok := totals[e.Category]; !ok {
			order = append(order, e.Category)
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
		total = total.Add(e.Amount)
	}
	st := model.Stats{TotalSpent: total, CategoryTotals: []model.CategoryTotal{}}
	for _, c := range order {
		st.CategoryTotals = append(st.CategoryTotals, model.CategoryTotal{Category: c, Total: totals[c]})
	}
	return st
}

func (s *fakeServer) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	srv   *fakeServer
	sess  *session.Manager
	cache *store.Cache
	dash  *Dashboard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := newFakeServer()
	hs := httptest.NewServer(fs)
	t.Cleanup(hs.Close)

	client, err := api.NewClient(hs.URL)
	if err != nil {
		t.Fatal(err)
	}
	cache, err := store.Open(filepath.Join(t.TempDir(), "exptrack.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	sess := session.NewManager(client, cache)
	client.SetUnauthorizedHook(sess.HandleUnauthorized)
	if _, err := sess.Login(context.Background(), "a@b.co", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) }
	dash := New(client, sess, WithCache(cache), WithClock(clock))
	return &harness{srv: fs, sess: sess, cache: cache, dash: dash}
}

func draft(amount, category string) model.Draft {
	return model.Draft{Amount: amount, Category: category, Date: "2024-01-10"}
}

func TestCreateRejectsInvalidDraftWithoutRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.dash.Create(context.Background(), model.Draft{Category: "Food", Date: "2024-01-10"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if n := h.srv.count("POST /expenses"); n != 0 {
		t.Errorf("POST /expenses sent %d times", n)
	}
}

func TestCreateRefreshesEveryView(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.dash.Create(ctx, draft("12.50", "Food")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, key := range []string{"GET /expenses", "GET /expenses/stats", "GET /expenses/monthly", "GET /predict"} {
		if h.srv.count(key) != 1 {
			t.Errorf("%s hit %d times, want 1", key, h.srv.count(key))
		}
	}
	exps := h.dash.Expenses()
	if len(exps) != 1 || exps[0].Amount.String() != "12.5" {
		t.Errorf("expenses = %+v", exps)
	}
	if h.sess.State() != session.StateLoggedInFresh {
		t.Errorf("state = %v, want fresh", h.sess.State())
	}
	if !h.dash.Stats().TotalSpent.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("total = %s", h.dash.Stats().TotalSpent)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e, err := h.dash.Create(ctx, draft("5", "Travel"))
	if err != nil {
		t.Fatal(err)
	}

	if err := h.dash.Delete(ctx, e.ID, func() bool { return false }); !errors.Is(err, ErrCancelled) {
		t.Fatalf("declined delete = %v", err)
	}
	if err := h.dash.Delete(ctx, e.ID, nil); !errors.Is(err, ErrCancelled) {
		t.Fatalf("nil confirm = %v", err)
	}
	if n := h.srv.count("DELETE /expenses/:id"); n != 0 {
		t.Fatalf("DELETE sent %d times without confirmation", n)
	}

	if err := h.dash.Delete(ctx, e.ID, func() bool { return true }); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := h.dash.Expense(e.ID); ok {
		t.Error("deleted expense still listed")
	}
}

func TestUpdateMissingExpenseIsNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.dash.Update(context.Background(), 99, draft("1", "Food"))
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err.Error() != "Expense not found." {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRecentCapsAtLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := range 12 {
		if _, err := h.dash.Create(ctx, draft(strconv.Itoa(i+1), "Food")); err != nil {
			t.Fatal(err)
		}
	}
	recent, total := h.dash.Recent()
	if len(recent) != RecentLimit || total != 12 {
		t.Errorf("recent = %d of %d", len(recent), total)
	}
	if recent[0].Amount.String() != "12" {
		t.Errorf("first recent = %s, want most recent", recent[0].Amount)
	}
	if len(h.dash.MonthlyItems()) != MonthlyItemLimit {
		t.Errorf("monthly items = %d", len(h.dash.MonthlyItems()))
	}
}

func TestFilterSendsOnlySetFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.dash.SetFilter(ctx, model.Filter{Category: "Food"}); err != nil {
		t.Fatal(err)
	}
	h.srv.mu.Lock()
	q := h.srv.queries["GET /expenses/stats"]
	h.srv.mu.Unlock()
	if q != "category=Food" {
		t.Errorf("query = %q", q)
	}

	if err := h.dash.SetFilter(ctx, model.Filter{StartDate: "Jan 1"}); err == nil {
		t.Error("bad filter date should be rejected")
	}
	if err := h.dash.ResetFilter(ctx); err != nil {
		t.Fatal(err)
	}
	if !h.dash.Filter().IsZero() {
		t.Error("filter not reset")
	}
}

func TestMonthSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if h.dash.MonthKey() != "2024-01" {
		t.Fatalf("default month = %s", h.dash.MonthKey())
	}
	if err := h.dash.ShiftMonth(ctx, -1); err != nil {
		t.Fatal(err)
	}
	h.srv.mu.Lock()
	q := h.srv.queries["GET /expenses/monthly"]
	h.srv.mu.Unlock()
	if q != "month=2023-12" {
		t.Errorf("query = %q", q)
	}
}

func TestFailedFetchKeepsPreviousState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.dash.Create(ctx, draft("10", "Food")); err != nil {
		t.Fatal(err)
	}

	h.srv.mu.Lock()
	h.srv.fail["GET /expenses/stats"] = http.StatusInternalServerError
	h.srv.mu.Unlock()

	err := h.dash.Refresh(ctx)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "forced 500" {
		t.Fatalf("err = %v", err)
	}
	if !h.dash.Stats().TotalSpent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("stats overwritten on failure: %s", h.dash.Stats().TotalSpent)
	}
	if len(h.dash.Expenses()) != 1 {
		t.Error("successful views should still update")
	}
	if h.dash.LastError() == nil {
		t.Error("LastError not recorded")
	}
}

func TestRefreshReportsUnauthorizedAlongsideOtherFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.srv.mu.Lock()
	h.srv.fail["GET /expenses/stats"] = http.StatusInternalServerError
	h.srv.fail["GET /predict"] = http.StatusUnauthorized
	h.srv.mu.Unlock()

	err := h.dash.Refresh(ctx)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized in the joined error", err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *api.Error", err)
	}
	if h.sess.State() != session.StateLoggedOut {
		t.Errorf("state = %v", h.sess.State())
	}
}

func TestUnauthorizedStopsFurtherRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.srv.mu.Lock()
	h.srv.fail["GET /predict"] = http.StatusUnauthorized
	h.srv.mu.Unlock()

	if err := h.dash.RefreshPrediction(ctx); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if h.sess.State() != session.StateLoggedOut {
		t.Fatalf("state = %v", h.sess.State())
	}
	if tok, _ := h.cache.Token(); tok != "" {
		t.Errorf("token not cleared: %q", tok)
	}
	before := h.srv.count("GET /expenses")
	if err := h.dash.List(ctx); !errors.Is(err, session.ErrNotLoggedIn) {
		t.Errorf("List after logout = %v", err)
	}
	if h.srv.count("GET /expenses") != before {
		t.Error("request sent while logged out")
	}
}

func TestCachedSnapshotsLoadStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.dash.Create(ctx, draft("42", "Rent")); err != nil {
		t.Fatal(err)
	}

	fresh := New(h.dash.api, h.sess, WithCache(h.cache))
	if n := fresh.LoadCached(); n != len(model.AllViews) {
		t.Fatalf("restored %d views", n)
	}
	if !fresh.Stale() || fresh.Fresh(model.ViewExpenses) {
		t.Error("restored views should be stale")
	}
	if got := fresh.Expenses(); len(got) != 1 || got[0].Category != "Rent" {
		t.Errorf("cached expenses = %+v", got)
	}
	snap, _, _ := h.cache.Get(7, model.ViewStats)
	if !snap.Stale {
		t.Error("cache entry should be flagged stale on load")
	}

	if err := fresh.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if fresh.Stale() {
		t.Error("still stale after refresh")
	}
	if snap, _, _ = h.cache.Get(7, model.ViewStats); snap.Stale {
		t.Error("Set should clear the stale flag")
	}
}

func TestExportReturnsServerFilename(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	name, err := h.dash.Export(context.Background(), model.Filter{Category: "Food"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if name != "expenses_20240110_120000.csv" || !strings.HasPrefix(buf.String(), "id,date") {
		t.Errorf("name = %q body = %q", name, buf.String())
	}
}
