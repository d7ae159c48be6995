package cli_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/cli"
	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/session"
	"github.com/theirongolddev/exptrack/internal/store"
)

func ledgerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer t1" {
				w.WriteHeader(http.StatusUnauthorized)
				reply(w, `{"error":"Invalid token"}`)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Email != "a@b.com" || in.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			reply(w, `{"error":"Invalid credentials"}`)
			return
		}
		reply(w, `{"token":"t1","user":{"id":1,"email":"a@b.com","username":"a"}}`)
	})
	mux.HandleFunc("GET /expenses", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, `[{"id":5,"amount":12.50,"category":"Food","description":"","date":"2024-01-10"}]`)
	}))
	mux.HandleFunc("GET /expenses/stats", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"totalSpent":12.50,"categoryTotals":[{"category":"Food","total":12.50}]}`)
	}))
	mux.HandleFunc("GET /expenses/monthly", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"month":"January 2024","total":12.50,"count":1,"expenses":[]}`)
	}))
	mux.HandleFunc("GET /predict", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"predictedAmount":12.50,"spenderType":"Saver","suggestion":"","recentAverage":12.50}`)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginRefreshRendersTotals(t *testing.T) {
	srv := ledgerServer(t)
	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.NewManager(client, store.NewMemoryCredentials(""))
	client.SetUnauthorizedHook(sess.HandleUnauthorized)

	ctx := context.Background()
	got, err := sess.Login(ctx, "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.Token != "t1" {
		t.Fatalf("token = %q", got.Token)
	}

	d := dashboard.New(client, sess)
	if err := d.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sess.State() != session.StateLoggedInFresh {
		t.Errorf("state = %v", sess.State())
	}

	if exp := d.Expenses(); len(exp) != 1 || exp[0].ID != 5 || exp[0].Category != "Food" {
		t.Fatalf("expenses = %+v", exp)
	}
	if total := cli.FormatMoney(d.Summary().TotalSpent); total != "₹12.50" {
		t.Errorf("total = %q", total)
	}

	shares := d.Shares()
	if len(shares) != 1 {
		t.Fatalf("shares = %+v", shares)
	}
	line := cli.RenderShareBar(shares[0].Category, shares[0].Percent, cli.FormatMoney(shares[0].Total), 10, 20)
	for _, want := range []string{"Food", "₹12.50", "100.0%"} {
		if !strings.Contains(line, want) {
			t.Errorf("share line %q missing %q", line, want)
		}
	}
}

func TestWrongPasswordLeavesLoggedOut(t *testing.T) {
	srv := ledgerServer(t)
	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.NewManager(client, store.NewMemoryCredentials(""))

	_, err = sess.Login(context.Background(), "a@b.com", "nope")
	if err == nil {
		t.Fatal("expected login failure")
	}
	if sess.State() != session.StateLoggedOut {
		t.Errorf("state = %v", sess.State())
	}
	if msg := cli.ErrorMessage(cli.ActionLogin, err); msg == "" {
		t.Error("empty error message")
	}
}
