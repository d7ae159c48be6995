package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/theirongolddev/exptrack/internal/api"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/store"
)

type fakeAuth struct {
	token       string
	loginCalls  int
	signupCalls int
	meErr       error
	sess        model.Session
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (model.Session, error) {
	f.loginCalls++
	s := f.sess
	s.User.Email = email
	return s, nil
}

func (f *fakeAuth) Signup(_ context.Context, email, username, _ string) (model.Session, error) {
	f.signupCalls++
	s := f.sess
	s.User.Email, s.User.Username = email, username
	return s, nil
}

func (f *fakeAuth) Me(context.Context) (model.User, error) {
	if f.meErr != nil {
		return model.User{}, f.meErr
	}
	return f.sess.User, nil
}

func (f *fakeAuth) SetToken(token string) { f.token = token }

// sequence returns an intn that yields values in order.
func sequence(vals ...int) func(int) int {
	i := 0
	return func(int) int {
		v := vals[i%len(vals)]
		i++
		return v
	}
}

func newFake() *fakeAuth {
	return &fakeAuth{sess: model.Session{Token: "tok", User: model.User{ID: 7}}}
}

func TestLoginLowercasesAndPersistsToken(t *testing.T) {
	auth := newFake()
	creds := store.NewMemoryCredentials("")
	m := NewManager(auth, creds)

	sess, err := m.Login(context.Background(), "  Ann@Example.COM ", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.Email != "ann@example.com" {
		t.Errorf("email = %q", sess.User.Email)
	}
	if tok, _ := creds.Token(); tok != "tok" {
		t.Errorf("persisted token = %q", tok)
	}
	if auth.token != "tok" {
		t.Errorf("client token = %q", auth.token)
	}
	if m.State() != StateLoggedInStale {
		t.Errorf("state = %v", m.State())
	}
	m.MarkFresh()
	if m.State() != StateLoggedInFresh {
		t.Errorf("state after MarkFresh = %v", m.State())
	}
}

func TestLoginRequiresFields(t *testing.T) {
	auth := newFake()
	m := NewManager(auth, store.NewMemoryCredentials(""))
	if _, err := m.Login(context.Background(), " ", "pw"); !errors.Is(err, ErrMissingFields) {
		t.Errorf("err = %v", err)
	}
	if auth.loginCalls != 0 {
		t.Error("no request may be sent for missing fields")
	}
}

func TestSignupCaptchaMismatchRegenerates(t *testing.T) {
	auth := newFake()
	// operands 3+4 then 1+1
	m := NewManager(auth, store.NewMemoryCredentials(""), WithRand(sequence(2, 3, 0, 0)))

	if c := m.Challenge(); c.A != 3 || c.B != 4 {
		t.Fatalf("challenge = %+v", c)
	}
	_, err := m.Signup(context.Background(), "a@b.co", "ann", "pw", "8")
	if !errors.Is(err, ErrCaptchaMismatch) {
		t.Fatalf("err = %v, want ErrCaptchaMismatch", err)
	}
	if auth.signupCalls != 0 {
		t.Error("signup must not be sent on captcha mismatch")
	}
	if c := m.Challenge(); c.A != 1 || c.B != 1 {
		t.Errorf("challenge not regenerated: %+v", c)
	}

	if _, err := m.Signup(context.Background(), "a@b.co", "ann", "pw", " 2 "); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if auth.signupCalls != 1 || m.State() == StateLoggedOut {
		t.Errorf("calls = %d, state = %v", auth.signupCalls, m.State())
	}
}

func TestChallengeOperandsInRange(t *testing.T) {
	for n := 0; n < 9; n++ {
		c := NewChallenge(func(int) int { return n })
		if c.A < 1 || c.A > 9 || c.B < 1 || c.B > 9 {
			t.Errorf("operands out of range: %+v", c)
		}
	}
	c := Challenge{A: 4, B: 5}
	if !c.Check("9") || c.Check("nine") || c.Check("10") {
		t.Error("Check misbehaves")
	}
}

func TestResumeWithoutTokenStaysLoggedOut(t *testing.T) {
	m := NewManager(newFake(), store.NewMemoryCredentials(""))
	if _, err := m.Resume(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("err = %v", err)
	}
	if m.State() != StateLoggedOut {
		t.Errorf("state = %v", m.State())
	}
}

func TestResumeFailureTearsDown(t *testing.T) {
	auth := newFake()
	auth.meErr = errors.New("boom")
	creds := store.NewMemoryCredentials("old")
	m := NewManager(auth, creds)

	if _, err := m.Resume(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if tok, _ := creds.Token(); tok != "" {
		t.Errorf("token not cleared: %q", tok)
	}
	if m.State() != StateLoggedOut || auth.token != "" {
		t.Errorf("state = %v, client token = %q", m.State(), auth.token)
	}
}

func TestLogoutRunsTeardownHooks(t *testing.T) {
	m := NewManager(newFake(), store.NewMemoryCredentials(""))
	_, _ = m.Login(context.Background(), "a@b.co", "pw")
	var fired int
	m.AddTeardownHook(func() { fired++ })

	m.Logout()
	if fired != 1 {
		t.Errorf("hooks fired %d times", fired)
	}
	if _, err := m.RequireSession(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("RequireSession after logout = %v", err)
	}
}

func TestUnauthorizedResponseLogsOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_, _ = io.WriteString(w, `{"token":"tok","user":{"id":1,"email":"a@b.co","username":"ann"}}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Invalid token."}`)
		}
	}))
	defer srv.Close()

	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	creds := store.NewMemoryCredentials("")
	m := NewManager(client, creds)
	client.SetUnauthorizedHook(m.HandleUnauthorized)

	if _, err := m.Login(context.Background(), "a@b.co", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := client.ListExpenses(context.Background()); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if m.State() != StateLoggedOut {
		t.Errorf("state = %v, want logged out", m.State())
	}
	if tok, _ := creds.Token(); tok != "" || client.Token() != "" {
		t.Errorf("tokens not cleared: persisted %q, client %q", tok, client.Token())
	}
}
