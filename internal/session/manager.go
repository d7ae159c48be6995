// Package session mediates login, signup, resume and teardown of the
// authenticated session.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/theirongolddev/exptrack/internal/log"
	"github.com/theirongolddev/exptrack/internal/model"
	"github.com/theirongolddev/exptrack/internal/store"
)

var (
	// ErrCaptchaMismatch is returned when the signup captcha answer is wrong.
	ErrCaptchaMismatch = errors.New("Incorrect captcha answer. Please try again.") //nolint:staticcheck // shown verbatim
	// ErrMissingFields is returned when a required credential is empty.
	ErrMissingFields = errors.New("Please complete all fields.") //nolint:staticcheck // shown verbatim
	// ErrNotLoggedIn is returned for authenticated work without a session.
	ErrNotLoggedIn = errors.New("not logged in")
)

// State is the session lifecycle position.
type State int

const (
	StateLoggedOut State = iota
	// StateLoggedInStale means cached snapshots may be showing.
	StateLoggedInStale
	// StateLoggedInFresh means a full refresh has completed.
	StateLoggedInFresh
)

func (s State) String() string {
	switch s {
	case StateLoggedInStale:
		return "logged in (stale)"
	case StateLoggedInFresh:
		return "logged in"
	}
	return "logged out"
}

// Authenticator is the part of the API client the manager drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.Session, error)
	Signup(ctx context.Context, email, username, password string) (model.Session, error)
	Me(ctx context.Context) (model.User, error)
	SetToken(token string)
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand sets the random source for captcha operands.
func WithRand(intn func(n int) int) Option {
	return func(m *Manager) { m.intn = intn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.log = l.WithComponent(log.ComponentSession) }
}

// Manager owns the credential slot and the API client's bearer token.
type Manager struct {
	auth  Authenticator
	creds store.Credentials
	intn  func(n int) int
	log   *log.Logger

	mu            sync.RWMutex
	session       model.Session
	state         State
	challenge     Challenge
	teardownHooks []func()
}

// NewManager creates a logged-out manager.
func NewManager(auth Authenticator, creds store.Credentials, opts ...Option) *Manager {
	m := &Manager{
		auth:  auth,
		creds: creds,
		intn:  rand.IntN,
		log:   log.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.challenge = NewChallenge(m.intn)
	return m
}

// Login authenticates with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return model.Session{}, ErrMissingFields
	}

	sess, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.log.Warn("login failed", log.FieldOperation, log.OpLogin, log.FieldError, err)
		return model.Session{}, err
	}
	m.establish(sess)
	m.log.Info("logged in", log.FieldUserID, sess.User.ID)
	return sess, nil
}

// Signup creates an account after checking the captcha. A wrong answer
// draws a new challenge and sends nothing.
func (m *Manager) Signup(ctx context.Context, email, username, password, captchaAnswer string) (model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" || strings.TrimSpace(captchaAnswer) == "" {
		return model.Session{}, ErrMissingFields
	}

	m.mu.Lock()
	if !m.challenge.Check(captchaAnswer) {
		m.challenge = NewChallenge(m.intn)
		m.mu.Unlock()
		return model.Session{}, ErrCaptchaMismatch
	}
	m.mu.Unlock()

	sess, err := m.auth.Signup(ctx, email, username, password)
	if err != nil {
		m.log.Warn("signup failed", log.FieldOperation, log.OpSignup, log.FieldError, err)
		return model.Session{}, err
	}
	m.establish(sess)

	m.mu.Lock()
	m.challenge = NewChallenge(m.intn)
	m.mu.Unlock()

	m.log.Info("signed up", log.FieldUserID, sess.User.ID)
	return sess, nil
}

// Resume restores a persisted session. Any failure tears the session down.
func (m *Manager) Resume(ctx context.Context) (model.Session, error) {
	token, err := m.creds.Token()
	if err != nil {
		m.log.Warn("reading persisted token", log.FieldError, err)
		return model.Session{}, err
	}
	if token == "" {
		return model.Session{}, ErrNotLoggedIn
	}

	m.auth.SetToken(token)
	user, err := m.auth.Me(ctx)
	if err != nil {
		m.log.Warn("resume failed", log.FieldOperation, log.OpResume, log.FieldError, err)
		m.teardown()
		return model.Session{}, err
	}

	sess := model.Session{Token: token, User: user}
	m.mu.Lock()
	m.session = sess
	m.state = StateLoggedInStale
	m.mu.Unlock()
	return sess, nil
}

// Logout clears the token everywhere. Cached snapshots stay on disk.
func (m *Manager) Logout() {
	m.log.Info("logged out", log.FieldOperation, log.OpLogout)
	m.teardown()
}

// AddTeardownHook registers fn to run after every transition to logged out.
func (m *Manager) AddTeardownHook(fn func()) {
	m.mu.Lock()
	m.teardownHooks = append(m.teardownHooks, fn)
	m.mu.Unlock()
}

// HandleUnauthorized is the API client's 401 hook.
func (m *Manager) HandleUnauthorized() {
	if m.State() == StateLoggedOut {
		return
	}
	m.log.Warn("session rejected by server, logging out")
	m.teardown()
}

// Current returns the active session.
func (m *Manager) Current() (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.state != StateLoggedOut
}

// RequireSession returns the active session or ErrNotLoggedIn.
func (m *Manager) RequireSession() (model.Session, error) {
	sess, ok := m.Current()
	if !ok {
		return model.Session{}, ErrNotLoggedIn
	}
	return sess, nil
}

// State reports the lifecycle position.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// MarkFresh records that a full refresh completed.
func (m *Manager) MarkFresh() {
	m.mu.Lock()
	if m.state != StateLoggedOut {
		m.state = StateLoggedInFresh
	}
	m.mu.Unlock()
}

// Challenge returns the current captcha.
func (m *Manager) Challenge() Challenge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.challenge
}

// NewChallenge draws and returns a fresh captcha.
func (m *Manager) NewChallenge() Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenge = NewChallenge(m.intn)
	return m.challenge
}

func (m *Manager) establish(sess model.Session) {
	m.auth.SetToken(sess.Token)
	if err := m.creds.SetToken(sess.Token); err != nil {
		m.log.Warn("persisting token", log.FieldError, err)
	}
	m.mu.Lock()
	m.session = sess
	m.state = StateLoggedInStale
	m.mu.Unlock()
}

func (m *Manager) teardown() {
	m.mu.Lock()
	m.session = model.Session{}
	m.state = StateLoggedOut
	hooks := append([]func(){}, m.teardownHooks...)
	m.mu.Unlock()

	m.auth.SetToken("")
	if err := m.creds.ClearToken(); err != nil {
		m.log.Warn("clearing persisted token", log.FieldError, err)
	}
	for _, fn := range hooks {
		fn()
	}
}
