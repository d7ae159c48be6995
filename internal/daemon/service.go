// Package daemon provides the background refresher that keeps the snapshot
// cache warm and reports ledger changes over a local HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/exptrack/internal/dashboard"
	"github.com/theirongolddev/exptrack/internal/log"
	"github.com/theirongolddev/exptrack/internal/session"
)

// Event types.
const (
	EventSnapshot    = "snapshot"
	EventLedgerDelta = "ledger_delta"
)

// DefaultAddr is the daemon's listen address when none is configured.
const DefaultAddr = "127.0.0.1:8797"

// ErrLoggedOut is recorded for polls skipped without a session.
var ErrLoggedOut = errors.New("not logged in")

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	APIURL       string
	Logger       *log.Logger
}

// Refresher re-fetches the dashboard views. *dashboard.Dashboard
// implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
	Summary() dashboard.Summary
}

// SessionState reports whether a session is active.
type SessionState interface {
	State() session.State
}

// Snapshot is a compact ledger state for status/event payloads.
type Snapshot struct {
	At          time.Time       `json:"at"`
	Entries     int             `json:"entries"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	Categories  int             `json:"categories"`
	TopCategory string          `json:"top_category,omitempty"`
	Month       string          `json:"month,omitempty"`
	MonthTotal  decimal.Decimal `json:"month_total"`
	MonthCount  int             `json:"month_count"`
	Predicted   decimal.Decimal `json:"predicted"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	Entries    int             `json:"entries"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	MonthTotal decimal.Decimal `json:"month_total"`
	MonthCount int             `json:"month_count"`
}

func (d Delta) isZero() bool {
	return d.Entries == 0 &&
		d.TotalSpent.IsZero() &&
		d.MonthTotal.IsZero() &&
		d.MonthCount == 0
}

// Event is emitted whenever the ledger snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	APIURL          string    `json:"api_url,omitempty"`
	Session         string    `json:"session"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	ledger Refresher
	sess   SessionState
	log    *log.Logger
	now    func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service polling ledger while sess is logged in.
func New(cfg Config, ledger Refresher, sess SessionState) *Service {
	if cfg.Interval < 10*time.Second {
		cfg.Interval = time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &Service{
		cfg:       cfg,
		ledger:    ledger,
		sess:      sess,
		log:       logger.WithComponent(log.ComponentDaemon),
		now:       time.Now,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the daemon's HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("daemon listening", "addr", s.cfg.Addr, "interval", s.cfg.Interval.String())

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	now := s.now()

	var err error
	if s.sess.State() == session.StateLoggedOut {
		err = ErrLoggedOut
	} else {
		err = s.ledger.Refresh(ctx)
	}
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		if !errors.Is(err, ErrLoggedOut) {
			s.log.Warn("poll failed", log.FieldError, err)
		}
		return
	}

	snap := snapshotFromSummary(s.ledger.Summary(), now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventLedgerDelta, Timestamp: now, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.log.Debug("publishing event", "type", ev.Type, "id", ev.ID)
		s.publishEvent(ev)
	}
}

func snapshotFromSummary(sum dashboard.Summary, at time.Time) Snapshot {
	return Snapshot{
		At:          at,
		Entries:     sum.Entries,
		TotalSpent:  sum.TotalSpent,
		Categories:  sum.Categories,
		TopCategory: sum.TopCategory,
		Month:       sum.MonthLabel,
		MonthTotal:  sum.MonthTotal,
		MonthCount:  sum.MonthCount,
		Predicted:   sum.Predicted,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Entries:    curr.Entries - prev.Entries,
		TotalSpent: curr.TotalSpent.Sub(prev.TotalSpent),
		MonthTotal: curr.MonthTotal.Sub(prev.MonthTotal),
		MonthCount: curr.MonthCount - prev.MonthCount,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		APIURL:          s.cfg.APIURL,
		Session:         s.sess.State().String(),
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

// handleEvents lists buffered events, optionally only those after ?since=<id>.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	since, err := parseEventID(r.URL.Query().Get("since"))
	if err != nil {
		http.Error(w, "since must be an event id", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.eventsAfter(since))
}

// handleStream serves events as SSE. A reconnecting client sending
// Last-Event-ID first receives the buffered events it missed; a new client
// receives the current snapshot.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	lastID, err := parseEventID(r.Header.Get("Last-Event-ID"))
	if err != nil {
		http.Error(w, "invalid Last-Event-ID", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	sent := lastID
	if lastID > 0 {
		for _, ev := range s.eventsAfter(lastID) {
			writeSSE(w, ev)
			sent = ev.ID
		}
	} else {
		writeSSE(w, Event{
			Type:      EventSnapshot,
			Timestamp: s.now(),
			Snapshot:  s.snapshotStatus().Summary,
		})
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if ev.ID <= sent {
				continue // already replayed
			}
			writeSSE(w, ev)
			sent = ev.ID
			flusher.Flush()
		}
	}
}

func (s *Service) eventsAfter(id int64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.ID > id {
			out = append(out, ev)
		}
	}
	return out
}

func parseEventID(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
