// Package store persists the credential slot and the per-user view snapshots.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/exptrack/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// TokenKey is the credential slot holding the bearer token.
const TokenKey = "expenseTrackerToken"

// Snapshots caches the last successful payload of each view per user.
type Snapshots interface {
	Get(userID int64, view model.View) (model.Snapshot, bool, error)
	Set(userID int64, view model.View, payload []byte) error
	Invalidate(userID int64, view model.View) error
	MarkStale(userID int64) error
}

// Credentials holds the persisted bearer token.
type Credentials interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Dir returns the cache directory, honouring XDG_CACHE_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "exptrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "exptrack")
}

// DefaultPath returns the full path to the cache database.
func DefaultPath() string {
	return filepath.Join(Dir(), "exptrack.db")
}

// Cache is the SQLite-backed store. It implements Snapshots and Credentials.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Token returns the persisted token, or "" when none is stored.
func (c *Cache) Token() (string, error) {
	var token string
	err := c.db.QueryRow("SELECT value FROM credentials WHERE key = ?", TokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return token, nil
}

// SetToken persists token, replacing any previous one.
func (c *Cache) SetToken(token string) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO credentials (key, value, updated_at) VALUES (?, ?, ?)`,
		TokenKey, token, c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// ClearToken removes the persisted token. Snapshots are kept.
func (c *Cache) ClearToken() error {
	if _, err := c.db.Exec("DELETE FROM credentials WHERE key = ?", TokenKey); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}

// Get returns the snapshot of view for userID.
func (c *Cache) Get(userID int64, view model.View) (model.Snapshot, bool, error) {
	var (
		payload   []byte
		fetchedAt string
		stale     int
	)
	err := c.db.QueryRow(`SELECT payload, fetched_at, stale FROM snapshots WHERE user_id = ? AND view = ?`,
		userID, string(view)).Scan(&payload, &fetchedAt, &stale)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("reading snapshot %s: %w", view, err)
	}

	snap := model.Snapshot{
		UserID:  userID,
		View:    view,
		Payload: payload,
		Stale:   stale != 0,
	}
	if t, err := time.Parse(time.RFC3339Nano, fetchedAt); err == nil {
		snap.FetchedAt = t
	}
	return snap, true, nil
}

// Set stores payload as the latest snapshot and clears its stale flag.
func (c *Cache) Set(userID int64, view model.View, payload []byte) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO snapshots (user_id, view, payload, fetched_at, stale)
		VALUES (?, ?, ?, ?, 0)`,
		userID, string(view), payload, c.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", view, err)
	}
	return nil
}

// Invalidate drops one snapshot.
func (c *Cache) Invalidate(userID int64, view model.View) error {
	_, err := c.db.Exec("DELETE FROM snapshots WHERE user_id = ? AND view = ?", userID, string(view))
	if err != nil {
		return fmt.Errorf("invalidating snapshot %s: %w", view, err)
	}
	return nil
}

// MarkStale flags every snapshot of userID as stale until its next Set.
func (c *Cache) MarkStale(userID int64) error {
	if _, err := c.db.Exec("UPDATE snapshots SET stale = 1 WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("marking snapshots stale: %w", err)
	}
	return nil
}

// SnapshotCount returns the number of stored snapshots.
func (c *Cache) SnapshotCount() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n)
	return n, err
}

var (
	_ Snapshots   = (*Cache)(nil)
	_ Credentials = (*Cache)(nil)
	_ Snapshots   = (*RedisSnapshots)(nil)
	_ Credentials = (*MemoryCredentials)(nil)
)
