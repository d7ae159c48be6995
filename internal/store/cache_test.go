package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/exptrack/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "exptrack.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTokenSlot(t *testing.T) {
	c := openTestCache(t)

	tok, err := c.Token()
	if err != nil || tok != "" {
		t.Fatalf("empty slot: %q, %v", tok, err)
	}
	if err := c.SetToken("first"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetToken("second"); err != nil {
		t.Fatal(err)
	}
	if tok, _ := c.Token(); tok != "second" {
		t.Errorf("token = %q, want second", tok)
	}
	if err := c.ClearToken(); err != nil {
		t.Fatal(err)
	}
	if tok, _ := c.Token(); tok != "" {
		t.Errorf("token after clear = %q", tok)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	c := openTestCache(t)
	fixed := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	if _, ok, err := c.Get(7, model.ViewStats); err != nil || ok {
		t.Fatalf("Get on empty cache = %v, %v", ok, err)
	}

	if err := c.Set(7, model.ViewStats, []byte(`{"totalSpent":"10"}`)); err != nil {
		t.Fatal(err)
	}
	snap, ok, err := c.Get(7, model.ViewStats)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if string(snap.Payload) != `{"totalSpent":"10"}` || snap.Stale || !snap.FetchedAt.Equal(fixed) {
		t.Errorf("snapshot = %+v", snap)
	}

	if err := c.MarkStale(7); err != nil {
		t.Fatal(err)
	}
	if snap, _, _ = c.Get(7, model.ViewStats); !snap.Stale {
		t.Error("snapshot should be stale after MarkStale")
	}

	if err := c.Set(7, model.ViewStats, []byte(`{"totalSpent":"11"}`)); err != nil {
		t.Fatal(err)
	}
	if snap, _, _ = c.Get(7, model.ViewStats); snap.Stale || string(snap.Payload) != `{"totalSpent":"11"}` {
		t.Errorf("Set should replace payload and clear stale: %+v", snap)
	}

	if err := c.Invalidate(7, model.ViewStats); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(7, model.ViewStats); ok {
		t.Error("snapshot should be gone after Invalidate")
	}
}

func TestSnapshotsAreScopedPerUser(t *testing.T) {
	c := openTestCache(t)
	if err := c.Set(1, model.ViewExpenses, []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(2, model.ViewExpenses, []byte(`[2]`)); err != nil {
		t.Fatal(err)
	}
	if err := c.MarkStale(1); err != nil {
		t.Fatal(err)
	}

	other, _, _ := c.Get(2, model.ViewExpenses)
	if other.Stale || string(other.Payload) != `[2]` {
		t.Errorf("user 2 snapshot touched: %+v", other)
	}
	if n, _ := c.SnapshotCount(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestClearTokenKeepsSnapshots(t *testing.T) {
	c := openTestCache(t)
	_ = c.SetToken("tok")
	_ = c.Set(1, model.ViewPredict, []byte(`{}`))
	_ = c.ClearToken()
	if _, ok, _ := c.Get(1, model.ViewPredict); !ok {
		t.Error("logout must keep cached snapshots")
	}
}

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey(42, model.ViewMonthly); got != "expenseTracker_42_monthly" {
		t.Errorf("SnapshotKey = %q", got)
	}
}

func TestMemoryCredentials(t *testing.T) {
	m := NewMemoryCredentials("env-token")
	if tok, _ := m.Token(); tok != "env-token" {
		t.Errorf("token = %q", tok)
	}
	_ = m.ClearToken()
	if tok, _ := m.Token(); tok != "" {
		t.Errorf("token after clear = %q", tok)
	}
}
