package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/theirongolddev/exptrack/internal/model"
)

const redisOpTimeout = 5 * time.Second

// RedisSnapshots stores snapshots in Redis hashes keyed
// expenseTracker_<userID>_<view>.
type RedisSnapshots struct {
	client *redis.Client
	now    func() time.Time
}

// OpenRedis connects to redisURL and verifies the connection.
func OpenRedis(redisURL string) (*RedisSnapshots, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisSnapshots(client), nil
}

// NewRedisSnapshots wraps an existing client.
func NewRedisSnapshots(client *redis.Client) *RedisSnapshots {
	return &RedisSnapshots{client: client, now: time.Now}
}

// Close closes the underlying client.
func (r *RedisSnapshots) Close() error {
	return r.client.Close()
}

// SnapshotKey is the key a view's snapshot lives under.
func SnapshotKey(userID int64, view model.View) string {
	return fmt.Sprintf("expenseTracker_%d_%s", userID, view)
}

// Get returns the snapshot of view for userID.
func (r *RedisSnapshots) Get(userID int64, view model.View) (model.Snapshot, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, SnapshotKey(userID, view)).Result()
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("reading snapshot %s: %w", view, err)
	}
	payload, ok := fields["payload"]
	if !ok {
		return model.Snapshot{}, false, nil
	}

	snap := model.Snapshot{
		UserID:  userID,
		View:    view,
		Payload: []byte(payload),
		Stale:   fields["stale"] == "1",
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["fetched_at"]); err == nil {
		snap.FetchedAt = t
	}
	return snap, true, nil
}

// Set stores payload and clears the stale flag.
func (r *RedisSnapshots) Set(userID int64, view model.View, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	err := r.client.HSet(ctx, SnapshotKey(userID, view),
		"payload", payload,
		"fetched_at", r.now().UTC().Format(time.RFC3339Nano),
		"stale", "0",
	).Err()
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", view, err)
	}
	return nil
}

// Invalidate deletes one snapshot.
func (r *RedisSnapshots) Invalidate(userID int64, view model.View) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Del(ctx, SnapshotKey(userID, view)).Err(); err != nil {
		return fmt.Errorf("invalidating snapshot %s: %w", view, err)
	}
	return nil
}

// MarkStale flags every existing snapshot of userID as stale.
func (r *RedisSnapshots) MarkStale(userID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var errs []error
	for _, view := range model.AllViews {
		key := SnapshotKey(userID, view)
		n, err := r.client.Exists(ctx, key).Result()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if n == 0 {
			continue
		}
		if err := r.client.HSet(ctx, key, "stale", "1").Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("marking snapshots stale: %w", err)
	}
	return nil
}
