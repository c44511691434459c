package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Anchor pins one exam sitting to wall-clock time. Remaining time is always
// recomputed from the anchor, so it survives the process (or the taker's
// browser) going away entirely.
type Anchor struct {
	StartedAt time.Time
	Total     time.Duration
}

// Remaining returns the time left at the given instant, floored at zero.
func (a Anchor) Remaining(now time.Time) time.Duration {
	remaining := a.Total - now.Sub(a.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AnchorStore persists timer anchors per session key. The anchor write must
// be flushed before the first tick reads it.
type AnchorStore interface {
	Get(ctx context.Context, key string) (Anchor, bool, error)
	Put(ctx context.Context, key string, a Anchor) error
	Delete(ctx context.Context, key string) error
}

// anchorDoc is the Redis wire form of an Anchor.
type anchorDoc struct {
	StartedAtUnixMS int64 `json:"started_at_ms"`
	TotalMS         int64 `json:"total_ms"`
}

// RedisAnchorStore keeps anchors in Redis so a sitting resumes correctly
// after reloads, tab closures, and server restarts.
type RedisAnchorStore struct {
	rdb *redis.Client
	// ttl pads retention past the exam duration so abandoned anchors are
	// eventually reclaimed.
	ttl time.Duration
}

// NewRedisAnchorStore creates a Redis-backed anchor store. retention is added
// to each anchor's own duration to form its TTL.
func NewRedisAnchorStore(rdb *redis.Client, retention time.Duration) *RedisAnchorStore {
	return &RedisAnchorStore{rdb: rdb, ttl: retention}
}

func (s *RedisAnchorStore) Get(ctx context.Context, key string) (Anchor, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Anchor{}, false, nil
		}
		return Anchor{}, false, fmt.Errorf("get anchor: %w", err)
	}

	var doc anchorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt anchor is treated as absent; the sitting restarts its
		// clock rather than crashing the runner.
		return Anchor{}, false, nil
	}

	return Anchor{
		StartedAt: time.UnixMilli(doc.StartedAtUnixMS),
		Total:     time.Duration(doc.TotalMS) * time.Millisecond,
	}, true, nil
}

func (s *RedisAnchorStore) Put(ctx context.Context, key string, a Anchor) error {
	doc := anchorDoc{
		StartedAtUnixMS: a.StartedAt.UnixMilli(),
		TotalMS:         a.Total.Milliseconds(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal anchor: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, a.Total+s.ttl).Err(); err != nil {
		return fmt.Errorf("put anchor: %w", err)
	}
	return nil
}

func (s *RedisAnchorStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete anchor: %w", err)
	}
	return nil
}
