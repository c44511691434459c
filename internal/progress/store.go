package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KV is the minimal key/value surface the store needs. Redis in production;
// tests supply an in-memory map.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Store saves and loads sitting state documents. Malformed documents load as
// "no progress" rather than erroring; a stuck runner is worse than a lost
// bookmark.
type Store struct {
	kv KV
}

// NewStore creates a progress store over the given key/value backend.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Save writes the whole state document for key. Called after every
// state-mutating action; each write carries the full state.
func (s *Store) Save(ctx context.Context, key string, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Load reads the state document for key. The boolean reports key presence:
// an empty document still counts as found, since the runner writes one to
// mark a session active before the first answer lands. A document that fails
// to parse loads as found with no progress.
func (s *Store) Load(ctx context.Context, key string) (State, bool, error) {
	data, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return NewState(), false, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		return NewState(), false, nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return NewState(), true, nil
	}
	if state.Answers == nil {
		state.Answers = make(map[int]string)
	}
	return state, true, nil
}

// Clear deletes the state document for key so the next sitting starts empty.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.kv.Del(ctx, key); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

// RedisKV adapts a Redis client to the KV interface.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV wraps a Redis client for use as a progress backend.
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}
