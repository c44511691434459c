package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memStore is an in-memory AnchorStore for tests.
type memStore struct {
	mu sync.Mutex
	m  map[string]Anchor
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string]Anchor)}
}

func (s *memStore) Get(_ context.Context, key string) (Anchor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.m[key]
	return a, ok, nil
}

func (s *memStore) Put(_ context.Context, key string, a Anchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = a
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func TestRemainingMonotonic(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	engine := NewEngine(newMemStore(), WithClock(clock))
	c, err := engine.Activate(context.Background(), "k", time.Hour, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	prev := c.Remaining()
	for i := 0; i < 10; i++ {
		advance(7 * time.Minute)
		cur := c.Remaining()
		if cur > prev {
			t.Fatalf("remaining increased: %v > %v", cur, prev)
		}
		prev = cur
	}
	if prev != 0 {
		t.Fatalf("remaining after 70 minutes = %v, want 0", prev)
	}
	if !c.Expired() {
		t.Fatal("countdown not expired after duration elapsed")
	}
}

func TestActivateExpiredAnchorFiresImmediately(t *testing.T) {
	store := newMemStore()
	now := time.Now()

	// Anchored 61 minutes in the past with a 1-hour duration.
	if err := store.Put(context.Background(), "k", Anchor{
		StartedAt: now.Add(-61 * time.Minute),
		Total:     time.Hour,
	}); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(store, WithClock(func() time.Time { return now }))

	var fired int32
	c, err := engine.Activate(context.Background(), "k", time.Hour, nil, func() {
		atomic.AddInt32(&fired, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	// Expiry is synchronous at load time, before any tick could run.
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expiry fired %d times at load, want 1", fired)
	}
	if c.Remaining() != 0 {
		t.Fatalf("remaining = %v, want 0", c.Remaining())
	}
}

func TestExpiryFiresExactlyOnce(t *testing.T) {
	engine := NewEngine(newMemStore(), WithTick(5*time.Millisecond))

	var fired int32
	done := make(chan struct{})
	c, err := engine.Activate(context.Background(), "k", 20*time.Millisecond, nil, func() {
		atomic.AddInt32(&fired, 1)
		close(done)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry never fired")
	}

	// Extra ticks after expiry must not re-fire.
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("expiry fired %d times, want 1", got)
	}
}

func TestStopPreventsExpiry(t *testing.T) {
	engine := NewEngine(newMemStore(), WithTick(5*time.Millisecond))

	var fired int32
	c, err := engine.Activate(context.Background(), "k", 30*time.Millisecond, nil, func() {
		atomic.AddInt32(&fired, 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	c.Stop()
	c.Stop() // idempotent

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("expiry fired %d times after Stop, want 0", got)
	}
}

func TestClearStartsFreshAnchor(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1_700_000_000, 0)
	engine := NewEngine(store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	c1, err := engine.Activate(ctx, "k", time.Hour, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	c1.Stop()

	if err := engine.Clear(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := engine.Remaining(ctx, "k"); found {
		t.Fatal("anchor still present after Clear")
	}

	now = now.Add(30 * time.Minute)
	c2, err := engine.Activate(ctx, "k", time.Hour, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Stop()

	// A fresh sitting gets the full duration, not the stale anchor.
	if c2.Remaining() != time.Hour {
		t.Fatalf("remaining = %v, want 1h", c2.Remaining())
	}
}

func TestLevelThresholds(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{2 * time.Hour, LevelNormal},
		{5 * time.Minute, LevelNormal},
		{4 * time.Minute, LevelWarning},
		{time.Minute, LevelWarning},
		{59 * time.Second, LevelCritical},
		{0, LevelCritical},
	}
	for _, tc := range tests {
		if got := Level(tc.remaining); got != tc.want {
			t.Errorf("Level(%v) = %s, want %s", tc.remaining, got, tc.want)
		}
	}
}
