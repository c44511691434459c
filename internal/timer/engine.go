package timer

import (
	"context"
	"sync"
	"time"
)

// Presentation levels for the remaining time. Purely presentational; the
// countdown itself has no extra states.
const (
	LevelNormal   = "normal"
	LevelWarning  = "warning"  // below 5 minutes
	LevelCritical = "critical" // below 1 minute
)

// Level classifies remaining time for display.
func Level(remaining time.Duration) string {
	switch {
	case remaining < time.Minute:
		return LevelCritical
	case remaining < 5*time.Minute:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Engine produces wall-clock-anchored countdowns. Anchors persist through the
// AnchorStore so elapsed time stays correct across reloads and restarts.
type Engine struct {
	store AnchorStore
	clock func() time.Time
	tick  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithTick overrides the one-second tick granularity, for tests.
func WithTick(tick time.Duration) Option {
	return func(e *Engine) { e.tick = tick }
}

// NewEngine creates a countdown engine over the given anchor store.
func NewEngine(store AnchorStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: time.Now,
		tick:  time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Countdown is one active ticking handle. The engine owns exactly one handle
// per session key at a time; Stop is safe to call on every exit path and more
// than once.
type Countdown struct {
	anchor Anchor
	clock  func() time.Time

	stopOnce   sync.Once
	expireOnce sync.Once
	done       chan struct{}
}

// Remaining recomputes the time left from the wall-clock anchor. Successive
// reads are non-increasing absent a reset.
func (c *Countdown) Remaining() time.Duration {
	return c.anchor.Remaining(c.clock())
}

// Expired reports whether the countdown has reached zero.
func (c *Countdown) Expired() bool {
	return c.Remaining() <= 0
}

// Stop cancels the ticking loop. Idempotent.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Countdown) expire(onExpire func()) {
	c.expireOnce.Do(func() {
		if onExpire != nil {
			onExpire()
		}
	})
}

// Activate loads the persisted anchor for key, creating and flushing one with
// the given total duration on first activation. If the countdown is already
// expired at load time, onExpire fires synchronously exactly once and no
// ticking starts. Otherwise a loop recomputes the remaining time every tick,
// reporting it through onTick (may be nil), and fires onExpire exactly once on
// reaching zero. The returned Countdown must be stopped by the caller on every
// exit path.
func (e *Engine) Activate(ctx context.Context, key string, total time.Duration, onTick func(remaining time.Duration), onExpire func()) (*Countdown, error) {
	anchor, found, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		anchor = Anchor{StartedAt: e.clock(), Total: total}
		// The anchor write happens-before the first tick read.
		if err := e.store.Put(ctx, key, anchor); err != nil {
			return nil, err
		}
	}

	c := &Countdown{
		anchor: anchor,
		clock:  e.clock,
		done:   make(chan struct{}),
	}

	if c.Remaining() <= 0 {
		c.Stop()
		c.expire(onExpire)
		return c, nil
	}

	go func() {
		ticker := time.NewTicker(e.tick)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				remaining := c.Remaining()
				if remaining <= 0 {
					c.Stop()
					c.expire(onExpire)
					return
				}
				if onTick != nil {
					onTick(remaining)
				}
			}
		}
	}()

	return c, nil
}

// Ensure lays down an anchor for key if none exists, without starting a
// ticking loop, and returns the remaining time. A later Activate on the same
// key resumes from this anchor.
func (e *Engine) Ensure(ctx context.Context, key string, total time.Duration) (time.Duration, error) {
	anchor, found, err := e.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !found {
		anchor = Anchor{StartedAt: e.clock(), Total: total}
		if err := e.store.Put(ctx, key, anchor); err != nil {
			return 0, err
		}
	}
	return anchor.Remaining(e.clock()), nil
}

// Remaining reads the anchor for key without starting a countdown. The second
// return value is false when no anchor exists (untimed or never started).
func (e *Engine) Remaining(ctx context.Context, key string) (time.Duration, bool, error) {
	anchor, found, err := e.store.Get(ctx, key)
	if err != nil || !found {
		return 0, false, err
	}
	return anchor.Remaining(e.clock()), true, nil
}

// Clear deletes the anchor for key so a later sitting starts a fresh timer
// instead of resuming a stale one.
func (e *Engine) Clear(ctx context.Context, key string) error {
	return e.store.Delete(ctx, key)
}
