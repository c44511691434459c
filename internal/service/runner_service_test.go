package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/progress"
	"github.com/lexprep/barprep-backend/internal/timer"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeInserter struct {
	err   error
	calls int
}

func (f *fakeInserter) Insert(_ context.Context, _ *model.ExamAttempt) error {
	f.calls++
	return f.err
}

// deadRedis returns a client whose every command fails fast: nothing listens
// on port 1.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

type fixedAnchorStore struct {
	anchor timer.Anchor
	found  bool
}

func (s fixedAnchorStore) Get(context.Context, string) (timer.Anchor, bool, error) {
	return s.anchor, s.found, nil
}
func (s fixedAnchorStore) Put(context.Context, string, timer.Anchor) error { return nil }
func (s fixedAnchorStore) Delete(context.Context, string) error            { return nil }

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("kv down")
}
func (failingKV) Set(context.Context, string, []byte) error { return errors.New("kv down") }
func (failingKV) Del(context.Context, string) error         { return errors.New("kv down") }

func TestPersistAttemptFallsBackToDirectInsert(t *testing.T) {
	ins := &fakeInserter{}
	s := NewRunnerService(nil, nil, ins, nil, nil, deadRedis(), nil, zerolog.Nop())

	if !s.persistAttempt(context.Background(), &model.ExamAttempt{UserID: 7}) {
		t.Fatal("fallback insert succeeded but persistAttempt reported failure")
	}
	if ins.calls != 1 {
		t.Fatalf("fallback insert called %d times, want 1", ins.calls)
	}
}

func TestPersistAttemptSwallowsDoubleFailure(t *testing.T) {
	ins := &fakeInserter{err: errors.New("db down")}
	s := NewRunnerService(nil, nil, ins, nil, nil, deadRedis(), nil, zerolog.Nop())

	if s.persistAttempt(context.Background(), &model.ExamAttempt{UserID: 7}) {
		t.Fatal("both persistence paths failed but persistAttempt reported success")
	}
}

func TestFinishIfExpiredReportsFinishFailure(t *testing.T) {
	// Countdown ran out an hour ago, but the finish itself cannot proceed
	// (progress backend down). The session is still live and resumable, and
	// the report must say so.
	engine := timer.NewEngine(fixedAnchorStore{
		anchor: timer.Anchor{StartedAt: time.Now().Add(-2 * time.Hour), Total: time.Hour},
		found:  true,
	})
	s := NewRunnerService(nil, nil, nil, progress.NewStore(failingKV{}), engine, nil, nil, zerolog.Nop())

	exam := &model.Exam{Title: "Timed Mock", ExamTime: "1 hour"}
	actor := model.Actor{GuestID: "g-1", Role: model.RoleGuest}

	if s.finishIfExpired(context.Background(), actor, exam) {
		t.Fatal("finish failed but finishIfExpired reported the session closed")
	}
}

func TestFinishIfExpiredIgnoresRunningCountdown(t *testing.T) {
	engine := timer.NewEngine(fixedAnchorStore{
		anchor: timer.Anchor{StartedAt: time.Now(), Total: time.Hour},
		found:  true,
	})
	s := NewRunnerService(nil, nil, nil, progress.NewStore(failingKV{}), engine, nil, nil, zerolog.Nop())

	exam := &model.Exam{Title: "Timed Mock", ExamTime: "1 hour"}
	if s.finishIfExpired(context.Background(), model.Actor{GuestID: "g-2", Role: model.RoleGuest}, exam) {
		t.Fatal("countdown still running but finishIfExpired fired")
	}
}
