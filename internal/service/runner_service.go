package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lexprep/barprep-backend/internal/config"
	"github.com/lexprep/barprep-backend/internal/grading"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/progress"
	"github.com/lexprep/barprep-backend/internal/repository"
	"github.com/lexprep/barprep-backend/internal/timer"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Runner errors.
var (
	ErrSessionNotActive     = errors.New("no active exam session")
	ErrConfirmationRequired = errors.New("finish requires confirmation")
	ErrInvalidPosition      = errors.New("question position out of range")
)

// attemptInserter is the slice of the attempt repository the runner needs:
// the inline fallback write when the queue is down.
type attemptInserter interface {
	Insert(ctx context.Context, attempt *model.ExamAttempt) error
}

// RunnerService orchestrates a live exam session: progress, countdown, and
// the finish sequence. All session state lives in Redis keyed by actor, so a
// taker can drop their connection and resume from any device.
type RunnerService struct {
	catalog      *CatalogService
	questionRepo *repository.QuestionRepository
	attemptRepo  attemptInserter
	progress     *progress.Store
	engine       *timer.Engine
	rdb          *redis.Client
	cfg          *config.Config
	log          zerolog.Logger
}

// NewRunnerService creates a new RunnerService.
func NewRunnerService(
	catalog *CatalogService,
	questionRepo *repository.QuestionRepository,
	attemptRepo attemptInserter,
	progressStore *progress.Store,
	engine *timer.Engine,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *RunnerService {
	return &RunnerService{
		catalog:      catalog,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		progress:     progressStore,
		engine:       engine,
		rdb:          rdb,
		cfg:          cfg,
		log:          log.With().Str("component", "runner_service").Logger(),
	}
}

// RunnerState is the full session view returned to the taker.
type RunnerState struct {
	Exam             *model.ExamPayload `json:"exam"`
	Progress         progress.State     `json:"progress"`
	RemainingSeconds *int64             `json:"remaining_seconds,omitempty"`
	TimerLevel       string             `json:"timer_level,omitempty"`
	Resumed          bool               `json:"resumed"`
}

// FinishResult is returned by Finish: the graded summary plus, for
// registered users, the id of the durable attempt being persisted.
type FinishResult struct {
	Result    grading.Result `json:"result"`
	AttemptID *uuid.UUID     `json:"attempt_id,omitempty"`
}

func (s *RunnerService) progressKey(actor model.Actor, exam *model.Exam) string {
	return config.CacheKey.ProgressKey(actor.Key(), progress.Slug(exam.Title))
}

// AnchorKey is the Redis key anchoring this actor's countdown on this exam.
// Exported for the WebSocket stream, which drives the ticking loop itself.
func (s *RunnerService) AnchorKey(actor model.Actor, exam *model.Exam) string {
	return config.CacheKey.TimerAnchorKey(actor.Key(), progress.Slug(exam.Title))
}

// Start opens (or resumes) a session on an exam. A fresh start writes an
// empty progress document and, for timed exams, a countdown anchor; a
// returning taker gets their saved state and the remaining time from the
// original anchor.
func (s *RunnerService) Start(ctx context.Context, actor model.Actor, exam *model.Exam) (*RunnerState, error) {
	if actor.IsRegistered() && exam.MaxAttempts != nil {
		remaining, err := s.catalog.RemainingAttempts(ctx, *actor.UserID, exam)
		if err != nil {
			return nil, err
		}
		if remaining != nil && *remaining <= 0 {
			return nil, ErrAttemptLimitReached
		}
	}

	payload, err := s.catalog.GetExamPayload(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	pkey := s.progressKey(actor, exam)
	state, found, err := s.progress.Load(ctx, pkey)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if found && s.finishIfExpired(ctx, actor, exam) {
		// The resumed session had already run out of time. It is finished
		// with the answers it had; the results are ready, not this start.
		return nil, ErrSessionNotActive
	}
	if !found {
		// Mark the session active. The empty document is what Finish later
		// checks for, so untimed exams have an active marker too.
		if err := s.progress.Save(ctx, pkey, state); err != nil {
			return nil, fmt.Errorf("init progress: %w", err)
		}
	}

	view := &RunnerState{Exam: payload, Progress: state, Resumed: found}

	if total, timed := timer.ParseExamTime(exam.ExamTime); timed {
		remaining, err := s.engine.Ensure(ctx, s.AnchorKey(actor, exam), total)
		if err != nil {
			return nil, fmt.Errorf("anchor timer: %w", err)
		}
		secs := int64(remaining / time.Second)
		view.RemainingSeconds = &secs
		view.TimerLevel = timer.Level(remaining)
	}

	return view, nil
}

// State returns the current session view. Returns ErrSessionNotActive when
// the taker has no open session on the exam, including when an expired
// countdown was just observed and the session auto-finished.
func (s *RunnerService) State(ctx context.Context, actor model.Actor, exam *model.Exam) (*RunnerState, error) {
	pkey := s.progressKey(actor, exam)
	state, found, err := s.progress.Load(ctx, pkey)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		return nil, ErrSessionNotActive
	}
	if s.finishIfExpired(ctx, actor, exam) {
		return nil, ErrSessionNotActive
	}

	payload, err := s.catalog.GetExamPayload(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	view := &RunnerState{Exam: payload, Progress: state, Resumed: true}
	if _, timed := timer.ParseExamTime(exam.ExamTime); timed {
		remaining, ok, err := s.engine.Remaining(ctx, s.AnchorKey(actor, exam))
		if err == nil && ok {
			secs := int64(remaining / time.Second)
			view.RemainingSeconds = &secs
			view.TimerLevel = timer.Level(remaining)
		}
	}
	return view, nil
}

// Expired reports whether a timed session's countdown has run out.
func (s *RunnerService) Expired(ctx context.Context, actor model.Actor, exam *model.Exam) bool {
	if _, timed := timer.ParseExamTime(exam.ExamTime); !timed {
		return false
	}
	remaining, ok, err := s.engine.Remaining(ctx, s.AnchorKey(actor, exam))
	return err == nil && ok && remaining <= 0
}

// finishIfExpired finishes the session with whatever answers exist when the
// countdown has run out, so an expired exam observed over REST ends the same
// way it would over the socket. Reports whether a finish actually happened;
// a failed finish leaves the session active and resumable, and saying so
// would strand the taker with a session nobody can reach.
func (s *RunnerService) finishIfExpired(ctx context.Context, actor model.Actor, exam *model.Exam) bool {
	if !s.Expired(ctx, actor, exam) {
		return false
	}
	if _, err := s.Finish(ctx, actor, exam, false); err != nil {
		s.log.Error().Err(err).Str("actor", actor.Key()).Msg("Auto-finish on expiry failed")
		return false
	}
	return true
}

// mutate loads the active session state, applies fn, and writes the whole
// document back. Writes are last-write-wins; the newest full state replaces
// whatever was stored.
func (s *RunnerService) mutate(ctx context.Context, actor model.Actor, exam *model.Exam, fn func(*progress.State) error) (progress.State, error) {
	pkey := s.progressKey(actor, exam)
	state, found, err := s.progress.Load(ctx, pkey)
	if err != nil {
		return state, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		return state, ErrSessionNotActive
	}
	if s.finishIfExpired(ctx, actor, exam) {
		return state, ErrSessionNotActive
	}
	if err := fn(&state); err != nil {
		return state, err
	}
	if err := s.progress.Save(ctx, pkey, state); err != nil {
		return state, fmt.Errorf("save progress: %w", err)
	}
	return state, nil
}

// Answer records (or overwrites) the chosen option for a question.
func (s *RunnerService) Answer(ctx context.Context, actor model.Actor, exam *model.Exam, position int, optionID string) (progress.State, error) {
	return s.mutate(ctx, actor, exam, func(st *progress.State) error {
		if position < 1 || position > exam.QuestionCount {
			return ErrInvalidPosition
		}
		st.SelectAnswer(position, optionID)
		return nil
	})
}

// ToggleBookmark flips the bookmark flag on a question.
func (s *RunnerService) ToggleBookmark(ctx context.Context, actor model.Actor, exam *model.Exam, position int) (progress.State, error) {
	return s.mutate(ctx, actor, exam, func(st *progress.State) error {
		if position < 1 || position > exam.QuestionCount {
			return ErrInvalidPosition
		}
		st.ToggleBookmark(position)
		return nil
	})
}

// Navigate moves the taker's current question index, clamped to the bank.
func (s *RunnerService) Navigate(ctx context.Context, actor model.Actor, exam *model.Exam, index int) (progress.State, error) {
	return s.mutate(ctx, actor, exam, func(st *progress.State) error {
		st.Navigate(index, exam.QuestionCount-1)
		return nil
	})
}

// Finish grades the session and tears it down. Unless the countdown has
// expired, the caller must pass confirmed=true; an accidental finish is
// unrecoverable once the session keys are cleared.
//
// The sequence is: grade from the authoritative bank, write the finished
// results snapshot, enqueue the durable attempt (registered users only),
// then clear the progress document and timer anchor. Clearing last means a
// crash mid-finish leaves a resumable session rather than a lost one, and
// clearing at all means a second Finish call finds no active session.
func (s *RunnerService) Finish(ctx context.Context, actor model.Actor, exam *model.Exam, confirmed bool) (*FinishResult, error) {
	pkey := s.progressKey(actor, exam)
	state, found, err := s.progress.Load(ctx, pkey)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		return nil, ErrSessionNotActive
	}

	expired := s.Expired(ctx, actor, exam)
	if !confirmed && !expired {
		return nil, ErrConfirmationRequired
	}

	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	result := grading.Grade(state.Answers, toGradingQuestions(questions))

	snapshot := model.ResultsSnapshot{
		ExamID:     exam.ID,
		ExamTitle:  exam.Title,
		Finished:   true,
		Answers:    state.Answers,
		Questions:  questions,
		FinishedAt: time.Now(),
	}

	out := &FinishResult{Result: result}

	if actor.IsRegistered() {
		// The attempt id is allocated here, before the queue hop, so worker
		// retries and redeliveries insert the same row at most once.
		attemptID := uuid.New()
		snapshot.AttemptID = &attemptID
		out.AttemptID = &attemptID

		attempt := model.ExamAttempt{
			ID:              attemptID,
			ExamID:          exam.ID,
			UserID:          *actor.UserID,
			TotalQuestions:  result.Total,
			AnsweredCount:   result.Answered,
			CorrectCount:    result.Correct,
			IncorrectCount:  result.Incorrect,
			UnansweredCount: result.Unanswered,
			Score:           result.Percentage,
			Answers:         state.Answers,
			SubmittedAt:     snapshot.FinishedAt,
		}
		if !s.persistAttempt(ctx, &attempt) {
			// Durable history is lost for this sitting, but the snapshot
			// still carries the grade. Never block the results transition.
			snapshot.AttemptID = nil
			out.AttemptID = nil
		}
	}

	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	skey := config.CacheKey.SnapshotKey(actor.Key(), exam.ID.String())
	if err := s.rdb.Set(ctx, skey, snapJSON, s.cfg.SnapshotTTL).Err(); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	if err := s.progress.Clear(ctx, pkey); err != nil {
		s.log.Error().Err(err).Str("key", pkey).Msg("Failed to clear progress")
	}
	if err := s.engine.Clear(ctx, s.AnchorKey(actor, exam)); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear timer anchor")
	}

	return out, nil
}

// persistAttempt hands the attempt to the queue worker, falling back to a
// direct insert when the queue is down. Best-effort: both paths failing is
// logged, not returned, and reported as false so the caller can drop the
// attempt id from the results.
func (s *RunnerService) persistAttempt(ctx context.Context, attempt *model.ExamAttempt) bool {
	raw, err := json.Marshal(attempt)
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to marshal attempt")
		return false
	}
	pushErr := s.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw).Err()
	if pushErr == nil {
		return true
	}
	s.log.Warn().Err(pushErr).Msg("enqueue failed, persisting attempt inline")
	if err := s.attemptRepo.Insert(ctx, attempt); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to persist attempt")
		return false
	}
	return true
}

// toGradingQuestions projects the stored bank onto the grading input shape.
func toGradingQuestions(questions []model.Question) []grading.Question {
	out := make([]grading.Question, 0, len(questions))
	for _, q := range questions {
		opts := make([]grading.Option, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, grading.Option{ID: o.ID, IsCorrect: o.IsCorrect})
		}
		out = append(out, grading.Question{
			Position: q.Position,
			Category: q.Category,
			Options:  opts,
		})
	}
	return out
}
