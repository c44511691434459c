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
	"github.com/lexprep/barprep-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Results errors.
var (
	ErrResultsNotReady = errors.New("exam is not finished, results are not available")
	ErrAttemptNotFound = errors.New("attempt not found")
)

// ResultsSource tells the client which record backed the view.
type ResultsSource string

const (
	SourceDurable ResultsSource = "durable"
	SourceSession ResultsSource = "session"
)

// OptionReview is one answer choice in the post-exam review, correctness
// revealed.
type OptionReview struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionReview is one fully-revealed question in the post-exam review.
type QuestionReview struct {
	Position        int            `json:"position"`
	Category        string         `json:"category"`
	Text            string         `json:"text"`
	Explanation     string         `json:"explanation,omitempty"`
	Options         []OptionReview `json:"options"`
	ChosenOptionID  string         `json:"chosen_option_id,omitempty"`
	CorrectOptionID string         `json:"correct_option_id,omitempty"`
	Status          grading.Status `json:"status"`
}

// ResultsView is the unified results page. Both the session snapshot and the
// durable attempt resolve to this one shape, so clients render a single view
// regardless of where the record came from.
type ResultsView struct {
	ExamID     uuid.UUID        `json:"exam_id"`
	ExamTitle  string           `json:"exam_title"`
	Source     ResultsSource    `json:"source"`
	Summary    grading.Result   `json:"summary"`
	Questions  []QuestionReview `json:"questions"`
	AttemptID  *uuid.UUID       `json:"attempt_id,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
}

// ResultsService renders finished exams. Guests read the Redis snapshot;
// registered users can also read back any durable attempt.
type ResultsService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewResultsService creates a new ResultsService.
func NewResultsService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ResultsService {
	return &ResultsService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "results_service").Logger(),
	}
}

// FromSession renders results from the actor's ephemeral snapshot. Refuses
// unless the snapshot is marked finished; an unfinished or missing snapshot
// means the taker has nothing to review yet.
func (s *ResultsService) FromSession(ctx context.Context, actor model.Actor, examID uuid.UUID) (*ResultsView, error) {
	key := config.CacheKey.SnapshotKey(actor.Key(), examID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultsNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap model.ResultsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if !snap.Finished {
		return nil, ErrResultsNotReady
	}

	view := buildView(snap.ExamID, snap.ExamTitle, SourceSession, snap.Answers, snap.Questions, snap.FinishedAt)
	view.AttemptID = snap.AttemptID
	return view, nil
}

// FromAttempt renders results from a durable attempt record. The record must
// belong to the requesting user.
func (s *ResultsService) FromAttempt(ctx context.Context, userID int, attemptID uuid.UUID) (*ResultsView, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, ErrAttemptNotFound
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}

	exam, err := s.examRepo.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	questions, err := s.questionRepo.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	view := buildView(attempt.ExamID, exam.Title, SourceDurable, attempt.Answers, questions, attempt.SubmittedAt)
	view.AttemptID = &attempt.ID
	return view, nil
}

// History lists a user's durable attempts, newest first.
func (s *ResultsService) History(ctx context.Context, userID int) ([]model.ExamAttempt, error) {
	return s.attemptRepo.ListByUser(ctx, userID)
}

// buildView grades the answers against the bank and joins the outcome back
// onto the full question text for review. Re-deriving instead of trusting
// stored counters keeps both results sources on one code path.
func buildView(examID uuid.UUID, title string, source ResultsSource, answers map[int]string, questions []model.Question, finishedAt time.Time) *ResultsView {
	result := grading.Grade(answers, toGradingQuestions(questions))

	statusByPos := make(map[int]grading.QuestionStatus, len(result.PerQuestion))
	for _, qs := range result.PerQuestion {
		statusByPos[qs.Position] = qs
	}

	reviews := make([]QuestionReview, 0, len(questions))
	for _, q := range questions {
		qs := statusByPos[q.Position]
		opts := make([]OptionReview, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, OptionReview{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect})
		}
		reviews = append(reviews, QuestionReview{
			Position:        q.Position,
			Category:        qs.Category,
			Text:            q.Text,
			Explanation:     q.Explanation,
			Options:         opts,
			ChosenOptionID:  qs.ChosenID,
			CorrectOptionID: qs.CorrectID,
			Status:          qs.Status,
		})
	}

	return &ResultsView{
		ExamID:     examID,
		ExamTitle:  title,
		Source:     source,
		Summary:    result,
		Questions:  reviews,
		FinishedAt: finishedAt,
	}
}
