package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lexprep/barprep-backend/internal/config"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrNoQuestions         = errors.New("exam has no questions")
	ErrAttemptLimitReached = errors.New("attempt limit reached for this exam")
)

// CatalogService serves the exam catalog and the taker-facing question
// payloads. Payloads are cached in Redis without correctness flags so the
// hot read path never touches Postgres and never leaks answer keys.
type CatalogService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "catalog_service").Logger(),
	}
}

// List retrieves the catalog, optionally filtered by exam type. An empty
// examType means both tracks.
func (s *CatalogService) List(ctx context.Context, examType string) ([]model.Exam, error) {
	var filter *model.ExamType
	if examType != "" {
		t := model.ExamType(examType)
		filter = &t
	}
	return s.examRepo.List(ctx, filter)
}

// GetByIdentity resolves an exam from its (type, pricing, set) triple.
func (s *CatalogService) GetByIdentity(ctx context.Context, ident model.ExamIdentity) (*model.Exam, error) {
	exam, err := s.examRepo.GetByIdentity(ctx, ident)
	if err != nil {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

// GetByID resolves an exam by its UUID.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

// WarmExamCache loads one exam's taker payload from Postgres into Redis.
// Options are stripped of correctness flags before caching.
func (s *CatalogService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	taker := make([]model.QuestionForTaker, 0, len(questions))
	for _, q := range questions {
		taker = append(taker, q.ForTaker())
	}

	payload := model.ExamPayload{
		ExamID:        exam.ID,
		Title:         exam.Title,
		ExamTime:      exam.ExamTime,
		QuestionCount: len(questions),
		Questions:     taker,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	key := config.CacheKey.ExamPayloadKey(exam.ID.String())
	if err := s.rdb.Set(ctx, key, payloadJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache payload: %w", err)
	}
	return nil
}

// PrewarmAllCaches loads every exam payload into Redis on startup so the
// first taker of the day never pays the Postgres round trip.
func (s *CatalogService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming exam payloads...")

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().Err(err).Str("exam_id", exams[i].ID.String()).Msg("Failed to prewarm exam")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(exams)).Msg("Prewarming complete")
	return nil
}

// GetExamPayload retrieves the cached taker payload, falling back to a warm
// from Postgres when the cache entry is missing.
func (s *CatalogService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	key := config.CacheKey.ExamPayloadKey(examID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		exam, lookupErr := s.examRepo.GetByID(ctx, examID)
		if lookupErr != nil {
			return nil, ErrExamNotFound
		}
		if warmErr := s.WarmExamCache(ctx, exam); warmErr != nil {
			return nil, warmErr
		}
		data, err = s.rdb.Get(ctx, key).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// QuestionsPage returns one page of taker-facing questions. Pages are cut
// from the cached payload so pagination is consistent with the runner view.
func (s *CatalogService) QuestionsPage(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.QuestionForTaker, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	payload, err := s.GetExamPayload(ctx, examID)
	if err != nil {
		return nil, 0, err
	}

	total := len(payload.Questions)
	start := (page - 1) * perPage
	if start >= total {
		return []model.QuestionForTaker{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return payload.Questions[start:end], total, nil
}

// RemainingAttempts reports how many more finishes a registered user has on
// an exam. A nil limit means unlimited, reported as nil.
func (s *CatalogService) RemainingAttempts(ctx context.Context, userID int, exam *model.Exam) (*int, error) {
	if exam.MaxAttempts == nil {
		return nil, nil
	}
	used, err := s.attemptRepo.CountByUserAndExam(ctx, userID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	remaining := *exam.MaxAttempts - used
	if remaining < 0 {
		remaining = 0
	}
	return &remaining, nil
}
