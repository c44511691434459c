package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexprep/barprep-backend/internal/model"
)

// AttemptRepository handles durable exam attempt records.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Insert writes one attempt record. The id is pre-allocated at finish time,
// so a replayed write is a no-op rather than a duplicate row.
func (r *AttemptRepository) Insert(ctx context.Context, a *model.ExamAttempt) error {
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_attempts
		   (id, exam_id, user_id, total_questions, answered_count, correct_count,
		    incorrect_count, unanswered_count, score, answers, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.ExamID, a.UserID, a.TotalQuestions, a.AnsweredCount, a.CorrectCount,
		a.IncorrectCount, a.UnansweredCount, a.Score, answersJSON, a.SubmittedAt,
	)
	return err
}

// GetByID retrieves one attempt record.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	var answersJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, total_questions, answered_count, correct_count,
		        incorrect_count, unanswered_count, score, answers, submitted_at
		 FROM exam_attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.ExamID, &a.UserID, &a.TotalQuestions, &a.AnsweredCount, &a.CorrectCount,
		&a.IncorrectCount, &a.UnansweredCount, &a.Score, &answersJSON, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
		return nil, fmt.Errorf("decode answers for attempt %s: %w", a.ID, err)
	}
	return a, nil
}

// CountByUserAndExam counts finished attempts for attempt-limit enforcement.
func (r *AttemptRepository) CountByUserAndExam(ctx context.Context, userID int, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE user_id = $1 AND exam_id = $2`,
		userID, examID,
	).Scan(&count)
	return count, err
}

// ListByUser retrieves a user's attempt history, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, total_questions, answered_count, correct_count,
		        incorrect_count, unanswered_count, score, answers, submitted_at
		 FROM exam_attempts
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		var answersJSON []byte
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.TotalQuestions, &a.AnsweredCount,
			&a.CorrectCount, &a.IncorrectCount, &a.UnansweredCount, &a.Score, &answersJSON, &a.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for attempt %s: %w", a.ID, err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
