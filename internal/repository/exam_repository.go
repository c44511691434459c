package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexprep/barprep-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `
	e.id, e.exam_type, e.pricing_type, e.exam_set, e.title, e.description,
	e.price, e.exam_time, e.max_attempts,
	(SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id) AS question_count,
	e.created_at, e.updated_at`

func scanExam(row interface{ Scan(dest ...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(
		&e.ID, &e.ExamType, &e.PricingType, &e.ExamSet, &e.Title, &e.Description,
		&e.Price, &e.ExamTime, &e.MaxAttempts, &e.QuestionCount,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT`+examColumns+` FROM exams e WHERE e.id = $1`, id))
}

// GetByIdentity retrieves the exam matching an identity triple. A nil exam
// set matches only rows whose exam_set is NULL.
func (r *ExamRepository) GetByIdentity(ctx context.Context, identity model.ExamIdentity) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT`+examColumns+`
		 FROM exams e
		 WHERE e.exam_type = $1 AND e.pricing_type = $2
		   AND e.exam_set IS NOT DISTINCT FROM $3`,
		identity.ExamType, identity.PricingType, identity.ExamSet))
}

// List retrieves all exams, optionally filtered by type, ordered stably.
func (r *ExamRepository) List(ctx context.Context, examType *model.ExamType) ([]model.Exam, error) {
	query := `SELECT` + examColumns + ` FROM exams e`
	args := []any{}
	if examType != nil {
		query += ` WHERE e.exam_type = $1`
		args = append(args, *examType)
	}
	query += ` ORDER BY e.exam_type, e.pricing_type, e.exam_set NULLS FIRST`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam. Used by seeding and tests; the admin back
// office owns exam authoring.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (exam_type, pricing_type, exam_set, title, description, price, exam_time, max_attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		e.ExamType, e.PricingType, e.ExamSet, e.Title, e.Description, e.Price, e.ExamTime, e.MaxAttempts,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}
