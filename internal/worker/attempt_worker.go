package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexprep/barprep-backend/internal/config"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AttemptBatchSize    = 50
	AttemptBatchTimeout = 2 * time.Second
	AttemptPollTimeout  = 1 * time.Second
)

// AttemptWorker drains the attempt queue into Postgres. The HTTP path only
// enqueues, so a finish never waits on a database write.
type AttemptWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewAttemptWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AttemptWorker {
	return &AttemptWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "attempt_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AttemptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptWorker started")

	batch := make([]*model.ExamAttempt, 0, AttemptBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= AttemptBatchSize || time.Since(lastFlush) >= AttemptBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AttemptPollTimeout, config.WorkerKey.PersistAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var a model.ExamAttempt
			if err := json.Unmarshal([]byte(item[1]), &a); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &a)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper with per-item fallback
// ----------------------------------------------------------------

func (w *AttemptWorker) flushSafe(ctx context.Context, batch []*model.ExamAttempt) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsertAttempts(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk attempt insert failed, using fallback")

		for _, a := range batch {
			if err := w.persistSingle(ctx, a); err != nil {
				w.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(a)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST
// ----------------------------------------------------------------

// bulkInsertAttempts writes a whole batch in one statement. Attempt ids are
// allocated at finish time, so redelivered items collapse into no-ops on the
// id conflict instead of duplicating rows.
func (w *AttemptWorker) bulkInsertAttempts(ctx context.Context, batch []*model.ExamAttempt) error {
	n := len(batch)

	ids := make([]uuid.UUID, 0, n)
	examIDs := make([]uuid.UUID, 0, n)
	userIDs := make([]int, 0, n)
	totals := make([]int, 0, n)
	answered := make([]int, 0, n)
	corrects := make([]int, 0, n)
	incorrects := make([]int, 0, n)
	unanswereds := make([]int, 0, n)
	scores := make([]float64, 0, n)
	answers := make([][]byte, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, a := range batch {
		answersJSON, err := json.Marshal(a.Answers)
		if err != nil {
			return err
		}
		ids = append(ids, a.ID)
		examIDs = append(examIDs, a.ExamID)
		userIDs = append(userIDs, a.UserID)
		totals = append(totals, a.TotalQuestions)
		answered = append(answered, a.AnsweredCount)
		corrects = append(corrects, a.CorrectCount)
		incorrects = append(incorrects, a.IncorrectCount)
		unanswereds = append(unanswereds, a.UnansweredCount)
		scores = append(scores, a.Score)
		answers = append(answers, answersJSON)
		submittedAts = append(submittedAts, a.SubmittedAt)
	}

	query := `
		INSERT INTO exam_attempts
			(id, exam_id, user_id, total_questions, answered_count, correct_count,
			 incorrect_count, unanswered_count, score, answers, submitted_at)
		SELECT
			u.id, u.exam_id, u.user_id, u.total_questions, u.answered_count, u.correct_count,
			u.incorrect_count, u.unanswered_count, u.score, u.answers, u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::int[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::int[],
			$9::float8[],
			$10::jsonb[],
			$11::timestamptz[]
		) AS u (id, exam_id, user_id, total_questions, answered_count, correct_count,
		        incorrect_count, unanswered_count, score, answers, submitted_at)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query, ids, examIDs, userIDs, totals, answered,
		corrects, incorrects, unanswereds, scores, answers, submittedAts)
	return err
}

func (w *AttemptWorker) persistSingle(ctx context.Context, a *model.ExamAttempt) error {
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = w.pool.Exec(ctx, `
		INSERT INTO exam_attempts
			(id, exam_id, user_id, total_questions, answered_count, correct_count,
			 incorrect_count, unanswered_count, score, answers, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.ExamID, a.UserID, a.TotalQuestions, a.AnsweredCount, a.CorrectCount,
		a.IncorrectCount, a.UnansweredCount, a.Score, answersJSON, a.SubmittedAt,
	)
	return err
}
