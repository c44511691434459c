package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamAttempt is the durable record of one finished exam for an authenticated
// user. Immutable after creation.
type ExamAttempt struct {
	ID              uuid.UUID `json:"id"`
	ExamID          uuid.UUID `json:"exam_id"`
	UserID          int       `json:"user_id"`
	TotalQuestions  int       `json:"total_questions"`
	AnsweredCount   int       `json:"answered_count"`
	CorrectCount    int       `json:"correct_count"`
	IncorrectCount  int       `json:"incorrect_count"`
	UnansweredCount int       `json:"unanswered_count"`
	Score           float64   `json:"score"`
	// Answers maps question position to the chosen option id. Sparse;
	// unanswered positions are absent.
	Answers     map[int]string `json:"answers"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// ResultsSnapshot is the ephemeral, session-scoped record of a finished exam.
// It is the only results source for guests and the fallback for authenticated
// users whose durable write has not landed yet. The results view must refuse
// to render it unless Finished is true.
type ResultsSnapshot struct {
	ExamID    uuid.UUID      `json:"exam_id"`
	ExamTitle string         `json:"exam_title"`
	Finished  bool           `json:"finished"`
	Answers   map[int]string `json:"answers"`
	// Questions is the authoritative bank at finish time, correctness flags
	// and explanations included.
	Questions  []Question `json:"questions"`
	AttemptID  *uuid.UUID `json:"attempt_id,omitempty"`
	FinishedAt time.Time  `json:"finished_at"`
}
