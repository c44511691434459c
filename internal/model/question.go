package model

import (
	"github.com/google/uuid"
)

// Option is one answer choice of a question. ID is opaque and unique within
// its question. Content authoring is expected to flag exactly one option per
// question as correct; the runner does not enforce that invariant.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is one exam question. Position is the 1-based sequential position
// within its exam.
type Question struct {
	ID       uuid.UUID `json:"id"`
	ExamID   uuid.UUID `json:"exam_id"`
	Position int       `json:"position"`
	Text     string    `json:"text"`
	Category string    `json:"category"`
	// Explanation is shown on the detailed results view when the taker was
	// wrong or skipped. May be empty.
	Explanation string   `json:"explanation,omitempty"`
	Options     []Option `json:"options"`
}

// OptionForTaker is an answer choice with the correctness flag stripped.
type OptionForTaker struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionForTaker is a question as served to an exam taker: no correctness
// flags, no explanation.
type QuestionForTaker struct {
	ID       uuid.UUID        `json:"id"`
	Position int              `json:"position"`
	Text     string           `json:"text"`
	Category string           `json:"category"`
	Options  []OptionForTaker `json:"options"`
}

// ForTaker strips grading-sensitive fields from a question.
func (q *Question) ForTaker() QuestionForTaker {
	opts := make([]OptionForTaker, len(q.Options))
	for i, o := range q.Options {
		opts[i] = OptionForTaker{ID: o.ID, Text: o.Text}
	}
	return QuestionForTaker{
		ID:       q.ID,
		Position: q.Position,
		Text:     q.Text,
		Category: q.Category,
		Options:  opts,
	}
}

// CorrectOptionID returns the id of the first option flagged correct, or ""
// when no option is flagged.
func (q *Question) CorrectOptionID() string {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return ""
}
