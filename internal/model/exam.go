package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamType distinguishes the two qualification tracks.
type ExamType string

const (
	ExamTypeBarrister ExamType = "BARRISTER"
	ExamTypeSolicitor ExamType = "SOLICITOR"
)

// PricingType distinguishes free and paid exams.
type PricingType string

const (
	PricingFree PricingType = "FREE"
	PricingPaid PricingType = "PAID"
)

// ExamSet distinguishes question sets within a (type, pricing) pair.
// Nil means the exam has a single, unnamed set.
type ExamSet string

const (
	ExamSetA ExamSet = "SET_A"
	ExamSetB ExamSet = "SET_B"
)

// ExamIdentity is the (type, pricing, set) triple uniquely identifying an exam.
type ExamIdentity struct {
	ExamType    ExamType    `json:"exam_type" form:"exam_type" binding:"required,oneof=BARRISTER SOLICITOR"`
	PricingType PricingType `json:"pricing_type" form:"pricing_type" binding:"required,oneof=FREE PAID"`
	ExamSet     *ExamSet    `json:"exam_set,omitempty" form:"exam_set" binding:"omitempty,oneof=SET_A SET_B"`
}

// Exam represents one purchasable, sittable exam.
type Exam struct {
	ID          uuid.UUID   `json:"id"`
	ExamType    ExamType    `json:"exam_type"`
	PricingType PricingType `json:"pricing_type"`
	ExamSet     *ExamSet    `json:"exam_set,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	// ExamTime is a human-readable duration string such as "2 hours" or
	// "4.5 hours". An unparsable value means the exam is untimed.
	ExamTime string `json:"exam_time"`
	// MaxAttempts is nil for unlimited attempts.
	MaxAttempts   *int      `json:"max_attempts,omitempty"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identity returns the exam's identifying triple.
func (e *Exam) Identity() ExamIdentity {
	return ExamIdentity{ExamType: e.ExamType, PricingType: e.PricingType, ExamSet: e.ExamSet}
}

// ExamPayload is the Redis-cached payload served to exam takers.
// Questions carry no correctness flags.
type ExamPayload struct {
	ExamID        uuid.UUID         `json:"exam_id"`
	Title         string            `json:"title"`
	ExamTime      string            `json:"exam_time"`
	QuestionCount int               `json:"question_count"`
	Questions     []QuestionForTaker `json:"questions"`
}
