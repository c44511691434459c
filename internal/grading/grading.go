// Package grading compares chosen options against the authoritative question
// bank and produces per-question, per-category, and aggregate results. It is
// pure: same inputs, same output, no side effects.
package grading

// DefaultCategory labels questions whose authored category is blank.
const DefaultCategory = "General"

// Status classifies one question's outcome.
type Status string

const (
	StatusCorrect    Status = "correct"
	StatusIncorrect  Status = "incorrect"
	StatusUnanswered Status = "unanswered"
)

// Option is the grading view of an answer choice.
type Option struct {
	ID        string
	IsCorrect bool
}

// Question is the grading view of one question. Position is 1-based.
type Question struct {
	Position int
	Category string
	Options  []Option
}

// QuestionStatus is the graded outcome of a single question.
type QuestionStatus struct {
	Position int    `json:"position"`
	Category string `json:"category"`
	// ChosenID is empty for unanswered questions.
	ChosenID string `json:"chosen_id,omitempty"`
	// CorrectID is the first option flagged correct, empty when none is.
	CorrectID string `json:"correct_id,omitempty"`
	Status    Status `json:"status"`
}

// CategoryBreakdown aggregates outcomes for one category label.
type CategoryBreakdown struct {
	Category   string  `json:"category"`
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Unanswered int     `json:"unanswered"`
	Percentage float64 `json:"percentage"`
}

// Result is the full graded outcome of one finished exam.
type Result struct {
	Total       int                 `json:"total"`
	Answered    int                 `json:"answered"`
	Correct     int                 `json:"correct"`
	Incorrect   int                 `json:"incorrect"`
	Unanswered  int                 `json:"unanswered"`
	Percentage  float64             `json:"percentage"`
	PerQuestion []QuestionStatus    `json:"per_question"`
	Categories  []CategoryBreakdown `json:"categories"`
}

// Grade scores answers (question position → chosen option id, sparse) against
// the ordered question bank. A chosen option counts as correct iff that
// option's own IsCorrect flag is set, so a question with no flagged option
// grades incorrect whenever answered, and one with several flagged options
// accepts any of them.
func Grade(answers map[int]string, questions []Question) Result {
	res := Result{
		Total:       len(questions),
		PerQuestion: make([]QuestionStatus, 0, len(questions)),
	}

	// Category order follows first appearance so output is deterministic.
	catIndex := make(map[string]int)

	for _, q := range questions {
		category := q.Category
		if category == "" {
			category = DefaultCategory
		}

		qs := QuestionStatus{
			Position:  q.Position,
			Category:  category,
			CorrectID: correctOptionID(q),
		}

		chosen, answered := answers[q.Position]
		switch {
		case !answered || chosen == "":
			qs.Status = StatusUnanswered
			res.Unanswered++
		case isCorrectChoice(q, chosen):
			qs.ChosenID = chosen
			qs.Status = StatusCorrect
			res.Correct++
		default:
			qs.ChosenID = chosen
			qs.Status = StatusIncorrect
			res.Incorrect++
		}

		idx, ok := catIndex[category]
		if !ok {
			idx = len(res.Categories)
			catIndex[category] = idx
			res.Categories = append(res.Categories, CategoryBreakdown{Category: category})
		}
		cat := &res.Categories[idx]
		cat.Total++
		switch qs.Status {
		case StatusCorrect:
			cat.Correct++
		case StatusIncorrect:
			cat.Incorrect++
		default:
			cat.Unanswered++
		}

		res.PerQuestion = append(res.PerQuestion, qs)
	}

	res.Answered = res.Correct + res.Incorrect
	if res.Total > 0 {
		res.Percentage = float64(res.Correct) / float64(res.Total) * 100
	}
	for i := range res.Categories {
		c := &res.Categories[i]
		if c.Total > 0 {
			c.Percentage = float64(c.Correct) / float64(c.Total) * 100
		}
	}

	return res
}

func correctOptionID(q Question) string {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return ""
}

func isCorrectChoice(q Question, chosenID string) bool {
	for _, o := range q.Options {
		if o.ID == chosenID {
			return o.IsCorrect
		}
	}
	return false
}
