package grading

import (
	"reflect"
	"testing"
)

func threeQuestions() []Question {
	return []Question{
		{Position: 1, Category: "Contract Law", Options: []Option{
			{ID: "a"}, {ID: "b", IsCorrect: true}, {ID: "c"},
		}},
		{Position: 2, Category: "Contract Law", Options: []Option{
			{ID: "a", IsCorrect: true}, {ID: "b"}, {ID: "c"},
		}},
		{Position: 3, Options: []Option{
			{ID: "a"}, {ID: "b"}, {ID: "c", IsCorrect: true},
		}},
	}
}

func TestGrade_AllCorrect(t *testing.T) {
	answers := map[int]string{1: "b", 2: "a", 3: "c"}

	got := Grade(answers, threeQuestions())

	if got.Correct != 3 || got.Incorrect != 0 || got.Unanswered != 0 {
		t.Fatalf("counts = %d/%d/%d, want 3/0/0", got.Correct, got.Incorrect, got.Unanswered)
	}
	if got.Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", got.Percentage)
	}
}

func TestGrade_MixedWithSkip(t *testing.T) {
	// Q1 correct, Q2 wrong, Q3 skipped.
	answers := map[int]string{1: "b", 2: "c"}

	got := Grade(answers, threeQuestions())

	if got.Correct != 1 || got.Incorrect != 1 || got.Unanswered != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1", got.Correct, got.Incorrect, got.Unanswered)
	}
	if got.Percentage < 33.3 || got.Percentage > 33.4 {
		t.Fatalf("percentage = %v, want ~33.33", got.Percentage)
	}
	if got.PerQuestion[2].Status != StatusUnanswered {
		t.Fatalf("question 3 status = %s, want unanswered", got.PerQuestion[2].Status)
	}
}

func TestGrade_Deterministic(t *testing.T) {
	answers := map[int]string{1: "b", 3: "a"}
	questions := threeQuestions()

	first := Grade(answers, questions)
	second := Grade(answers, questions)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("two grades of the same input differ")
	}
}

func TestGrade_CountsSumToTotal(t *testing.T) {
	cases := []map[int]string{
		nil,
		{},
		{1: "b"},
		{1: "a", 2: "a", 3: "a"},
		{2: "zzz"}, // chosen id not among options
	}
	questions := threeQuestions()

	for _, answers := range cases {
		got := Grade(answers, questions)
		if got.Correct+got.Incorrect+got.Unanswered != got.Total {
			t.Fatalf("answers=%v: %d+%d+%d != %d",
				answers, got.Correct, got.Incorrect, got.Unanswered, got.Total)
		}
		if got.Percentage < 0 || got.Percentage > 100 {
			t.Fatalf("answers=%v: percentage %v out of bounds", answers, got.Percentage)
		}
		if got.Correct == 0 && got.Percentage != 0 {
			t.Fatalf("answers=%v: percentage %v with zero correct", answers, got.Percentage)
		}
	}
}

func TestGrade_CategoryBreakdown(t *testing.T) {
	answers := map[int]string{1: "b", 2: "b", 3: "c"}

	got := Grade(answers, threeQuestions())

	if len(got.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(got.Categories))
	}
	contract := got.Categories[0]
	if contract.Category != "Contract Law" || contract.Total != 2 || contract.Correct != 1 || contract.Incorrect != 1 {
		t.Fatalf("contract breakdown = %+v", contract)
	}
	if contract.Percentage != 50 {
		t.Fatalf("contract percentage = %v, want 50", contract.Percentage)
	}
	general := got.Categories[1]
	if general.Category != DefaultCategory || general.Total != 1 || general.Correct != 1 {
		t.Fatalf("general breakdown = %+v", general)
	}
}

func TestGrade_NoFlaggedOption(t *testing.T) {
	questions := []Question{
		{Position: 1, Options: []Option{{ID: "a"}, {ID: "b"}}},
	}

	answered := Grade(map[int]string{1: "a"}, questions)
	if answered.Incorrect != 1 {
		t.Fatalf("answered zero-key question graded %+v, want incorrect", answered.PerQuestion[0])
	}

	skipped := Grade(nil, questions)
	if skipped.Unanswered != 1 {
		t.Fatalf("skipped zero-key question graded %+v, want unanswered", skipped.PerQuestion[0])
	}
}

func TestGrade_EmptyBank(t *testing.T) {
	got := Grade(map[int]string{1: "a"}, nil)
	if got.Total != 0 || got.Percentage != 0 {
		t.Fatalf("empty bank graded %+v", got)
	}
}
