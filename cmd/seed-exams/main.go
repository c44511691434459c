package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lexprep/barprep-backend/internal/config"
	"github.com/lexprep/barprep-backend/internal/database"
	"github.com/lexprep/barprep-backend/internal/logger"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/repository"
)

// seedExam declares one exam and its question bank.
type seedExam struct {
	exam      model.Exam
	questions []model.Question
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Exams ===")

	setA := model.ExamSetA
	setB := model.ExamSetB
	threeAttempts := 3

	seeds := []seedExam{
		{
			exam: model.Exam{
				ExamType:    model.ExamTypeBarrister,
				PricingType: model.PricingFree,
				Title:       "Barrister Practice Exam (Free)",
				Description: "A free sample paper for the barrister track.",
				Price:       0,
				ExamTime:    "30 minutes",
			},
			questions: sampleQuestions("Criminal Law"),
		},
		{
			exam: model.Exam{
				ExamType:    model.ExamTypeBarrister,
				PricingType: model.PricingPaid,
				ExamSet:     &setA,
				Title:       "Barrister Mock Exam — Set A",
				Description: "Full-length barrister mock, question set A.",
				Price:       49.99,
				ExamTime:    "4.5 hours",
				MaxAttempts: &threeAttempts,
			},
			questions: sampleQuestions("Criminal Law"),
		},
		{
			exam: model.Exam{
				ExamType:    model.ExamTypeBarrister,
				PricingType: model.PricingPaid,
				ExamSet:     &setB,
				Title:       "Barrister Mock Exam — Set B",
				Description: "Full-length barrister mock, question set B.",
				Price:       49.99,
				ExamTime:    "4.5 hours",
				MaxAttempts: &threeAttempts,
			},
			questions: sampleQuestions("Evidence"),
		},
		{
			exam: model.Exam{
				ExamType:    model.ExamTypeSolicitor,
				PricingType: model.PricingFree,
				Title:       "Solicitor Practice Exam (Free)",
				Description: "A free sample paper for the solicitor track.",
				Price:       0,
				ExamTime:    "30 minutes",
			},
			questions: sampleQuestions("Contract Law"),
		},
		{
			exam: model.Exam{
				ExamType:    model.ExamTypeSolicitor,
				PricingType: model.PricingPaid,
				ExamSet:     &setA,
				Title:       "Solicitor Mock Exam — Set A",
				Description: "Full-length solicitor mock, question set A.",
				Price:       39.99,
				ExamTime:    "4 hours",
				MaxAttempts: &threeAttempts,
			},
			questions: sampleQuestions("Property Law"),
		},
	}

	for i := range seeds {
		s := &seeds[i]

		existing, err := examRepo.GetByIdentity(ctx, s.exam.Identity())
		if err == nil {
			fmt.Printf("Exists, skipping: %s (id=%s)\n", existing.Title, existing.ID)
			continue
		}

		if err := examRepo.Create(ctx, &s.exam); err != nil {
			log.Fatal().Err(err).Str("title", s.exam.Title).Msg("Failed to create exam")
		}
		for j := range s.questions {
			s.questions[j].ExamID = s.exam.ID
			s.questions[j].Position = j + 1
			if err := questionRepo.Create(ctx, &s.questions[j]); err != nil {
				log.Fatal().Err(err).Str("title", s.exam.Title).Int("position", j+1).Msg("Failed to create question")
			}
		}
		fmt.Printf("Created: %s (id=%s, %d questions)\n", s.exam.Title, s.exam.ID, len(s.questions))
	}

	fmt.Println("=== Seeding complete ===")
}

// sampleQuestions builds a small placeholder bank. Real banks are authored
// through the admin tooling; these exist so a fresh environment is sittable.
func sampleQuestions(category string) []model.Question {
	questions := make([]model.Question, 0, 5)
	for i := 1; i <= 5; i++ {
		questions = append(questions, model.Question{
			Text:        fmt.Sprintf("Sample %s question %d: which option is correct?", category, i),
			Category:    category,
			Explanation: "Option A is correct in every sample question.",
			Options: []model.Option{
				{ID: "a", Text: "Option A", IsCorrect: true},
				{ID: "b", Text: "Option B"},
				{ID: "c", Text: "Option C"},
				{ID: "d", Text: "Option D"},
			},
		})
	}
	return questions
}
