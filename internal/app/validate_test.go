package app_test

import (
	"errors"
	"testing"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

func TestQuizRulesValidate(t *testing.T) {
	rules := app.QuizRules{MinQuestions: 2, MinAnswers: 2}

	cases := map[string]struct {
		in domain.QuizInput
		ok bool
	}{
		"valid":          {quizInput("ok", 2, nil), true},
		"no title":       {quizInput(" ", 2, nil), false},
		"few questions":  {quizInput("short", 1, nil), false},
		"negative freq":  {quizInput("freq", 2, intPtr(-1)), false},
		"no right answer": {func() domain.QuizInput {
			in := quizInput("wrong", 2, nil)
			in.Questions[0].Answers[0].IsRight = false
			return in
		}(), false},
		"duplicate answers": {func() domain.QuizInput {
			in := quizInput("dup", 2, nil)
			in.Questions[1].Answers[1] = in.Questions[1].Answers[0]
			return in
		}(), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := rules.Validate(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if err := rules.ValidateUpdate(domain.QuizInput{Description: "only text"}); err != nil {
		t.Fatalf("partial update should pass: %v", err)
	}
}

func TestPlanQuizUpdate(t *testing.T) {
	existing := domain.Quiz{
		ID: 5, CompanyID: 10, Title: "Old", Description: "desc", Frequency: intPtr(2),
		Questions: []domain.Question{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}, {ID: 3, Text: "c"}},
	}
	in := domain.QuizInput{Questions: []domain.QuestionInput{
		{ID: 3, Text: "c2", Answers: []domain.AnswerInput{{Text: "x", IsRight: true}, {Text: "x", IsRight: true}, {Text: "y"}}},
		{ID: 3, Text: "c3"},
		{ID: 42, Text: "unknown id"},
		{Text: "new"},
	}}

	plan := app.PlanQuizUpdate(existing, in)
	if plan.Title != "Old" || plan.Description != "desc" || plan.Frequency == nil || *plan.Frequency != 2 {
		t.Fatalf("omitted fields should be kept, got %+v", plan)
	}
	if len(plan.Questions) != 4 {
		t.Fatalf("expected 4 planned questions, got %d", len(plan.Questions))
	}
	if plan.Questions[0].ID != 3 || plan.Questions[1].ID != 0 || plan.Questions[2].ID != 0 || plan.Questions[3].ID != 0 {
		t.Fatalf("unexpected ids %+v", plan.Questions)
	}
	if len(plan.Questions[0].Answers) != 2 {
		t.Fatalf("duplicate answers should collapse, got %+v", plan.Questions[0].Answers)
	}
	if len(plan.RemovedQuestionIDs) != 2 || plan.RemovedQuestionIDs[0] != 1 || plan.RemovedQuestionIDs[1] != 2 {
		t.Fatalf("expected questions 1 and 2 removed, got %v", plan.RemovedQuestionIDs)
	}
}
