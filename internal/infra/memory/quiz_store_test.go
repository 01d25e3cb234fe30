package memory

import (
	"context"
	"testing"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

func TestQuizStoreSharesAnswers(t *testing.T) {
	store := NewQuizStore()
	plan := app.QuizPlan{CompanyID: 1, Title: "Yes or no", Questions: []app.PlannedQuestion{
		{Text: "Is water wet?", Answers: []domain.AnswerInput{{Text: "yes", IsRight: true}, {Text: "no"}}},
		{Text: "Is fire cold?", Answers: []domain.AnswerInput{{Text: "yes"}, {Text: "no", IsRight: true}}},
		{Text: "Is ice cold?", Answers: []domain.AnswerInput{{Text: "yes", IsRight: true}, {Text: "no"}}},
	}}
	quiz, err := store.CreateQuiz(context.Background(), plan)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.Questions[0].Answers[0].ID != quiz.Questions[2].Answers[0].ID {
		t.Fatalf("expected shared answer, got %+v", quiz.Questions)
	}
	if quiz.Questions[0].Answers[0].ID == quiz.Questions[1].Answers[0].ID {
		t.Fatalf("answers with different correctness must not be shared")
	}
}

func TestQuizStoreUpdateKeepsEditedQuestions(t *testing.T) {
	ctx := context.Background()
	store := NewQuizStore()
	quiz, _ := store.CreateQuiz(ctx, samplePlan())
	firstID := quiz.Questions[0].ID

	in := domain.QuizInput{Questions: []domain.QuestionInput{
		{ID: firstID, Text: "2 + 2 = ?", Answers: []domain.AnswerInput{{Text: "4", IsRight: true}, {Text: "5"}}},
		{Text: "1 + 1?", Answers: []domain.AnswerInput{{Text: "2", IsRight: true}, {Text: "3"}}},
	}}
	updated, err := store.UpdateQuiz(ctx, quiz.ID, app.PlanQuizUpdate(quiz, in))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(updated.Questions))
	}
	if updated.Questions[0].ID != firstID || updated.Questions[0].Text != "2 + 2 = ?" {
		t.Fatalf("expected first question edited in place, got %+v", updated.Questions[0])
	}
	if updated.Questions[0].Answers[0].Text != "4" {
		t.Fatalf("expected answers in latest order, got %+v", updated.Questions[0].Answers)
	}
	if updated.Title != "Arithmetic" {
		t.Fatalf("expected title kept, got %q", updated.Title)
	}
}

func TestQuizStoreDeleteRunsHooks(t *testing.T) {
	ctx := context.Background()
	store := NewQuizStore()
	results := NewResultStore()
	store.OnDelete(results.DetachQuiz)

	quiz, _ := store.CreateQuiz(ctx, samplePlan())
	r, _, _ := results.StartOrGet(ctx, 7, quiz.CompanyID, quiz.ID, quiz.CreatedAt)

	if err := store.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.LoadQuiz(ctx, quiz.ID); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz gone, got %v", err)
	}
	list, _ := results.ListResults(ctx, domain.ResultFilter{ParticipantID: 7})
	if len(list) != 1 || list[0].ID != r.ID || list[0].QuizID != 0 {
		t.Fatalf("expected detached result, got %+v", list)
	}
}
