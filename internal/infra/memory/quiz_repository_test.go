package memory

import (
	"context"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	store := NewQuizStore()
	quiz, err := store.CreateQuiz(context.Background(), samplePlan())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), quiz.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), quiz.ID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewQuizStore()
	quiz, _ := store.CreateQuiz(ctx, samplePlan())
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	_, _ = repo.GetQuiz(ctx, quiz.ID)
	if err := repo.Invalidate(ctx, quiz.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(ctx, quiz.ID)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	ctx := context.Background()
	store := NewQuizStore()
	quiz, _ := store.CreateQuiz(ctx, samplePlan())
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }
	_, _ = repo.GetQuiz(ctx, quiz.ID)

	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(ctx, quiz.ID)
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryMissing(t *testing.T) {
	repo := NewQuizRepository(NewQuizStore(), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), 42); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func samplePlan() app.QuizPlan {
	return app.QuizPlan{
		CompanyID: 1,
		Title:     "Arithmetic",
		Questions: []app.PlannedQuestion{
			{Text: "2 + 2?", Answers: []domain.AnswerInput{{Text: "3"}, {Text: "4", IsRight: true}}},
			{Text: "3 + 3?", Answers: []domain.AnswerInput{{Text: "6", IsRight: true}, {Text: "4"}}},
		},
	}
}
