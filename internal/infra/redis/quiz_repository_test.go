package redis

import (
	"context"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	store, quiz := seededStore(t)
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(client, loader, time.Minute)

	got, err := repo.GetQuiz(context.Background(), quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:1:snapshot") {
		t.Fatalf("expected snapshot key")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetQuiz(context.Background(), quiz.ID)
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Title != got.Title || len(cached.Questions) != 2 || !cached.Questions[0].Answers[1].IsRight {
		t.Fatalf("snapshot lost content: %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), quiz.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(context.Background(), quiz.ID)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuizRepositorySetsTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store, quiz := seededStore(t)
	repo := NewQuizRepository(newClient(mr), store, time.Minute)
	_, _ = repo.GetQuiz(context.Background(), quiz.ID)

	ttl := mr.TTL("quiz:1:snapshot")
	if ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl within jitter, got %s", ttl)
	}
}

func TestQuizRepositoryMissing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), memory.NewQuizStore(), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), 5); err != domain.ErrQuizNotFound {
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

func seededStore(t *testing.T) (*memory.QuizStore, domain.Quiz) {
	t.Helper()
	store := memory.NewQuizStore()
	quiz, err := store.CreateQuiz(context.Background(), app.QuizPlan{
		CompanyID: 1,
		Title:     "Arithmetic",
		Questions: []app.PlannedQuestion{
			{Text: "2 + 2?", Answers: []domain.AnswerInput{{Text: "3"}, {Text: "4", IsRight: true}}},
			{Text: "3 + 3?", Answers: []domain.AnswerInput{{Text: "6", IsRight: true}, {Text: "5"}}},
		},
	})
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return store, quiz
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
