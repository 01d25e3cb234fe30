package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
)

const (
	ownerID  int64 = 1
	adminID  int64 = 2
	memberID int64 = 3
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	clock         *clock
	directory     *memory.Directory
	quizzes       *memory.QuizStore
	results       *memory.ResultStore
	notifications *memory.NotificationStore
	hub           *app.Hub
	notify        *app.NotificationService
	service       *app.QuizService
}

// newEnv builds a service over memory stores with two companies:
// company 10 ("Acme", owned by 1, admin 2, member 3) and company 20
// ("Globex", owned by 1, member 3).
func newEnv(t *testing.T) *env {
	t.Helper()
	c := newClock()
	dir := memory.NewDirectory()
	for _, u := range []domain.User{{ID: ownerID, Username: "owner"}, {ID: adminID, Username: "admin"}, {ID: memberID, Username: "member"}} {
		dir.AddUser(u)
	}
	dir.AddCompany(domain.Company{ID: 10, Name: "Acme", OwnerID: ownerID})
	dir.AddMember(domain.Member{UserID: adminID, CompanyID: 10, Admin: true})
	dir.AddMember(domain.Member{UserID: memberID, CompanyID: 10})
	dir.AddCompany(domain.Company{ID: 20, Name: "Globex", OwnerID: ownerID})
	dir.AddMember(domain.Member{UserID: memberID, CompanyID: 20})

	quizzes := memory.NewQuizStoreWithClock(c.Now)
	results := memory.NewResultStore()
	quizzes.OnDelete(results.DetachQuiz)
	notifications := memory.NewNotificationStore()
	hub := app.NewHub(8, nil)
	notify := app.NewNotificationServiceWithClock(notifications, dir, hub, nil, 10, c.Now)

	service := app.NewQuizService(app.QuizServiceDeps{
		Quizzes:   quizzes,
		Cache:     memory.NewQuizRepository(quizzes, time.Minute),
		Results:   results,
		Directory: dir,
		Notifier:  notify,
		Rules:     app.QuizRules{MinQuestions: 2, MinAnswers: 2},
		Now:       c.Now,
	})
	return &env{
		clock:         c,
		directory:     dir,
		quizzes:       quizzes,
		results:       results,
		notifications: notifications,
		hub:           hub,
		notify:        notify,
		service:       service,
	}
}

// quizInput builds n questions, each with a right and a wrong answer.
func quizInput(title string, n int, frequency *int) domain.QuizInput {
	in := domain.QuizInput{Title: title, Frequency: frequency}
	for i := 0; i < n; i++ {
		in.Questions = append(in.Questions, domain.QuestionInput{
			Text: fmt.Sprintf("question %d", i+1),
			Answers: []domain.AnswerInput{
				{Text: fmt.Sprintf("right %d", i+1), IsRight: true},
				{Text: fmt.Sprintf("wrong %d", i+1)},
			},
		})
	}
	return in
}

// answering marks the first correct questions like the key and flips the rest.
func answering(quiz domain.Quiz, correct int) domain.Submission {
	var sub domain.Submission
	for i, q := range quiz.Questions {
		sq := domain.SubmittedQuestion{Text: q.Text}
		for _, a := range q.Answers {
			mark := a.IsRight
			if i >= correct {
				mark = !mark
			}
			sq.Answers = append(sq.Answers, domain.SubmittedAnswer{Text: a.Text, IsRight: mark})
		}
		sub.Questions = append(sub.Questions, sq)
	}
	return sub
}

func intPtr(v int) *int { return &v }

func (e *env) createQuiz(t *testing.T, companyID int64, in domain.QuizInput) domain.Quiz {
	t.Helper()
	quiz, err := e.service.CreateQuiz(context.Background(), ownerID, companyID, in)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func (e *env) take(t *testing.T, actorID int64, quiz domain.Quiz, correct int) domain.QuizResult {
	t.Helper()
	ctx := context.Background()
	if _, err := e.service.Start(ctx, actorID, quiz.CompanyID, quiz.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := e.service.Complete(ctx, actorID, quiz.CompanyID, quiz.ID, answering(quiz, correct))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return res
}
