package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"company-quiz-service/internal/domain"
)

func TestQuizzesAnalyticsOrdersHistory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acme := e.createQuiz(t, 10, quizInput("Acme basics", 2, nil))
	globex := e.createQuiz(t, 20, quizInput("Globex basics", 2, nil))
	first := e.take(t, memberID, acme, 1)
	e.clock.Advance(time.Minute)
	second := e.take(t, adminID, acme, 2)
	if _, err := e.service.Start(ctx, memberID, 20, globex.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	all, err := e.service.QuizzesAnalytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if len(all) != 2 || all[0].Quiz.ID != acme.ID || all[1].Quiz.ID != globex.ID {
		t.Fatalf("unexpected quizzes %+v", all)
	}
	if got := all[0].Results; len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("expected history oldest first, got %+v", got)
	}
	if all[1].Results == nil || len(all[1].Results) != 0 {
		t.Fatalf("a started attempt is not history, got %+v", all[1].Results)
	}
}

func TestUserAnalytics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acme := e.createQuiz(t, 10, quizInput("Acme basics", 2, nil))
	globex := e.createQuiz(t, 20, quizInput("Globex basics", 2, nil))
	e.take(t, memberID, globex, 2)
	e.clock.Advance(time.Minute)
	e.take(t, memberID, acme, 1)

	a, err := e.service.UserAnalytics(ctx, memberID)
	if err != nil {
		t.Fatalf("user analytics: %v", err)
	}
	if a.User.Username != "member" || len(a.Results) != 2 {
		t.Fatalf("unexpected analytics %+v", a)
	}
	if a.Results[0].QuizID != globex.ID || a.Results[1].UserRating.StringFixed(2) != "75.00" {
		t.Fatalf("expected the rating series in completion order, got %+v", a.Results)
	}
	if len(a.Companies) != 2 || a.Companies[0].Name != "Acme" || a.Companies[1].Name != "Globex" {
		t.Fatalf("unexpected companies %+v", a.Companies)
	}
	if len(a.Quizzes) != 2 {
		t.Fatalf("expected both quizzes once, got %+v", a.Quizzes)
	}

	if _, err := e.service.UserAnalytics(ctx, 99); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}

	everyone, err := e.service.UsersAnalytics(ctx)
	if err != nil {
		t.Fatalf("users analytics: %v", err)
	}
	if len(everyone) != 3 || everyone[0].User.ID != ownerID || len(everyone[0].Results) != 0 {
		t.Fatalf("unexpected users analytics %+v", everyone)
	}
}

func TestCompanyAnalytics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acme := e.createQuiz(t, 10, quizInput("Acme basics", 2, nil))
	e.take(t, memberID, acme, 2)
	e.take(t, adminID, acme, 1)

	if _, err := e.service.CompanyAnalytics(ctx, memberID, 10, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member must not read company analytics, got %v", err)
	}
	a, err := e.service.CompanyAnalytics(ctx, adminID, 10, 0)
	if err != nil {
		t.Fatalf("company analytics: %v", err)
	}
	if a.Company.Name != "Acme" || len(a.Results) != 2 || len(a.Members) != 3 || len(a.Quizzes) != 1 {
		t.Fatalf("unexpected company analytics %+v", a)
	}

	narrowed, err := e.service.CompanyAnalytics(ctx, ownerID, 10, memberID)
	if err != nil {
		t.Fatalf("narrowed analytics: %v", err)
	}
	if narrowed.Members != nil {
		t.Fatalf("members are left out when narrowed, got %+v", narrowed.Members)
	}
	if len(narrowed.Results) != 1 || narrowed.Results[0].ParticipantID != memberID {
		t.Fatalf("unexpected narrowed results %+v", narrowed.Results)
	}
}
