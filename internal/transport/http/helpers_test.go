package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
	infraredis "company-quiz-service/internal/infra/redis"
	"company-quiz-service/internal/metrics"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

const (
	testSecret       = "test-secret"
	ownerID    int64 = 1
	memberID   int64 = 3
	outsiderID int64 = 4
	companyID  int64 = 10
)

type testServer struct {
	*httptest.Server
	hub *app.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := memory.NewDirectory()
	for _, u := range []domain.User{{ID: ownerID, Username: "owner"}, {ID: memberID, Username: "member"}, {ID: outsiderID, Username: "outsider"}} {
		dir.AddUser(u)
	}
	dir.AddCompany(domain.Company{ID: companyID, Name: "Acme", OwnerID: ownerID})
	dir.AddMember(domain.Member{UserID: memberID, CompanyID: companyID})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	quizzes := memory.NewQuizStore()
	results := memory.NewResultStore()
	quizzes.OnDelete(results.DetachQuiz)
	hub := app.NewHub(8, m)
	notify := app.NewNotificationService(memory.NewNotificationStore(), dir, hub, nil, 10)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	answers := infraredis.NewAnswerCache(client, 0)

	service := app.NewQuizService(app.QuizServiceDeps{
		Quizzes:   quizzes,
		Cache:     memory.NewQuizRepository(quizzes, time.Minute),
		Results:   results,
		Directory: dir,
		Notifier:  notify,
		Answers:   answers,
		AnswerLog: answers,
		Rules:     app.QuizRules{MinQuestions: 2, MinAnswers: 2},
		Metrics:   m,
	})

	router := NewRouter(RouterDeps{
		Handler:        NewHandler(service, notify, nil),
		WS:             NewWSHandler(notify, hub, nil, WSOptions{}),
		Auth:           NewAuthenticator(testSecret),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub}
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// call sends body as JSON for userID and decodes the response into out when non-nil.
func (s *testServer) call(t *testing.T, userID int64, method, path string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func quizBody(title string, frequency *int) domain.QuizInput {
	in := domain.QuizInput{Title: title, Frequency: frequency}
	for i := 1; i <= 2; i++ {
		in.Questions = append(in.Questions, domain.QuestionInput{
			Text: fmt.Sprintf("question %d", i),
			Answers: []domain.AnswerInput{
				{Text: fmt.Sprintf("right %d", i), IsRight: true},
				{Text: fmt.Sprintf("wrong %d", i)},
			},
		})
	}
	return in
}

// submission answers every question correctly using the key from a manager view.
func submission(q quizDTO) domain.Submission {
	var sub domain.Submission
	for _, question := range q.Questions {
		sq := domain.SubmittedQuestion{Text: question.Text}
		for _, a := range question.Answers {
			sq.Answers = append(sq.Answers, domain.SubmittedAnswer{Text: a.Text, IsRight: a.IsRight != nil && *a.IsRight})
		}
		sub.Questions = append(sub.Questions, sq)
	}
	return sub
}

func intPtr(v int) *int { return &v }
