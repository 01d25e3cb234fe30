package app

import (
	"context"
	"errors"
	"sort"

	"company-quiz-service/internal/domain"
)

// QuizSummary identifies a quiz without its questions.
type QuizSummary struct {
	ID        int64
	CompanyID int64
	Title     string
}

func summarize(q domain.Quiz) QuizSummary {
	return QuizSummary{ID: q.ID, CompanyID: q.CompanyID, Title: q.Title}
}

// ResultDetail is a result with its participant, company and quiz resolved.
// A reference that was cleared or no longer resolves is nil.
type ResultDetail struct {
	Result      domain.QuizResult
	Participant *domain.User
	Company     *domain.Company
	Quiz        *QuizSummary
}

// DescribeResults resolves the references of each result through the
// directory and the quiz cache. Every reference is looked up once.
func (s *QuizService) DescribeResults(ctx context.Context, results []domain.QuizResult) ([]ResultDetail, error) {
	refs := s.newRefResolver()
	out := make([]ResultDetail, 0, len(results))
	for _, r := range results {
		d := ResultDetail{Result: r}
		var err error
		if d.Participant, err = refs.user(ctx, r.ParticipantID); err != nil {
			return nil, err
		}
		if d.Company, err = refs.company(ctx, r.CompanyID); err != nil {
			return nil, err
		}
		if d.Quiz, err = refs.quiz(ctx, r.QuizID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DescribeResult is DescribeResults for a single result.
func (s *QuizService) DescribeResult(ctx context.Context, r domain.QuizResult) (ResultDetail, error) {
	out, err := s.DescribeResults(ctx, []domain.QuizResult{r})
	if err != nil {
		return ResultDetail{}, err
	}
	return out[0], nil
}

// AnsweredQuestion is what a participant marked on one question.
type AnsweredQuestion struct {
	QuestionID int64
	Text       string
	Answers    map[string]bool
}

// ResultAnswers returns the recorded answers of the actor's completed result.
// Questions with nothing recorded, or no answer log at all, are left out.
func (s *QuizService) ResultAnswers(ctx context.Context, actorID, userID, resultID int64) ([]AnsweredQuestion, error) {
	if actorID != userID {
		return nil, domain.ErrForbidden
	}
	found, err := s.results.ListResults(ctx, domain.ResultFilter{
		ID:            resultID,
		ParticipantID: userID,
		Status:        domain.StatusCompleted,
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrResultNotFound
	}
	result := found[0]
	if result.QuizID == 0 {
		return nil, domain.ErrQuizNotFound
	}
	quiz, err := s.cache.GetQuiz(ctx, result.QuizID)
	if err != nil {
		return nil, err
	}

	out := make([]AnsweredQuestion, 0, len(quiz.Questions))
	if s.answerLog == nil {
		return out, nil
	}
	for _, q := range quiz.Questions {
		answers, ok, err := s.answerLog.Answers(ctx, result.ID, q.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, AnsweredQuestion{QuestionID: q.ID, Text: q.Text, Answers: answers})
	}
	return out, nil
}

// refResolver memoizes directory and quiz lookups for one request.
// Missing rows resolve to nil rather than an error.
type refResolver struct {
	s         *QuizService
	users     map[int64]*domain.User
	companies map[int64]*domain.Company
	quizzes   map[int64]*QuizSummary
}

func (s *QuizService) newRefResolver() *refResolver {
	return &refResolver{
		s:         s,
		users:     make(map[int64]*domain.User),
		companies: make(map[int64]*domain.Company),
		quizzes:   make(map[int64]*QuizSummary),
	}
}

func (r *refResolver) user(ctx context.Context, id int64) (*domain.User, error) {
	if id == 0 {
		return nil, nil
	}
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	u, err := r.s.directory.User(ctx, id)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		r.users[id] = nil
		return nil, nil
	case err != nil:
		return nil, err
	}
	r.users[id] = &u
	return &u, nil
}

func (r *refResolver) company(ctx context.Context, id int64) (*domain.Company, error) {
	if id == 0 {
		return nil, nil
	}
	if c, ok := r.companies[id]; ok {
		return c, nil
	}
	c, err := r.s.directory.Company(ctx, id)
	switch {
	case errors.Is(err, domain.ErrCompanyNotFound):
		r.companies[id] = nil
		return nil, nil
	case err != nil:
		return nil, err
	}
	r.companies[id] = &c
	return &c, nil
}

func (r *refResolver) quiz(ctx context.Context, id int64) (*QuizSummary, error) {
	if id == 0 {
		return nil, nil
	}
	if q, ok := r.quizzes[id]; ok {
		return q, nil
	}
	q, err := r.s.cache.GetQuiz(ctx, id)
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		r.quizzes[id] = nil
		return nil, nil
	case err != nil:
		return nil, err
	}
	sum := summarize(q)
	r.quizzes[id] = &sum
	return &sum, nil
}

// byUpdated orders results oldest first, ties by id.
func byUpdated(rs []domain.QuizResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].UpdatedAt.Equal(rs[j].UpdatedAt) {
			return rs[i].UpdatedAt.Before(rs[j].UpdatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}
