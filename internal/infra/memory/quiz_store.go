package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

// QuizStore keeps quiz definitions in memory. Answers are shared between
// questions by (text, is_right), the same way the postgres store does it.
type QuizStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	quizzes   map[int64]*quizRow
	questions map[int64]*questionRow
	answers   map[int64]domain.Answer
	answerIDs map[domain.AnswerInput]int64
	nextID    int64
	onDelete  []func(quizID int64)
}

type quizRow struct {
	quiz        domain.Quiz
	questionIDs []int64
}

type questionRow struct {
	text      string
	answerIDs []int64
}

func NewQuizStore() *QuizStore {
	return NewQuizStoreWithClock(time.Now)
}

// NewQuizStoreWithClock is used by tests for deterministic timestamps.
func NewQuizStoreWithClock(now func() time.Time) *QuizStore {
	return &QuizStore{
		now:       now,
		quizzes:   make(map[int64]*quizRow),
		questions: make(map[int64]*questionRow),
		answers:   make(map[int64]domain.Answer),
		answerIDs: make(map[domain.AnswerInput]int64),
	}
}

// OnDelete registers a callback run after a quiz is deleted.
func (s *QuizStore) OnDelete(fn func(quizID int64)) {
	s.mu.Lock()
	s.onDelete = append(s.onDelete, fn)
	s.mu.Unlock()
}

func (s *QuizStore) CreateQuiz(_ context.Context, plan app.QuizPlan) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextID++
	row := &quizRow{quiz: domain.Quiz{
		ID:          s.nextID,
		CompanyID:   plan.CompanyID,
		Title:       plan.Title,
		Description: plan.Description,
		Frequency:   copyInt(plan.Frequency),
		CreatedAt:   now,
		UpdatedAt:   now,
	}}
	for _, pq := range plan.Questions {
		row.questionIDs = append(row.questionIDs, s.insertQuestionLocked(pq))
	}
	s.quizzes[row.quiz.ID] = row
	return s.assembleLocked(row), nil
}

func (s *QuizStore) UpdateQuiz(_ context.Context, quizID int64, plan app.QuizPlan) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	row.quiz.Title = plan.Title
	row.quiz.Description = plan.Description
	row.quiz.Frequency = copyInt(plan.Frequency)
	row.quiz.UpdatedAt = s.now()

	for _, id := range plan.RemovedQuestionIDs {
		delete(s.questions, id)
	}
	row.questionIDs = row.questionIDs[:0]
	for _, pq := range plan.Questions {
		if q, ok := s.questions[pq.ID]; ok && pq.ID != 0 {
			q.text = pq.Text
			q.answerIDs = s.answerIDsLocked(pq.Answers)
			row.questionIDs = append(row.questionIDs, pq.ID)
			continue
		}
		row.questionIDs = append(row.questionIDs, s.insertQuestionLocked(pq))
	}
	return s.assembleLocked(row), nil
}

func (s *QuizStore) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	row, ok := s.quizzes[quizID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrQuizNotFound
	}
	for _, id := range row.questionIDs {
		delete(s.questions, id)
	}
	delete(s.quizzes, quizID)
	hooks := append([]func(int64){}, s.onDelete...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(quizID)
	}
	return nil
}

func (s *QuizStore) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.assembleLocked(row), nil
}

func (s *QuizStore) ListQuizzes(_ context.Context, companyID int64) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, row := range s.quizzes {
		if row.quiz.CompanyID == companyID {
			out = append(out, s.assembleLocked(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QuizStore) insertQuestionLocked(pq app.PlannedQuestion) int64 {
	s.nextID++
	s.questions[s.nextID] = &questionRow{text: pq.Text, answerIDs: s.answerIDsLocked(pq.Answers)}
	return s.nextID
}

func (s *QuizStore) answerIDsLocked(answers []domain.AnswerInput) []int64 {
	ids := make([]int64, 0, len(answers))
	for _, a := range answers {
		id, ok := s.answerIDs[a]
		if !ok {
			s.nextID++
			id = s.nextID
			s.answerIDs[a] = id
			s.answers[id] = domain.Answer{ID: id, Text: a.Text, IsRight: a.IsRight}
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *QuizStore) assembleLocked(row *quizRow) domain.Quiz {
	quiz := row.quiz
	quiz.Frequency = copyInt(row.quiz.Frequency)
	quiz.Questions = make([]domain.Question, 0, len(row.questionIDs))
	for _, qid := range row.questionIDs {
		q := s.questions[qid]
		question := domain.Question{ID: qid, Text: q.text, Answers: make([]domain.Answer, 0, len(q.answerIDs))}
		for _, aid := range q.answerIDs {
			question.Answers = append(question.Answers, s.answers[aid])
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
