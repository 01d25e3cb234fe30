package postgres

import (
	"context"
	"fmt"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// QuizStore persists quiz definitions with bun. Answers are shared rows keyed
// by (text, is_right); question_answers keeps their order per question.
type QuizStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db, now: time.Now}
}

func (s *QuizStore) CreateQuiz(ctx context.Context, plan app.QuizPlan) (domain.Quiz, error) {
	now := s.now().UTC()
	m := quizModel{
		CompanyID:   plan.CompanyID,
		Title:       plan.Title,
		Description: plan.Description,
		Frequency:   plan.Frequency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		for i, pq := range plan.Questions {
			if _, err := insertQuestion(ctx, tx, m.ID, i, pq); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return s.LoadQuiz(ctx, m.ID)
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, quizID int64, plan app.QuizPlan) (domain.Quiz, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*quizModel)(nil)).
			Set("title = ?", plan.Title).
			Set("description = ?", plan.Description).
			Set("frequency = ?", plan.Frequency).
			Set("updated_at = ?", s.now().UTC()).
			Where("id = ?", quizID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrQuizNotFound
		}

		if len(plan.RemovedQuestionIDs) > 0 {
			if _, err := tx.NewDelete().Model((*questionModel)(nil)).
				Where("quiz_id = ?", quizID).
				Where("id IN (?)", bun.In(plan.RemovedQuestionIDs)).
				Exec(ctx); err != nil {
				return fmt.Errorf("delete questions: %w", err)
			}
		}

		for i, pq := range plan.Questions {
			if pq.ID == 0 {
				if _, err := insertQuestion(ctx, tx, quizID, i, pq); err != nil {
					return err
				}
				continue
			}
			if _, err := tx.NewUpdate().Model((*questionModel)(nil)).
				Set("text = ?", pq.Text).
				Set("position = ?", i).
				Where("id = ?", pq.ID).
				Where("quiz_id = ?", quizID).
				Exec(ctx); err != nil {
				return fmt.Errorf("update question %d: %w", pq.ID, err)
			}
			if _, err := tx.NewDelete().Model((*questionAnswerModel)(nil)).
				Where("question_id = ?", pq.ID).
				Exec(ctx); err != nil {
				return fmt.Errorf("unlink answers of question %d: %w", pq.ID, err)
			}
			if err := linkAnswers(ctx, tx, pq.ID, pq.Answers); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return s.LoadQuiz(ctx, quizID)
}

// DeleteQuiz cascades to questions and links; results keep a NULL quiz_id.
func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID int64) error {
	res, err := s.db.NewDelete().Model((*quizModel)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var m quizModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", quizID).Scan(ctx); err != nil {
		if noRows(err) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quizzes, err := s.assemble(ctx, []quizModel{m})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quizzes[0], nil
}

func (s *QuizStore) ListQuizzes(ctx context.Context, companyID int64) ([]domain.Quiz, error) {
	var ms []quizModel
	if err := s.db.NewSelect().Model(&ms).Where("company_id = ?", companyID).Order("id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return s.assemble(ctx, ms)
}

var _ app.QuizStore = (*QuizStore)(nil)

func (s *QuizStore) assemble(ctx context.Context, ms []quizModel) ([]domain.Quiz, error) {
	out := make([]domain.Quiz, 0, len(ms))
	if len(ms) == 0 {
		return out, nil
	}
	quizIDs := make([]int64, 0, len(ms))
	for _, m := range ms {
		quizIDs = append(quizIDs, m.ID)
	}

	var questions []questionModel
	if err := s.db.NewSelect().Model(&questions).
		Where("quiz_id IN (?)", bun.In(quizIDs)).
		Order("quiz_id", "position", "id").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	answersByQuestion := make(map[int64][]domain.Answer)
	if len(questions) > 0 {
		questionIDs := make([]int64, 0, len(questions))
		for _, q := range questions {
			questionIDs = append(questionIDs, q.ID)
		}
		var links []linkedAnswer
		if err := s.db.NewSelect().
			TableExpr("question_answers AS qa").
			Join("JOIN answers AS a ON a.id = qa.answer_id").
			ColumnExpr("qa.question_id, a.id, a.text, a.is_right").
			Where("qa.question_id IN (?)", bun.In(questionIDs)).
			OrderExpr("qa.question_id, qa.position").
			Scan(ctx, &links); err != nil {
			return nil, fmt.Errorf("load answers: %w", err)
		}
		for _, l := range links {
			answersByQuestion[l.QuestionID] = append(answersByQuestion[l.QuestionID], domain.Answer{ID: l.ID, Text: l.Text, IsRight: l.IsRight})
		}
	}

	questionsByQuiz := make(map[int64][]domain.Question)
	for _, q := range questions {
		answers := answersByQuestion[q.ID]
		if answers == nil {
			answers = []domain.Answer{}
		}
		questionsByQuiz[q.QuizID] = append(questionsByQuiz[q.QuizID], domain.Question{ID: q.ID, Text: q.Text, Answers: answers})
	}

	for _, m := range ms {
		qs := questionsByQuiz[m.ID]
		if qs == nil {
			qs = []domain.Question{}
		}
		out = append(out, domain.Quiz{
			ID:          m.ID,
			CompanyID:   m.CompanyID,
			Title:       m.Title,
			Description: m.Description,
			Frequency:   m.Frequency,
			Questions:   qs,
			CreatedAt:   m.CreatedAt,
			UpdatedAt:   m.UpdatedAt,
		})
	}
	return out, nil
}

func insertQuestion(ctx context.Context, tx bun.Tx, quizID int64, position int, pq app.PlannedQuestion) (int64, error) {
	q := questionModel{QuizID: quizID, Text: pq.Text, Position: position}
	if _, err := tx.NewInsert().Model(&q).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return q.ID, linkAnswers(ctx, tx, q.ID, pq.Answers)
}

// linkAnswers gets or creates each answer and links it at its position.
func linkAnswers(ctx context.Context, tx bun.Tx, questionID int64, answers []domain.AnswerInput) error {
	for i, in := range answers {
		a := answerModel{Text: in.Text, IsRight: in.IsRight}
		if _, err := tx.NewInsert().Model(&a).
			On("CONFLICT (text, is_right) DO UPDATE").
			Set("text = EXCLUDED.text").
			Returning("id").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
		link := questionAnswerModel{QuestionID: questionID, AnswerID: a.ID, Position: i}
		if _, err := tx.NewInsert().Model(&link).Exec(ctx); err != nil {
			return fmt.Errorf("link answer: %w", err)
		}
	}
	return nil
}
