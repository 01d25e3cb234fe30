package app

import (
	"fmt"
	"strings"

	"company-quiz-service/internal/domain"
)

// QuizRules bounds the shape of a quiz definition.
type QuizRules struct {
	MinQuestions int
	MinAnswers   int
}

// Validate checks a create payload. Every question needs MinAnswers options
// and at least one correct one; the quiz needs MinQuestions questions.
func (r QuizRules) Validate(in domain.QuizInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return &domain.ValidationError{Message: "title is required"}
	}
	return r.validateBody(in)
}

// ValidateUpdate checks an edit payload. Omitted fields keep their stored
// value; an empty question list leaves the questions untouched.
func (r QuizRules) ValidateUpdate(in domain.QuizInput) error {
	if len(in.Questions) == 0 {
		return r.validateFrequency(in)
	}
	return r.validateBody(in)
}

func (r QuizRules) validateFrequency(in domain.QuizInput) error {
	if in.Frequency != nil && *in.Frequency < 0 {
		return &domain.ValidationError{Message: "frequency must not be negative"}
	}
	return nil
}

func (r QuizRules) validateBody(in domain.QuizInput) error {
	if err := r.validateFrequency(in); err != nil {
		return err
	}
	if len(in.Questions) < r.MinQuestions {
		return &domain.ValidationError{Message: fmt.Sprintf("a quiz needs at least %d questions", r.MinQuestions)}
	}
	for i, q := range in.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return &domain.ValidationError{Message: fmt.Sprintf("question %d has no text", i+1)}
		}
		if len(dedupeAnswers(q.Answers)) < r.MinAnswers {
			return &domain.ValidationError{Message: fmt.Sprintf("question %d needs at least %d answers", i+1, r.MinAnswers)}
		}
		right := false
		for _, a := range q.Answers {
			if a.IsRight {
				right = true
				break
			}
		}
		if !right {
			return &domain.ValidationError{Message: fmt.Sprintf("question %d has no correct answer", i+1)}
		}
	}
	return nil
}

// QuizPlan is a fully resolved quiz definition ready to be persisted.
type QuizPlan struct {
	CompanyID          int64
	Title              string
	Description        string
	Frequency          *int
	Questions          []PlannedQuestion
	RemovedQuestionIDs []int64
}

// PlannedQuestion keeps ID when an existing question is edited in place, zero otherwise.
type PlannedQuestion struct {
	ID      int64
	Text    string
	Answers []domain.AnswerInput
}

// NewQuizPlan builds the plan for a new quiz.
func NewQuizPlan(companyID int64, in domain.QuizInput) QuizPlan {
	plan := QuizPlan{
		CompanyID:   companyID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Frequency:   in.Frequency,
	}
	for _, q := range in.Questions {
		plan.Questions = append(plan.Questions, PlannedQuestion{Text: q.Text, Answers: dedupeAnswers(q.Answers)})
	}
	return plan
}

// PlanQuizUpdate resolves an edit against the stored quiz. Questions whose id
// is unknown or repeated become new questions; stored questions missing from
// the input are removed.
func PlanQuizUpdate(existing domain.Quiz, in domain.QuizInput) QuizPlan {
	plan := QuizPlan{
		CompanyID:   existing.CompanyID,
		Title:       existing.Title,
		Description: existing.Description,
		Frequency:   existing.Frequency,
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		plan.Title = title
	}
	if in.Description != "" {
		plan.Description = in.Description
	}
	if in.Frequency != nil {
		plan.Frequency = in.Frequency
	}

	if len(in.Questions) == 0 {
		for _, q := range existing.Questions {
			pq := PlannedQuestion{ID: q.ID, Text: q.Text}
			for _, a := range q.Answers {
				pq.Answers = append(pq.Answers, domain.AnswerInput{Text: a.Text, IsRight: a.IsRight})
			}
			plan.Questions = append(plan.Questions, pq)
		}
		return plan
	}

	known := make(map[int64]bool, len(existing.Questions))
	for _, q := range existing.Questions {
		known[q.ID] = true
	}
	kept := make(map[int64]bool)
	for _, q := range in.Questions {
		pq := PlannedQuestion{Text: q.Text, Answers: dedupeAnswers(q.Answers)}
		if q.ID != 0 && known[q.ID] && !kept[q.ID] {
			pq.ID = q.ID
			kept[q.ID] = true
		}
		plan.Questions = append(plan.Questions, pq)
	}
	for _, q := range existing.Questions {
		if !kept[q.ID] {
			plan.RemovedQuestionIDs = append(plan.RemovedQuestionIDs, q.ID)
		}
	}
	return plan
}

// dedupeAnswers keeps the first occurrence of each (text, is_right) pair.
func dedupeAnswers(in []domain.AnswerInput) []domain.AnswerInput {
	seen := make(map[domain.AnswerInput]bool, len(in))
	out := make([]domain.AnswerInput, 0, len(in))
	for _, a := range in {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
