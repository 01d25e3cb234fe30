package postgres

import (
	"time"

	"company-quiz-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID          int64 `bun:",pk,autoincrement"`
	CompanyID   int64
	Title       string
	Description string
	Frequency   *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions"`

	ID       int64 `bun:",pk,autoincrement"`
	QuizID   int64
	Text     string
	Position int
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers"`

	ID      int64 `bun:",pk,autoincrement"`
	Text    string
	IsRight bool
}

type questionAnswerModel struct {
	bun.BaseModel `bun:"table:question_answers"`

	QuestionID int64 `bun:",pk"`
	AnswerID   int64 `bun:",pk"`
	Position   int
}

// linkedAnswer is one row of the question_answers/answers join.
type linkedAnswer struct {
	QuestionID int64
	ID         int64
	Text       string
	IsRight    bool
}

// Foreign keys are nullzero: a zero id means the referenced row is gone.
type resultModel struct {
	bun.BaseModel `bun:"table:user_quiz_results"`

	ID                             int64 `bun:",pk,autoincrement"`
	ParticipantID                  int64 `bun:",nullzero"`
	CompanyID                      int64 `bun:",nullzero"`
	QuizID                         int64 `bun:",nullzero"`
	ProgressStatus                 string
	CorrectAnswers                 float64
	TotalQuestions                 int
	CorrectAnswersCollector        float64
	TotalQuestionsCollector        int
	CorrectCompanyAnswersCollector float64
	TotalCompanyQuestionsCollector int
	QuizTime                       time.Duration
	CompanyAverageScore            decimal.Decimal `bun:"type:numeric(5,2)"`
	UserRating                     decimal.Decimal `bun:"type:numeric(5,2)"`
	CreatedAt                      time.Time
	UpdatedAt                      time.Time
}

type notificationModel struct {
	bun.BaseModel `bun:"table:notifications"`

	ID          int64 `bun:",pk,autoincrement"`
	RecipientID int64 `bun:",nullzero"`
	Text        string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m resultModel) toDomain() domain.QuizResult {
	return domain.QuizResult{
		ID:                             m.ID,
		ParticipantID:                  m.ParticipantID,
		CompanyID:                      m.CompanyID,
		QuizID:                         m.QuizID,
		Status:                         domain.ProgressStatus(m.ProgressStatus),
		CorrectAnswers:                 m.CorrectAnswers,
		TotalQuestions:                 m.TotalQuestions,
		CorrectAnswersCollector:        m.CorrectAnswersCollector,
		TotalQuestionsCollector:        m.TotalQuestionsCollector,
		CorrectCompanyAnswersCollector: m.CorrectCompanyAnswersCollector,
		TotalCompanyQuestionsCollector: m.TotalCompanyQuestionsCollector,
		QuizTime:                       m.QuizTime,
		CompanyAverageScore:            m.CompanyAverageScore,
		UserRating:                     m.UserRating,
		CreatedAt:                      m.CreatedAt,
		UpdatedAt:                      m.UpdatedAt,
	}
}

func resultFromDomain(r domain.QuizResult) resultModel {
	return resultModel{
		ID:                             r.ID,
		ParticipantID:                  r.ParticipantID,
		CompanyID:                      r.CompanyID,
		QuizID:                         r.QuizID,
		ProgressStatus:                 string(r.Status),
		CorrectAnswers:                 r.CorrectAnswers,
		TotalQuestions:                 r.TotalQuestions,
		CorrectAnswersCollector:        r.CorrectAnswersCollector,
		TotalQuestionsCollector:        r.TotalQuestionsCollector,
		CorrectCompanyAnswersCollector: r.CorrectCompanyAnswersCollector,
		TotalCompanyQuestionsCollector: r.TotalCompanyQuestionsCollector,
		QuizTime:                       r.QuizTime,
		CompanyAverageScore:            r.CompanyAverageScore,
		UserRating:                     r.UserRating,
		CreatedAt:                      r.CreatedAt,
		UpdatedAt:                      r.UpdatedAt,
	}
}

func (m notificationModel) toDomain() domain.Notification {
	return domain.Notification{
		ID:          m.ID,
		RecipientID: m.RecipientID,
		Text:        m.Text,
		Status:      domain.NotificationStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
