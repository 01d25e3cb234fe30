package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProgressStatus is the lifecycle state of a quiz result.
type ProgressStatus string

const (
	StatusStarted   ProgressStatus = "STARTED"
	StatusCompleted ProgressStatus = "COMPLETED"
)

// NotificationStatus tracks whether the recipient has seen a notification.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "SENT"
	NotificationViewed NotificationStatus = "VIEWED"
)

// Answer is an answer option. Options are shared between questions by (Text, IsRight).
type Answer struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	IsRight bool   `json:"is_right"`
}

// Question is an ordered set of answer options.
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"question_text"`
	Answers []Answer `json:"answers"`
}

// Quiz belongs to one company. Frequency is the number of days a participant
// must wait after completing the quiz before starting it again.
type Quiz struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Frequency   *int       `json:"frequency"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// QuestionInput is an incoming question edit. A zero ID asks for a new question.
type QuestionInput struct {
	ID      int64         `json:"id,omitempty"`
	Text    string        `json:"question_text"`
	Answers []AnswerInput `json:"answers"`
}

// AnswerInput is an incoming answer option.
type AnswerInput struct {
	Text    string `json:"text"`
	IsRight bool   `json:"is_right"`
}

// QuizInput is the payload for creating or editing a quiz.
type QuizInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Frequency   *int            `json:"frequency"`
	Questions   []QuestionInput `json:"questions"`
}

// Submission is a participant's response set, positionally matching the quiz.
type Submission struct {
	Questions []SubmittedQuestion `json:"questions"`
}

// SubmittedQuestion carries the question text and the participant's marks.
type SubmittedQuestion struct {
	Text    string            `json:"question_text"`
	Answers []SubmittedAnswer `json:"answers"`
}

// SubmittedAnswer marks an answer option as chosen (IsRight) or not.
type SubmittedAnswer struct {
	Text    string `json:"text"`
	IsRight bool   `json:"is_right"`
}

// Score is the outcome of grading one attempt.
type Score struct {
	CorrectAnswers float64
	TotalQuestions int
}

// QuizResult is one attempt of a participant at a quiz. ParticipantID,
// CompanyID and QuizID are zero once the referenced row has been deleted.
type QuizResult struct {
	ID            int64          `json:"id"`
	ParticipantID int64          `json:"participant_id"`
	CompanyID     int64          `json:"company_id"`
	QuizID        int64          `json:"quiz_id"`
	Status        ProgressStatus `json:"progress_status"`

	CorrectAnswers float64 `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`

	CorrectAnswersCollector        float64 `json:"correct_answers_collector"`
	TotalQuestionsCollector        int     `json:"total_questions_collector"`
	CorrectCompanyAnswersCollector float64 `json:"correct_company_answers_collector"`
	TotalCompanyQuestionsCollector int     `json:"total_company_questions_collector"`

	QuizTime            time.Duration   `json:"quiz_time"`
	CompanyAverageScore decimal.Decimal `json:"company_average_score"`
	UserRating          decimal.Decimal `json:"user_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResultFilter narrows result lookups. Zero fields are ignored.
type ResultFilter struct {
	ID            int64
	ParticipantID int64
	CompanyID     int64
	QuizID        int64
	Status        ProgressStatus
}

// Notification is a message for one recipient.
type Notification struct {
	ID          int64              `json:"id"`
	RecipientID int64              `json:"recipient_id"`
	Text        string             `json:"text"`
	Status      NotificationStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NotificationPage is one page of a recipient's notifications, newest first.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
	CountUnviewed int            `json:"count_unviewed_notifications"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
	TotalPages    int            `json:"total_pages"`
}

// Company is owned by a user and has members.
type Company struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
}

// Member links a user to a company.
type Member struct {
	UserID    int64 `json:"user_id"`
	CompanyID int64 `json:"company_id"`
	Admin     bool  `json:"admin"`
}

// User is the subset of a user profile the quiz core needs.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ExportRow is the shape of one exported completed result.
type ExportRow struct {
	ID          int64           `json:"id"`
	Participant string          `json:"participant"`
	Company     string          `json:"company"`
	Quiz        string          `json:"quiz"`
	Score       decimal.Decimal `json:"score"`
	CompletedAt time.Time       `json:"completed_at"`
	QuizTime    time.Duration   `json:"quiz_time"`
	UserRating  decimal.Decimal `json:"user_rating"`
}
