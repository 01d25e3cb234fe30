package app

import (
	"context"
	"time"

	"company-quiz-service/internal/domain"
)

// QuizStore persists quiz definitions (questions, shared answers and links).
type QuizStore interface {
	CreateQuiz(ctx context.Context, plan QuizPlan) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quizID int64, plan QuizPlan) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID int64) error
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, companyID int64) ([]domain.Quiz, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// ResultRepository stores quiz results.
type ResultRepository interface {
	// StartOrGet atomically returns the STARTED result for the triple, creating
	// it when missing. The bool reports whether a row was created.
	StartOrGet(ctx context.Context, participantID, companyID, quizID int64, now time.Time) (domain.QuizResult, bool, error)
	// LatestCompleted returns the most recently updated COMPLETED result
	// matching f (ties broken by highest id).
	LatestCompleted(ctx context.Context, f domain.ResultFilter) (domain.QuizResult, bool, error)
	ListResults(ctx context.Context, f domain.ResultFilter) ([]domain.QuizResult, error)
	// WithinParticipantTx runs fn in a transaction that excludes every other
	// transaction for the same participant. Writes are discarded if fn fails.
	WithinParticipantTx(ctx context.Context, participantID int64, fn func(ctx context.Context, tx ResultTx) error) error
}

// ResultTx is the view of the result store inside WithinParticipantTx.
type ResultTx interface {
	StartedForUpdate(ctx context.Context, participantID, companyID, quizID int64) (domain.QuizResult, error)
	ResultForUpdate(ctx context.Context, resultID int64) (domain.QuizResult, error)
	LatestCompleted(ctx context.Context, f domain.ResultFilter) (domain.QuizResult, bool, error)
	// SaveCompleted writes r only if the stored row is still STARTED,
	// otherwise it returns domain.ErrAlreadyCompleted.
	SaveCompleted(ctx context.Context, r domain.QuizResult) error
}

// NotificationStore persists notifications.
type NotificationStore interface {
	// CreateNotifications inserts all rows in one transaction and returns them with ids.
	CreateNotifications(ctx context.Context, ns []domain.Notification) ([]domain.Notification, error)
	// MarkViewed flips SENT to VIEWED for the recipient's notification.
	MarkViewed(ctx context.Context, recipientID, notificationID int64, now time.Time) (domain.Notification, error)
	ListNotifications(ctx context.Context, recipientID int64, offset, limit int) ([]domain.Notification, error)
	CountNotifications(ctx context.Context, recipientID int64) (total int, unviewed int, err error)
}

// Directory exposes companies, members and users owned by other services.
type Directory interface {
	Company(ctx context.Context, companyID int64) (domain.Company, error)
	Companies(ctx context.Context) ([]domain.Company, error)
	Members(ctx context.Context, companyID int64) ([]domain.Member, error)
	User(ctx context.Context, userID int64) (domain.User, error)
	Users(ctx context.Context) ([]domain.User, error)
	// MemberCompanies lists the companies userID belongs to.
	MemberCompanies(ctx context.Context, userID int64) ([]domain.Company, error)
	// CanManage reports whether the actor owns or administers the company.
	CanManage(ctx context.Context, actorID, companyID int64) (bool, error)
}

// Broadcaster delivers live events to every connection of a user.
type Broadcaster interface {
	Publish(ctx context.Context, userID int64, ev Event) error
}

// AnswerRecorder keeps a participant's per-question answers after completion.
type AnswerRecorder interface {
	RecordAnswers(ctx context.Context, result domain.QuizResult, quiz domain.Quiz, sub domain.Submission) error
}

// AnswerLog reads back answers kept by an AnswerRecorder. The map goes from
// answer text to whether the participant's choice matched the key.
type AnswerLog interface {
	Answers(ctx context.Context, resultID, questionID int64) (map[string]bool, bool, error)
}

// QuizNotifier is told about freshly created quizzes.
type QuizNotifier interface {
	QuizCreated(ctx context.Context, quiz domain.Quiz) ([]domain.Notification, error)
}
