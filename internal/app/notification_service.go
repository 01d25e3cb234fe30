package app

import (
	"context"
	"fmt"
	"time"

	"company-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// NotificationService creates notifications and pushes them to live connections.
type NotificationService struct {
	store     NotificationStore
	directory Directory
	live      Broadcaster
	log       *zap.Logger
	pageSize  int
	now       func() time.Time
}

func NewNotificationService(store NotificationStore, directory Directory, live Broadcaster, log *zap.Logger, pageSize int) *NotificationService {
	return NewNotificationServiceWithClock(store, directory, live, log, pageSize, time.Now)
}

// NewNotificationServiceWithClock is used by tests for deterministic timestamps.
func NewNotificationServiceWithClock(store NotificationStore, directory Directory, live Broadcaster, log *zap.Logger, pageSize int, now func() time.Time) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &NotificationService{store: store, directory: directory, live: live, log: log, pageSize: pageSize, now: now}
}

// QuizCreatedText is the notification sent to company members about a new quiz.
func QuizCreatedText(companyName, quizTitle string) string {
	return fmt.Sprintf(`The "%s" company created a new quiz called "%s". If you want to go through it, go to the company page.`, companyName, quizTitle)
}

// QuizCreated notifies every member of the quiz's company except the owner.
func (s *NotificationService) QuizCreated(ctx context.Context, quiz domain.Quiz) ([]domain.Notification, error) {
	company, err := s.directory.Company(ctx, quiz.CompanyID)
	if err != nil {
		return nil, err
	}
	members, err := s.directory.Members(ctx, quiz.CompanyID)
	if err != nil {
		return nil, err
	}
	recipients := make([]int64, 0, len(members))
	for _, m := range members {
		if m.UserID == company.OwnerID {
			continue
		}
		recipients = append(recipients, m.UserID)
	}
	return s.Notify(ctx, recipients, QuizCreatedText(company.Name, quiz.Title))
}

// Notify stores one SENT notification per recipient in a single batch and
// pushes each to the recipient's live connections. Push failures are logged.
func (s *NotificationService) Notify(ctx context.Context, recipients []int64, text string) ([]domain.Notification, error) {
	if len(recipients) == 0 {
		return nil, nil
	}
	now := s.now()
	batch := make([]domain.Notification, 0, len(recipients))
	for _, id := range recipients {
		batch = append(batch, domain.Notification{
			RecipientID: id,
			Text:        text,
			Status:      domain.NotificationSent,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	created, err := s.store.CreateNotifications(ctx, batch)
	if err != nil {
		return nil, err
	}
	for _, n := range created {
		s.push(ctx, EventCreated, n)
	}
	return created, nil
}

// MarkViewed moves the actor's notification from SENT to VIEWED.
func (s *NotificationService) MarkViewed(ctx context.Context, actorID, notificationID int64) (domain.Notification, error) {
	n, err := s.store.MarkViewed(ctx, actorID, notificationID, s.now())
	if err != nil {
		return domain.Notification{}, err
	}
	s.push(ctx, EventUpdated, n)
	return n, nil
}

// SetStatus applies a caller-requested status. Only VIEWED can be requested.
func (s *NotificationService) SetStatus(ctx context.Context, actorID, notificationID int64, status domain.NotificationStatus) (domain.Notification, error) {
	switch status {
	case domain.NotificationViewed:
		return s.MarkViewed(ctx, actorID, notificationID)
	case domain.NotificationSent:
		return domain.Notification{}, domain.ErrStatusNotAllowed
	default:
		return domain.Notification{}, &domain.ValidationError{Message: fmt.Sprintf("unknown notification status %q", status)}
	}
}

// Page returns one page of the recipient's notifications, newest first.
// Pages start at 1; smaller values are treated as 1.
func (s *NotificationService) Page(ctx context.Context, actorID, recipientID int64, page int) (domain.NotificationPage, error) {
	if actorID != recipientID {
		return domain.NotificationPage{}, domain.ErrForbidden
	}
	if page < 1 {
		page = 1
	}
	total, unviewed, err := s.store.CountNotifications(ctx, recipientID)
	if err != nil {
		return domain.NotificationPage{}, err
	}
	totalPages := (total + s.pageSize - 1) / s.pageSize
	items := []domain.Notification{}
	// Pages past the end are empty; skipping the store keeps the offset in range.
	if page <= totalPages {
		items, err = s.store.ListNotifications(ctx, recipientID, (page-1)*s.pageSize, s.pageSize)
		if err != nil {
			return domain.NotificationPage{}, err
		}
		if items == nil {
			items = []domain.Notification{}
		}
	}
	return domain.NotificationPage{
		Notifications: items,
		Count:         total,
		CountUnviewed: unviewed,
		Page:          page,
		PageSize:      s.pageSize,
		TotalPages:    totalPages,
	}, nil
}

func (s *NotificationService) push(ctx context.Context, kind EventKind, n domain.Notification) {
	if s.live == nil {
		return
	}
	if err := s.live.Publish(ctx, n.RecipientID, Event{Kind: kind, Notification: n}); err != nil {
		s.log.Warn("notification push failed",
			zap.Int64("recipient_id", n.RecipientID),
			zap.Int64("notification_id", n.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
