package postgres

import (
	"context"
	"fmt"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// NotificationStore is the bun implementation of app.NotificationStore.
type NotificationStore struct {
	db *bun.DB
}

func NewNotificationStore(db *bun.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

var _ app.NotificationStore = (*NotificationStore)(nil)

// CreateNotifications inserts the batch with one statement inside a transaction.
func (s *NotificationStore) CreateNotifications(ctx context.Context, ns []domain.Notification) ([]domain.Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	ms := make([]notificationModel, 0, len(ns))
	for _, n := range ns {
		status := n.Status
		if status == "" {
			status = domain.NotificationSent
		}
		ms = append(ms, notificationModel{
			RecipientID: n.RecipientID,
			Text:        n.Text,
			Status:      string(status),
			CreatedAt:   n.CreatedAt.UTC(),
			UpdatedAt:   n.UpdatedAt.UTC(),
		})
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&ms).Returning("id").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *NotificationStore) MarkViewed(ctx context.Context, recipientID, notificationID int64, now time.Time) (domain.Notification, error) {
	var m notificationModel
	err := s.db.NewUpdate().Model(&m).
		Set("status = ?", string(domain.NotificationViewed)).
		Set("updated_at = ?", now.UTC()).
		Where("id = ?", notificationID).
		Where("recipient_id = ?", recipientID).
		Where("status = ?", string(domain.NotificationSent)).
		Returning("*").
		Scan(ctx)
	if err == nil {
		return m.toDomain(), nil
	}
	if !noRows(err) {
		return domain.Notification{}, fmt.Errorf("mark notification viewed: %w", err)
	}

	exists, err := s.db.NewSelect().Model((*notificationModel)(nil)).
		Where("id = ?", notificationID).
		Where("recipient_id = ?", recipientID).
		Exists(ctx)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("check notification: %w", err)
	}
	if !exists {
		return domain.Notification{}, domain.ErrNotificationNotFound
	}
	return domain.Notification{}, domain.ErrNotificationViewed
}

func (s *NotificationStore) ListNotifications(ctx context.Context, recipientID int64, offset, limit int) ([]domain.Notification, error) {
	if offset < 0 {
		return []domain.Notification{}, nil
	}
	var ms []notificationModel
	q := s.db.NewSelect().Model(&ms).
		Where("recipient_id = ?", recipientID).
		OrderExpr("created_at DESC, id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *NotificationStore) CountNotifications(ctx context.Context, recipientID int64) (int, int, error) {
	var total, unviewed int
	err := s.db.NewSelect().
		TableExpr("notifications").
		ColumnExpr("count(*)").
		ColumnExpr("count(*) FILTER (WHERE status = ?)", string(domain.NotificationSent)).
		Where("recipient_id = ?", recipientID).
		Scan(ctx, &total, &unviewed)
	if err != nil {
		return 0, 0, fmt.Errorf("count notifications: %w", err)
	}
	return total, unviewed, nil
}
