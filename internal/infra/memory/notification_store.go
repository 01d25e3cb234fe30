package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
)

// NotificationStore is an in-memory app.NotificationStore.
type NotificationStore struct {
	mu     sync.Mutex
	rows   map[int64]domain.Notification
	nextID int64
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{rows: make(map[int64]domain.Notification)}
}

func (s *NotificationStore) CreateNotifications(_ context.Context, ns []domain.Notification) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(ns))
	for _, n := range ns {
		s.nextID++
		n.ID = s.nextID
		if n.Status == "" {
			n.Status = domain.NotificationSent
		}
		s.rows[n.ID] = n
		out = append(out, n)
	}
	return out, nil
}

func (s *NotificationStore) MarkViewed(_ context.Context, recipientID, notificationID int64, now time.Time) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[notificationID]
	if !ok || n.RecipientID != recipientID {
		return domain.Notification{}, domain.ErrNotificationNotFound
	}
	if n.Status == domain.NotificationViewed {
		return domain.Notification{}, domain.ErrNotificationViewed
	}
	n.Status = domain.NotificationViewed
	n.UpdatedAt = now
	s.rows[n.ID] = n
	return n, nil
}

// ListNotifications returns the recipient's notifications newest first.
func (s *NotificationStore) ListNotifications(_ context.Context, recipientID int64, offset, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	all := make([]domain.Notification, 0)
	for _, n := range s.rows {
		if n.RecipientID == recipientID {
			all = append(all, n)
		}
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset < 0 || offset >= len(all) {
		return []domain.Notification{}, nil
	}
	end := len(all)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (s *NotificationStore) CountNotifications(_ context.Context, recipientID int64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, unviewed := 0, 0
	for _, n := range s.rows {
		if n.RecipientID != recipientID {
			continue
		}
		total++
		if n.Status == domain.NotificationSent {
			unviewed++
		}
	}
	return total, unviewed, nil
}
