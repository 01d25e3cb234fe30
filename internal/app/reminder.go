package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"company-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// Notifier sends one text to a set of recipients.
type Notifier interface {
	Notify(ctx context.Context, recipients []int64, text string) ([]domain.Notification, error)
}

// ReminderService tells members which frequency-limited quizzes they can take again.
type ReminderService struct {
	directory Directory
	quizzes   QuizStore
	results   ResultRepository
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

func NewReminderService(directory Directory, quizzes QuizStore, results ResultRepository, notifier Notifier, log *zap.Logger, now func() time.Time) *ReminderService {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderService{directory: directory, quizzes: quizzes, results: results, notifier: notifier, log: log, now: now}
}

// Run sends at most one reminder per user and returns how many were sent.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	companies, err := s.directory.Companies(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	available := make(map[int64][]string)

	for _, company := range companies {
		quizzes, err := s.quizzes.ListQuizzes(ctx, company.ID)
		if err != nil {
			return 0, err
		}
		limited := quizzes[:0:0]
		for _, q := range quizzes {
			if q.Frequency != nil && *q.Frequency > 0 {
				limited = append(limited, q)
			}
		}
		if len(limited) == 0 {
			continue
		}
		members, err := s.directory.Members(ctx, company.ID)
		if err != nil {
			return 0, err
		}
		for _, m := range members {
			for _, q := range limited {
				last, ok, err := s.results.LatestCompleted(ctx, domain.ResultFilter{
					ParticipantID: m.UserID,
					QuizID:        q.ID,
					Status:        domain.StatusCompleted,
				})
				if err != nil {
					return 0, err
				}
				var prev *domain.QuizResult
				if ok {
					prev = &last
				}
				err = CheckRetake(q, prev, now)
				var throttled *domain.ThrottleError
				if errors.As(err, &throttled) {
					continue
				}
				available[m.UserID] = append(available[m.UserID], fmt.Sprintf("%q (%s)", q.Title, company.Name))
			}
		}
	}

	users := make([]int64, 0, len(available))
	for id := range available {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	sent := 0
	for _, id := range users {
		if _, err := s.notifier.Notify(ctx, []int64{id}, ReminderText(available[id])); err != nil {
			s.log.Warn("reminder failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		sent++
	}
	s.log.Info("availability reminders sent", zap.Int("count", sent))
	return sent, nil
}

// ReminderText lists quizzes that can be taken again.
func ReminderText(quizzes []string) string {
	return "These quizzes are available to you again: " + strings.Join(quizzes, ", ") + "."
}
