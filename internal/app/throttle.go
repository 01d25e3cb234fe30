package app

import (
	"time"

	"company-quiz-service/internal/domain"
)

const day = 24 * time.Hour

// CheckRetake decides whether a participant may start quiz again given their
// latest completed result for it (nil if none).
func CheckRetake(quiz domain.Quiz, last *domain.QuizResult, now time.Time) error {
	if quiz.Frequency == nil || *quiz.Frequency <= 0 || last == nil {
		return nil
	}
	remaining := time.Duration(*quiz.Frequency)*day - now.Sub(last.UpdatedAt)
	if remaining > 0 {
		return &domain.ThrottleError{Remaining: remaining}
	}
	return nil
}
