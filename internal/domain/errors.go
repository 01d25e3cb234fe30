package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuizNotFound indicates the quiz does not exist (or not in the given company).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrCompanyNotFound indicates the company does not exist.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrResultNotFound is returned when no matching quiz result exists.
	ErrResultNotFound = errors.New("quiz result not found")
	// ErrNotificationNotFound is returned when the notification is missing or belongs to someone else.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrAlreadyCompleted is returned when completing a result that is not STARTED.
	ErrAlreadyCompleted = errors.New("the quiz has already been completed")
	// ErrNotificationViewed is returned when viewing a notification twice.
	ErrNotificationViewed = errors.New("the notification has already been viewed")
	// ErrStatusNotAllowed is returned when a caller tries to set a notification back to SENT.
	ErrStatusNotAllowed = errors.New("you cannot set this status yourself")

	// ErrFrequencyExceeded is wrapped by ThrottleError.
	ErrFrequencyExceeded = errors.New("quiz frequency limit exceeded")
	// ErrForbidden indicates the actor lacks the capability for the operation.
	ErrForbidden = errors.New("permission denied")
	// ErrValidation is wrapped by ValidationError and MismatchError.
	ErrValidation = errors.New("validation failed")
)

// MismatchError reports a submission that does not structurally match the quiz.
type MismatchError struct {
	Level    string // "question" or "answer"
	Position int
}

func (e *MismatchError) Error() string {
	if e.Level == "answer" {
		return fmt.Sprintf("answer mismatch at question %d", e.Position+1)
	}
	return fmt.Sprintf("question mismatch at position %d", e.Position+1)
}

func (e *MismatchError) Unwrap() error { return ErrValidation }

// ValidationError reports an invalid quiz definition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ThrottleError carries how long the participant still has to wait.
type ThrottleError struct {
	Remaining time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("you have exceeded the limit, the quiz will be available in %s", e.Remaining.Round(time.Second))
}

func (e *ThrottleError) Unwrap() error { return ErrFrequencyExceeded }
