package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"company-quiz-service/internal/domain"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

type throttleBody struct {
	Error            string `json:"error"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Remaining        string `json:"remaining"`
}

func statusFor(err error) int {
	var throttle *domain.ThrottleError
	switch {
	case errors.As(err, &throttle):
		return http.StatusNotAcceptable
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrStatusNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyCompleted), errors.Is(err, domain.ErrNotificationViewed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrCompanyNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrResultNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto a status code. Internal errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	var throttle *domain.ThrottleError
	switch {
	case errors.As(err, &throttle):
		rem := throttle.Remaining.Round(time.Second)
		writeJSON(w, status, throttleBody{
			Error:            err.Error(),
			RemainingSeconds: int64(rem.Seconds()),
			Remaining:        rem.String(),
		})
	case status == http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, status, errorBody{Error: "internal server error"})
	default:
		writeJSON(w, status, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
