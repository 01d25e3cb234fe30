package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler serves the quiz and notification REST endpoints.
type Handler struct {
	quizzes       *app.QuizService
	notifications *app.NotificationService
	log           *zap.Logger
}

func NewHandler(quizzes *app.QuizService, notifications *app.NotificationService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{quizzes: quizzes, notifications: notifications, log: log}
}

func (h *Handler) register(r *mux.Router) {
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes", h.createQuiz).Methods(http.MethodPost)
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes", h.listQuizzes).Methods(http.MethodGet)
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes/{quizID:[0-9]+}", h.getQuiz).Methods(http.MethodGet)
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes/{quizID:[0-9]+}", h.updateQuiz).Methods(http.MethodPatch)
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes/{quizID:[0-9]+}", h.deleteQuiz).Methods(http.MethodDelete)
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes/{quizID:[0-9]+}/start", h.startQuiz).Methods(http.MethodPost)
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes/{quizID:[0-9]+}/complete", h.completeQuiz).Methods(http.MethodPost)
	r.HandleFunc("/companies/{companyID:[0-9]+}/quizzes/{quizID:[0-9]+}/results", h.userQuizResults).Methods(http.MethodGet)
	r.HandleFunc("/companies/{companyID:[0-9]+}/results", h.companyResults).Methods(http.MethodGet)
	r.HandleFunc("/companies/{companyID:[0-9]+}/results/export", h.exportResults).Methods(http.MethodGet)
	r.HandleFunc("/results/{resultID:[0-9]+}/complete", h.completeResult).Methods(http.MethodPost)
	r.HandleFunc("/companies/{companyID:[0-9]+}/analytics", h.companyAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/analytics/quizzes", h.quizzesAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/analytics/users", h.usersAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/analytics/users/{userID:[0-9]+}", h.userAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/results", h.userResults).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/results/{resultID:[0-9]+}/answers", h.resultAnswers).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/notifications", h.listNotifications).Methods(http.MethodGet)
	r.HandleFunc("/users/{userID:[0-9]+}/notifications/{notificationID:[0-9]+}/view", h.viewNotification).Methods(http.MethodPost)
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var in domain.QuizInput
	if !h.decode(w, r, &in) {
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), actor, pathID(r, "companyID"), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuizDTO(app.QuizView{Quiz: quiz, FullAccess: true}))
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	views, err := h.quizzes.ListQuizzes(r.Context(), actor, pathID(r, "companyID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out := make([]quizDTO, 0, len(views))
	for _, v := range views {
		out = append(out, newQuizDTO(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	view, err := h.quizzes.GetQuiz(r.Context(), actor, pathID(r, "companyID"), pathID(r, "quizID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizDTO(view))
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var in domain.QuizInput
	if !h.decode(w, r, &in) {
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), actor, pathID(r, "companyID"), pathID(r, "quizID"), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizDTO(app.QuizView{Quiz: quiz, FullAccess: true}))
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if err := h.quizzes.DeleteQuiz(r.Context(), actor, pathID(r, "companyID"), pathID(r, "quizID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	companyID, quizID := pathID(r, "companyID"), pathID(r, "quizID")
	result, err := h.quizzes.Start(r.Context(), actor, companyID, quizID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	view, err := h.quizzes.GetQuiz(r.Context(), actor, companyID, quizID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, startDTO{quizDTO: newQuizDTO(view), ResultID: result.ID})
}

func (h *Handler) completeQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var sub domain.Submission
	if !h.decode(w, r, &sub) {
		return
	}
	result, err := h.quizzes.Complete(r.Context(), actor, pathID(r, "companyID"), pathID(r, "quizID"), sub)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeResult(w, r, result)
}

func (h *Handler) completeResult(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var sub domain.Submission
	if !h.decode(w, r, &sub) {
		return
	}
	result, err := h.quizzes.CompleteResult(r.Context(), actor, pathID(r, "resultID"), sub)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeResult(w, r, result)
}

func (h *Handler) userQuizResults(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	results, err := h.quizzes.UserQuizResults(r.Context(), actor, pathID(r, "companyID"), pathID(r, "quizID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeResults(w, r, results)
}

func (h *Handler) companyResults(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	userID, quizID, ok := resultFilters(w, r)
	if !ok {
		return
	}
	results, err := h.quizzes.CompanyResults(r.Context(), actor, pathID(r, "companyID"), userID, quizID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeResults(w, r, results)
}

func (h *Handler) exportResults(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	userID, quizID, ok := resultFilters(w, r)
	if !ok {
		return
	}
	rows, err := h.quizzes.ExportCompanyResults(r.Context(), actor, pathID(r, "companyID"), userID, quizID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newExportRows(rows))
}

func (h *Handler) userResults(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	results, err := h.quizzes.UserResults(r.Context(), actor, pathID(r, "userID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeResults(w, r, results)
}

func (h *Handler) resultAnswers(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	answered, err := h.quizzes.ResultAnswers(r.Context(), actor, pathID(r, "userID"), pathID(r, "resultID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out := make([]answeredQuestionDTO, 0, len(answered))
	for _, a := range answered {
		out = append(out, answeredQuestionDTO{QuestionID: a.QuestionID, Text: a.Text, Answers: a.Answers})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) quizzesAnalytics(w http.ResponseWriter, r *http.Request) {
	all, err := h.quizzes.QuizzesAnalytics(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out := make([]quizAnalyticsDTO, 0, len(all))
	for _, a := range all {
		out = append(out, quizAnalyticsDTO{ID: a.Quiz.ID, Title: a.Quiz.Title, QuizResults: newResultDTOs(a.Results)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) usersAnalytics(w http.ResponseWriter, r *http.Request) {
	all, err := h.quizzes.UsersAnalytics(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out := make([]userAnalyticsDTO, 0, len(all))
	for _, a := range all {
		out = append(out, newUserAnalyticsDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) userAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.quizzes.UserAnalytics(r.Context(), pathID(r, "userID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserAnalyticsDTO(a))
}

func (h *Handler) companyAnalytics(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	userID, _, ok := resultFilters(w, r)
	if !ok {
		return
	}
	a, err := h.quizzes.CompanyAnalytics(r.Context(), actor, pathID(r, "companyID"), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newCompanyAnalyticsDTO(a))
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "page must be a number"})
			return
		}
		page = n
	}
	out, err := h.notifications.Page(r.Context(), actor, pathID(r, "userID"), page)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) viewNotification(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if actor != pathID(r, "userID") {
		writeError(w, h.log, domain.ErrForbidden)
		return
	}
	n, err := h.notifications.MarkViewed(r.Context(), actor, pathID(r, "notificationID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, result domain.QuizResult) {
	d, err := h.quizzes.DescribeResult(r.Context(), result)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultDetailDTO(d))
}

func (h *Handler) writeResults(w http.ResponseWriter, r *http.Request, results []domain.QuizResult) {
	ds, err := h.quizzes.DescribeResults(r.Context(), results)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultDetailDTOs(ds))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

// pathID reads a numeric route variable. Routes constrain them to digits.
func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func resultFilters(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	var ids [2]int64
	for i, name := range []string{"user_id", "quiz_id"} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: name + " must be a number"})
			return 0, 0, false
		}
		ids[i] = id
	}
	return ids[0], ids[1], true
}
