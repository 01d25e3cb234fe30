package http

import (
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

// answerDTO hides the answer key with a null is_right unless the viewer manages the company.
type answerDTO struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	IsRight *bool  `json:"is_right"`
}

type questionDTO struct {
	ID      int64       `json:"id"`
	Text    string      `json:"question_text"`
	Answers []answerDTO `json:"answers"`
}

type quizDTO struct {
	ID          int64         `json:"id"`
	CompanyID   int64         `json:"company_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Frequency   *int          `json:"frequency"`
	Questions   []questionDTO `json:"questions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func newQuizDTO(v app.QuizView) quizDTO {
	q := v.Quiz
	out := quizDTO{
		ID:          q.ID,
		CompanyID:   q.CompanyID,
		Title:       q.Title,
		Description: q.Description,
		Frequency:   q.Frequency,
		Questions:   make([]questionDTO, 0, len(q.Questions)),
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
	for _, question := range q.Questions {
		qd := questionDTO{ID: question.ID, Text: question.Text, Answers: make([]answerDTO, 0, len(question.Answers))}
		for _, a := range question.Answers {
			ad := answerDTO{ID: a.ID, Text: a.Text}
			if v.FullAccess {
				right := a.IsRight
				ad.IsRight = &right
			}
			qd.Answers = append(qd.Answers, ad)
		}
		out.Questions = append(out.Questions, qd)
	}
	return out
}

// startDTO is the quiz about to be answered, keyed to the open result.
type startDTO struct {
	quizDTO
	ResultID int64 `json:"result_id"`
}

type userRefDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type companyRefDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
}

type quizRefDTO struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"company_id"`
	Title     string `json:"title"`
}

func newUserRefs(us []domain.User) []userRefDTO {
	out := make([]userRefDTO, 0, len(us))
	for _, u := range us {
		out = append(out, userRefDTO{ID: u.ID, Username: u.Username})
	}
	return out
}

func newCompanyRefs(cs []domain.Company) []companyRefDTO {
	out := make([]companyRefDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, companyRefDTO{ID: c.ID, Name: c.Name, OwnerID: c.OwnerID})
	}
	return out
}

func newQuizRefs(qs []app.QuizSummary) []quizRefDTO {
	out := make([]quizRefDTO, 0, len(qs))
	for _, q := range qs {
		out = append(out, quizRefDTO{ID: q.ID, CompanyID: q.CompanyID, Title: q.Title})
	}
	return out
}

// resultDTO renders detached references as null and ratings with two decimals.
type resultDTO struct {
	ID                             int64     `json:"id"`
	ParticipantID                  *int64    `json:"participant_id"`
	CompanyID                      *int64    `json:"company_id"`
	QuizID                         *int64    `json:"quiz_id"`
	ProgressStatus                 string    `json:"progress_status"`
	CorrectAnswers                 float64   `json:"correct_answers"`
	TotalQuestions                 int       `json:"total_questions"`
	CorrectAnswersCollector        float64   `json:"correct_answers_collector"`
	TotalQuestionsCollector        int       `json:"total_questions_collector"`
	CorrectCompanyAnswersCollector float64   `json:"correct_company_answers_collector"`
	TotalCompanyQuestionsCollector int       `json:"total_company_questions_collector"`
	QuizTime                       string    `json:"quiz_time"`
	CompanyAverageScore            string    `json:"company_average_score"`
	UserRating                     string    `json:"user_rating"`
	CreatedAt                      time.Time `json:"created_at"`
	UpdatedAt                      time.Time `json:"updated_at"`
}

func newResultDTO(r domain.QuizResult) resultDTO {
	return resultDTO{
		ID:                             r.ID,
		ParticipantID:                  ref(r.ParticipantID),
		CompanyID:                      ref(r.CompanyID),
		QuizID:                         ref(r.QuizID),
		ProgressStatus:                 string(r.Status),
		CorrectAnswers:                 r.CorrectAnswers,
		TotalQuestions:                 r.TotalQuestions,
		CorrectAnswersCollector:        r.CorrectAnswersCollector,
		TotalQuestionsCollector:        r.TotalQuestionsCollector,
		CorrectCompanyAnswersCollector: r.CorrectCompanyAnswersCollector,
		TotalCompanyQuestionsCollector: r.TotalCompanyQuestionsCollector,
		QuizTime:                       formatDuration(r.QuizTime),
		CompanyAverageScore:            r.CompanyAverageScore.StringFixed(2),
		UserRating:                     r.UserRating.StringFixed(2),
		CreatedAt:                      r.CreatedAt,
		UpdatedAt:                      r.UpdatedAt,
	}
}

func newResultDTOs(rs []domain.QuizResult) []resultDTO {
	out := make([]resultDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, newResultDTO(r))
	}
	return out
}

// resultDetailDTO nests what the result points at. Unresolvable references are null.
type resultDetailDTO struct {
	resultDTO
	Participant *userRefDTO    `json:"participant"`
	Company     *companyRefDTO `json:"company"`
	Quiz        *quizRefDTO    `json:"quiz"`
}

func newResultDetailDTO(d app.ResultDetail) resultDetailDTO {
	out := resultDetailDTO{resultDTO: newResultDTO(d.Result)}
	if u := d.Participant; u != nil {
		out.Participant = &userRefDTO{ID: u.ID, Username: u.Username}
	}
	if c := d.Company; c != nil {
		out.Company = &companyRefDTO{ID: c.ID, Name: c.Name, OwnerID: c.OwnerID}
	}
	if q := d.Quiz; q != nil {
		out.Quiz = &quizRefDTO{ID: q.ID, CompanyID: q.CompanyID, Title: q.Title}
	}
	return out
}

func newResultDetailDTOs(ds []app.ResultDetail) []resultDetailDTO {
	out := make([]resultDetailDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, newResultDetailDTO(d))
	}
	return out
}

type quizAnalyticsDTO struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	QuizResults []resultDTO `json:"quiz_results"`
}

type userAnalyticsDTO struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	QuizResults []resultDTO     `json:"quiz_results"`
	Companies   []companyRefDTO `json:"companies"`
	Quizzes     []quizRefDTO    `json:"quizzes"`
}

func newUserAnalyticsDTO(a app.UserAnalytics) userAnalyticsDTO {
	return userAnalyticsDTO{
		ID:          a.User.ID,
		Username:    a.User.Username,
		QuizResults: newResultDTOs(a.Results),
		Companies:   newCompanyRefs(a.Companies),
		Quizzes:     newQuizRefs(a.Quizzes),
	}
}

// companyAnalyticsDTO has null members when narrowed to one participant.
type companyAnalyticsDTO struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	QuizResults []resultDTO  `json:"quiz_results"`
	Members     []userRefDTO `json:"members"`
	Quizzes     []quizRefDTO `json:"quizzes"`
}

func newCompanyAnalyticsDTO(a app.CompanyAnalytics) companyAnalyticsDTO {
	out := companyAnalyticsDTO{
		ID:          a.Company.ID,
		Name:        a.Company.Name,
		QuizResults: newResultDTOs(a.Results),
		Quizzes:     newQuizRefs(a.Quizzes),
	}
	if a.Members != nil {
		out.Members = newUserRefs(a.Members)
	}
	return out
}

type answeredQuestionDTO struct {
	QuestionID int64           `json:"question_id"`
	Text       string          `json:"question_text"`
	Answers    map[string]bool `json:"answers"`
}

type exportRowDTO struct {
	ID          int64     `json:"id"`
	Participant string    `json:"participant"`
	Company     string    `json:"company"`
	Quiz        string    `json:"quiz"`
	Score       string    `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
	QuizTime    string    `json:"quiz_time"`
	UserRating  string    `json:"user_rating"`
}

func newExportRows(rows []domain.ExportRow) []exportRowDTO {
	out := make([]exportRowDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, exportRowDTO{
			ID:          r.ID,
			Participant: r.Participant,
			Company:     r.Company,
			Quiz:        r.Quiz,
			Score:       r.Score.StringFixed(2),
			CompletedAt: r.CompletedAt,
			QuizTime:    formatDuration(r.QuizTime),
			UserRating:  r.UserRating.StringFixed(2),
		})
	}
	return out
}

func ref(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
