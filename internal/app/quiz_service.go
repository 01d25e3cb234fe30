package app

import (
	"context"
	"errors"
	"time"

	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuizServiceDeps wires a QuizService. Notifier, Answers, AnswerLog, Logger,
// Metrics and Now are optional.
type QuizServiceDeps struct {
	Quizzes   QuizStore
	Cache     QuizRepository
	Results   ResultRepository
	Directory Directory
	Notifier  QuizNotifier
	Answers   AnswerRecorder
	AnswerLog AnswerLog
	Rules     QuizRules
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// QuizService contains the quiz definition and quiz taking use cases.
type QuizService struct {
	quizzes   QuizStore
	cache     QuizRepository
	results   ResultRepository
	directory Directory
	notifier  QuizNotifier
	answers   AnswerRecorder
	answerLog AnswerLog
	rules     QuizRules
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewQuizService(d QuizServiceDeps) *QuizService {
	s := &QuizService{
		quizzes:   d.Quizzes,
		cache:     d.Cache,
		results:   d.Results,
		directory: d.Directory,
		notifier:  d.Notifier,
		answers:   d.Answers,
		answerLog: d.AnswerLog,
		rules:     d.Rules,
		log:       d.Logger,
		metrics:   d.Metrics,
		now:       d.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cache == nil {
		s.cache = storeLoader{s.quizzes}
	}
	return s
}

// QuizView is a quiz as seen by an actor. Without FullAccess the answer key
// must not be shown.
type QuizView struct {
	Quiz       domain.Quiz
	FullAccess bool
}

// CreateQuiz validates and stores a quiz, then notifies the company members.
// A failed fan-out is logged and does not undo the quiz.
func (s *QuizService) CreateQuiz(ctx context.Context, actorID, companyID int64, in domain.QuizInput) (domain.Quiz, error) {
	if err := s.requireManager(ctx, actorID, companyID); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.rules.Validate(in); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.CreateQuiz(ctx, NewQuizPlan(companyID, in))
	if err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz created",
		zap.Int64("quiz_id", quiz.ID),
		zap.Int64("company_id", companyID),
		zap.Int64("actor_id", actorID))

	if s.notifier != nil {
		if _, err := s.notifier.QuizCreated(ctx, quiz); err != nil {
			s.log.Error("quiz fan-out failed", zap.Int64("quiz_id", quiz.ID), zap.Error(err))
		}
	}
	return quiz, nil
}

// UpdateQuiz applies a diff edit to a quiz of companyID.
func (s *QuizService) UpdateQuiz(ctx context.Context, actorID, companyID, quizID int64, in domain.QuizInput) (domain.Quiz, error) {
	existing, err := s.companyQuizFromStore(ctx, companyID, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.requireManager(ctx, actorID, companyID); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.rules.ValidateUpdate(in); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.UpdateQuiz(ctx, quizID, PlanQuizUpdate(existing, in))
	if err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	return quiz, nil
}

// DeleteQuiz removes a quiz. Its results stay with the quiz reference cleared.
func (s *QuizService) DeleteQuiz(ctx context.Context, actorID, companyID, quizID int64) error {
	if _, err := s.companyQuizFromStore(ctx, companyID, quizID); err != nil {
		return err
	}
	if err := s.requireManager(ctx, actorID, companyID); err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// GetQuiz returns a quiz of companyID.
func (s *QuizService) GetQuiz(ctx context.Context, actorID, companyID, quizID int64) (QuizView, error) {
	quiz, err := s.companyQuiz(ctx, companyID, quizID)
	if err != nil {
		return QuizView{}, err
	}
	full, err := s.directory.CanManage(ctx, actorID, companyID)
	if err != nil {
		return QuizView{}, err
	}
	return QuizView{Quiz: quiz, FullAccess: full}, nil
}

// ListQuizzes returns every quiz of companyID.
func (s *QuizService) ListQuizzes(ctx context.Context, actorID, companyID int64) ([]QuizView, error) {
	if _, err := s.directory.Company(ctx, companyID); err != nil {
		return nil, err
	}
	full, err := s.directory.CanManage(ctx, actorID, companyID)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.ListQuizzes(ctx, companyID)
	if err != nil {
		return nil, err
	}
	views := make([]QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, QuizView{Quiz: q, FullAccess: full})
	}
	return views, nil
}

// CanStart reports whether participantID may start quiz now.
func (s *QuizService) CanStart(ctx context.Context, participantID int64, quiz domain.Quiz) error {
	last, ok, err := s.results.LatestCompleted(ctx, domain.ResultFilter{
		ParticipantID: participantID,
		QuizID:        quiz.ID,
		Status:        domain.StatusCompleted,
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return CheckRetake(quiz, &last, s.now())
}

// Start opens an attempt, or returns the attempt already in progress.
func (s *QuizService) Start(ctx context.Context, actorID, companyID, quizID int64) (domain.QuizResult, error) {
	quiz, err := s.companyQuiz(ctx, companyID, quizID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if err := s.CanStart(ctx, actorID, quiz); err != nil {
		return domain.QuizResult{}, err
	}
	result, created, err := s.results.StartOrGet(ctx, actorID, companyID, quizID, s.now())
	if err != nil {
		return domain.QuizResult{}, err
	}
	if created {
		s.log.Debug("quiz started", zap.Int64("result_id", result.ID), zap.Int64("participant_id", actorID))
	}
	return result, nil
}

// Complete grades the actor's running attempt at quizID and stores the outcome.
func (s *QuizService) Complete(ctx context.Context, actorID, companyID, quizID int64, sub domain.Submission) (domain.QuizResult, error) {
	quiz, err := s.companyQuiz(ctx, companyID, quizID)
	if err != nil {
		s.observeCompletion(err)
		return domain.QuizResult{}, err
	}
	return s.complete(ctx, actorID, quiz, sub, func(ctx context.Context, tx ResultTx) (domain.QuizResult, error) {
		rec, err := tx.StartedForUpdate(ctx, actorID, companyID, quizID)
		if !errors.Is(err, domain.ErrResultNotFound) {
			return rec, err
		}
		// No attempt in progress: a finished one means this is a repeat completion.
		_, done, lookupErr := tx.LatestCompleted(ctx, domain.ResultFilter{
			ParticipantID: actorID,
			CompanyID:     companyID,
			QuizID:        quizID,
			Status:        domain.StatusCompleted,
		})
		if lookupErr != nil {
			return domain.QuizResult{}, lookupErr
		}
		if done {
			return domain.QuizResult{}, domain.ErrAlreadyCompleted
		}
		return domain.QuizResult{}, err
	})
}

// CompleteResult completes a specific result owned by the actor.
func (s *QuizService) CompleteResult(ctx context.Context, actorID, resultID int64, sub domain.Submission) (domain.QuizResult, error) {
	var quiz domain.Quiz
	return s.complete(ctx, actorID, quiz, sub, func(ctx context.Context, tx ResultTx) (domain.QuizResult, error) {
		rec, err := tx.ResultForUpdate(ctx, resultID)
		if err != nil {
			return domain.QuizResult{}, err
		}
		if rec.ParticipantID != actorID {
			return domain.QuizResult{}, domain.ErrResultNotFound
		}
		return rec, nil
	})
}

func (s *QuizService) complete(ctx context.Context, actorID int64, quiz domain.Quiz, sub domain.Submission, locate func(context.Context, ResultTx) (domain.QuizResult, error)) (domain.QuizResult, error) {
	var saved domain.QuizResult
	err := s.results.WithinParticipantTx(ctx, actorID, func(ctx context.Context, tx ResultTx) error {
		rec, err := locate(ctx, tx)
		if err != nil {
			return err
		}
		if quiz.ID == 0 {
			if rec.QuizID == 0 {
				return domain.ErrQuizNotFound
			}
			if quiz, err = s.cache.GetQuiz(ctx, rec.QuizID); err != nil {
				return err
			}
		}
		priorGlobal, err := latest(ctx, tx, domain.ResultFilter{ParticipantID: actorID, Status: domain.StatusCompleted})
		if err != nil {
			return err
		}
		priorCompany, err := latest(ctx, tx, domain.ResultFilter{ParticipantID: actorID, CompanyID: rec.CompanyID, Status: domain.StatusCompleted})
		if err != nil {
			return err
		}

		out, err := CompleteAttempt(rec, quiz, sub, priorGlobal, priorCompany, s.now())
		if err != nil {
			return err
		}
		if err := tx.SaveCompleted(ctx, out); err != nil {
			return err
		}
		saved = out
		return nil
	})
	s.observeCompletion(err)
	if err != nil {
		return domain.QuizResult{}, err
	}

	s.log.Info("quiz completed",
		zap.Int64("result_id", saved.ID),
		zap.Int64("participant_id", actorID),
		zap.Float64("correct_answers", saved.CorrectAnswers),
		zap.Int("total_questions", saved.TotalQuestions),
		zap.String("user_rating", saved.UserRating.StringFixed(2)))

	if s.answers != nil {
		if err := s.answers.RecordAnswers(ctx, saved, quiz, sub); err != nil {
			s.log.Warn("recording answers failed", zap.Int64("result_id", saved.ID), zap.Error(err))
		}
	}
	return saved, nil
}

func latest(ctx context.Context, tx ResultTx, f domain.ResultFilter) (*domain.QuizResult, error) {
	r, ok, err := tx.LatestCompleted(ctx, f)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

// UserQuizResults lists the actor's completed results for one quiz of companyID.
func (s *QuizService) UserQuizResults(ctx context.Context, actorID, companyID, quizID int64) ([]domain.QuizResult, error) {
	if _, err := s.companyQuiz(ctx, companyID, quizID); err != nil {
		return nil, err
	}
	return s.results.ListResults(ctx, domain.ResultFilter{
		ParticipantID: actorID,
		CompanyID:     companyID,
		QuizID:        quizID,
		Status:        domain.StatusCompleted,
	})
}

// UserResults lists every completed result of userID. Only the user may see them.
func (s *QuizService) UserResults(ctx context.Context, actorID, userID int64) ([]domain.QuizResult, error) {
	if actorID != userID {
		return nil, domain.ErrForbidden
	}
	return s.results.ListResults(ctx, domain.ResultFilter{ParticipantID: userID, Status: domain.StatusCompleted})
}

// CompanyResults lists completed results in companyID, optionally narrowed by
// participant and quiz.
func (s *QuizService) CompanyResults(ctx context.Context, actorID, companyID, participantID, quizID int64) ([]domain.QuizResult, error) {
	if err := s.requireManager(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	return s.results.ListResults(ctx, domain.ResultFilter{
		ParticipantID: participantID,
		CompanyID:     companyID,
		QuizID:        quizID,
		Status:        domain.StatusCompleted,
	})
}

// ExportCompanyResults resolves CompanyResults into export rows.
func (s *QuizService) ExportCompanyResults(ctx context.Context, actorID, companyID, participantID, quizID int64) ([]domain.ExportRow, error) {
	results, err := s.CompanyResults(ctx, actorID, companyID, participantID, quizID)
	if err != nil {
		return nil, err
	}
	company, err := s.directory.Company(ctx, companyID)
	if err != nil {
		return nil, err
	}

	refs := s.newRefResolver()
	rows := make([]domain.ExportRow, 0, len(results))
	for _, r := range results {
		var username, title string
		u, err := refs.user(ctx, r.ParticipantID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			username = u.Username
		}
		q, err := refs.quiz(ctx, r.QuizID)
		if err != nil {
			return nil, err
		}
		if q != nil {
			title = q.Title
		}
		rows = append(rows, domain.ExportRow{
			ID:          r.ID,
			Participant: username,
			Company:     company.Name,
			Quiz:        title,
			Score:       Percentage(r.CorrectAnswers, r.TotalQuestions, decimal.Zero),
			CompletedAt: r.UpdatedAt,
			QuizTime:    r.QuizTime,
			UserRating:  r.UserRating,
		})
	}
	return rows, nil
}

func (s *QuizService) requireManager(ctx context.Context, actorID, companyID int64) error {
	if _, err := s.directory.Company(ctx, companyID); err != nil {
		return err
	}
	ok, err := s.directory.CanManage(ctx, actorID, companyID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// companyQuiz reads through the cache and hides quizzes of other companies.
func (s *QuizService) companyQuiz(ctx context.Context, companyID, quizID int64) (domain.Quiz, error) {
	quiz, err := s.cache.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CompanyID != companyID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) companyQuizFromStore(ctx context.Context, companyID, quizID int64) (domain.Quiz, error) {
	quiz, err := s.quizzes.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CompanyID != companyID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID int64) {
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		s.log.Warn("quiz cache invalidation failed", zap.Int64("quiz_id", quizID), zap.Error(err))
	}
}

func (s *QuizService) observeCompletion(err error) {
	var mismatch *domain.MismatchError
	switch {
	case err == nil:
		s.metrics.CompletionObserved("completed")
	case errors.As(err, &mismatch):
		s.metrics.CompletionObserved("mismatch")
	case errors.Is(err, domain.ErrAlreadyCompleted):
		s.metrics.CompletionObserved("conflict")
	case errors.Is(err, domain.ErrResultNotFound), errors.Is(err, domain.ErrQuizNotFound):
		s.metrics.CompletionObserved("not_found")
	default:
		s.metrics.CompletionObserved("error")
	}
}

// storeLoader serves quiz reads straight from the store when no cache is configured.
type storeLoader struct{ store QuizStore }

func (l storeLoader) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return l.store.LoadQuiz(ctx, quizID)
}

func (storeLoader) Invalidate(context.Context, int64) error { return nil }
