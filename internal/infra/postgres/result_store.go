package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// ResultStore is the bun implementation of app.ResultRepository.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

var _ app.ResultRepository = (*ResultStore)(nil)

// StartOrGet relies on the partial unique index over STARTED rows, so two
// concurrent starts end up with the same row.
func (s *ResultStore) StartOrGet(ctx context.Context, participantID, companyID, quizID int64, now time.Time) (domain.QuizResult, bool, error) {
	m := resultModel{
		ParticipantID:  participantID,
		CompanyID:      companyID,
		QuizID:         quizID,
		ProgressStatus: string(domain.StatusStarted),
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	err := s.db.NewInsert().Model(&m).
		On("CONFLICT (participant_id, company_id, quiz_id) WHERE progress_status = 'STARTED' DO NOTHING").
		Returning("*").
		Scan(ctx)
	if err == nil {
		return m.toDomain(), true, nil
	}
	if !noRows(err) {
		return domain.QuizResult{}, false, fmt.Errorf("start quiz: %w", err)
	}

	var existing resultModel
	err = s.db.NewSelect().Model(&existing).
		Where("participant_id = ?", participantID).
		Where("company_id = ?", companyID).
		Where("quiz_id = ?", quizID).
		Where("progress_status = ?", string(domain.StatusStarted)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.QuizResult{}, false, fmt.Errorf("load started result: %w", err)
	}
	return existing.toDomain(), false, nil
}

func (s *ResultStore) LatestCompleted(ctx context.Context, f domain.ResultFilter) (domain.QuizResult, bool, error) {
	return latestCompleted(ctx, s.db, f)
}

func (s *ResultStore) ListResults(ctx context.Context, f domain.ResultFilter) ([]domain.QuizResult, error) {
	var ms []resultModel
	if err := applyFilter(s.db.NewSelect().Model(&ms), f).Order("id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.QuizResult, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// WithinParticipantTx takes a transaction-scoped advisory lock on the
// participant before running fn.
func (s *ResultStore) WithinParticipantTx(ctx context.Context, participantID int64, fn func(context.Context, app.ResultTx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", participantID); err != nil {
			return fmt.Errorf("lock participant %d: %w", participantID, err)
		}
		return fn(ctx, resultTx{tx: tx})
	})
}

type resultTx struct {
	tx bun.Tx
}

func (t resultTx) StartedForUpdate(ctx context.Context, participantID, companyID, quizID int64) (domain.QuizResult, error) {
	var m resultModel
	err := t.tx.NewSelect().Model(&m).
		Where("participant_id = ?", participantID).
		Where("company_id = ?", companyID).
		Where("quiz_id = ?", quizID).
		Where("progress_status = ?", string(domain.StatusStarted)).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if noRows(err) {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("lock started result: %w", err)
	}
	return m.toDomain(), nil
}

func (t resultTx) ResultForUpdate(ctx context.Context, resultID int64) (domain.QuizResult, error) {
	var m resultModel
	err := t.tx.NewSelect().Model(&m).Where("id = ?", resultID).For("UPDATE").Scan(ctx)
	if noRows(err) {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("lock result %d: %w", resultID, err)
	}
	return m.toDomain(), nil
}

func (t resultTx) LatestCompleted(ctx context.Context, f domain.ResultFilter) (domain.QuizResult, bool, error) {
	return latestCompleted(ctx, t.tx, f)
}

// SaveCompleted only touches the row while it is still STARTED.
func (t resultTx) SaveCompleted(ctx context.Context, r domain.QuizResult) error {
	m := resultFromDomain(r)
	res, err := t.tx.NewUpdate().Model(&m).
		Column(
			"progress_status",
			"correct_answers",
			"total_questions",
			"correct_answers_collector",
			"total_questions_collector",
			"correct_company_answers_collector",
			"total_company_questions_collector",
			"quiz_time",
			"company_average_score",
			"user_rating",
			"updated_at",
		).
		WherePK().
		Where("progress_status = ?", string(domain.StatusStarted)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save result %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyCompleted
	}
	return nil
}

func latestCompleted(ctx context.Context, db bun.IDB, f domain.ResultFilter) (domain.QuizResult, bool, error) {
	f.Status = domain.StatusCompleted
	var m resultModel
	err := applyFilter(db.NewSelect().Model(&m), f).
		OrderExpr("updated_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if noRows(err) {
		return domain.QuizResult{}, false, nil
	}
	if err != nil {
		return domain.QuizResult{}, false, fmt.Errorf("latest completed result: %w", err)
	}
	return m.toDomain(), true, nil
}

func applyFilter(q *bun.SelectQuery, f domain.ResultFilter) *bun.SelectQuery {
	if f.ID != 0 {
		q = q.Where("id = ?", f.ID)
	}
	if f.ParticipantID != 0 {
		q = q.Where("participant_id = ?", f.ParticipantID)
	}
	if f.CompanyID != 0 {
		q = q.Where("company_id = ?", f.CompanyID)
	}
	if f.QuizID != 0 {
		q = q.Where("quiz_id = ?", f.QuizID)
	}
	if f.Status != "" {
		q = q.Where("progress_status = ?", string(f.Status))
	}
	return q
}
