package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

// ResultStore is an in-memory app.ResultRepository. Transactions are
// serialized per participant and their writes are applied on success only.
type ResultStore struct {
	mu     sync.Mutex
	rows   map[int64]domain.QuizResult
	nextID int64

	locksMu sync.Mutex
	locks   map[int64]*participantLock
}

// participantLock is dropped from the map once nobody holds or waits for it.
type participantLock struct {
	mu   sync.Mutex
	refs int
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		rows:  make(map[int64]domain.QuizResult),
		locks: make(map[int64]*participantLock),
	}
}

func (s *ResultStore) StartOrGet(_ context.Context, participantID, companyID, quizID int64, now time.Time) (domain.QuizResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.startedLocked(participantID, companyID, quizID); ok {
		return r, false, nil
	}
	s.nextID++
	r := domain.QuizResult{
		ID:            s.nextID,
		ParticipantID: participantID,
		CompanyID:     companyID,
		QuizID:        quizID,
		Status:        domain.StatusStarted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.rows[r.ID] = r
	return r, true, nil
}

func (s *ResultStore) LatestCompleted(_ context.Context, f domain.ResultFilter) (domain.QuizResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := latestCompleted(s.rows, nil, f)
	return r, ok, nil
}

func (s *ResultStore) ListResults(_ context.Context, f domain.ResultFilter) ([]domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QuizResult, 0)
	for _, r := range s.rows {
		if matches(r, f) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ResultStore) WithinParticipantTx(ctx context.Context, participantID int64, fn func(context.Context, app.ResultTx) error) error {
	unlock := s.lockParticipant(participantID)
	defer unlock()

	tx := &resultTx{store: s, staged: make(map[int64]domain.QuizResult)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range tx.staged {
		if current, ok := s.rows[id]; !ok || current.Status != domain.StatusStarted {
			return domain.ErrAlreadyCompleted
		}
		s.rows[id] = r
	}
	return nil
}

// DetachQuiz clears the quiz reference of every result of a deleted quiz.
func (s *ResultStore) DetachQuiz(quizID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rows {
		if r.QuizID == quizID {
			r.QuizID = 0
			s.rows[id] = r
		}
	}
}

func (s *ResultStore) lockParticipant(participantID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[participantID]
	if !ok {
		l = &participantLock{}
		s.locks[participantID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, participantID)
		}
		s.locksMu.Unlock()
	}
}

func (s *ResultStore) startedLocked(participantID, companyID, quizID int64) (domain.QuizResult, bool) {
	for _, r := range s.rows {
		if r.Status == domain.StatusStarted && r.ParticipantID == participantID && r.CompanyID == companyID && r.QuizID == quizID {
			return r, true
		}
	}
	return domain.QuizResult{}, false
}

type resultTx struct {
	store  *ResultStore
	staged map[int64]domain.QuizResult
}

func (tx *resultTx) StartedForUpdate(_ context.Context, participantID, companyID, quizID int64) (domain.QuizResult, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for _, r := range tx.store.rows {
		if staged, ok := tx.staged[r.ID]; ok {
			r = staged
		}
		if r.Status == domain.StatusStarted && r.ParticipantID == participantID && r.CompanyID == companyID && r.QuizID == quizID {
			return r, nil
		}
	}
	return domain.QuizResult{}, domain.ErrResultNotFound
}

func (tx *resultTx) ResultForUpdate(_ context.Context, resultID int64) (domain.QuizResult, error) {
	if r, ok := tx.staged[resultID]; ok {
		return r, nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	r, ok := tx.store.rows[resultID]
	if !ok {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}
	return r, nil
}

func (tx *resultTx) LatestCompleted(_ context.Context, f domain.ResultFilter) (domain.QuizResult, bool, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	r, ok := latestCompleted(tx.store.rows, tx.staged, f)
	return r, ok, nil
}

func (tx *resultTx) SaveCompleted(ctx context.Context, r domain.QuizResult) error {
	current, err := tx.ResultForUpdate(ctx, r.ID)
	if err != nil {
		return err
	}
	if current.Status != domain.StatusStarted {
		return domain.ErrAlreadyCompleted
	}
	tx.staged[r.ID] = r
	return nil
}

func latestCompleted(rows, staged map[int64]domain.QuizResult, f domain.ResultFilter) (domain.QuizResult, bool) {
	f.Status = domain.StatusCompleted
	var best domain.QuizResult
	found := false
	consider := func(r domain.QuizResult) {
		if !matches(r, f) {
			return
		}
		if !found || r.UpdatedAt.After(best.UpdatedAt) || (r.UpdatedAt.Equal(best.UpdatedAt) && r.ID > best.ID) {
			best, found = r, true
		}
	}
	for id, r := range rows {
		if s, ok := staged[id]; ok {
			r = s
		}
		consider(r)
	}
	return best, found
}

func matches(r domain.QuizResult, f domain.ResultFilter) bool {
	if f.ID != 0 && r.ID != f.ID {
		return false
	}
	if f.ParticipantID != 0 && r.ParticipantID != f.ParticipantID {
		return false
	}
	if f.CompanyID != 0 && r.CompanyID != f.CompanyID {
		return false
	}
	if f.QuizID != 0 && r.QuizID != f.QuizID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}
