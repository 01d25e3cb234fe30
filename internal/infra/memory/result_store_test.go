package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

func TestStartOrGetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	now := time.Now()

	first, created, err := store.StartOrGet(ctx, 1, 2, 3, now)
	if err != nil || !created {
		t.Fatalf("expected created, got %v %v", created, err)
	}
	second, created, err := store.StartOrGet(ctx, 1, 2, 3, now.Add(time.Minute))
	if err != nil || created {
		t.Fatalf("expected existing row, got %v %v", created, err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same result, got %d and %d", first.ID, second.ID)
	}
}

func TestTxDiscardsWritesOnError(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	r, _, _ := store.StartOrGet(ctx, 1, 2, 3, time.Now())

	boom := errors.New("boom")
	err := store.WithinParticipantTx(ctx, 1, func(ctx context.Context, tx app.ResultTx) error {
		done := r
		done.Status = domain.StatusCompleted
		if err := tx.SaveCompleted(ctx, done); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok, _ := store.LatestCompleted(ctx, domain.ResultFilter{ParticipantID: 1}); ok {
		t.Fatalf("expected nothing persisted")
	}
}

func TestSaveCompletedTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	r, _, _ := store.StartOrGet(ctx, 1, 2, 3, time.Now())
	done := r
	done.Status = domain.StatusCompleted

	save := func(ctx context.Context, tx app.ResultTx) error { return tx.SaveCompleted(ctx, done) }
	if err := store.WithinParticipantTx(ctx, 1, save); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.WithinParticipantTx(ctx, 1, save); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLatestCompletedOrdersByUpdatedAtThenID(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	complete := func(quizID int64, at time.Time) int64 {
		r, _, _ := store.StartOrGet(ctx, 1, 2, quizID, base)
		r.Status = domain.StatusCompleted
		r.UpdatedAt = at
		_ = store.WithinParticipantTx(ctx, 1, func(ctx context.Context, tx app.ResultTx) error {
			return tx.SaveCompleted(ctx, r)
		})
		return r.ID
	}
	complete(10, base.Add(2*time.Hour))
	complete(11, base.Add(time.Hour))
	tied := complete(12, base.Add(2*time.Hour))

	latest, ok, _ := store.LatestCompleted(ctx, domain.ResultFilter{ParticipantID: 1})
	if !ok || latest.ID != tied {
		t.Fatalf("expected result %d, got %+v", tied, latest)
	}
	latest, ok, _ = store.LatestCompleted(ctx, domain.ResultFilter{ParticipantID: 1, QuizID: 11})
	if !ok || latest.QuizID != 11 {
		t.Fatalf("expected quiz filter applied, got %+v", latest)
	}
}

func TestParticipantLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(participantID int64) {
			defer wg.Done()
			err := store.WithinParticipantTx(ctx, participantID, func(context.Context, app.ResultTx) error { return nil })
			if err != nil {
				t.Errorf("tx: %v", err)
			}
		}(int64(i % 4))
	}
	wg.Wait()

	store.locksMu.Lock()
	defer store.locksMu.Unlock()
	if len(store.locks) != 0 {
		t.Fatalf("expected no live locks, got %d", len(store.locks))
	}
}
