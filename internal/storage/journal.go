package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/logging"
	"solana-token-exchange/internal/observability"
)

// Journal appends operation outcomes to an ActivityStore. Write failures are
// logged and counted; they never fail the operation being recorded.
// A nil *Journal discards everything.
type Journal struct {
	store ActivityStore
	now   func() time.Time
}

// NewJournal creates a journal over store.
func NewJournal(store ActivityStore) *Journal {
	return &Journal{store: store, now: time.Now}
}

// Record stamps a with a fresh id and time and stores it.
func (j *Journal) Record(ctx context.Context, a domain.Activity) {
	if j == nil {
		return
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = j.now().UTC()
	}

	if err := j.store.Insert(ctx, &a); err != nil {
		observability.RecordJournalError()
		logging.Storage.Error().
			Err(err).
			Str("kind", string(a.Kind)).
			Str("status", string(a.Status)).
			Str("signature", a.Signature).
			Msg("failed to journal activity")
	}
}

// Recent returns up to limit activities, newest first. An empty owner lists
// every owner.
func (j *Journal) Recent(ctx context.Context, owner string, limit int) ([]*domain.Activity, error) {
	if j == nil {
		return []*domain.Activity{}, nil
	}
	if owner == "" {
		return j.store.List(ctx, limit)
	}
	return j.store.ListByOwner(ctx, owner, limit)
}
