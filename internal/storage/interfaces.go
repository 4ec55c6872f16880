package storage

import (
	"context"

	"solana-token-exchange/internal/domain"
)

// ActivityStore provides access to the append-only activity journal.
type ActivityStore interface {
	// Insert adds a new activity. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, a *domain.Activity) error

	// GetByID retrieves an activity by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Activity, error)

	// List returns up to limit activities, newest first.
	List(ctx context.Context, limit int) ([]*domain.Activity, error)

	// ListByOwner returns up to limit activities of owner, newest first.
	ListByOwner(ctx context.Context, owner string, limit int) ([]*domain.Activity, error)
}

// DefaultListLimit is used when a non-positive limit is requested.
const DefaultListLimit = 50

// MaxListLimit caps the number of activities returned by one call.
const MaxListLimit = 500

// NormalizeLimit clamps limit into [1, MaxListLimit].
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
