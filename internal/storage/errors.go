package storage

import (
	"errors"
	"fmt"

	"solana-token-exchange/internal/domain"
)

// Journal errors.
var (
	// ErrNotFound is returned when a requested activity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an activity id is inserted twice.
	// The journal is append-only and never updates records.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when an activity fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateActivity checks the fields every journaled activity must carry.
func ValidateActivity(a *domain.Activity) error {
	switch {
	case a == nil:
		return fmt.Errorf("%w: nil activity", ErrInvalidInput)
	case a.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidInput)
	case a.Kind == "":
		return fmt.Errorf("%w: empty kind", ErrInvalidInput)
	case a.Status != domain.ActivitySucceeded && a.Status != domain.ActivityFailed:
		return fmt.Errorf("%w: status %q", ErrInvalidInput, a.Status)
	case a.CreatedAt.IsZero():
		return fmt.Errorf("%w: zero created_at", ErrInvalidInput)
	}
	return nil
}
