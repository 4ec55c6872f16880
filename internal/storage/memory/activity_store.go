package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.Activity // keyed by id
	order []string                    // insertion order
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		data: make(map[string]*domain.Activity),
	}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// Insert adds a new activity. Returns ErrDuplicateKey if the id exists.
func (s *ActivityStore) Insert(_ context.Context, a *domain.Activity) error {
	if err := storage.ValidateActivity(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	activityCopy := *a
	s.data[a.ID] = &activityCopy
	s.order = append(s.order, a.ID)
	return nil
}

// GetByID retrieves an activity by its ID. Returns ErrNotFound if not exists.
func (s *ActivityStore) GetByID(_ context.Context, id string) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	activityCopy := *a
	return &activityCopy, nil
}

// List returns up to limit activities, newest first.
func (s *ActivityStore) List(_ context.Context, limit int) ([]*domain.Activity, error) {
	return s.filter(limit, func(*domain.Activity) bool { return true }), nil
}

// ListByOwner returns up to limit activities of owner, newest first.
func (s *ActivityStore) ListByOwner(_ context.Context, owner string, limit int) ([]*domain.Activity, error) {
	return s.filter(limit, func(a *domain.Activity) bool { return a.Owner == owner }), nil
}

func (s *ActivityStore) filter(limit int, keep func(*domain.Activity) bool) []*domain.Activity {
	limit = storage.NormalizeLimit(limit)

	s.mu.RLock()
	var result []*domain.Activity
	for _, id := range s.order {
		if a := s.data[id]; keep(a) {
			activityCopy := *a
			result = append(result, &activityCopy)
		}
	}
	s.mu.RUnlock()

	// Newest first; insertion order breaks ties.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
