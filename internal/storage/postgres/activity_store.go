package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/storage"
)

// ActivityStore implements storage.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *Pool
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(pool *Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

const activityColumns = `id, kind, status, signature, mint, owner, amount, error, network, created_at`

// Insert adds a new activity. Returns ErrDuplicateKey if the id exists.
func (s *ActivityStore) Insert(ctx context.Context, a *domain.Activity) error {
	if err := storage.ValidateActivity(a); err != nil {
		return err
	}

	query := `
		INSERT INTO activity (` + activityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		string(a.Kind),
		string(a.Status),
		a.Signature,
		a.Mint,
		a.Owner,
		a.Amount,
		a.Error,
		a.Network,
		a.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// GetByID retrieves an activity by its ID. Returns ErrNotFound if not exists.
func (s *ActivityStore) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activity WHERE id = $1`

	a, err := scanActivity(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get activity by id: %w", err)
	}
	return a, nil
}

// List returns up to limit activities, newest first.
func (s *ActivityStore) List(ctx context.Context, limit int) ([]*domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activity
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return collectActivities(rows)
}

// ListByOwner returns up to limit activities of owner, newest first.
func (s *ActivityStore) ListByOwner(ctx context.Context, owner string, limit int) ([]*domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activity
		WHERE owner = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, owner, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list activity by owner: %w", err)
	}
	return collectActivities(rows)
}

func collectActivities(rows pgx.Rows) ([]*domain.Activity, error) {
	defer rows.Close()

	var result []*domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return result, nil
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		a            domain.Activity
		kind, status string
	)
	err := row.Scan(
		&a.ID,
		&kind,
		&status,
		&a.Signature,
		&a.Mint,
		&a.Owner,
		&a.Amount,
		&a.Error,
		&a.Network,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Kind = domain.ActivityKind(kind)
	a.Status = domain.ActivityStatus(status)
	return &a, nil
}
