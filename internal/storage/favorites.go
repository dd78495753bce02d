package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Favorite is a shop a user has saved.
type Favorite struct {
	PlaceID   string    `json:"placeId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository provides database access for saved favorites.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// ListFavorites returns userID's favorites, newest first. A user with none
// gets an empty, non-nil slice.
func (r *Repository) ListFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	const q = `
		SELECT place_id, name, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC, place_id
	`

	rows, err := r.q.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying favorites for user %s: %w", userID, err)
	}
	defer rows.Close()

	favorites := []Favorite{}
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.PlaceID, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning favorite row: %w", err)
		}
		favorites = append(favorites, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorite rows: %w", err)
	}

	return favorites, nil
}

// AddFavorite saves placeID for userID. Saving the same place again only
// refreshes its name; created_at keeps the original value.
func (r *Repository) AddFavorite(ctx context.Context, userID, placeID, name string) (*Favorite, error) {
	const q = `
		INSERT INTO favorites (user_id, place_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, place_id) DO UPDATE
		SET name = EXCLUDED.name
		RETURNING place_id, name, created_at
	`

	var f Favorite
	if err := r.q.QueryRow(ctx, q, userID, placeID, name).Scan(&f.PlaceID, &f.Name, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("upserting favorite %s for user %s: %w", placeID, userID, err)
	}
	return &f, nil
}

// RemoveFavorite deletes placeID from userID's favorites and reports whether
// a row was removed.
func (r *Repository) RemoveFavorite(ctx context.Context, userID, placeID string) (bool, error) {
	const q = `DELETE FROM favorites WHERE user_id = $1 AND place_id = $2`

	tag, err := r.q.Exec(ctx, q, userID, placeID)
	if err != nil {
		return false, fmt.Errorf("deleting favorite %s for user %s: %w", placeID, userID, err)
	}
	return tag.RowsAffected() > 0, nil
}
