package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/coffeemap/internal/storage"
)

// ---- ListFavorites tests ----

func TestListFavorites_Found(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	rows := &favoriteRows{
		favs: []storage.Favorite{
			{PlaceID: "ChIJ-b", Name: "Bagios Cafe", CreatedAt: now},
			{PlaceID: "node/101", Name: "Warung Kopi", CreatedAt: now.Add(-time.Hour)},
		},
	}

	var capturedArgs []any
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
			capturedArgs = args
			return rows, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	favs, err := repo.ListFavorites(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, []any{"user-1"}, capturedArgs)
	assert.Equal(t, "ChIJ-b", favs[0].PlaceID)
	assert.Equal(t, "Bagios Cafe", favs[0].Name)
	assert.Equal(t, now, favs[0].CreatedAt)
	assert.Equal(t, "node/101", favs[1].PlaceID)
}

func TestListFavorites_EmptyIsNonNil(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &favoriteRows{}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	favs, err := repo.ListFavorites(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, favs)
	assert.Empty(t, favs)
}

func TestListFavorites_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("connection reset")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListFavorites(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying favorites")
}

func TestListFavorites_ScanError(t *testing.T) {
	rows := &favoriteRows{
		favs:    []storage.Favorite{{PlaceID: "ChIJ-b", Name: "Bagios Cafe", CreatedAt: time.Now()}},
		scanErr: fmt.Errorf("scan failed"),
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListFavorites(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestListFavorites_RowsErr(t *testing.T) {
	rows := &favoriteRows{iterErr: fmt.Errorf("rows iteration error")}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListFavorites(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

// ---- AddFavorite tests ----

func TestAddFavorite_Success(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	var capturedSQL string
	var capturedArgs []any

	q := &mockQuerier{
		queryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return rowFunc(func(dest ...any) error {
				return scanFavorite(storage.Favorite{PlaceID: "ChIJ-b", Name: "Bagios Cafe", CreatedAt: created}, dest...)
			})
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	fav, err := repo.AddFavorite(context.Background(), "user-1", "ChIJ-b", "Bagios Cafe")
	require.NoError(t, err)
	require.NotNil(t, fav)
	assert.Equal(t, "ChIJ-b", fav.PlaceID)
	assert.Equal(t, created, fav.CreatedAt)
	assert.Equal(t, []any{"user-1", "ChIJ-b", "Bagios Cafe"}, capturedArgs)
	assert.Contains(t, capturedSQL, "ON CONFLICT (user_id, place_id)")
}

func TestAddFavorite_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return rowFunc(func(...any) error { return fmt.Errorf("db error") })
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.AddFavorite(context.Background(), "user-1", "ChIJ-b", "Bagios Cafe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting favorite")
}

// ---- RemoveFavorite tests ----

func TestRemoveFavorite(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		removed bool
	}{
		{name: "row deleted", tag: "DELETE 1", removed: true},
		{name: "nothing to delete", tag: "DELETE 0", removed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQuerier{
				execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
					assert.Equal(t, []any{"user-1", "ChIJ-b"}, args)
					return pgconn.NewCommandTag(tt.tag), nil
				},
			}

			repo := storage.NewRepositoryWithQuerier(q)
			removed, err := repo.RemoveFavorite(context.Background(), "user-1", "ChIJ-b")
			require.NoError(t, err)
			assert.Equal(t, tt.removed, removed)
		})
	}
}

func TestRemoveFavorite_DBError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.RemoveFavorite(context.Background(), "user-1", "ChIJ-b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deleting favorite")
}

// ---- NewRepository ----

func TestNewRepository_NotNil(t *testing.T) {
	repo := storage.NewRepository(nil)
	assert.NotNil(t, repo)
}
