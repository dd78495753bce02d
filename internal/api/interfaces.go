package api

import (
	"context"

	"github.com/neexbeast/coffeemap/internal/geo"
	"github.com/neexbeast/coffeemap/internal/lookup"
	"github.com/neexbeast/coffeemap/internal/storage"
)

// ShopLookup defines the cached lookups needed by handlers.
type ShopLookup interface {
	LookupNearby(ctx context.Context, at geo.Coordinate, shortAddress string) (lookup.NearbyResult, error)
	LookupDetail(ctx context.Context, placeID string) (lookup.DetailResult, error)
	ReverseGeocode(ctx context.Context, at geo.Coordinate) (lookup.GeocodeResult, error)
	ForwardGeocode(ctx context.Context, text string) (geo.Coordinate, error)
	LookupPhoto(ctx context.Context, reference string) (string, error)
}

// FavoritesRepo defines the storage operations needed by handlers.
type FavoritesRepo interface {
	ListFavorites(ctx context.Context, userID string) ([]storage.Favorite, error)
	AddFavorite(ctx context.Context, userID, placeID, name string) (*storage.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, placeID string) (bool, error)
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// BreakerState reports a provider circuit breaker's state.
type BreakerState interface {
	State() string
}
