package lookup

import (
	"context"

	"github.com/neexbeast/coffeemap/internal/geo"
	"github.com/neexbeast/coffeemap/internal/places"
)

// NearbySearcher is satisfied by every places nearby client and its breaker guard.
type NearbySearcher interface {
	Search(ctx context.Context, at geo.Coordinate) ([]places.Shop, error)
}

// DetailFetcher is satisfied by places.GoogleDetailClient and places.GuardedDetail.
type DetailFetcher interface {
	Detail(ctx context.Context, placeID string) (*places.ShopDetail, error)
}

// Geocoder is satisfied by places.NominatimClient and places.GuardedGeocoder.
type Geocoder interface {
	Reverse(ctx context.Context, at geo.Coordinate) (geo.Address, error)
	Forward(ctx context.Context, text string) (geo.Coordinate, error)
}

// PhotoFetcher is satisfied by places.GoogleDetailClient and places.GuardedPhoto.
type PhotoFetcher interface {
	Photo(ctx context.Context, reference string) (string, error)
}
