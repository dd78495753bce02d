package places

import (
	"context"
	"net/http"

	"github.com/neexbeast/coffeemap/internal/geo"
)

// nearbyPayload is a raw nearby-search response from one provider. Each
// implementation owns the single function that converts it to Shops.
type nearbyPayload interface {
	provider() Provider
	shops() ([]Shop, error)
}

var (
	_ nearbyPayload = (*googleNearbyResponse)(nil)
	_ nearbyPayload = (*serpNearbyResponse)(nil)
	_ nearbyPayload = (*overpassResponse)(nil)
)

// newShop applies the invariants shared by every provider: a non-empty id and
// name, a rating clamped to [0,5] and an in-range location. ok is false when
// the entry must be dropped.
func newShop(p Provider, id, name string, rating float64, thumb string, loc geo.Coordinate, address string) (Shop, bool) {
	if id == "" || name == "" || loc.Validate() != nil {
		return Shop{}, false
	}
	s := Shop{
		PlaceID:  id,
		Provider: p,
		Name:     name,
		Rating:   clampRating(rating),
		Location: loc,
		Address:  address,
	}
	if thumb != "" {
		s.ThumbnailURL = &thumb
	}
	return s, true
}

// fetchNearby decodes one provider response into payload and normalizes it.
func fetchNearby(ctx context.Context, client *http.Client, endpoint string, header http.Header, payload nearbyPayload) ([]Shop, error) {
	if err := doGet(ctx, client, payload.provider(), endpoint, header, payload); err != nil {
		return nil, err
	}
	return payload.shops()
}
