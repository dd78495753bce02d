package places

import (
	"context"
	"fmt"
	"strings"
)

// DetailRouter sends each place id to the provider that issued it. Ids are
// unique per provider only, so an OSM id must never reach Google.
type DetailRouter struct {
	google detailFetcher
	osm    detailFetcher
}

// RouteDetail builds a DetailRouter. osm may be nil, in which case OSM ids
// are reported as not found.
func RouteDetail(google, osm detailFetcher) *DetailRouter {
	return &DetailRouter{google: google, osm: osm}
}

// Detail dispatches on the shape of placeID. Google (and SerpAPI) ids never
// contain a slash; anything with one that is not an OSM id is unknown.
func (d *DetailRouter) Detail(ctx context.Context, placeID string) (*ShopDetail, error) {
	if _, _, ok := ParseOSMID(placeID); ok {
		if d.osm == nil {
			return nil, fmt.Errorf("osm place %s: %w", placeID, ErrNotFound)
		}
		return d.osm.Detail(ctx, placeID)
	}
	if strings.Contains(placeID, "/") {
		return nil, fmt.Errorf("place %q: %w", placeID, ErrNotFound)
	}
	return d.google.Detail(ctx, placeID)
}
