package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/coffeemap/internal/cache"
	"github.com/neexbeast/coffeemap/internal/geo"
	"github.com/neexbeast/coffeemap/internal/places"
)

// Cache namespaces.
const (
	NamespaceNearby         = "coffee-shops"
	NamespaceDetail         = "shop-detail"
	NamespaceReverseGeocode = "reverse-geocode"
	NamespaceForwardGeocode = "forward-geocode"
	NamespacePhoto          = "place-photo"
)

// sharedFetchTimeout bounds one coalesced provider call, photos included.
const sharedFetchTimeout = 30 * time.Second

// DefaultTTL is how long provider answers are cached.
const DefaultTTL = 30 * 24 * time.Hour

var (
	// ErrValidation is returned before any cache or provider call when the input is unusable.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound is places.ErrNotFound, re-exported for callers of this package.
	ErrNotFound = places.ErrNotFound
)

// NearbyResult is the answer to a nearby lookup.
type NearbyResult struct {
	FromCache bool          `json:"fromCache"`
	Results   []places.Shop `json:"results"`
}

// DetailResult is the answer to a place detail lookup.
type DetailResult struct {
	FromCache bool               `json:"fromCache"`
	Data      *places.ShopDetail `json:"data"`
}

// GeocodeResult is the answer to a reverse geocode.
type GeocodeResult struct {
	FullAddress  string `json:"fullAddress"`
	ShortAddress string `json:"shortAddress"`
	FromCache    bool   `json:"fromCache"`
}

// Providers groups the upstream sources a Service reads through.
type Providers struct {
	Nearby   NearbySearcher
	Detail   DetailFetcher
	Geocoder Geocoder
	Photos   PhotoFetcher
}

// Service answers lookups from the cache, falling through to a provider on a
// miss and caching what the provider returns. Concurrent misses for the same
// key share one provider call.
type Service struct {
	cache     *cache.Cache
	providers Providers
	ttl       time.Duration
	log       *slog.Logger
	group     singleflight.Group
}

// NewService constructs a Service. A non-positive ttl means DefaultTTL.
func NewService(c *cache.Cache, p Providers, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{cache: c, providers: p, ttl: ttl, log: log}
}

// LookupNearby returns the coffee shops around at. shortAddress, when it has
// a non-empty slug, is the cache key; otherwise the coordinate is.
func (s *Service) LookupNearby(ctx context.Context, at geo.Coordinate, shortAddress string) (NearbyResult, error) {
	if err := at.Validate(); err != nil {
		return NearbyResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	key := geo.CacheKey(at, shortAddress)
	shops, fromCache, err := readThrough(ctx, s, NamespaceNearby, key, func(ctx context.Context) ([]places.Shop, error) {
		shops, err := s.providers.Nearby.Search(ctx, at)
		if err != nil {
			return nil, err
		}
		if shops == nil {
			shops = []places.Shop{}
		}
		return shops, nil
	})
	if err != nil {
		return NearbyResult{}, fmt.Errorf("nearby %s: %w", key, err)
	}
	return NearbyResult{FromCache: fromCache, Results: shops}, nil
}

// LookupDetail returns the full record for placeID. The id is used verbatim
// as the cache key.
func (s *Service) LookupDetail(ctx context.Context, placeID string) (DetailResult, error) {
	if strings.TrimSpace(placeID) == "" {
		return DetailResult{}, fmt.Errorf("%w: place id is required", ErrValidation)
	}

	detail, fromCache, err := readThrough(ctx, s, NamespaceDetail, placeID, func(ctx context.Context) (*places.ShopDetail, error) {
		d, err := s.providers.Detail.Detail(ctx, placeID)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("place %s: %w", placeID, ErrNotFound)
		}
		return d, nil
	})
	if err != nil {
		return DetailResult{}, fmt.Errorf("detail %s: %w", placeID, err)
	}
	return DetailResult{FromCache: fromCache, Data: detail}, nil
}

// ReverseGeocode resolves at to its full and short address forms.
func (s *Service) ReverseGeocode(ctx context.Context, at geo.Coordinate) (GeocodeResult, error) {
	if err := at.Validate(); err != nil {
		return GeocodeResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	key := geo.CoordinateKey(at)
	addr, fromCache, err := readThrough(ctx, s, NamespaceReverseGeocode, key, func(ctx context.Context) (geo.Address, error) {
		return s.providers.Geocoder.Reverse(ctx, at)
	})
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("reverse geocode %s: %w", key, err)
	}
	return GeocodeResult{FullAddress: addr.FullForm, ShortAddress: addr.ShortForm, FromCache: fromCache}, nil
}

// ForwardGeocode resolves free text to a coordinate. Texts that slugify to the
// same key share a cache entry.
func (s *Service) ForwardGeocode(ctx context.Context, text string) (geo.Coordinate, error) {
	key := geo.Slugify(text)
	if key == "" {
		return geo.Coordinate{}, fmt.Errorf("%w: address text is required", ErrValidation)
	}

	coord, _, err := readThrough(ctx, s, NamespaceForwardGeocode, key, func(ctx context.Context) (geo.Coordinate, error) {
		return s.providers.Geocoder.Forward(ctx, text)
	})
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("forward geocode %q: %w", text, err)
	}
	return coord, nil
}

// LookupPhoto returns a thumbnail for a Google photo reference as a data URI.
func (s *Service) LookupPhoto(ctx context.Context, reference string) (string, error) {
	if strings.TrimSpace(reference) == "" {
		return "", fmt.Errorf("%w: photo reference is required", ErrValidation)
	}

	uri, _, err := readThrough(ctx, s, NamespacePhoto, reference, func(ctx context.Context) (string, error) {
		if s.providers.Photos == nil {
			return "", fmt.Errorf("photo %s: %w", reference, ErrNotFound)
		}
		return s.providers.Photos.Photo(ctx, reference)
	})
	if err != nil {
		return "", fmt.Errorf("photo %s: %w", reference, err)
	}
	return uri, nil
}

// readThrough serves namespace:key from the cache, or calls fetch once for all
// concurrent callers and caches a successful answer. Errors are never cached.
func readThrough[T any](ctx context.Context, s *Service, namespace, key string, fetch func(context.Context) (T, error)) (T, bool, error) {
	var zero T

	res := cache.Get[T](ctx, s.cache, namespace, key)
	if v, ok := res.Value(); ok {
		s.log.Debug("cache hit", "namespace", namespace, "key", key)
		return v, true, nil
	}
	s.log.Debug("cache "+res.Status.String(), "namespace", namespace, "key", key)

	// The shared call is detached from every caller so one hang-up cannot fail
	// the others; it is bounded by sharedFetchTimeout instead.
	ch := s.group.DoChan(cache.Key(namespace, key), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		data, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		cache.Set(fctx, s.cache, namespace, key, data, s.ttl)
		return data, nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		if !errors.Is(r.Err, ErrNotFound) {
			s.log.Warn("provider lookup failed", "namespace", namespace, "key", key, "err", r.Err)
		}
		return zero, false, r.Err
	}
	if r.Shared {
		s.log.Debug("coalesced provider call", "namespace", namespace, "key", key)
	}

	data, ok := r.Val.(T)
	if !ok {
		return zero, false, fmt.Errorf("%s: unexpected result type %T", namespace, r.Val)
	}
	return data, false, nil
}
