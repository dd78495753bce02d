package places

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neexbeast/coffeemap/internal/geo"
)

const (
	serpDefaultURL = "https://serpapi.com/search.json"

	// serpZoom approximates a 2 km search radius on Google Maps.
	serpZoom = "15z"

	serpStatusSuccess = "Success"
	serpNoResults     = "hasn't returned any results"
)

// SerpNearbyClient searches Google Maps through SerpAPI.
type SerpNearbyClient struct {
	apiKey  string
	baseURL string
	keyword string
	client  *http.Client
}

// NewSerpNearbyClient constructs a SerpNearbyClient using the production URL.
func NewSerpNearbyClient(apiKey, keyword string, timeout time.Duration) *SerpNearbyClient {
	return NewSerpNearbyClientWithURL(serpDefaultURL, apiKey, keyword, timeout)
}

// NewSerpNearbyClientWithURL constructs a SerpNearbyClient pointing at a custom URL (for tests).
func NewSerpNearbyClientWithURL(baseURL, apiKey, keyword string, timeout time.Duration) *SerpNearbyClient {
	return &SerpNearbyClient{apiKey: apiKey, baseURL: baseURL, keyword: keyword, client: newHTTPClient(timeout)}
}

type serpNearbyResponse struct {
	Error          string `json:"error"`
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	LocalResults []struct {
		PlaceID        string  `json:"place_id"`
		Title          string  `json:"title"`
		Rating         float64 `json:"rating"`
		Thumbnail      string  `json:"thumbnail"`
		Address        string  `json:"address"`
		GPSCoordinates struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"gps_coordinates"`
	} `json:"local_results"`
}

func (r *serpNearbyResponse) provider() Provider { return ProviderSerpAPI }

func (r *serpNearbyResponse) shops() ([]Shop, error) {
	if r.Error != "" {
		if strings.Contains(r.Error, serpNoResults) {
			return []Shop{}, nil
		}
		return nil, providerErr(ProviderSerpAPI, 0, "search error: %s", r.Error)
	}
	if s := r.SearchMetadata.Status; s != "" && s != serpStatusSuccess {
		return nil, providerErr(ProviderSerpAPI, 0, "search status %s", s)
	}

	shops := make([]Shop, 0, len(r.LocalResults))
	for _, res := range r.LocalResults {
		loc := geo.Coordinate{Lat: res.GPSCoordinates.Latitude, Lng: res.GPSCoordinates.Longitude}
		if s, ok := newShop(ProviderSerpAPI, res.PlaceID, res.Title, res.Rating, res.Thumbnail, loc, res.Address); ok {
			shops = append(shops, s)
		}
	}
	return shops, nil
}

// Search returns coffee shops around at in the order SerpAPI returns them.
func (c *SerpNearbyClient) Search(ctx context.Context, at geo.Coordinate) ([]Shop, error) {
	q := url.Values{}
	q.Set("engine", "google_maps")
	q.Set("type", "search")
	q.Set("q", c.keyword)
	q.Set("ll", "@"+at.String()+","+serpZoom)
	q.Set("api_key", c.apiKey)

	return fetchNearby(ctx, c.client, c.baseURL+"?"+q.Encode(), nil, &serpNearbyResponse{})
}
