package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/coffeemap/internal/geo"
)

const nominatimDefaultURL = "https://nominatim.openstreetmap.org"

// NominatimClient does forward and reverse geocoding against OSM Nominatim.
// Nominatim's usage policy requires an identifying User-Agent.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatimClient constructs a NominatimClient using the public endpoint.
func NewNominatimClient(userAgent string, timeout time.Duration) *NominatimClient {
	return NewNominatimClientWithURL(nominatimDefaultURL, userAgent, timeout)
}

// NewNominatimClientWithURL constructs a NominatimClient pointing at a custom base URL (for tests).
func NewNominatimClientWithURL(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    newHTTPClient(timeout),
	}
}

type nominatimReverseResponse struct {
	Error   string            `json:"error"`
	Address geo.AddressFields `json:"address"`
}

type nominatimSearchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *NominatimClient) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if c.userAgent != "" {
		h.Set("User-Agent", c.userAgent)
	}
	return h
}

// Reverse resolves a coordinate to its short and full address forms.
// Nominatim's "Unable to geocode" answer is reported as ErrNotFound.
func (c *NominatimClient) Reverse(ctx context.Context, at geo.Coordinate) (geo.Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	q.Set("addressdetails", "1")

	var raw nominatimReverseResponse
	if err := doGet(ctx, c.client, ProviderNominatim, c.baseURL+"/reverse?"+q.Encode(), c.header(), &raw); err != nil {
		return geo.Address{}, err
	}
	if raw.Error != "" {
		return geo.Address{}, fmt.Errorf("reverse %s: %s: %w", at, raw.Error, ErrNotFound)
	}
	return geo.Normalize(raw.Address), nil
}

// Forward resolves free text to the first matching coordinate.
// An empty result set is ErrNotFound, not a provider failure.
func (c *NominatimClient) Forward(ctx context.Context, text string) (geo.Coordinate, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", text)
	q.Set("limit", "1")

	var raw []nominatimSearchResult
	if err := doGet(ctx, c.client, ProviderNominatim, c.baseURL+"/search?"+q.Encode(), c.header(), &raw); err != nil {
		return geo.Coordinate{}, err
	}
	if len(raw) == 0 {
		return geo.Coordinate{}, fmt.Errorf("forward %q: %w", text, ErrNotFound)
	}

	lat, err := strconv.ParseFloat(raw[0].Lat, 64)
	if err != nil {
		return geo.Coordinate{}, providerErr(ProviderNominatim, 0, "parsing latitude %q: %w", raw[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(raw[0].Lon, 64)
	if err != nil {
		return geo.Coordinate{}, providerErr(ProviderNominatim, 0, "parsing longitude %q: %w", raw[0].Lon, err)
	}

	coord, err := geo.NewCoordinate(lat, lng)
	if err != nil {
		return geo.Coordinate{}, providerErr(ProviderNominatim, 0, "result out of range: %w", err)
	}
	return coord, nil
}
