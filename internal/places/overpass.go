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

const overpassDefaultURL = "https://overpass-api.de/api/interpreter"

// OverpassClient finds cafés in OpenStreetMap through the Overpass API.
// OSM has no ratings or photos, so those fields stay empty.
type OverpassClient struct {
	baseURL   string
	radius    int
	userAgent string
	client    *http.Client
}

// NewOverpassClient constructs an OverpassClient using the public endpoint.
func NewOverpassClient(radius int, userAgent string, timeout time.Duration) *OverpassClient {
	return NewOverpassClientWithURL(overpassDefaultURL, radius, userAgent, timeout)
}

// NewOverpassClientWithURL constructs an OverpassClient pointing at a custom URL (for tests).
func NewOverpassClientWithURL(baseURL string, radius int, userAgent string, timeout time.Duration) *OverpassClient {
	return &OverpassClient{baseURL: baseURL, radius: radius, userAgent: userAgent, client: newHTTPClient(timeout)}
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Remark   string            `json:"remark"`
	Elements []overpassElement `json:"elements"`
}

func (el *overpassElement) placeID() string {
	return el.Type + "/" + strconv.FormatInt(el.ID, 10)
}

func (el *overpassElement) location() geo.Coordinate {
	if el.Center != nil {
		return geo.Coordinate{Lat: el.Center.Lat, Lng: el.Center.Lon}
	}
	return geo.Coordinate{Lat: el.Lat, Lng: el.Lon}
}

func (el *overpassElement) address() geo.Address {
	street := el.Tags["addr:street"]
	if n := el.Tags["addr:housenumber"]; street != "" && n != "" {
		street += " " + n
	}
	return geo.Normalize(geo.AddressFields{
		Road:    street,
		Suburb:  el.Tags["addr:suburb"],
		City:    el.Tags["addr:city"],
		State:   el.Tags["addr:province"],
		Country: el.Tags["addr:country"],
	})
}

// tag returns the first non-empty value among keys.
func (el *overpassElement) tag(keys ...string) string {
	for _, k := range keys {
		if v := el.Tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func (el *overpassElement) shop() (Shop, bool) {
	return newShop(ProviderOSM, el.placeID(), el.Tags["name"], 0, "", el.location(), el.address().FullForm)
}

func (r *overpassResponse) provider() Provider { return ProviderOSM }

func (r *overpassResponse) shops() ([]Shop, error) {
	if len(r.Elements) == 0 && r.Remark != "" {
		return nil, providerErr(ProviderOSM, 0, "query failed: %s", r.Remark)
	}

	shops := make([]Shop, 0, len(r.Elements))
	for i := range r.Elements {
		if s, ok := r.Elements[i].shop(); ok {
			shops = append(shops, s)
		}
	}
	return shops, nil
}

// query builds an Overpass QL query for named cafés within the radius.
func (c *OverpassClient) query(at geo.Coordinate) string {
	around := fmt.Sprintf("(around:%d,%s)", c.radius, at.String())
	return "[out:json][timeout:25];(" +
		`node["amenity"="cafe"]["name"]` + around + ";" +
		`way["amenity"="cafe"]["name"]` + around + ";" +
		");out center;"
}

func (c *OverpassClient) header() http.Header {
	header := http.Header{}
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}
	return header
}

func (c *OverpassClient) endpoint(query string) string {
	return c.baseURL + "?data=" + url.QueryEscape(query)
}

// Search returns cafés around at in the order Overpass returns them.
func (c *OverpassClient) Search(ctx context.Context, at geo.Coordinate) ([]Shop, error) {
	return fetchNearby(ctx, c.client, c.endpoint(c.query(at)), c.header(), &overpassResponse{})
}

// Detail looks up one element by its "type/id" place id. Opening hours use
// OSM's own syntax and are left out; photos and reviews are always empty.
func (c *OverpassClient) Detail(ctx context.Context, placeID string) (*ShopDetail, error) {
	kind, id, ok := ParseOSMID(placeID)
	if !ok {
		return nil, fmt.Errorf("osm place %q: %w", placeID, ErrNotFound)
	}

	var resp overpassResponse
	query := fmt.Sprintf("[out:json][timeout:25];%s(%d);out center tags;", kind, id)
	if err := doGet(ctx, c.client, ProviderOSM, c.endpoint(query), c.header(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Elements) == 0 {
		if resp.Remark != "" {
			return nil, providerErr(ProviderOSM, 0, "query failed: %s", resp.Remark)
		}
		return nil, fmt.Errorf("osm place %s: %w", placeID, ErrNotFound)
	}

	el := &resp.Elements[0]
	shop, ok := el.shop()
	if !ok {
		return nil, fmt.Errorf("osm place %s has no name or location: %w", placeID, ErrNotFound)
	}
	return &ShopDetail{
		Shop:         shop,
		AddressForms: el.address(),
		Phone:        el.tag("phone", "contact:phone"),
		Website:      el.tag("website", "contact:website"),
		Photos:       []string{},
		Reviews:      []Review{},
	}, nil
}

// ParseOSMID splits an OpenStreetMap place id such as "node/101".
func ParseOSMID(placeID string) (kind string, id int64, ok bool) {
	kind, rest, found := strings.Cut(placeID, "/")
	if !found {
		return "", 0, false
	}
	switch kind {
	case "node", "way", "relation":
	default:
		return "", 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return kind, id, true
}
