package places

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/coffeemap/internal/geo"
)

const (
	googleDefaultURL = "https://maps.googleapis.com/maps/api/place"

	// MaxDetailPhotos is how many photos a detail lookup inlines.
	MaxDetailPhotos = 3
	photoMaxWidth   = 800
	thumbMaxWidth   = 400

	// PhotoPath prefixes the thumbnail URL of a Google nearby result. The
	// reference after it is served through Photo, which keeps the API key
	// server-side.
	PhotoPath = "/api/v1/photos/"

	detailFields = "place_id,name,rating,geometry,formatted_address,address_components," +
		"formatted_phone_number,international_phone_number,website,opening_hours,photos,reviews"
)

// Google Places status values that carry data (or a clean empty answer).
const (
	googleStatusOK          = "OK"
	googleStatusZeroResults = "ZERO_RESULTS"
	googleStatusNotFound    = "NOT_FOUND"
)

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googlePhoto struct {
	Reference string `json:"photo_reference"`
}

// ---- Nearby Search ----

// GoogleNearbyClient searches Google Places Nearby Search.
type GoogleNearbyClient struct {
	apiKey  string
	baseURL string
	radius  int
	keyword string
	client  *http.Client
}

// NewGoogleNearbyClient constructs a GoogleNearbyClient using the production URL.
func NewGoogleNearbyClient(apiKey string, radius int, keyword string, timeout time.Duration) *GoogleNearbyClient {
	return NewGoogleNearbyClientWithURL(googleDefaultURL, apiKey, radius, keyword, timeout)
}

// NewGoogleNearbyClientWithURL constructs a GoogleNearbyClient pointing at a custom base URL (for tests).
func NewGoogleNearbyClientWithURL(baseURL, apiKey string, radius int, keyword string, timeout time.Duration) *GoogleNearbyClient {
	return &GoogleNearbyClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		radius:  radius,
		keyword: keyword,
		client:  newHTTPClient(timeout),
	}
}

type googleNearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string  `json:"place_id"`
		Name     string  `json:"name"`
		Rating   float64 `json:"rating"`
		Vicinity string  `json:"vicinity"`
		Geometry struct {
			Location googleLocation `json:"location"`
		} `json:"geometry"`
		Photos []googlePhoto `json:"photos"`
	} `json:"results"`
}

func (r *googleNearbyResponse) provider() Provider { return ProviderGoogle }

func (r *googleNearbyResponse) shops() ([]Shop, error) {
	if err := googleStatusErr(r.Status, r.ErrorMessage); err != nil {
		return nil, err
	}
	shops := make([]Shop, 0, len(r.Results))
	for _, res := range r.Results {
		loc := geo.Coordinate{Lat: res.Geometry.Location.Lat, Lng: res.Geometry.Location.Lng}
		var thumb string
		if len(res.Photos) > 0 && res.Photos[0].Reference != "" {
			thumb = PhotoPath + url.PathEscape(res.Photos[0].Reference)
		}
		if s, ok := newShop(ProviderGoogle, res.PlaceID, res.Name, res.Rating, thumb, loc, res.Vicinity); ok {
			shops = append(shops, s)
		}
	}
	return shops, nil
}

// Search returns coffee shops around c in the order Google ranks them.
func (c *GoogleNearbyClient) Search(ctx context.Context, at geo.Coordinate) ([]Shop, error) {
	q := url.Values{}
	q.Set("location", at.String())
	q.Set("radius", strconv.Itoa(c.radius))
	q.Set("keyword", c.keyword)
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + "/nearbysearch/json?" + q.Encode()

	return fetchNearby(ctx, c.client, endpoint, nil, &googleNearbyResponse{})
}

// ---- Place Details ----

// GoogleDetailClient fetches Google Place Details and inlines up to three photos.
type GoogleDetailClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleDetailClient constructs a GoogleDetailClient using the production URL.
func NewGoogleDetailClient(apiKey string, timeout time.Duration) *GoogleDetailClient {
	return NewGoogleDetailClientWithURL(googleDefaultURL, apiKey, timeout)
}

// NewGoogleDetailClientWithURL constructs a GoogleDetailClient pointing at a custom base URL (for tests).
func NewGoogleDetailClientWithURL(baseURL, apiKey string, timeout time.Duration) *GoogleDetailClient {
	return &GoogleDetailClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

type googleDetailResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID                  string                `json:"place_id"`
		Name                     string                `json:"name"`
		Rating                   float64               `json:"rating"`
		FormattedAddress         string                `json:"formatted_address"`
		AddressComponents        []geo.GoogleComponent `json:"address_components"`
		FormattedPhoneNumber     string                `json:"formatted_phone_number"`
		InternationalPhoneNumber string                `json:"international_phone_number"`
		Website                  string                `json:"website"`
		Geometry                 struct {
			Location googleLocation `json:"location"`
		} `json:"geometry"`
		OpeningHours *struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
		Photos  []googlePhoto `json:"photos"`
		Reviews []struct {
			AuthorName              string  `json:"author_name"`
			Rating                  float64 `json:"rating"`
			Text                    string  `json:"text"`
			RelativeTimeDescription string  `json:"relative_time_description"`
			Time                    int64   `json:"time"`
		} `json:"reviews"`
	} `json:"result"`
}

// Detail returns the full record for placeID. If any of the inlined photo
// downloads fails the whole lookup fails, so a partial photo set is never cached.
func (c *GoogleDetailClient) Detail(ctx context.Context, placeID string) (*ShopDetail, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", detailFields)
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + "/details/json?" + q.Encode()

	var raw googleDetailResponse
	if err := doGet(ctx, c.client, ProviderGoogle, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	if raw.Status == googleStatusZeroResults || raw.Status == googleStatusNotFound {
		return nil, fmt.Errorf("place %s: %w", placeID, ErrNotFound)
	}
	if err := googleStatusErr(raw.Status, raw.ErrorMessage); err != nil {
		return nil, err
	}

	photos, err := c.fetchPhotos(ctx, raw.Result.Photos)
	if err != nil {
		return nil, err
	}

	return raw.detail(placeID, photos), nil
}

func (r *googleDetailResponse) detail(placeID string, photos []string) *ShopDetail {
	res := r.Result
	id := res.PlaceID
	if id == "" {
		id = placeID
	}

	address := geo.Normalize(geo.FromGoogleComponents(res.AddressComponents))
	if address.FullForm == "" {
		address = geo.AddressFromText(res.FormattedAddress)
	}

	phone := res.FormattedPhoneNumber
	if phone == "" {
		phone = res.InternationalPhoneNumber
	}

	var hours []string
	if res.OpeningHours != nil {
		hours = sundayFirst(res.OpeningHours.WeekdayText)
	}

	d := &ShopDetail{
		Shop: Shop{
			PlaceID:  id,
			Provider: ProviderGoogle,
			Name:     res.Name,
			Rating:   clampRating(res.Rating),
			Location: geo.Coordinate{Lat: res.Geometry.Location.Lat, Lng: res.Geometry.Location.Lng},
			Address:  res.FormattedAddress,
		},
		AddressForms: address,
		Phone:        phone,
		Website:      res.Website,
		OpeningHours: hours,
		Photos:       photos,
		Reviews:      make([]Review, 0, len(res.Reviews)),
	}
	if len(photos) > 0 {
		d.ThumbnailURL = &photos[0]
	}
	for _, rv := range res.Reviews {
		d.Reviews = append(d.Reviews, Review{
			Author:       rv.AuthorName,
			Rating:       clampRating(rv.Rating),
			Text:         rv.Text,
			RelativeTime: rv.RelativeTimeDescription,
			Time:         rv.Time,
		})
	}
	return d
}

// fetchPhotos downloads up to MaxDetailPhotos photos concurrently, preserving order.
func (c *GoogleDetailClient) fetchPhotos(ctx context.Context, refs []googlePhoto) ([]string, error) {
	if len(refs) > MaxDetailPhotos {
		refs = refs[:MaxDetailPhotos]
	}
	photos := make([]string, len(refs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			uri, err := c.fetchPhoto(gCtx, ref.Reference, photoMaxWidth)
			if err != nil {
				return err
			}
			photos[i] = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return photos, nil
}

// Photo downloads one thumbnail-sized photo by reference as a data URI.
func (c *GoogleDetailClient) Photo(ctx context.Context, reference string) (string, error) {
	return c.fetchPhoto(ctx, reference, thumbMaxWidth)
}

func (c *GoogleDetailClient) fetchPhoto(ctx context.Context, reference string, maxWidth int) (string, error) {
	if reference == "" {
		return "", providerErr(ProviderGoogle, 0, "photo without reference")
	}
	q := url.Values{}
	q.Set("maxwidth", strconv.Itoa(maxWidth))
	q.Set("photo_reference", reference)
	q.Set("key", c.apiKey)

	body, contentType, err := getBytes(ctx, c.client, ProviderGoogle, c.baseURL+"/photo?"+q.Encode(), maxPhotoBytes)
	if err != nil {
		return "", err
	}
	return dataURI(contentType, body), nil
}

// dataURI re-encodes an image so clients can embed it without a cross-origin fetch.
func dataURI(contentType string, body []byte) string {
	mime := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body)
}

// sundayFirst rotates Google's Monday-first weekday_text so index 0 is Sunday,
// matching time.Weekday. Anything other than seven entries is discarded.
func sundayFirst(weekdayText []string) []string {
	if len(weekdayText) != 7 {
		return nil
	}
	out := make([]string, 0, 7)
	out = append(out, weekdayText[6])
	return append(out, weekdayText[:6]...)
}

func googleStatusErr(status, message string) error {
	if status == googleStatusOK || status == googleStatusZeroResults {
		return nil
	}
	if message == "" {
		message = "no error message"
	}
	return providerErr(ProviderGoogle, 0, "status %s: %s", status, message)
}
