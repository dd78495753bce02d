package places

import (
	"math"

	"github.com/neexbeast/coffeemap/internal/geo"
)

// Provider identifies the namespace a place id belongs to. Place ids are
// unique within a provider only.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderSerpAPI   Provider = "serpapi"
	ProviderOSM       Provider = "osm"
	ProviderNominatim Provider = "nominatim"
)

// Shop is the provider-neutral nearby-search result.
type Shop struct {
	PlaceID      string         `json:"placeId"`
	Provider     Provider       `json:"provider"`
	Name         string         `json:"name"`
	Rating       float64        `json:"rating"`
	ThumbnailURL *string        `json:"thumbnailUrl"`
	Location     geo.Coordinate `json:"location"`
	Address      string         `json:"address,omitempty"`
}

// Review is a single user review of a shop.
type Review struct {
	Author       string  `json:"author"`
	Rating       float64 `json:"rating"`
	Text         string  `json:"text"`
	RelativeTime string  `json:"relativeTime,omitempty"`
	Time         int64   `json:"time,omitempty"`
}

// ShopDetail enriches a Shop. OpeningHours, when present, holds exactly seven
// "Day: hours" entries starting with Sunday. Photos are data URIs.
type ShopDetail struct {
	Shop
	AddressForms geo.Address `json:"addressForms"`
	Phone        string      `json:"phone,omitempty"`
	Website      string      `json:"website,omitempty"`
	OpeningHours []string    `json:"openingHours,omitempty"`
	Photos       []string    `json:"photos"`
	Reviews      []Review    `json:"reviews"`
}

const (
	minRating = 0.0
	maxRating = 5.0
)

func clampRating(r float64) float64 {
	switch {
	case math.IsNaN(r) || r < minRating:
		return minRating
	case r > maxRating:
		return maxRating
	default:
		return r
	}
}
