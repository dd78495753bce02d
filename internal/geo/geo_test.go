package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/coffeemap/internal/geo"
)

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Café São Paulo", "cafe_sao_paulo"},
		{"  Samarinda Ulu, Samarinda ", "samarinda_ulu_samarinda"},
		{"--Hello---World!!", "hello_world"},
		{"Zürich, Kreis 1", "zurich_kreis_1"},
		{"", ""},
		{"   ", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, geo.Slugify(tt.in), "input %q", tt.in)
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{
		"Café São Paulo",
		"Jl. Sudirman No. 5, Samarinda",
		"__already_slugged__",
		"Ångström   Straße",
		"東京 渋谷",
		"a_b__c",
	}
	for _, s := range inputs {
		once := geo.Slugify(s)
		assert.Equal(t, once, geo.Slugify(once), "input %q", s)
	}
}

func TestSlugify_AccentAndCaseCollapse(t *testing.T) {
	assert.Equal(t, geo.Slugify("Café São Paulo"), geo.Slugify("cafe sao paulo"))
	assert.Equal(t, geo.Slugify("CAFÉ"), geo.Slugify("cafe"))
}

func TestCacheKey_PrefersAddress(t *testing.T) {
	c := geo.Coordinate{Lat: -0.4772294, Lng: 117.1306983}
	assert.Equal(t, "samarinda_ulu_samarinda", geo.CacheKey(c, "Samarinda Ulu, Samarinda"))

	// Coordinate noise does not change an address-derived key.
	noisy := geo.Coordinate{Lat: -0.47722941, Lng: 117.13069829}
	assert.Equal(t, geo.CacheKey(c, "Samarinda Ulu, Samarinda"), geo.CacheKey(noisy, "samarinda ulu samarinda"))
}

func TestCacheKey_BlankAddressFallsBackToCoordinates(t *testing.T) {
	c := geo.Coordinate{Lat: -0.4772294, Lng: 117.1306983}
	assert.Equal(t, "-0.4772294,117.1306983", geo.CacheKey(c, ""))
	assert.Equal(t, "-0.4772294,117.1306983", geo.CacheKey(c, "   \t"))
	assert.Equal(t, "-0.4772294,117.1306983", geo.CacheKey(c, ", ,"))
}

func TestCoordinate_Validate(t *testing.T) {
	_, err := geo.NewCoordinate(-0.4772294, 117.1306983)
	require.NoError(t, err)

	_, err = geo.NewCoordinate(91, 0)
	assert.ErrorIs(t, err, geo.ErrInvalidLatitude)

	_, err = geo.NewCoordinate(0, -180.5)
	assert.ErrorIs(t, err, geo.ErrInvalidLongitude)

	_, err = geo.NewCoordinate(math.NaN(), 0)
	assert.ErrorIs(t, err, geo.ErrInvalidLatitude)
}

func TestNormalize_Full(t *testing.T) {
	addr := geo.Normalize(geo.AddressFields{
		Road:    "Jalan Juanda",
		Suburb:  "Air Hitam",
		City:    "Samarinda",
		State:   "East Kalimantan",
		Country: "Indonesia",
	})
	assert.Equal(t, "Air Hitam, Samarinda", addr.ShortForm)
	assert.Equal(t, "Jalan Juanda, Air Hitam, Samarinda, East Kalimantan, Indonesia", addr.FullForm)
}

func TestNormalize_FallbackOrder(t *testing.T) {
	addr := geo.Normalize(geo.AddressFields{
		Residential:   "Perumahan Indah",
		Neighbourhood: "Kampung Baru",
		Town:          "Tenggarong",
		County:        "Kutai Kartanegara",
	})
	assert.Equal(t, "Kampung Baru, Tenggarong", addr.ShortForm)
	assert.Equal(t, "Perumahan Indah, Kampung Baru, Tenggarong", addr.FullForm)
}

func TestNormalize_MissingComponentsOmitted(t *testing.T) {
	addr := geo.Normalize(geo.AddressFields{Village: "Loa Janan", Country: "Indonesia"})
	assert.Equal(t, "Loa Janan", addr.ShortForm)
	assert.Equal(t, "Loa Janan, Indonesia", addr.FullForm)

	empty := geo.Normalize(geo.AddressFields{})
	assert.Equal(t, geo.Address{}, empty)
}

func TestFromGoogleComponents(t *testing.T) {
	fields := geo.FromGoogleComponents([]geo.GoogleComponent{
		{LongName: "12", Types: []string{"street_number"}},
		{LongName: "Jalan Pahlawan", Types: []string{"route"}},
		{LongName: "Dadi Mulya", Types: []string{"sublocality_level_1", "sublocality", "political"}},
		{LongName: "Samarinda", Types: []string{"locality", "political"}},
		{LongName: "Kalimantan Timur", Types: []string{"administrative_area_level_1", "political"}},
		{LongName: "Indonesia", Types: []string{"country", "political"}},
	})
	addr := geo.Normalize(fields)
	assert.Equal(t, "Dadi Mulya, Samarinda", addr.ShortForm)
	assert.Equal(t, "Jalan Pahlawan 12, Dadi Mulya, Samarinda, Kalimantan Timur, Indonesia", addr.FullForm)
}

func TestAddressFromText(t *testing.T) {
	addr := geo.AddressFromText("Jl. Sudirman No.5, Samarinda Ulu,  Samarinda, Kalimantan Timur 75124, Indonesia")
	assert.Equal(t, "Samarinda Ulu, Samarinda", addr.ShortForm)
	assert.Equal(t, "Jl. Sudirman No.5, Samarinda Ulu, Samarinda, Kalimantan Timur 75124, Indonesia", addr.FullForm)

	short := geo.AddressFromText("Samarinda, , Indonesia")
	assert.Equal(t, "Samarinda, Indonesia", short.ShortForm)
	assert.Equal(t, "Samarinda, Indonesia", short.FullForm)

	assert.Equal(t, geo.Address{}, geo.AddressFromText(" , "))
}
