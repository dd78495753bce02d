package geo

import "strings"

// Address is the normalized two-form representation of a location.
type Address struct {
	ShortForm string `json:"shortForm"`
	FullForm  string `json:"fullForm"`
}

// AddressFields is a provider-neutral structured address. Field names follow
// OpenStreetMap's reverse-geocode vocabulary; other providers are mapped onto it.
type AddressFields struct {
	Road          string `json:"road,omitempty"`
	Residential   string `json:"residential,omitempty"`
	Pedestrian    string `json:"pedestrian,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Village       string `json:"village,omitempty"`
	City          string `json:"city,omitempty"`
	Town          string `json:"town,omitempty"`
	County        string `json:"county,omitempty"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country,omitempty"`
}

func (f AddressFields) street() string {
	return firstPresent(f.Road, f.Residential, f.Pedestrian)
}

func (f AddressFields) locality() string {
	return firstPresent(f.Suburb, f.Neighbourhood, f.Village)
}

func (f AddressFields) city() string {
	return firstPresent(f.City, f.Town, f.County)
}

// Normalize builds the short ("suburb, city") and full
// ("street, suburb, city, state, country") forms. Missing parts are dropped.
func Normalize(f AddressFields) Address {
	return Address{
		ShortForm: joinPresent(f.locality(), f.city()),
		FullForm:  joinPresent(f.street(), f.locality(), f.city(), f.State, f.Country),
	}
}

// GoogleComponent is one entry of a Google Places address_components list.
type GoogleComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

// FromGoogleComponents maps Google address component types onto AddressFields.
// The first component of each type wins.
func FromGoogleComponents(components []GoogleComponent) AddressFields {
	var f AddressFields
	var number string
	for _, c := range components {
		name := strings.TrimSpace(c.LongName)
		if name == "" {
			continue
		}
		for _, t := range c.Types {
			switch t {
			case "street_number":
				setOnce(&number, name)
			case "route":
				setOnce(&f.Road, name)
			case "sublocality", "sublocality_level_1":
				setOnce(&f.Suburb, name)
			case "neighborhood":
				setOnce(&f.Neighbourhood, name)
			case "locality":
				setOnce(&f.City, name)
			case "postal_town":
				setOnce(&f.Town, name)
			case "administrative_area_level_2":
				setOnce(&f.County, name)
			case "administrative_area_level_1":
				setOnce(&f.State, name)
			case "country":
				setOnce(&f.Country, name)
			}
		}
	}
	if f.Road != "" && number != "" {
		f.Road = f.Road + " " + number
	}
	return f
}

// AddressFromText normalizes a free-text, comma-separated address such as the
// ones SerpAPI returns. Long addresses ("street, suburb, city, region, country")
// use the second and third parts as the short form.
func AddressFromText(s string) Address {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			parts = append(parts, p)
		}
	}

	short := parts
	switch {
	case len(parts) >= 4:
		short = parts[1:3]
	case len(parts) > 2:
		short = parts[:2]
	}

	return Address{
		ShortForm: strings.Join(short, ", "),
		FullForm:  strings.Join(parts, ", "),
	}
}

func firstPresent(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func joinPresent(values ...string) string {
	present := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			present = append(present, v)
		}
	}
	return strings.Join(present, ", ")
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
