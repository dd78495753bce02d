package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, strips diacritics, and collapses every run of
// non-alphanumeric characters into a single underscore. Leading and trailing
// underscores are trimmed. Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSep := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// CoordinateKey returns the literal "lat,lng" key built from the unrounded coordinate.
func CoordinateKey(c Coordinate) string {
	return c.String()
}

// CacheKey derives the canonical key for a location. A short address that
// slugifies to something non-empty wins, so textually identical locations
// share an entry regardless of coordinate noise. Otherwise the coordinate is used.
func CacheKey(c Coordinate, shortAddress string) string {
	if slug := Slugify(shortAddress); slug != "" {
		return slug
	}
	return CoordinateKey(c)
}
