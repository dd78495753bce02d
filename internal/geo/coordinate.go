package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90 degrees")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180 degrees")
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewCoordinate validates lat/lng and returns a Coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports whether the coordinate is within range. NaN is rejected.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < MinLatitude || c.Lat > MaxLatitude {
		return fmt.Errorf("%w: got %v", ErrInvalidLatitude, c.Lat)
	}
	if math.IsNaN(c.Lng) || c.Lng < MinLongitude || c.Lng > MaxLongitude {
		return fmt.Errorf("%w: got %v", ErrInvalidLongitude, c.Lng)
	}
	return nil
}

// String formats the coordinate as "lat,lng" using the shortest exact representation.
func (c Coordinate) String() string {
	return formatFloat(c.Lat) + "," + formatFloat(c.Lng)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
