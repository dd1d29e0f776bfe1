// Package geo holds the coordinate handling used by the proximity search:
// input validation, great-circle distance, bounding boxes and distance
// formatting. Everything here is pure.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// EarthRadiusKm is the mean Earth radius used for every spherical
	// distance in the service, in SQL and in Go alike.
	EarthRadiusKm = 6371.0

	// MetersPerKm converts the radius accepted from clients to the unit of
	// the proximity query.
	MetersPerKm = 1000.0
)

var (
	ErrMissingCoordinates  = errors.New("latitude and longitude are required")
	ErrInvalidCoordinates  = errors.New("latitude and longitude must be numeric")
	ErrLatitudeOutOfRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")
	ErrInvalidRadius       = errors.New("radius must be a positive number")
	ErrRadiusTooLarge      = errors.New("radius exceeds the maximum search radius")
)

// Point is a WGS84 coordinate in decimal degrees
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Validate checks that the point lies within the valid coordinate ranges
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return ErrInvalidCoordinates
	}
	if p.Lat < -90 || p.Lat > 90 {
		return ErrLatitudeOutOfRange
	}
	if p.Lng < -180 || p.Lng > 180 {
		return ErrLongitudeOutOfRange
	}
	return nil
}

// ParsePoint parses raw latitude and longitude values, as they arrive in a
// query string or form field, and validates them.
func ParsePoint(rawLat, rawLng string) (Point, error) {
	rawLat = strings.TrimSpace(rawLat)
	rawLng = strings.TrimSpace(rawLng)
	if rawLat == "" || rawLng == "" {
		return Point{}, ErrMissingCoordinates
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return Point{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return Point{}, ErrInvalidCoordinates
	}

	p := Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// ParseRadius parses a radius in kilometers. An empty value yields
// defaultKm; values above maxKm are rejected.
func ParseRadius(raw string, defaultKm, maxKm float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultKm, nil
	}

	km, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return 0, ErrInvalidRadius
	}
	if maxKm > 0 && km > maxKm {
		return 0, fmt.Errorf("%w (%.0f km)", ErrRadiusTooLarge, maxKm)
	}
	return km, nil
}

// IsValidationError reports whether err came from coordinate or radius
// validation
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingCoordinates) ||
		errors.Is(err, ErrInvalidCoordinates) ||
		errors.Is(err, ErrLatitudeOutOfRange) ||
		errors.Is(err, ErrLongitudeOutOfRange) ||
		errors.Is(err, ErrInvalidRadius) ||
		errors.Is(err, ErrRadiusTooLarge)
}
