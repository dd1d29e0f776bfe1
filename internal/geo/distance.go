package geo

import (
	"fmt"
	"math"
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// HaversineKm returns the great-circle distance between a and b in
// kilometers
func HaversineKm(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push h slightly past 1 for antipodal points
	h = math.Min(1, h)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MetersToKm converts a distance annotation from the store to kilometers
func MetersToKm(m float64) float64 {
	return m * 0.001
}

// RoundKm rounds a distance to two decimals
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// FormatKm renders a distance for display, e.g. "1.2 km"
func FormatKm(km float64) string {
	return fmt.Sprintf("%.1f km", km)
}

// Box is a latitude/longitude rectangle in degrees
type Box struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// Contains reports whether p lies inside the box, edges included
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundingBox returns a rectangle containing every point within radiusKm of
// center. It is used as an index-friendly prefilter ahead of the exact
// spherical distance check. Boxes that would cross a pole or the
// antimeridian span the full longitude range.
func BoundingBox(center Point, radiusKm float64) Box {
	angular := radiusKm / EarthRadiusKm
	lat := toRadians(center.Lat)

	minLat := lat - angular
	maxLat := lat + angular

	if minLat <= -math.Pi/2 || maxLat >= math.Pi/2 {
		return Box{
			MinLat: math.Max(toDegrees(minLat), -90),
			MinLng: -180,
			MaxLat: math.Min(toDegrees(maxLat), 90),
			MaxLng: 180,
		}
	}

	dLng := toDegrees(math.Asin(math.Sin(angular) / math.Cos(lat)))
	minLng := center.Lng - dLng
	maxLng := center.Lng + dLng
	if minLng < -180 || maxLng > 180 {
		minLng = -180
		maxLng = 180
	}

	return Box{
		MinLat: toDegrees(minLat),
		MinLng: minLng,
		MaxLat: toDegrees(maxLat),
		MaxLng: maxLng,
	}
}
