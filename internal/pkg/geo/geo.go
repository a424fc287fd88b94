// Package geo provides great-circle distance and travel-speed helpers.
package geo

import (
	"math"
	"time"

	"redemption-guard/internal/pkg/errs"
)

const EarthRadiusKm = 6371.0088

var ErrInvalidCoordinate = errs.New("coordinate out of range")

type Point struct {
	Lat float64
	Lng float64
}

func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Point{}, ErrInvalidCoordinate
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// clamp against rounding drift for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// ImpliedSpeedKmh is the speed needed to cover distanceKm in elapsed.
// Non-positive elapsed with a non-zero distance yields +Inf; zero distance is always 0.
func ImpliedSpeedKmh(distanceKm float64, elapsed time.Duration) float64 {
	if distanceKm <= 0 {
		return 0
	}
	if elapsed <= 0 {
		return math.Inf(1)
	}
	return distanceKm / elapsed.Hours()
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
