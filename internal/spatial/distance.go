package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371008.8 // mean Earth radius (IUGG)
	EarthRadiusKm     = EarthRadiusMeters / 1000

	// MetersPerDegreeLat is the length of one degree along a meridian
	MetersPerDegreeLat = EarthRadiusMeters * math.Pi / 180
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance is HaversineDistance for two Points
func Distance(a, b Point) float64 {
	return HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PathLength calculates the total length of a path (sequence of points) in meters
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// PathLengthKm is PathLength in kilometers
func PathLengthKm(points []Point) float64 {
	return PathLength(points) / 1000
}
