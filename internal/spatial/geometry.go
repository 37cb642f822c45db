package spatial

import (
	"math"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Centroid calculates the arithmetic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// BoundingBox calculates the bounding box of a set of points
// Returns (minLat, minLon, maxLat, maxLon)
func BoundingBox(points []Point) (float64, float64, float64, float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon

	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	return minLat, minLon, maxLat, maxLon
}

// Grid buckets points into cells at least radius meters on each side, so
// every point within radius of p lies in p's cell or one of its 8 neighbors.
type Grid struct {
	latStep float64
	lonStep float64
	cells   map[[2]int64][]int
}

// NewGrid indexes points for radius queries. Longitude cells are sized for
// the highest absolute latitude in the set.
func NewGrid(points []Point, radius float64) *Grid {
	minLat, _, maxLat, _ := BoundingBox(points)
	widest := math.Max(math.Abs(minLat), math.Abs(maxLat))
	cos := math.Cos(math.Min(widest, 89.9) * math.Pi / 180)

	// small margin keeps pairs at exactly radius inside adjacent cells
	step := radius * 1.01 / MetersPerDegreeLat
	g := &Grid{
		latStep: step,
		lonStep: step / cos,
		cells:   make(map[[2]int64][]int),
	}
	for i, p := range points {
		key := g.key(p)
		g.cells[key] = append(g.cells[key], i)
	}
	return g
}

func (g *Grid) key(p Point) [2]int64 {
	return [2]int64{int64(math.Floor(p.Lat / g.latStep)), int64(math.Floor(p.Lon / g.lonStep))}
}

// Candidates returns the indices of points in p's cell and its neighbors
func (g *Grid) Candidates(p Point) []int {
	k := g.key(p)
	var out []int
	for dLat := int64(-1); dLat <= 1; dLat++ {
		for dLon := int64(-1); dLon <= 1; dLon++ {
			out = append(out, g.cells[[2]int64{k[0] + dLat, k[1] + dLon}]...)
		}
	}
	return out
}
