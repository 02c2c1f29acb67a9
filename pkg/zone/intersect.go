package zone

import (
	"math"

	"github.com/travigo/zones/pkg/ctdf"
)

// Intersection is the result of testing a vehicle's step against one polygon edge
type Intersection struct {
	Success bool

	// Where and when the step crossed the edge, the timestamp interpolated along the step
	Position ctdf.Position

	// Fraction of the way along the vehicle's step
	Progress float64
	// Fraction of the way along the edge
	EdgeProgress float64
}

// Intersect tests whether the vehicle's step from->to crosses the edge running from vertex
// edgeIndex to the vertex after it (wrapping back to vertex 0 after the last).
// Parallel or degenerate segments never intersect.
func Intersect(path []ctdf.Position, edgeIndex int, from ctdf.Position, to ctdf.Position) Intersection {
	if len(path) < 2 || edgeIndex < 0 || edgeIndex >= len(path) {
		return Intersection{}
	}

	a := from
	c := path[edgeIndex]
	d := path[(edgeIndex+1)%len(path)]

	s1Lat := to.Latitude - a.Latitude
	s1Lng := to.Longitude - a.Longitude
	s2Lat := d.Latitude - c.Latitude
	s2Lng := d.Longitude - c.Longitude

	denominator := -s2Lng*s1Lat + s1Lng*s2Lat
	if denominator == 0 || math.IsNaN(denominator) {
		return Intersection{}
	}

	s := (-s1Lat*(a.Longitude-c.Longitude) + s1Lng*(a.Latitude-c.Latitude)) / denominator
	progress := (s2Lng*(a.Latitude-c.Latitude) - s2Lat*(a.Longitude-c.Longitude)) / denominator

	if !(s >= 0 && s <= 1 && progress >= 0 && progress <= 1) {
		return Intersection{}
	}

	timestamp := from.Timestamp + int64(math.Round(float64(to.Timestamp-from.Timestamp)*progress))

	return Intersection{
		Success: true,
		Position: ctdf.NewPosition(
			a.Latitude+progress*s1Lat,
			a.Longitude+progress*s1Lng,
			timestamp,
		),
		Progress:     progress,
		EdgeProgress: s,
	}
}
