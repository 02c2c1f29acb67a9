package zone

import (
	"math"

	"github.com/travigo/zones/pkg/ctdf"
)

// Box is the rectangle enclosing a zone polygon, used to reject positions before the exact test.
//
// When one of the polygon edges spans more than 180 degrees of longitude the polygon is taken to
// cross the antimeridian, and West/East are held as longitudes normalised into [0, 360).
type Box struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`

	CrossesAntimeridian bool `json:"crosses_antimeridian"`
}

func NewBox(path []ctdf.Position) Box {
	box := Box{
		North: -90,
		South: 90,
		East:  -180,
		West:  180,
	}

	for i, point := range path {
		previous := path[(i+len(path)-1)%len(path)]
		if math.Abs(point.Longitude-previous.Longitude) > 180 {
			box.CrossesAntimeridian = true
		}

		box.North = math.Max(box.North, point.Latitude)
		box.South = math.Min(box.South, point.Latitude)
	}

	if box.CrossesAntimeridian {
		box.East = 0
		box.West = 360
	}

	for _, point := range path {
		longitude := point.Longitude
		if box.CrossesAntimeridian {
			longitude = normaliseLongitude(longitude)
		}

		box.East = math.Max(box.East, longitude)
		box.West = math.Min(box.West, longitude)
	}

	return box
}

// Contains reports whether p lies within the box, edges included
func (b Box) Contains(p ctdf.Position) bool {
	if p.Latitude > b.North || p.Latitude < b.South {
		return false
	}

	longitude := p.Longitude
	if b.CrossesAntimeridian {
		longitude = normaliseLongitude(longitude)
	}

	return longitude >= b.West && longitude <= b.East
}

// normaliseLongitude maps a longitude into [0, 360)
func normaliseLongitude(longitude float64) float64 {
	return math.Mod(math.Mod(longitude, 360)+360, 360)
}
