package zone

import (
	"math"

	"github.com/travigo/zones/pkg/ctdf"
)

// Inside reports whether p lies within the closed polygon path.
//
// The box is checked first and a position outside it is rejected without looking at the polygon.
// Otherwise a ray is cast along the position's longitude and the polygon edges it passes are
// counted, an odd count meaning inside. Each edge is compared as (previous vertex, current vertex)
// with one end inclusive so a vertex shared by two edges is only counted once.
func Inside(box Box, path []ctdf.Position, p ctdf.Position) bool {
	if len(path) < 3 || !box.Contains(p) {
		return false
	}

	inside := false
	previous := path[len(path)-1]

	for _, current := range path {
		if crossesRay(previous, current, p) {
			inside = !inside
		}
		previous = current
	}

	return inside
}

// crossesRay reports whether the edge previous->current crosses the line of p's longitude
// at a latitude north of p
func crossesRay(previous ctdf.Position, current ctdf.Position, p ctdf.Position) bool {
	x := p.Longitude
	x1 := previous.Longitude
	x2 := current.Longitude
	dx := x2 - x1

	if math.Abs(dx) > 180 {
		// Edge jumps the antimeridian, bring both ends onto the same side as the position
		x1 = alignLongitude(x1, x)
		x2 = alignLongitude(x2, x)
		dx = x2 - x1
	}

	if !((x1 <= x && x2 > x) || (x1 >= x && x2 < x)) {
		return false
	}

	gradient := (current.Latitude - previous.Latitude) / dx
	crossingLatitude := previous.Latitude + (x-x1)*gradient

	return crossingLatitude > p.Latitude
}

// alignLongitude shifts longitude by whole turns until it has the same sign as reference.
// A reference of exactly zero is treated as western.
func alignLongitude(longitude float64, reference float64) float64 {
	if reference > 0 {
		for longitude < 0 {
			longitude += 360
		}
	} else {
		for longitude > 0 {
			longitude -= 360
		}
	}

	return longitude
}
