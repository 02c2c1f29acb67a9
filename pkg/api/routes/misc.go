package routes

import (
	"errors"
	"strconv"
	"strings"

	"github.com/travigo/zones/pkg/zone"
)

// getBoundsQuery reads ?bounds=west,south,east,north into a box, nil when the query is absent
func getBoundsQuery(bounds string) (*zone.Box, error) {
	if bounds == "" {
		return nil, nil
	}

	boundsSplit := strings.Split(bounds, ",")
	if len(boundsSplit) != 4 {
		return nil, errors.New("Bounds must contain 4 co-ordinates")
	}

	var values [4]float64
	for i, value := range boundsSplit {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errors.New("Bounds must be numeric")
		}
		values[i] = parsed
	}

	return &zone.Box{West: values[0], South: values[1], East: values[2], North: values[3]}, nil
}

// overlaps reports whether a zone box shares any area with the requested bounds.
// Zones crossing the antimeridian are compared with the bounds shifted into [0, 360).
func overlaps(zoneBox zone.Box, bounds zone.Box) bool {
	if zoneBox.South > bounds.North || zoneBox.North < bounds.South {
		return false
	}

	west, east := bounds.West, bounds.East
	if zoneBox.CrossesAntimeridian {
		if west < 0 {
			west += 360
		}
		if east < 0 {
			east += 360
		}
		if west > east {
			return zoneBox.East >= west || zoneBox.West <= east
		}
	}

	return zoneBox.West <= east && zoneBox.East >= west
}
