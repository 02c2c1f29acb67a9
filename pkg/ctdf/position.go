package ctdf

import (
	"fmt"
	"math"
)

// Earth's radius at latitude 52 degrees, the zones were first calibrated around Cambridge
const EarthRadiusMetres = 6380000.0

// Position is a lat/lng pair with the unix timestamp (seconds) it was recorded at.
// Polygon vertices use the same type with the timestamp left at zero.
type Position struct {
	Latitude  float64 `json:"lat" bson:"lat" yaml:"lat"`
	Longitude float64 `json:"lng" bson:"lng" yaml:"lng"`
	Timestamp int64   `json:"ts,omitempty" bson:"ts,omitempty" yaml:"ts,omitempty"`
}

func NewPosition(latitude float64, longitude float64, timestamp int64) Position {
	return Position{
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: timestamp,
	}
}

// Distance returns the great-circle distance in metres between the two positions
func (p Position) Distance(other Position) float64 {
	dLat := toRadians(other.Latitude - p.Latitude)
	dLng := toRadians(other.Longitude - p.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(p.Latitude))*math.Cos(toRadians(other.Latitude))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMetres * c
}

func (p Position) String() string {
	return fmt.Sprintf("{lat: %f, lng: %f, ts: %d}", p.Latitude, p.Longitude, p.Timestamp)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
