package ctdf

import (
	"errors"
	"fmt"
	"math"
)

var ErrMissingVehicleID = errors.New("position record has no vehicle_id")
var ErrInvalidCoordinates = errors.New("position record has invalid coordinates")

// PositionRecord is a single vehicle position as delivered by a feed
type PositionRecord struct {
	VehicleID string  `json:"vehicle_id"`
	RouteID   string  `json:"route_id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Timestamp int64   `json:"ts"`
}

func (r PositionRecord) Position() Position {
	return NewPosition(r.Latitude, r.Longitude, r.Timestamp)
}

// Valid reports why a record cannot be fed into a zone, or nil if it can
func (r PositionRecord) Valid() error {
	if r.VehicleID == "" {
		return ErrMissingVehicleID
	}

	if math.IsNaN(r.Latitude) || math.IsInf(r.Latitude, 0) || r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, r.Latitude)
	}
	if math.IsNaN(r.Longitude) || math.IsInf(r.Longitude, 0) || r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, r.Longitude)
	}

	return nil
}

// PositionBatch is one delivery from a feed, e.g. a single GTFS-RT file or one poll of a page.
// Filename and Filepath identify where the batch was read from.
type PositionBatch struct {
	Source   string `json:"source,omitempty"`
	Filename string `json:"filename,omitempty"`
	Filepath string `json:"filepath,omitempty"`

	Records []PositionRecord `json:"entities"`
}
