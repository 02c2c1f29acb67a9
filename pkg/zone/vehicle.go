package zone

import "github.com/travigo/zones/pkg/ctdf"

// Vehicle is a zone's view of one vehicle, holding its last two positions and any transit in progress
type Vehicle struct {
	VehicleID string
	RouteID   string

	Position         ctdf.Position
	PreviousPosition ctdf.Position

	Within         bool
	PreviousWithin bool

	// Set while a transit that began across the start line is in progress
	Started          bool
	StartTimestamp   int64
	StartUncertainty int64
}

func newVehicle(record ctdf.PositionRecord) *Vehicle {
	return &Vehicle{
		VehicleID:        record.VehicleID,
		RouteID:          record.RouteID,
		Position:         record.Position(),
		PreviousPosition: record.Position(),
	}
}

func (v *Vehicle) update(record ctdf.PositionRecord) {
	v.RouteID = record.RouteID
	v.PreviousPosition = v.Position
	v.Position = record.Position()
	v.PreviousWithin = v.Within
}

// Step is the number of seconds between the previous and current position
func (v *Vehicle) Step() int64 {
	return v.Position.Timestamp - v.PreviousPosition.Timestamp
}

func (v *Vehicle) startTransit(timestamp int64, uncertainty int64) {
	v.Started = true
	v.StartTimestamp = timestamp
	v.StartUncertainty = uncertainty
}

func (v *Vehicle) clearTransit() {
	v.Started = false
	v.StartTimestamp = 0
	v.StartUncertainty = 0
}
