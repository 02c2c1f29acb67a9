package zone

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/stats"
	"github.com/travigo/zones/pkg/util"
)

const startEdgeIndex = 0

// Publisher receives every event a zone emits
type Publisher interface {
	Publish(ctx context.Context, event *ctdf.ZoneEvent) error
}

// Zone tracks vehicles against a single polygon and classifies how they cross its boundary.
// A Zone is not safe for concurrent use, feed it one batch at a time.
type Zone struct {
	Config Config

	box      Box
	location *time.Location
	vehicles map[string]*Vehicle

	publisher Publisher
	collector *stats.Collector
}

func New(config Config, publisher Publisher, collector *stats.Collector) (*Zone, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Zone{
		Config:    config,
		box:       NewBox(config.Path),
		location:  config.Location(),
		vehicles:  map[string]*Vehicle{},
		publisher: publisher,
		collector: collector,
	}, nil
}

func (z *Zone) Identifier() string {
	return z.Config.Identifier
}

func (z *Zone) Box() Box {
	return z.box
}

// Vehicle returns the zone's current state for a vehicle, or nil if it has never been seen
func (z *Zone) Vehicle(vehicleID string) *Vehicle {
	return z.vehicles[vehicleID]
}

func (z *Zone) VehicleCount() int {
	return len(z.vehicles)
}

// Inside reports whether p is within the zone polygon
func (z *Zone) Inside(p ctdf.Position) bool {
	return Inside(z.box, z.Config.Path, p)
}

// HandleBatch feeds every record in the batch through the zone in order.
// Invalid records are logged and skipped. A Manager validates once for all of its zones
// and calls handleRecords instead.
func (z *Zone) HandleBatch(ctx context.Context, batch *ctdf.PositionBatch) {
	validRecords := util.Filter(batch.Records, func(record ctdf.PositionRecord) bool {
		if err := record.Valid(); err != nil {
			log.Error().Err(err).
				Str("zone", z.Identifier()).
				Str("vehicle", record.VehicleID).
				Str("filepath", batch.Filepath).
				Msg("Skipping position record")
			z.collector.RecordSkipped("invalid")

			return false
		}

		return true
	})

	z.handleRecords(ctx, validRecords)
}

// handleRecords expects records that have already been validated
func (z *Zone) handleRecords(ctx context.Context, records []ctdf.PositionRecord) {
	for _, record := range records {
		z.HandleRecord(ctx, record)
	}

	z.collector.SetVehicles(z.Identifier(), z.VehicleCount())
}

// HandleRecord moves the vehicle to its new position and returns the event its movement
// produced, or nil when it did not cross the zone boundary.
// The record must already be valid.
func (z *Zone) HandleRecord(ctx context.Context, record ctdf.PositionRecord) *ctdf.ZoneEvent {
	z.collector.RecordPosition(z.Identifier())

	vehicle, exists := z.vehicles[record.VehicleID]
	if !exists {
		vehicle = newVehicle(record)
		vehicle.Within = z.Inside(vehicle.Position)
		z.vehicles[record.VehicleID] = vehicle

		return nil
	}

	vehicle.update(record)
	vehicle.Within = z.Inside(vehicle.Position)

	event := z.transition(vehicle)
	if event == nil {
		return nil
	}

	z.collector.RecordEvent(z.Identifier(), string(event.Type))
	if event.Type == ctdf.ZoneEventTypeCompletion {
		z.collector.ObserveTransit(z.Identifier(), event.TransitDuration())
	}

	if z.publisher != nil {
		if err := z.publisher.Publish(ctx, event); err != nil {
			log.Error().Err(err).
				Str("zone", z.Identifier()).
				Str("vehicle", vehicle.VehicleID).
				Str("type", string(event.Type)).
				Msg("Failed to publish zone event")
		}
	}

	return event
}

func (z *Zone) transition(vehicle *Vehicle) *ctdf.ZoneEvent {
	switch {
	case vehicle.Within && !vehicle.PreviousWithin:
		start := Intersect(z.Config.Path, startEdgeIndex, vehicle.PreviousPosition, vehicle.Position)
		if start.Success {
			vehicle.startTransit(start.Position.Timestamp, vehicle.Step())
			return z.start(vehicle)
		}
		return z.entry(vehicle)
	case !vehicle.Within && vehicle.PreviousWithin:
		var event *ctdf.ZoneEvent

		finish := Intersect(z.Config.Path, z.Config.FinishIndex, vehicle.PreviousPosition, vehicle.Position)
		if finish.Success && vehicle.Started {
			event = z.completion(vehicle, finish.Position.Timestamp)
		} else if finish.Success {
			event = z.exitNoStart(vehicle, finish.Position.Timestamp)
		} else {
			event = z.exit(vehicle)
		}

		// Any exit ends the transit, a vehicle has to cross the start line again to be timed
		vehicle.clearTransit()

		return event
	default:
		return nil
	}
}

func (z *Zone) newEvent(vehicle *Vehicle, eventType ctdf.ZoneEventType) *ctdf.ZoneEvent {
	return &ctdf.ZoneEvent{
		ModuleName: ctdf.ZoneEventModuleName,
		ZoneID:     z.Identifier(),
		Type:       eventType,
		VehicleID:  vehicle.VehicleID,
		RouteID:    vehicle.RouteID,
	}
}

func (z *Zone) start(vehicle *Vehicle) *ctdf.ZoneEvent {
	log.Info().
		Str("zone", z.Identifier()).
		Str("vehicle", vehicle.VehicleID).
		Str("time", util.TimestampToTimeString(vehicle.StartTimestamp, z.location)).
		Int64("ts_delta", vehicle.StartUncertainty).
		Msg("Clean start")

	event := z.newEvent(vehicle, ctdf.ZoneEventTypeStart)
	event.Timestamp = vehicle.StartTimestamp
	event.TimestampDelta = vehicle.StartUncertainty

	return event
}

func (z *Zone) entry(vehicle *Vehicle) *ctdf.ZoneEvent {
	log.Info().
		Str("zone", z.Identifier()).
		Str("vehicle", vehicle.VehicleID).
		Str("time", util.TimestampToTimeString(vehicle.Position.Timestamp, z.location)).
		Int64("ts_delta", vehicle.Step()).
		Msg("Early entry")

	event := z.newEvent(vehicle, ctdf.ZoneEventTypeEntry)
	event.Timestamp = vehicle.Position.Timestamp
	event.TimestampDelta = vehicle.Step()

	return event
}

func (z *Zone) completion(vehicle *Vehicle, finishTimestamp int64) *ctdf.ZoneEvent {
	duration := finishTimestamp - vehicle.StartTimestamp
	finishUncertainty := vehicle.Step()

	log.Info().
		Str("zone", z.Identifier()).
		Str("vehicle", vehicle.VehicleID).
		Str("route", vehicle.RouteID).
		Int64("finish_ts", finishTimestamp).
		Int64("duration", duration).
		Str("duration_time", z.durationString(vehicle, duration)).
		Str("datetime", util.TimestampToDateTimeString(vehicle.Position.Timestamp)).
		Str("start", util.TimestampToTimeString(vehicle.StartTimestamp, z.location)).
		Str("finish", util.TimestampToTimeString(finishTimestamp, z.location)).
		Str("start_delta", z.durationString(vehicle, vehicle.StartUncertainty)).
		Str("finish_delta", z.durationString(vehicle, finishUncertainty)).
		Msg("Completed")

	event := z.newEvent(vehicle, ctdf.ZoneEventTypeCompletion)
	event.Timestamp = finishTimestamp
	event.Duration = &duration
	event.TimestampDelta = finishUncertainty + vehicle.StartUncertainty

	return event
}

func (z *Zone) exitNoStart(vehicle *Vehicle, finishTimestamp int64) *ctdf.ZoneEvent {
	log.Info().
		Str("zone", z.Identifier()).
		Str("vehicle", vehicle.VehicleID).
		Str("time", util.TimestampToTimeString(finishTimestamp, z.location)).
		Int64("ts_delta", vehicle.Step()).
		Msg("Clean exit with no start")

	event := z.newEvent(vehicle, ctdf.ZoneEventTypeExitNoStart)
	event.Timestamp = finishTimestamp
	event.TimestampDelta = vehicle.Step()

	return event
}

func (z *Zone) exit(vehicle *Vehicle) *ctdf.ZoneEvent {
	log.Info().
		Str("zone", z.Identifier()).
		Str("vehicle", vehicle.VehicleID).
		Str("time", util.TimestampToTimeString(vehicle.Position.Timestamp, z.location)).
		Int64("ts_delta", vehicle.Step()).
		Msg("Early exit")

	event := z.newEvent(vehicle, ctdf.ZoneEventTypeExit)
	event.Timestamp = vehicle.Position.Timestamp
	event.TimestampDelta = vehicle.Step()

	return event
}

// durationString formats seconds as hh:mm:ss, logging an error rather than failing for a day or longer
func (z *Zone) durationString(vehicle *Vehicle, seconds int64) string {
	timeString, err := util.DurationToTimeString(seconds)
	if err != nil {
		log.Error().Err(err).
			Str("zone", z.Identifier()).
			Str("vehicle", vehicle.VehicleID).
			Int64("duration", seconds).
			Msg("Unexpected transit timing")
	}

	return timeString
}
