package ctdf

import "fmt"

type ZoneEventType string

const (
	// Entered across the start line
	ZoneEventTypeStart ZoneEventType = "zone_start"
	// Entered somewhere other than the start line
	ZoneEventTypeEntry ZoneEventType = "zone_entry"
	// Left across the finish line after a clean start
	ZoneEventTypeCompletion ZoneEventType = "zone_completion"
	// Left across the finish line without a recorded start
	ZoneEventTypeExitNoStart ZoneEventType = "zone_exit_no_start"
	// Left somewhere other than the finish line
	ZoneEventTypeExit ZoneEventType = "zone_exit"
)

const ZoneEventModuleName = "zone"

// ZoneEvent is emitted by a zone when a vehicle crosses its boundary.
//
// TimestampDelta is the uncertainty of Timestamp in seconds, i.e. the length of the reporting
// step(s) the crossing was interpolated within. For a completion it is the sum of the start and
// finish steps.
type ZoneEvent struct {
	ModuleName string        `json:"module_name" bson:"module_name"`
	ZoneID     string        `json:"module_id" bson:"module_id"`
	Type       ZoneEventType `json:"msg_type" bson:"msg_type"`

	VehicleID string `json:"vehicle_id" bson:"vehicle_id"`
	RouteID   string `json:"route_id" bson:"route_id"`

	Timestamp      int64 `json:"ts" bson:"ts"`
	TimestampDelta int64 `json:"ts_delta" bson:"ts_delta"`

	// Only set for completions. A completion inside a single second still carries a zero.
	Duration *int64 `json:"duration,omitempty" bson:"duration,omitempty"`
}

// TransitDuration is the completion duration in seconds, or 0 for any other event
func (e *ZoneEvent) TransitDuration() int64 {
	if e.Duration == nil {
		return 0
	}
	return *e.Duration
}

// PrimaryIdentifier is stable across replays of the same feed so persisted events can be upserted
func (e *ZoneEvent) PrimaryIdentifier() string {
	return fmt.Sprintf("ZONEEVENT:%s:%s:%s:%d", e.ZoneID, e.VehicleID, e.Type, e.Timestamp)
}
