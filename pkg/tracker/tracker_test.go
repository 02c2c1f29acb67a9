package tracker

import (
	"encoding/json"
	"testing"

	"github.com/adjust/rmq/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/events"
	"github.com/travigo/zones/pkg/zone"
)

func squareConfig() zone.Config {
	return zone.Config{
		Identifier:  "square",
		Name:        "Unit square",
		FinishIndex: 2,
		Timezone:    "UTC",
		Path: []ctdf.Position{
			ctdf.NewPosition(0, 0, 0),
			ctdf.NewPosition(0, 1, 0),
			ctdf.NewPosition(1, 1, 0),
			ctdf.NewPosition(1, 0, 0),
		},
	}
}

func batchDelivery(t *testing.T, records ...ctdf.PositionRecord) *rmq.TestDelivery {
	payload, err := json.Marshal(ctdf.PositionBatch{Source: "test", Records: records})
	require.NoError(t, err)

	return rmq.NewTestDeliveryString(string(payload))
}

func TestTrackerPublishesTransit(t *testing.T) {
	connection := rmq.NewTestConnection()

	tracker, err := New([]zone.Config{squareConfig()}, connection, nil)
	require.NoError(t, err)

	first := batchDelivery(t,
		ctdf.PositionRecord{VehicleID: "bus-1", RouteID: "U", Latitude: -0.5, Longitude: 0.5, Timestamp: 1000},
		ctdf.PositionRecord{VehicleID: "bus-1", RouteID: "U", Latitude: 0.5, Longitude: 0.5, Timestamp: 1010},
	)
	second := batchDelivery(t,
		ctdf.PositionRecord{VehicleID: "bus-1", RouteID: "U", Latitude: 0.9, Longitude: 0.5, Timestamp: 2000},
		ctdf.PositionRecord{VehicleID: "bus-1", RouteID: "U", Latitude: 1.4, Longitude: 0.5, Timestamp: 2005},
	)

	tracker.Consumer.Consume(rmq.Deliveries{first, second})

	assert.Equal(t, rmq.Acked, first.State)
	assert.Equal(t, rmq.Acked, second.State)

	deliveries := connection.GetDeliveries(events.QueueName)
	require.Len(t, deliveries, 2)

	var start, completion ctdf.ZoneEvent
	require.NoError(t, json.Unmarshal([]byte(deliveries[0]), &start))
	require.NoError(t, json.Unmarshal([]byte(deliveries[1]), &completion))

	assert.Equal(t, ctdf.ZoneEventTypeStart, start.Type)
	assert.Equal(t, int64(1005), start.Timestamp)

	assert.Equal(t, ctdf.ZoneEventTypeCompletion, completion.Type)
	assert.Equal(t, int64(2001), completion.Timestamp)
	assert.Equal(t, int64(996), completion.TransitDuration())
	assert.Equal(t, "square", completion.ZoneID)
}

func TestSummarise(t *testing.T) {
	summaries := Summarise([]zone.Config{squareConfig()})

	require.Len(t, summaries, 1)
	assert.Equal(t, ZoneSummary{
		Identifier:  "square",
		Name:        "Unit square",
		Vertices:    4,
		FinishIndex: 2,
		Timezone:    "UTC",
		Box:         zone.Box{North: 1, South: 0, East: 1, West: 0},
	}, summaries[0])
}
