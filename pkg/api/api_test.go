package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/zones/pkg/api/routes"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/events"
	"github.com/travigo/zones/pkg/stats/calculator"
	"github.com/travigo/zones/pkg/zone"
)

type fakeTransits struct {
	transits  []*events.ZoneTransit
	err       error
	zoneID    string
	eventType ctdf.ZoneEventType
	limit     int64
}

func (f *fakeTransits) Recent(_ context.Context, zoneID string, eventType ctdf.ZoneEventType, limit int64) ([]*events.ZoneTransit, error) {
	f.zoneID = zoneID
	f.eventType = eventType
	f.limit = limit
	return f.transits, f.err
}

type fakeLatest map[string]*ctdf.ZoneEvent

func (f fakeLatest) Latest(_ context.Context, zoneID string, vehicleID string) (*ctdf.ZoneEvent, error) {
	event, exists := f[events.LatestEventKey(zoneID, vehicleID)]
	if !exists {
		return nil, events.ErrNoLatestEvent
	}
	return event, nil
}

type fakeStats struct {
	err error
}

func (f fakeStats) Stats(_ context.Context, zoneID string) (*calculator.TransitStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &calculator.TransitStats{Zone: zoneID, Events: map[string]int{"zone_completion": 2}, Completions: 2, MeanDuration: 600}, nil
}

func testConfigs() []zone.Config {
	return []zone.Config{
		{
			Identifier:  "madingley_road_in",
			Name:        "Madingley Road inbound",
			FinishIndex: 2,
			Timezone:    "Europe/London",
			Path: []ctdf.Position{
				ctdf.NewPosition(52.21, 0.08, 0),
				ctdf.NewPosition(52.22, 0.08, 0),
				ctdf.NewPosition(52.22, 0.10, 0),
				ctdf.NewPosition(52.21, 0.10, 0),
			},
		},
		{
			Identifier:  "fiji_dateline",
			FinishIndex: 1,
			Timezone:    "UTC",
			Path: []ctdf.Position{
				ctdf.NewPosition(-17, 179, 0),
				ctdf.NewPosition(-17, -179, 0),
				ctdf.NewPosition(-18, -179, 0),
				ctdf.NewPosition(-18, 179, 0),
			},
		},
	}
}

func completion() *ctdf.ZoneEvent {
	duration := int64(996)
	return &ctdf.ZoneEvent{
		ModuleName:     ctdf.ZoneEventModuleName,
		ZoneID:         "madingley_road_in",
		Type:           ctdf.ZoneEventTypeCompletion,
		VehicleID:      "bus-1",
		RouteID:        "U",
		Timestamp:      1457334014,
		TimestampDelta: 15,
		Duration:       &duration,
	}
}

func get(t *testing.T, stores routes.Stores, target string) (int, []byte) {
	app := NewApp(testConfigs(), stores)

	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func TestVersion(t *testing.T) {
	status, body := get(t, routes.Stores{}, "/version")

	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"service":"zones","version":"v0.1"}`, string(body))
}

func TestListZones(t *testing.T) {
	status, body := get(t, routes.Stores{}, "/zones")
	require.Equal(t, 200, status)

	var zones []routes.ZoneResponse
	require.NoError(t, json.Unmarshal(body, &zones))
	require.Len(t, zones, 2)
	assert.Equal(t, "madingley_road_in", zones[0].Identifier)
	assert.Nil(t, zones[0].Path)
	assert.Equal(t, zone.Box{North: 52.22, South: 52.21, East: 0.10, West: 0.08}, zones[0].Box)
	assert.True(t, zones[1].Box.CrossesAntimeridian)
}

func TestListZonesWithinBounds(t *testing.T) {
	for bounds, expected := range map[string][]string{
		"0,52,1,53":       {"madingley_road_in"},
		"-180,-20,-178,0": {"fiji_dateline"},
		"178,-20,180,0":   {"fiji_dateline"},
		"10,10,11,11":     {},
	} {
		t.Run(bounds, func(t *testing.T) {
			status, body := get(t, routes.Stores{}, "/zones?bounds="+bounds)
			require.Equal(t, 200, status)

			var zones []routes.ZoneResponse
			require.NoError(t, json.Unmarshal(body, &zones))

			identifiers := []string{}
			for _, zoneResponse := range zones {
				identifiers = append(identifiers, zoneResponse.Identifier)
			}
			assert.Equal(t, expected, identifiers)
		})
	}

	status, _ := get(t, routes.Stores{}, "/zones?bounds=1,2,3")
	assert.Equal(t, 400, status)
}

func TestGetZone(t *testing.T) {
	status, body := get(t, routes.Stores{}, "/zones/madingley_road_in")
	require.Equal(t, 200, status)

	var zoneResponse routes.ZoneResponse
	require.NoError(t, json.Unmarshal(body, &zoneResponse))
	assert.Equal(t, "Madingley Road inbound", zoneResponse.Name)
	assert.Equal(t, 2, zoneResponse.FinishIndex)
	assert.Len(t, zoneResponse.Path, 4)

	status, _ = get(t, routes.Stores{}, "/zones/unknown")
	assert.Equal(t, 404, status)
}

func TestGetZoneTransits(t *testing.T) {
	transits := &fakeTransits{
		transits: []*events.ZoneTransit{
			{PrimaryIdentifier: completion().PrimaryIdentifier(), ZoneEvent: *completion()},
		},
	}

	status, body := get(t, routes.Stores{Transits: transits}, "/zones/madingley_road_in/transits")
	require.Equal(t, 200, status)

	assert.Equal(t, "madingley_road_in", transits.zoneID)
	assert.Equal(t, ctdf.ZoneEventTypeCompletion, transits.eventType)
	assert.Equal(t, int64(events.DefaultTransitLimit), transits.limit)

	var decoded []events.ZoneTransit
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, *completion(), decoded[0].ZoneEvent)

	status, _ = get(t, routes.Stores{Transits: transits}, "/zones/madingley_road_in/transits?type=all&limit=5")
	assert.Equal(t, 200, status)
	assert.Equal(t, ctdf.ZoneEventType(""), transits.eventType)
	assert.Equal(t, int64(5), transits.limit)

	status, _ = get(t, routes.Stores{Transits: transits}, "/zones/madingley_road_in/transits?limit=5000")
	assert.Equal(t, 400, status)

	status, _ = get(t, routes.Stores{Transits: &fakeTransits{err: errors.New("connection refused")}}, "/zones/madingley_road_in/transits")
	assert.Equal(t, 500, status)

	status, _ = get(t, routes.Stores{}, "/zones/madingley_road_in/transits")
	assert.Equal(t, 503, status)

	status, _ = get(t, routes.Stores{Transits: transits}, "/zones/unknown/transits")
	assert.Equal(t, 404, status)
}

func TestGetLatestEvent(t *testing.T) {
	latest := fakeLatest{events.LatestEventKey("madingley_road_in", "bus-1"): completion()}

	status, body := get(t, routes.Stores{Latest: latest}, "/zones/madingley_road_in/latest/bus-1")
	require.Equal(t, 200, status)

	var event ctdf.ZoneEvent
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, *completion(), event)

	status, _ = get(t, routes.Stores{Latest: latest}, "/zones/madingley_road_in/latest/bus-2")
	assert.Equal(t, 404, status)

	status, _ = get(t, routes.Stores{}, "/zones/madingley_road_in/latest/bus-1")
	assert.Equal(t, 503, status)
}

func TestGetZoneStats(t *testing.T) {
	status, body := get(t, routes.Stores{Stats: fakeStats{}}, "/zones/madingley_road_in/stats")
	require.Equal(t, 200, status)

	var stats calculator.TransitStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, "madingley_road_in", stats.Zone)
	assert.Equal(t, 2, stats.Completions)

	status, _ = get(t, routes.Stores{Stats: fakeStats{err: errors.New("timeout")}}, "/zones/madingley_road_in/stats")
	assert.Equal(t, 500, status)

	status, _ = get(t, routes.Stores{}, "/zones/madingley_road_in/stats")
	assert.Equal(t, 503, status)
}

func TestUnknownRoute(t *testing.T) {
	status, _ := get(t, routes.Stores{}, "/nothing-here")
	assert.Equal(t, 404, status)
}
