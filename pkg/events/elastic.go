package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/elastic_client"
)

// ZoneElasticEvent is the document indexed for each zone event
type ZoneElasticEvent struct {
	Timestamp time.Time

	Zone    string
	Type    string
	Vehicle string
	Route   string

	TimestampDelta int64
	Duration       *int64 `json:",omitempty"`
}

// ElasticSink indexes events into weekly indexes named after the week the event happened in
type ElasticSink struct {
	index func(indexName string, document io.ReadSeeker)
}

func NewElasticSink() *ElasticSink {
	return &ElasticSink{index: elastic_client.IndexRequest}
}

func (s *ElasticSink) Publish(_ context.Context, event *ctdf.ZoneEvent) error {
	elasticEvent, err := json.Marshal(newZoneElasticEvent(event))
	if err != nil {
		return err
	}

	s.index(indexName(event), bytes.NewReader(elasticEvent))

	return nil
}

func (s *ElasticSink) Close(context.Context) error {
	elastic_client.WaitUntilQueueEmpty()
	return nil
}

func newZoneElasticEvent(event *ctdf.ZoneEvent) ZoneElasticEvent {
	return ZoneElasticEvent{
		Timestamp:      time.Unix(event.Timestamp, 0).UTC(),
		Zone:           event.ZoneID,
		Type:           string(event.Type),
		Vehicle:        event.VehicleID,
		Route:          event.RouteID,
		TimestampDelta: event.TimestampDelta,
		Duration:       event.Duration,
	}
}

func indexName(event *ctdf.ZoneEvent) string {
	yearNumber, weekNumber := time.Unix(event.Timestamp, 0).UTC().ISOWeek()
	return fmt.Sprintf("zone-events-%d-%d", yearNumber, weekNumber)
}
