package batcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/travigo/zones/pkg/ctdf"
	"google.golang.org/protobuf/proto"
)

const SourceGTFSRealtime = "gtfs-rt"
const SourceJSON = "json"

// DecodeFile reads a feed file into a position batch.
// JSON files hold a batch as written by the feed maker, anything else is read as a GTFS-RT FeedMessage.
func DecodeFile(path string) (*ctdf.PositionBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch *ctdf.PositionBatch

	if filepath.Ext(path) == ".json" {
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if batch == nil {
			batch = &ctdf.PositionBatch{}
		}
		if batch.Source == "" {
			batch.Source = SourceJSON
		}
	} else {
		records, err := DecodeGTFSRealtime(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}

		batch = &ctdf.PositionBatch{
			Source:  SourceGTFSRealtime,
			Records: records,
		}
	}

	batch.Filename = FileBasename(path)
	batch.Filepath = FileDatePath(path)

	return batch, nil
}

// DecodeGTFSRealtime turns the vehicle positions in a GTFS-RT FeedMessage into position records.
// Entities without a vehicle position are ignored.
func DecodeGTFSRealtime(data []byte) ([]ctdf.PositionRecord, error) {
	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, &feed); err != nil {
		return nil, err
	}

	headerTimestamp := int64(feed.GetHeader().GetTimestamp())

	var records []ctdf.PositionRecord

	for _, entity := range feed.GetEntity() {
		vehiclePosition := entity.GetVehicle()
		if vehiclePosition == nil || vehiclePosition.GetPosition() == nil {
			continue
		}

		vehicleID := vehiclePosition.GetVehicle().GetId()
		if vehicleID == "" {
			vehicleID = entity.GetId()
		}

		timestamp := int64(vehiclePosition.GetTimestamp())
		if timestamp == 0 {
			timestamp = headerTimestamp
		}

		records = append(records, ctdf.PositionRecord{
			VehicleID: vehicleID,
			RouteID:   vehiclePosition.GetTrip().GetRouteId(),
			Latitude:  float64(vehiclePosition.GetPosition().GetLatitude()),
			Longitude: float64(vehiclePosition.GetPosition().GetLongitude()),
			Timestamp: timestamp,
		})
	}

	return records, nil
}
