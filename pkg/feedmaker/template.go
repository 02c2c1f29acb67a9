package feedmaker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
)

var ErrIncompleteRecord = errors.New("record is missing position fields")

// FeedTemplate locates one record on a page. Fields are searched for after the first
// occurrence of TagStart, or after every occurrence when Repeat is set.
type FeedTemplate struct {
	TagStart string          `yaml:"tag_start"`
	Repeat   bool            `yaml:"repeat"`
	Fields   []FieldTemplate `yaml:"fields"`
}

// Record holds the values extracted by one template match, int64, float64 or string
type Record map[string]any

// ParseArray applies every template to the page in order. Templates whose start tag is not on the
// page produce nothing, fields that cannot be found are left out of their record.
func ParseArray(page string, templates []FeedTemplate) []Record {
	var records []Record

	for _, template := range templates {
		if template.TagStart == "" {
			continue
		}

		offset := 0
		for {
			index := strings.Index(page[offset:], template.TagStart)
			if index < 0 {
				break
			}
			recordStart := offset + index

			record := Record{}
			for _, field := range template.Fields {
				if value, ok := field.Extractor.extract(page, recordStart, record); ok {
					record[field.Name] = value
				}
			}

			log.Debug().Str("tag", template.TagStart).Interface("record", record).Msg("Parsed feed record")
			records = append(records, record)

			if !template.Repeat {
				break
			}
			offset = recordStart + len(template.TagStart)
		}
	}

	return records
}

// PositionRecord reads the vehicle_id, route_id, lat, lng and ts fields.
// Records without a ts use fallbackTimestamp.
func (r Record) PositionRecord(fallbackTimestamp int64) (ctdf.PositionRecord, error) {
	vehicleID, ok := r.stringField("vehicle_id")
	if !ok {
		return ctdf.PositionRecord{}, fmt.Errorf("%w: vehicle_id", ErrIncompleteRecord)
	}
	latitude, ok := r.floatField("lat")
	if !ok {
		return ctdf.PositionRecord{}, fmt.Errorf("%w: lat", ErrIncompleteRecord)
	}
	longitude, ok := r.floatField("lng")
	if !ok {
		return ctdf.PositionRecord{}, fmt.Errorf("%w: lng", ErrIncompleteRecord)
	}

	routeID, _ := r.stringField("route_id")

	timestamp := fallbackTimestamp
	if value, ok := r["ts"].(int64); ok {
		timestamp = value
	}

	record := ctdf.PositionRecord{
		VehicleID: vehicleID,
		RouteID:   routeID,
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: timestamp,
	}

	return record, record.Valid()
}

func (r Record) stringField(key string) (string, bool) {
	switch value := r[key].(type) {
	case string:
		return value, value != ""
	case int64:
		return strconv.FormatInt(value, 10), true
	default:
		return "", false
	}
}

func (r Record) floatField(key string) (float64, bool) {
	switch value := r[key].(type) {
	case float64:
		return value, true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}
