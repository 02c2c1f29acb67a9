package calculator

import (
	"context"

	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/util"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TransitStats summarises the stored events of one zone
type TransitStats struct {
	Zone   string         `json:"zone"`
	Events map[string]int `json:"events"`

	Completions     int     `json:"completions"`
	MeanDuration    float64 `json:"mean_duration"`
	MinDuration     int64   `json:"min_duration"`
	MaxDuration     int64   `json:"max_duration"`
	MeanDurationStr string  `json:"mean_duration_time,omitempty"`
}

func durationPipeline(zoneID string) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"module_id": zoneID, "msg_type": ctdf.ZoneEventTypeCompletion}}},
		bson.D{
			{Key: "$group",
				Value: bson.D{
					{Key: "_id", Value: "$module_id"},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
					{Key: "mean", Value: bson.D{{Key: "$avg", Value: "$duration"}}},
					{Key: "min", Value: bson.D{{Key: "$min", Value: "$duration"}}},
					{Key: "max", Value: bson.D{{Key: "$max", Value: "$duration"}}},
				},
			},
		},
	}
}

func GetTransitStats(ctx context.Context, collection aggregator, zoneID string) (*TransitStats, error) {
	eventCounts, err := CountAggregate(ctx, collection, bson.M{"module_id": zoneID}, "$msg_type")
	if err != nil {
		return nil, err
	}

	stats := &TransitStats{
		Zone:   zoneID,
		Events: eventCounts,
	}

	cursor, err := collection.Aggregate(ctx, durationPipeline(zoneID))
	if err != nil {
		return nil, err
	}

	var durations []struct {
		Count int     `bson:"count"`
		Mean  float64 `bson:"mean"`
		Min   int64   `bson:"min"`
		Max   int64   `bson:"max"`
	}
	if err := cursor.All(ctx, &durations); err != nil {
		return nil, err
	}

	if len(durations) > 0 {
		stats.Completions = durations[0].Count
		stats.MeanDuration = durations[0].Mean
		stats.MinDuration = durations[0].Min
		stats.MaxDuration = durations[0].Max
		stats.MeanDurationStr, _ = util.DurationToTimeString(int64(durations[0].Mean + 0.5))
	}

	return stats, nil
}

// TransitStatsFinder calculates stats from the zone_transits collection on request
type TransitStatsFinder struct {
	collection aggregator
}

func NewTransitStatsFinder(collection *mongo.Collection) *TransitStatsFinder {
	return &TransitStatsFinder{collection: collection}
}

func (f *TransitStatsFinder) Stats(ctx context.Context, zoneID string) (*TransitStats, error) {
	return GetTransitStats(ctx, f.collection, zoneID)
}
