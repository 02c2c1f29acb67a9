package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type bulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// ZoneTransit is how an event is stored in the zone_transits collection
type ZoneTransit struct {
	PrimaryIdentifier string `bson:"primaryidentifier" json:"primaryidentifier"`

	ctdf.ZoneEvent `bson:",inline"`

	CreationDateTime time.Time `bson:"creationdatetime" json:"creationdatetime"`
}

// MongoSink upserts events into a collection.
// Events are keyed on their primary identifier so replaying a feed does not duplicate them.
// Nothing is buffered, an event has been written once Publish or PublishBatch returns nil.
type MongoSink struct {
	collection bulkWriter
}

func NewMongoSink(collection bulkWriter) *MongoSink {
	return &MongoSink{
		collection: collection,
	}
}

func (s *MongoSink) Publish(ctx context.Context, event *ctdf.ZoneEvent) error {
	return s.PublishBatch(ctx, []*ctdf.ZoneEvent{event})
}

// PublishBatch writes all the events in a single bulk write
func (s *MongoSink) PublishBatch(ctx context.Context, events []*ctdf.ZoneEvent) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now()
	operations := make([]mongo.WriteModel, 0, len(events))
	for _, event := range events {
		operations = append(operations, writeModel(event, now))
	}

	startTime := time.Now()
	if _, err := s.collection.BulkWrite(ctx, operations, &options.BulkWriteOptions{}); err != nil {
		return err
	}

	log.Info().Int("Length", len(operations)).Str("Time", time.Since(startTime).String()).Msg("Bulk write zone transits")

	return nil
}

func (s *MongoSink) Close(context.Context) error {
	return nil
}

func writeModel(event *ctdf.ZoneEvent, now time.Time) mongo.WriteModel {
	transit := ZoneTransit{
		PrimaryIdentifier: event.PrimaryIdentifier(),
		ZoneEvent:         *event,
		CreationDateTime:  now,
	}

	bsonRep, _ := bson.Marshal(bson.M{"$set": transit})
	updateModel := mongo.NewUpdateOneModel()
	updateModel.SetFilter(bson.M{"primaryidentifier": transit.PrimaryIdentifier})
	updateModel.SetUpdate(bsonRep)
	updateModel.SetUpsert(true)

	return updateModel
}

const DefaultTransitLimit = 100

// TransitFinder reads stored events back out of the zone_transits collection
type TransitFinder struct {
	collection *mongo.Collection
}

func NewTransitFinder(collection *mongo.Collection) *TransitFinder {
	return &TransitFinder{collection: collection}
}

// Recent returns the latest events for a zone, newest first.
// An empty eventType returns every type.
func (f *TransitFinder) Recent(ctx context.Context, zoneID string, eventType ctdf.ZoneEventType, limit int64) ([]*ZoneTransit, error) {
	if limit <= 0 {
		limit = DefaultTransitLimit
	}

	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: -1}}).SetLimit(limit)

	cursor, err := f.collection.Find(ctx, transitFilter(zoneID, eventType), opts)
	if err != nil {
		return nil, err
	}

	transits := []*ZoneTransit{}
	if err := cursor.All(ctx, &transits); err != nil {
		return nil, err
	}

	return transits, nil
}

func transitFilter(zoneID string, eventType ctdf.ZoneEventType) bson.M {
	filter := bson.M{"module_id": zoneID}
	if eventType != "" {
		filter["msg_type"] = eventType
	}

	return filter
}
