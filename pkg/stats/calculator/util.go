package calculator

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type aggregator interface {
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

func countPipeline(match bson.M, aggregateKey string) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{
			{Key: "$group",
				Value: bson.D{
					{Key: "_id", Value: aggregateKey},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				},
			},
		},
	}
}

// CountAggregate counts the documents matching match grouped by aggregateKey, e.g. "$msg_type"
func CountAggregate(ctx context.Context, collection aggregator, match bson.M, aggregateKey string) (map[string]int, error) {
	cursor, err := collection.Aggregate(ctx, countPipeline(match, aggregateKey))
	if err != nil {
		return nil, err
	}

	var result []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}

	countMap := map[string]int{}
	for _, record := range result {
		countMap[record.ID] = record.Count
	}

	return countMap, nil
}
