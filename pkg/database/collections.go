package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ZoneTransitsCollection = "zone_transits"

func createIndexes() {
	createZoneTransitsIndexes()
}

func createZoneTransitsIndexes() {
	zoneTransitsCollection := GetCollection(ZoneTransitsCollection)

	zoneVehicleIndexName := "ZoneVehicleTimestamp"
	_, err := zoneTransitsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "module_id", Value: 1},
				{Key: "ts", Value: -1},
			},
		},
		{
			Options: &options.IndexOptions{
				Name: &zoneVehicleIndexName,
			},
			Keys: bson.D{
				{Key: "module_id", Value: 1},
				{Key: "vehicle_id", Value: 1},
				{Key: "ts", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "msg_type", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
