package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/zones/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

const queueConnectionTag = "zones"

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["ZONES_REDIS_ADDRESS"] != "" {
		address = env["ZONES_REDIS_ADDRESS"]
	}

	if env["ZONES_REDIS_PASSWORD"] != "" {
		password = env["ZONES_REDIS_PASSWORD"]
	}

	if env["ZONES_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["ZONES_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	return ConnectWithOptions(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})
}

// ConnectWithOptions sets up the global client and queue connection against an explicit server,
// tests point this at a miniredis instance
func ConnectWithOptions(options *redis.Options) error {
	Client = redis.NewClient(options)

	statusCmd := Client.Ping(context.Background())
	err := statusCmd.Err()
	if err != nil {
		return err
	}

	QueueConnection, err = rmq.OpenConnectionWithRedisClient(queueConnectionTag, Client, nil)

	if err != nil {
		return err
	}

	return nil
}
