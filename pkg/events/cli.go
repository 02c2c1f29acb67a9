package events

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/consumer"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/database"
	"github.com/travigo/zones/pkg/elastic_client"
	"github.com/travigo/zones/pkg/redis_client"
	"github.com/travigo/zones/pkg/stats"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Stores zone events from the events queue",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run events server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "consumers",
						Value: 1,
						Usage: "number of queue consumers, more than one lets the latest event cache see events out of order",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Value: 200,
						Usage: "deliveries per consumer batch, each batch is one bulk write",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}

					sinks := MultiSink{
						NewMongoSink(database.GetCollection(database.ZoneTransitsCollection)),
						NewCacheSink(redis_client.Client, defaultCacheExpiration),
					}
					if elastic_client.Connected() {
						sinks = append(sinks, NewElasticSink())
					}

					collector, err := stats.NewCollector(prometheus.DefaultRegisterer)
					if err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       QueueName,
						NumberConsumers: c.Int("consumers"),
						BatchSize:       c.Int("batch-size"),
						Timeout:         2 * time.Second,
						Consumer:        NewBatchConsumer(sinks),
						Metrics:         collector.Handler(),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()

					if err := sinks.Close(ctx); err != nil {
						log.Error().Err(err).Msg("Failed to flush zone events")
					}

					return database.Disconnect(ctx)
				},
			},
			{
				Name:      "test-event",
				Usage:     "publish a test zone event",
				ArgsUsage: "<zone> <vehicle>",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					sink, err := NewQueueSink(redis_client.QueueConnection)
					if err != nil {
						return err
					}

					duration := int64(600)
					event := &ctdf.ZoneEvent{
						ModuleName:     ctdf.ZoneEventModuleName,
						ZoneID:         c.Args().Get(0),
						Type:           ctdf.ZoneEventTypeCompletion,
						VehicleID:      c.Args().Get(1),
						RouteID:        "TEST",
						Timestamp:      time.Now().Unix(),
						TimestampDelta: 30,
						Duration:       &duration,
					}

					return sink.Publish(c.Context, event)
				},
			},
		},
	}
}
