package tracker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/travigo/zones/pkg/consumer"
	"github.com/travigo/zones/pkg/redis_client"
	"github.com/travigo/zones/pkg/stats"
	"github.com/travigo/zones/pkg/zone"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	zonesDirFlag := &cli.StringFlag{
		Name:    "zones-dir",
		Value:   zone.DefaultConfigDirectory,
		EnvVars: []string{"ZONES_CONFIG_DIRECTORY"},
		Usage:   "directory of zone config files",
	}
	zoneFlag := &cli.StringSliceFlag{
		Name:  "zone",
		Usage: "only run the named zones",
	}

	return &cli.Command{
		Name:  "zone-tracker",
		Usage: "Tracks live vehicle positions through the configured zones",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the zones against the live feed queue",
				Flags: []cli.Flag{
					zonesDirFlag,
					zoneFlag,
					&cli.IntFlag{
						Name:  "batch-size",
						Value: 10,
						Usage: "deliveries per consumer batch",
					},
					&cli.StringFlag{
						Name:    "stats-address",
						Value:   ":3333",
						EnvVars: []string{"ZONES_STATS_ADDRESS"},
						Usage:   "listen address of the stats and metrics server",
					},
				},
				Action: func(c *cli.Context) error {
					configs, err := loadSelected(c.String("zones-dir"), c.StringSlice("zone"))
					if err != nil {
						return err
					}

					if err := redis_client.Connect(); err != nil {
						return err
					}

					collector, err := stats.NewCollector(prometheus.DefaultRegisterer)
					if err != nil {
						return err
					}

					tracker, err := New(configs, redis_client.QueueConnection, collector)
					if err != nil {
						return err
					}

					// A single consumer keeps every zone seeing batches in feed order
					redisConsumer := consumer.RedisConsumer{
						QueueName:       consumer.FeedQueueName,
						NumberConsumers: 1,
						BatchSize:       c.Int("batch-size"),
						Timeout:         time.Second,
						Consumer:        tracker.Consumer,
						Metrics:         collector.Handler(),
						StatsAddress:    c.String("stats-address"),
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

					return tracker.Sinks.Close(context.Background())
				},
			},
			{
				Name:  "inspect",
				Usage: "print the configured zones and their bounding boxes",
				Flags: []cli.Flag{zonesDirFlag, zoneFlag},
				Action: func(c *cli.Context) error {
					configs, err := loadSelected(c.String("zones-dir"), c.StringSlice("zone"))
					if err != nil {
						return err
					}

					for _, summary := range Summarise(configs) {
						pretty.Println(summary)
					}

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "return deliveries held by dead consumers to their queues",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Value: 5 * time.Minute,
						Usage: "time between cleans",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					consumer.StartCleaner(ctx, redis_client.QueueConnection, c.Duration("interval"))

					return nil
				},
			},
		},
	}
}

func loadSelected(directory string, identifiers []string) ([]zone.Config, error) {
	configs, err := zone.LoadConfigs(directory)
	if err != nil {
		return nil, err
	}

	configs = zone.SelectConfigs(configs, identifiers)
	if len(configs) == 0 {
		return nil, fmt.Errorf("no zones configured in %s", directory)
	}

	return configs, nil
}
