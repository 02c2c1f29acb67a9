package batcher

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/events"
	"github.com/travigo/zones/pkg/redis_client"
	"github.com/travigo/zones/pkg/stats"
	"github.com/travigo/zones/pkg/zone"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "batcher",
		Usage: "Replays stored feed files through the zones",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the zones over a window of stored feed files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "root",
						Usage:    "directory holding the YYYY/MM/DD feed file directories",
						EnvVars:  []string{"ZONES_BATCHER_ROOT"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "start",
						Usage:    "first timestamp to include, as epoch seconds, YYYY-MM-DD or RFC3339",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "finish",
						Usage:    "timestamp to stop before, as epoch seconds, YYYY-MM-DD or RFC3339",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "timezone",
						Value: "UTC",
						Usage: "timezone the day directories are named in",
					},
					&cli.StringFlag{
						Name:    "zones-dir",
						Value:   zone.DefaultConfigDirectory,
						EnvVars: []string{"ZONES_CONFIG_DIRECTORY"},
						Usage:   "directory of zone config files",
					},
					&cli.StringSliceFlag{
						Name:  "zone",
						Usage: "only run the named zones",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "write completions to this CSV file",
					},
					&cli.BoolFlag{
						Name:  "publish",
						Usage: "also publish events to the events queue",
					},
				},
				Action: func(c *cli.Context) error {
					location, err := time.LoadLocation(c.String("timezone"))
					if err != nil {
						return fmt.Errorf("timezone: %w", err)
					}

					start, err := ParseTimestamp(c.String("start"), location)
					if err != nil {
						return fmt.Errorf("start: %w", err)
					}
					finish, err := ParseTimestamp(c.String("finish"), location)
					if err != nil {
						return fmt.Errorf("finish: %w", err)
					}
					if finish <= start {
						return fmt.Errorf("finish %d must be after start %d", finish, start)
					}

					configs, err := zone.LoadConfigs(c.String("zones-dir"))
					if err != nil {
						return err
					}
					configs = zone.SelectConfigs(configs, c.StringSlice("zone"))
					if len(configs) == 0 {
						return fmt.Errorf("no zones configured in %s", c.String("zones-dir"))
					}

					sinks := events.MultiSink{}
					if c.String("output") != "" {
						sinks = append(sinks, events.NewCSVSink(c.String("output")))
					}
					if c.Bool("publish") {
						if err := redis_client.Connect(); err != nil {
							return err
						}

						queueSink, err := events.NewQueueSink(redis_client.QueueConnection)
						if err != nil {
							return err
						}
						sinks = append(sinks, queueSink)
					}

					collector, err := stats.NewCollector(prometheus.NewRegistry())
					if err != nil {
						return err
					}

					manager, err := zone.NewManager(configs, sinks, collector)
					if err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					root, _ := filepath.Abs(c.String("root"))
					batcher := New(NewFileIterator(root, start, finish, location), manager)

					summary, runErr := batcher.Run(ctx)

					if err := sinks.Close(context.Background()); err != nil {
						log.Error().Err(err).Msg("Failed to close event sinks")
					}

					if runErr != nil {
						return runErr
					}

					log.Info().
						Str("run", summary.RunID).
						Int("files", summary.Files).
						Int("records", summary.Records).
						Int64("last_ts", summary.LastTimestamp).
						Msg("Batch complete")

					return nil
				},
			},
		},
	}
}

// ParseTimestamp accepts epoch seconds, a YYYY-MM-DD date (midnight in location) or an RFC3339 time
func ParseTimestamp(value string, location *time.Location) (int64, error) {
	if timestamp, err := strconv.ParseInt(value, 10, 64); err == nil {
		return timestamp, nil
	}

	if date, err := time.ParseInLocation("2006-01-02", value, location); err == nil {
		return date.Unix(), nil
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a timestamp", value)
	}

	return parsed.Unix(), nil
}
