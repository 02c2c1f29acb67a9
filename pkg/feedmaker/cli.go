package feedmaker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/redis_client"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slices"
)

func RegisterCLI() *cli.Command {
	feedsDirFlag := &cli.StringFlag{
		Name:    "feeds-dir",
		Value:   DefaultConfigDirectory,
		EnvVars: []string{"ZONES_FEEDS_DIRECTORY"},
		Usage:   "directory of feed config files",
	}

	return &cli.Command{
		Name:  "feedmaker",
		Usage: "Polls position feeds onto the feed queue",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "poll every configured feed until stopped",
				Flags: []cli.Flag{
					feedsDirFlag,
					&cli.StringSliceFlag{
						Name:  "feed",
						Usage: "only poll the named feeds",
					},
					&cli.StringFlag{
						Name:    "archive",
						EnvVars: []string{"ZONES_FEEDS_ARCHIVE"},
						Usage:   "also write every poll under this directory for later replay",
					},
				},
				Action: func(c *cli.Context) error {
					configs, err := loadSelected(c.String("feeds-dir"), c.StringSlice("feed"))
					if err != nil {
						return err
					}

					if err := redis_client.Connect(); err != nil {
						return err
					}

					publisher, err := NewQueuePublisher(redis_client.QueueConnection)
					if err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					var wg conc.WaitGroup
					for _, config := range configs {
						poller := NewPoller(config, publisher)
						poller.ArchiveRoot = c.String("archive")

						wg.Go(func() {
							if err := poller.Run(ctx); err != nil {
								log.Error().Err(err).Str("feed", poller.Config.Identifier).Msg("Feed poller stopped")
							}
						})
					}
					wg.Wait()

					return nil
				},
			},
			{
				Name:      "test",
				Usage:     "poll a feed once and print the batch it produces",
				ArgsUsage: "<feed>",
				Flags:     []cli.Flag{feedsDirFlag},
				Action: func(c *cli.Context) error {
					configs, err := loadSelected(c.String("feeds-dir"), []string{c.Args().First()})
					if err != nil {
						return err
					}

					poller := NewPoller(configs[0], printPublisher{})
					return poller.PollAndPublish(c.Context)
				},
			},
		},
	}
}

func loadSelected(directory string, identifiers []string) ([]FeedConfig, error) {
	configs, err := LoadConfigs(directory)
	if err != nil {
		return nil, err
	}

	if len(identifiers) > 0 {
		configs = slices.DeleteFunc(configs, func(config FeedConfig) bool {
			return !slices.Contains(identifiers, config.Identifier)
		})
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("no feeds configured in %s", directory)
	}

	return configs, nil
}

type printPublisher struct{}

func (printPublisher) PublishBatch(_ context.Context, batch *ctdf.PositionBatch) error {
	pretty.Println(batch)
	return nil
}
