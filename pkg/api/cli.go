package api

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/api/routes"
	"github.com/travigo/zones/pkg/database"
	"github.com/travigo/zones/pkg/events"
	"github.com/travigo/zones/pkg/redis_client"
	"github.com/travigo/zones/pkg/stats/calculator"
	"github.com/travigo/zones/pkg/util"
	"github.com/travigo/zones/pkg/zone"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the zones web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:    "zones-dir",
						Value:   zone.DefaultConfigDirectory,
						EnvVars: []string{"ZONES_CONFIG_DIRECTORY"},
						Usage:   "directory of zone config files",
					},
				},
				Action: func(c *cli.Context) error {
					configs, err := zone.LoadConfigs(c.String("zones-dir"))
					if err != nil {
						return err
					}

					env := util.GetEnvironmentVariables()

					stores := routes.Stores{}

					if env["ZONES_MONGODB_CONNECTION"] != "" {
						if err := database.Connect(); err != nil {
							return err
						}

						transitsCollection := database.GetCollection(database.ZoneTransitsCollection)
						stores.Transits = events.NewTransitFinder(transitsCollection)
						stores.Stats = calculator.NewTransitStatsFinder(transitsCollection)
					} else {
						log.Info().Msg("Skipping MongoDB setup, transits will be unavailable")
					}

					if env["ZONES_REDIS_ADDRESS"] != "" {
						if err := redis_client.Connect(); err != nil {
							return err
						}
						stores.Latest = events.NewCacheSink(redis_client.Client, 0)
					} else {
						log.Info().Msg("Skipping Redis setup, latest events will be unavailable")
					}

					log.Info().Str("listen", c.String("listen")).Int("zones", len(configs)).Msg("Starting web API")

					return SetupServer(c.String("listen"), configs, stores)
				},
			},
		},
	}
}
