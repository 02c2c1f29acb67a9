package cli

import (
	"context"
	"time"

	"github.com/kr/pretty"
	"github.com/travigo/zones/pkg/database"
	"github.com/travigo/zones/pkg/stats/calculator"
	"github.com/travigo/zones/pkg/zone"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarises the stored zone transits",
		Subcommands: []*cli.Command{
			{
				Name:  "transits",
				Usage: "print event counts and completion durations for each zone",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "zones-dir",
						Value:   zone.DefaultConfigDirectory,
						EnvVars: []string{"ZONES_CONFIG_DIRECTORY"},
						Usage:   "directory of zone config files",
					},
					&cli.StringSliceFlag{
						Name:  "zone",
						Usage: "only summarise the named zones",
					},
				},
				Action: func(c *cli.Context) error {
					configs, err := zone.LoadConfigs(c.String("zones-dir"))
					if err != nil {
						return err
					}
					configs = zone.SelectConfigs(configs, c.StringSlice("zone"))

					if err := database.Connect(); err != nil {
						return err
					}

					ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
					defer cancel()
					defer database.Disconnect(context.Background())

					finder := calculator.NewTransitStatsFinder(database.GetCollection(database.ZoneTransitsCollection))

					for _, config := range configs {
						stats, err := finder.Stats(ctx, config.Identifier)
						if err != nil {
							return err
						}

						pretty.Println(stats)
					}

					return nil
				},
			},
		},
	}
}
