package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/api"
	"github.com/travigo/zones/pkg/batcher"
	"github.com/travigo/zones/pkg/events"
	"github.com/travigo/zones/pkg/feedmaker"
	statscli "github.com/travigo/zones/pkg/stats/cli"
	"github.com/travigo/zones/pkg/tracker"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("ZONES_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("ZONES_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "zones",
		Description: "Times vehicles through polygon zones from live and archived position feeds",

		Commands: []*cli.Command{
			tracker.RegisterCLI(),
			feedmaker.RegisterCLI(),
			batcher.RegisterCLI(),
			events.RegisterCLI(),
			api.RegisterCLI(),
			statscli.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
