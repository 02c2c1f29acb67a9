package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/zones/pkg/api/routes"
	"github.com/travigo/zones/pkg/zone"
)

func NewApp(configs []zone.Config, stores routes.Stores) *fiber.App {
	webApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	webApp.Use(NewLogger())

	webApp.Get("/version", routes.APIVersion)

	routes.ZonesRouter(webApp.Group("/zones"), configs, stores)

	return webApp
}

func SetupServer(listen string, configs []zone.Config, stores routes.Stores) error {
	return NewApp(configs, stores).Listen(listen)
}
