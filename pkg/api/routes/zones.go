package routes

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/events"
	"github.com/travigo/zones/pkg/stats/calculator"
	"github.com/travigo/zones/pkg/zone"
)

const maxTransitLimit = 1000

type TransitFinder interface {
	Recent(ctx context.Context, zoneID string, eventType ctdf.ZoneEventType, limit int64) ([]*events.ZoneTransit, error)
}

type LatestFinder interface {
	Latest(ctx context.Context, zoneID string, vehicleID string) (*ctdf.ZoneEvent, error)
}

type StatsFinder interface {
	Stats(ctx context.Context, zoneID string) (*calculator.TransitStats, error)
}

// Stores are the backends behind the zone routes, any of them may be nil when its
// database is not configured
type Stores struct {
	Transits TransitFinder
	Latest   LatestFinder
	Stats    StatsFinder
}

// ZoneResponse is a configured zone as returned by the API
type ZoneResponse struct {
	Identifier  string          `json:"identifier"`
	Name        string          `json:"name"`
	FinishIndex int             `json:"finish_index"`
	Timezone    string          `json:"timezone"`
	Box         zone.Box        `json:"box"`
	Path        []ctdf.Position `json:"path,omitempty"`
}

type zonesHandler struct {
	zones  []ZoneResponse
	stores Stores
}

// ZonesRouter serves the configured zones and their stored events
func ZonesRouter(router fiber.Router, configs []zone.Config, stores Stores) {
	handler := &zonesHandler{
		stores: stores,
	}

	for _, config := range configs {
		handler.zones = append(handler.zones, ZoneResponse{
			Identifier:  config.Identifier,
			Name:        config.Name,
			FinishIndex: config.FinishIndex,
			Timezone:    config.Timezone,
			Box:         zone.NewBox(config.Path),
			Path:        config.Path,
		})
	}

	router.Get("/", handler.listZones)
	router.Get("/:identifier", handler.getZone)
	router.Get("/:identifier/transits", handler.getZoneTransits)
	router.Get("/:identifier/latest/:vehicle", handler.getLatestEvent)
	router.Get("/:identifier/stats", handler.getZoneStats)
}

func (h *zonesHandler) listZones(c *fiber.Ctx) error {
	bounds, err := getBoundsQuery(c.Query("bounds"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	zones := []ZoneResponse{}
	for _, zoneResponse := range h.zones {
		if bounds != nil && !overlaps(zoneResponse.Box, *bounds) {
			continue
		}

		zoneResponse.Path = nil
		zones = append(zones, zoneResponse)
	}

	return c.JSON(zones)
}

func (h *zonesHandler) findZone(c *fiber.Ctx) (*ZoneResponse, error) {
	identifier := c.Params("identifier")

	for i := range h.zones {
		if h.zones[i].Identifier == identifier {
			return &h.zones[i], nil
		}
	}

	c.SendStatus(fiber.StatusNotFound)
	return nil, c.JSON(fiber.Map{
		"error": "Could not find Zone matching Zone Identifier",
	})
}

func (h *zonesHandler) getZone(c *fiber.Ctx) error {
	zoneResponse, err := h.findZone(c)
	if zoneResponse == nil {
		return err
	}

	return c.JSON(zoneResponse)
}

func (h *zonesHandler) getZoneTransits(c *fiber.Ctx) error {
	zoneResponse, err := h.findZone(c)
	if zoneResponse == nil {
		return err
	}

	if h.stores.Transits == nil {
		c.SendStatus(fiber.StatusServiceUnavailable)
		return c.JSON(fiber.Map{
			"error": "Transit store is not configured",
		})
	}

	limit := int64(events.DefaultTransitLimit)
	if limitQuery := c.Query("limit"); limitQuery != "" {
		limit, err = strconv.ParseInt(limitQuery, 10, 64)
		if err != nil || limit < 1 || limit > maxTransitLimit {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "limit must be between 1 and 1000",
			})
		}
	}

	eventType := ctdf.ZoneEventType(c.Query("type", string(ctdf.ZoneEventTypeCompletion)))
	if eventType == "all" {
		eventType = ""
	}

	transits, err := h.stores.Transits.Recent(c.UserContext(), zoneResponse.Identifier, eventType, limit)
	if err != nil {
		log.Error().Err(err).Str("zone", zoneResponse.Identifier).Msg("Failed to find zone transits")

		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to find zone transits",
		})
	}

	return c.JSON(transits)
}

func (h *zonesHandler) getLatestEvent(c *fiber.Ctx) error {
	zoneResponse, err := h.findZone(c)
	if zoneResponse == nil {
		return err
	}

	if h.stores.Latest == nil {
		c.SendStatus(fiber.StatusServiceUnavailable)
		return c.JSON(fiber.Map{
			"error": "Event cache is not configured",
		})
	}

	event, err := h.stores.Latest.Latest(c.UserContext(), zoneResponse.Identifier, c.Params("vehicle"))
	if errors.Is(err, events.ErrNoLatestEvent) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No event recorded for vehicle in zone",
		})
	} else if err != nil {
		log.Error().Err(err).Str("zone", zoneResponse.Identifier).Msg("Failed to read latest zone event")

		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to read latest zone event",
		})
	}

	return c.JSON(event)
}

func (h *zonesHandler) getZoneStats(c *fiber.Ctx) error {
	zoneResponse, err := h.findZone(c)
	if zoneResponse == nil {
		return err
	}

	if h.stores.Stats == nil {
		c.SendStatus(fiber.StatusServiceUnavailable)
		return c.JSON(fiber.Map{
			"error": "Transit store is not configured",
		})
	}

	stats, err := h.stores.Stats.Stats(c.UserContext(), zoneResponse.Identifier)
	if err != nil {
		log.Error().Err(err).Str("zone", zoneResponse.Identifier).Msg("Failed to calculate zone stats")

		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to calculate zone stats",
		})
	}

	return c.JSON(stats)
}
