package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/zones/pkg/ctdf"
)

const defaultCacheExpiration = 24 * time.Hour

var ErrNoLatestEvent = errors.New("no event cached for vehicle")

// CacheSink keeps the latest event for every zone and vehicle pair in redis
type CacheSink struct {
	Cache *cache.Cache[string]
}

func NewCacheSink(client *redis.Client, expiration time.Duration) *CacheSink {
	if expiration == 0 {
		expiration = defaultCacheExpiration
	}

	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &CacheSink{
		Cache: cache.New[string](redisStore),
	}
}

func LatestEventKey(zoneID string, vehicleID string) string {
	return fmt.Sprintf("zone_event:%s:%s", zoneID, vehicleID)
}

// Publish replaces the cached event unless the cached one is newer
func (s *CacheSink) Publish(ctx context.Context, event *ctdf.ZoneEvent) error {
	cached, err := s.Latest(ctx, event.ZoneID, event.VehicleID)
	if err != nil && !errors.Is(err, ErrNoLatestEvent) {
		return err
	}
	if cached != nil && cached.Timestamp > event.Timestamp {
		return nil
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.Cache.Set(ctx, LatestEventKey(event.ZoneID, event.VehicleID), string(eventJSON))
}

// Latest returns the most recent event for the vehicle in the zone
func (s *CacheSink) Latest(ctx context.Context, zoneID string, vehicleID string) (*ctdf.ZoneEvent, error) {
	cachedEvent, err := s.Cache.Get(ctx, LatestEventKey(zoneID, vehicleID))
	var notFound *store.NotFound
	if errors.As(err, &notFound) {
		return nil, ErrNoLatestEvent
	} else if err != nil {
		return nil, err
	}

	var event *ctdf.ZoneEvent
	if err := json.Unmarshal([]byte(cachedEvent), &event); err != nil {
		return nil, err
	}

	return event, nil
}

func (s *CacheSink) Close(context.Context) error {
	return nil
}
