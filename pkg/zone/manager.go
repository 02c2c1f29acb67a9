package zone

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/stats"
	"github.com/travigo/zones/pkg/util"
)

// Manager broadcasts every batch to all of its zones.
// Zones share no state so each batch is processed by all of them in parallel, but HandleBatch
// only returns once every zone has finished with it.
type Manager struct {
	Zones []*Zone

	collector *stats.Collector
}

func NewManager(configs []Config, publisher Publisher, collector *stats.Collector) (*Manager, error) {
	manager := &Manager{
		collector: collector,
	}

	for _, config := range configs {
		zone, err := New(config, publisher, collector)
		if err != nil {
			return nil, err
		}

		manager.Zones = append(manager.Zones, zone)
	}

	return manager, nil
}

// Zone returns the zone with the given identifier, or nil
func (m *Manager) Zone(identifier string) *Zone {
	for _, zone := range m.Zones {
		if zone.Identifier() == identifier {
			return zone
		}
	}

	return nil
}

func (m *Manager) HandleBatch(ctx context.Context, batch *ctdf.PositionBatch) {
	m.collector.RecordBatch(batch.Source)

	validRecords := util.Filter(batch.Records, func(record ctdf.PositionRecord) bool {
		if err := record.Valid(); err != nil {
			log.Error().Err(err).
				Str("vehicle", record.VehicleID).
				Str("filepath", batch.Filepath).
				Msg("Skipping position record")
			m.collector.RecordSkipped("invalid")

			return false
		}

		return true
	})

	var wg conc.WaitGroup
	for _, zone := range m.Zones {
		zone := zone
		wg.Go(func() {
			zone.handleRecords(ctx, validRecords)
		})
	}
	wg.Wait()
}
