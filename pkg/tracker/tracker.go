package tracker

import (
	"github.com/adjust/rmq/v5"
	"github.com/travigo/zones/pkg/consumer"
	"github.com/travigo/zones/pkg/events"
	"github.com/travigo/zones/pkg/stats"
	"github.com/travigo/zones/pkg/zone"
)

// Tracker runs the configured zones against the live feed queue and publishes their events
// to the events queue
type Tracker struct {
	Manager  *zone.Manager
	Sinks    events.MultiSink
	Consumer *consumer.FeedBatchConsumer
}

func New(configs []zone.Config, connection rmq.Connection, collector *stats.Collector) (*Tracker, error) {
	queueSink, err := events.NewQueueSink(connection)
	if err != nil {
		return nil, err
	}

	sinks := events.MultiSink{events.LogSink{}, queueSink}

	manager, err := zone.NewManager(configs, sinks, collector)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		Manager:  manager,
		Sinks:    sinks,
		Consumer: consumer.NewFeedBatchConsumer(manager),
	}, nil
}

// ZoneSummary is what inspect prints for each zone
type ZoneSummary struct {
	Identifier  string
	Name        string
	Vertices    int
	FinishIndex int
	Timezone    string
	Box         zone.Box
}

func Summarise(configs []zone.Config) []ZoneSummary {
	summaries := make([]ZoneSummary, 0, len(configs))

	for _, config := range configs {
		summaries = append(summaries, ZoneSummary{
			Identifier:  config.Identifier,
			Name:        config.Name,
			Vertices:    len(config.Path),
			FinishIndex: config.FinishIndex,
			Timezone:    config.Timezone,
			Box:         zone.NewBox(config.Path),
		})
	}

	return summaries
}
