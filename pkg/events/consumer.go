package events

import (
	"context"
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
)

// BatchConsumer takes zone events off the events queue and hands them to a sink.
// Each queue batch is stored in one go and only acked once the sink has accepted all of it.
type BatchConsumer struct {
	Sink Sink
}

func NewBatchConsumer(sink Sink) *BatchConsumer {
	return &BatchConsumer{Sink: sink}
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	ctx := context.Background()

	var events []*ctdf.ZoneEvent
	var eventDeliveries rmq.Deliveries

	for _, delivery := range batch {
		var event *ctdf.ZoneEvent
		if err := json.Unmarshal([]byte(delivery.Payload()), &event); err != nil || event == nil {
			log.Error().Err(err).Str("payload", delivery.Payload()).Msg("Failed to decode zone event")

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject zone event")
			}
			continue
		}

		events = append(events, event)
		eventDeliveries = append(eventDeliveries, delivery)
	}

	if len(events) == 0 {
		return
	}

	if err := PublishBatch(ctx, consumer.Sink, events); err != nil {
		log.Error().Err(err).Int("events", len(events)).Msg("Failed to store zone events")

		if errs := eventDeliveries.Reject(); len(errs) > 0 {
			log.Error().Int("failed", len(errs)).Msg("Failed to reject zone events")
		}
		return
	}

	if errs := eventDeliveries.Ack(); len(errs) > 0 {
		log.Error().Int("failed", len(errs)).Msg("Failed to ack zone events")
	}
}
