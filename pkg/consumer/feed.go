package consumer

import (
	"context"
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
)

const FeedQueueName = "zones-feed-queue"

// BatchHandler processes one position batch to completion
type BatchHandler interface {
	HandleBatch(ctx context.Context, batch *ctdf.PositionBatch)
}

// FeedBatchConsumer decodes position batches off the feed queue and hands them, in delivery
// order, to a handler. Run it with a single consumer so zones see batches one at a time.
type FeedBatchConsumer struct {
	Handler BatchHandler
}

func NewFeedBatchConsumer(handler BatchHandler) *FeedBatchConsumer {
	return &FeedBatchConsumer{Handler: handler}
}

func (consumer *FeedBatchConsumer) Consume(batch rmq.Deliveries) {
	ctx := context.Background()

	for _, delivery := range batch {
		var positionBatch *ctdf.PositionBatch
		if err := json.Unmarshal([]byte(delivery.Payload()), &positionBatch); err != nil || positionBatch == nil {
			log.Error().Err(err).Msg("Failed to decode position batch")

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject position batch")
			}
			continue
		}

		consumer.Handler.HandleBatch(ctx, positionBatch)

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack position batch")
		}
	}
}
