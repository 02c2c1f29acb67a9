package events

import (
	"context"
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/travigo/zones/pkg/ctdf"
)

const QueueName = "zones-events-queue"

// QueueSink pushes events onto the events queue for the events runner to persist
type QueueSink struct {
	queue rmq.Queue
}

func NewQueueSink(connection rmq.Connection) (*QueueSink, error) {
	queue, err := connection.OpenQueue(QueueName)
	if err != nil {
		return nil, err
	}

	return &QueueSink{queue: queue}, nil
}

func (s *QueueSink) Publish(_ context.Context, event *ctdf.ZoneEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.queue.PublishBytes(eventBytes)
}

func (s *QueueSink) Close(context.Context) error {
	return nil
}
