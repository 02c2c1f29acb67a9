package events

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/ctdf"
)

// Sink receives zone events. Zones run in parallel so Publish must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, event *ctdf.ZoneEvent) error
	Close(ctx context.Context) error
}

// BatchSink is a Sink that can store a whole queue batch in one write
type BatchSink interface {
	Sink
	PublishBatch(ctx context.Context, events []*ctdf.ZoneEvent) error
}

// PublishBatch hands events to sink as one batch when it supports that, otherwise one at a time.
// A nil error means every event was stored.
func PublishBatch(ctx context.Context, sink Sink, events []*ctdf.ZoneEvent) error {
	if batchSink, ok := sink.(BatchSink); ok {
		return batchSink.PublishBatch(ctx, events)
	}

	var errs []error
	for _, event := range events {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// MultiSink publishes every event to each of its sinks, a failing sink does not stop the others
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, event *ctdf.ZoneEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m MultiSink) PublishBatch(ctx context.Context, events []*ctdf.ZoneEvent) error {
	var errs []error
	for _, sink := range m {
		if err := PublishBatch(ctx, sink, events); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m MultiSink) Close(ctx context.Context) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// LogSink writes each event to the log
type LogSink struct{}

func (LogSink) Publish(_ context.Context, event *ctdf.ZoneEvent) error {
	logEvent := log.Info().
		Str("zone", event.ZoneID).
		Str("type", string(event.Type)).
		Str("vehicle", event.VehicleID).
		Str("route", event.RouteID).
		Int64("ts", event.Timestamp).
		Int64("ts_delta", event.TimestampDelta)
	if event.Duration != nil {
		logEvent = logEvent.Int64("duration", *event.Duration)
	}
	logEvent.Msg("Zone event")

	return nil
}

func (LogSink) Close(context.Context) error {
	return nil
}
