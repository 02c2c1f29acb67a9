package feedmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/batcher"
	"github.com/travigo/zones/pkg/consumer"
	"github.com/travigo/zones/pkg/ctdf"
	"golang.org/x/net/html/charset"
)

const DefaultRetries = 3

type BatchPublisher interface {
	PublishBatch(ctx context.Context, batch *ctdf.PositionBatch) error
}

// QueuePublisher sends batches to the feed queue the zone tracker consumes
type QueuePublisher struct {
	queue rmq.Queue
}

func NewQueuePublisher(connection rmq.Connection) (*QueuePublisher, error) {
	queue, err := connection.OpenQueue(consumer.FeedQueueName)
	if err != nil {
		return nil, err
	}

	return &QueuePublisher{queue: queue}, nil
}

func (p *QueuePublisher) PublishBatch(_ context.Context, batch *ctdf.PositionBatch) error {
	batchBytes, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	return p.queue.PublishBytes(batchBytes)
}

// Poller fetches a feed on its interval and publishes every poll as one position batch.
// When ArchiveRoot is set each poll is also written under ArchiveRoot/YYYY/MM/DD so the
// batcher can replay it later.
type Poller struct {
	Config      FeedConfig
	Client      *http.Client
	Publisher   BatchPublisher
	ArchiveRoot string

	Retries         uint64
	InitialInterval time.Duration

	now func() time.Time
}

func NewPoller(config FeedConfig, publisher BatchPublisher) *Poller {
	return &Poller{
		Config:          config,
		Client:          &http.Client{Timeout: 30 * time.Second},
		Publisher:       publisher,
		Retries:         DefaultRetries,
		InitialInterval: 500 * time.Millisecond,
		now:             time.Now,
	}
}

// Run polls until ctx is cancelled. Failed polls are logged and the next tick tried.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Str("feed", p.Config.Identifier).Str("url", p.Config.URL).Str("interval", p.Config.Interval.String()).Msg("Starting feed poller")

	interval := p.Config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.PollAndPublish(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("feed", p.Config.Identifier).Msg("Feed poll failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Str("feed", p.Config.Identifier).Msg("Stopping feed poller")
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) PollAndPublish(ctx context.Context) error {
	batch, raw, err := p.Poll(ctx)
	if err != nil {
		return err
	}

	if p.ArchiveRoot != "" {
		if err := p.archive(batch, raw); err != nil {
			log.Error().Err(err).Str("feed", p.Config.Identifier).Msg("Failed to archive feed poll")
		}
	}

	log.Debug().Str("feed", p.Config.Identifier).Int("records", len(batch.Records)).Msg("Publishing feed batch")

	return p.Publisher.PublishBatch(ctx, batch)
}

// Poll fetches and parses the feed once. raw is the response body for GTFS-RT feeds.
func (p *Poller) Poll(ctx context.Context) (*ctdf.PositionBatch, []byte, error) {
	now := p.now
	if now == nil {
		now = time.Now
	}
	polledAt := now()

	body, err := p.fetch(ctx)
	if err != nil {
		return nil, nil, err
	}

	batch := &ctdf.PositionBatch{
		Source:   p.Config.Identifier,
		Filename: fmt.Sprintf("%d_%s", polledAt.Unix(), polledAt.UTC().Format("2006-01-02-15-04-05")),
		Filepath: polledAt.UTC().Format("2006/01/02"),
	}

	switch p.Config.Format {
	case FormatGTFSRealtime:
		records, err := batcher.DecodeGTFSRealtime(body)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding %s: %w", p.Config.Identifier, err)
		}
		batch.Records = records

		return batch, body, nil
	default:
		for _, record := range ParseArray(string(body), p.Config.Templates) {
			positionRecord, err := record.PositionRecord(polledAt.Unix())
			if err != nil {
				log.Debug().Err(err).Str("feed", p.Config.Identifier).Interface("record", record).Msg("Skipping feed record")
				continue
			}
			batch.Records = append(batch.Records, positionRecord)
		}

		return batch, nil, nil
	}
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Config.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "zones-feedmaker")
		for key, value := range p.Config.Headers {
			req.Header.Set(key, value)
		}

		resp, err := p.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("%s returned status %d", p.Config.URL, resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		var reader io.Reader = resp.Body
		if p.Config.Format == FormatText {
			reader, err = charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
			if err != nil {
				return backoff.Permanent(err)
			}
		}

		body, err = io.ReadAll(reader)
		return err
	}

	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = p.InitialInterval

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(retryBackoff, p.Retries), ctx),
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("feed", p.Config.Identifier).Str("retry_in", wait.String()).Msg("Feed fetch failed")
		})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// archive writes GTFS-RT polls as the raw protobuf and text polls as the parsed batch JSON
func (p *Poller) archive(batch *ctdf.PositionBatch, raw []byte) error {
	directory := filepath.Join(p.ArchiveRoot, batch.Filepath)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}

	if raw != nil {
		return os.WriteFile(filepath.Join(directory, batch.Filename+".bin"), raw, 0o644)
	}

	batchBytes, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(directory, batch.Filename+".json"), batchBytes, 0o644)
}
