package batcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/travigo/zones/pkg/consumer"
)

type Summary struct {
	RunID string

	Files   int
	Skipped int
	Records int

	// Timestamp of the last file processed
	LastTimestamp int64
}

// Batcher replays stored feed files through a handler, one file at a time in timestamp order
type Batcher struct {
	Files   *FileIterator
	Handler consumer.BatchHandler

	RunID string
}

func New(files *FileIterator, handler consumer.BatchHandler) *Batcher {
	return &Batcher{
		Files:   files,
		Handler: handler,
		RunID:   uuid.New().String(),
	}
}

// Run processes every file in the window, or stops early when ctx is cancelled.
// Unreadable files are logged and skipped.
func (b *Batcher) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: b.RunID}
	startTime := time.Now()

	log.Info().
		Str("run", b.RunID).
		Str("root", b.Files.Root).
		Int64("start_ts", b.Files.Start).
		Int64("finish_ts", b.Files.Finish).
		Msg("Starting batch run")

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		path, ok := b.Files.Next()
		if !ok {
			break
		}

		batch, err := DecodeFile(path)
		if err != nil {
			log.Error().Err(err).Str("run", b.RunID).Str("path", path).Msg("Skipping feed file")
			summary.Skipped++
			continue
		}

		b.Handler.HandleBatch(ctx, batch)

		summary.Files++
		summary.Records += len(batch.Records)
		if timestamp, err := FileTimestamp(path); err == nil {
			summary.LastTimestamp = timestamp
		}
	}

	log.Info().
		Str("run", b.RunID).
		Int("files", summary.Files).
		Int("skipped", summary.Skipped).
		Int("records", summary.Records).
		Str("time", time.Since(startTime).String()).
		Msg("Finished batch run")

	return summary, nil
}
