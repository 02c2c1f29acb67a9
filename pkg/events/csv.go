package events

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/travigo/zones/pkg/ctdf"
	"github.com/travigo/zones/pkg/util"
)

// CompletionRow is one line of the completions CSV written by a batch run
type CompletionRow struct {
	Zone           string `csv:"zone"`
	Vehicle        string `csv:"vehicle_id"`
	Route          string `csv:"route_id"`
	FinishTime     string `csv:"finish_time"`
	FinishTS       int64  `csv:"finish_ts"`
	Duration       int64  `csv:"duration"`
	DurationTime   string `csv:"duration_time"`
	TimestampDelta int64  `csv:"ts_delta"`
}

// CSVSink collects completions and writes them to a single CSV file on Close.
// Other event types are ignored.
type CSVSink struct {
	Path string

	mutex sync.Mutex
	rows  []*CompletionRow
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

func (s *CSVSink) Publish(_ context.Context, event *ctdf.ZoneEvent) error {
	if event.Type != ctdf.ZoneEventTypeCompletion {
		return nil
	}

	// Durations of a day or more are still written, the engine has already logged them
	durationTime, _ := util.DurationToTimeString(event.TransitDuration())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rows = append(s.rows, &CompletionRow{
		Zone:           event.ZoneID,
		Vehicle:        event.VehicleID,
		Route:          event.RouteID,
		FinishTime:     util.TimestampToDateTimeString(event.Timestamp),
		FinishTS:       event.Timestamp,
		Duration:       event.TransitDuration(),
		DurationTime:   durationTime,
		TimestampDelta: event.TimestampDelta,
	})

	return nil
}

func (s *CSVSink) Close(context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return err
	}

	file, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.MarshalFile(&s.rows, file)
}
