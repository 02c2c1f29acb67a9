package batcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/zones/pkg/ctdf"
	"google.golang.org/protobuf/proto"
)

func gtfsFeed(t *testing.T, headerTimestamp uint64, entities ...*gtfs.FeedEntity) []byte {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(headerTimestamp),
		},
		Entity: entities,
	}

	data, err := proto.Marshal(feed)
	require.NoError(t, err)

	return data
}

func vehicleEntity(id string, vehicleID string, routeID string, latitude float32, longitude float32, timestamp uint64) *gtfs.FeedEntity {
	vehiclePosition := &gtfs.VehiclePosition{
		Position: &gtfs.Position{
			Latitude:  proto.Float32(latitude),
			Longitude: proto.Float32(longitude),
		},
	}
	if vehicleID != "" {
		vehiclePosition.Vehicle = &gtfs.VehicleDescriptor{Id: proto.String(vehicleID)}
	}
	if routeID != "" {
		vehiclePosition.Trip = &gtfs.TripDescriptor{RouteId: proto.String(routeID)}
	}
	if timestamp != 0 {
		vehiclePosition.Timestamp = proto.Uint64(timestamp)
	}

	return &gtfs.FeedEntity{
		Id:      proto.String(id),
		Vehicle: vehiclePosition,
	}
}

func writeFile(t *testing.T, root string, datePath string, name string, data []byte) string {
	directory := filepath.Join(root, filepath.FromSlash(datePath))
	require.NoError(t, os.MkdirAll(directory, 0755))

	path := filepath.Join(directory, name)
	require.NoError(t, os.WriteFile(path, data, 0644))

	return path
}

func TestFileNameHelpers(t *testing.T) {
	path := filepath.Join("data", "bin", "2016", "03", "07", "1457334014_2016-03-07-07-00-14.bin")

	timestamp, err := FileTimestamp(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1457334014), timestamp)

	assert.Equal(t, "1457334014_2016-03-07-07-00-14", FileBasename(path))
	assert.Equal(t, "2016/03/07", FileDatePath(path))
	assert.Equal(t, "", FileDatePath("file.bin"))

	_, err = FileTimestamp("README.md")
	assert.ErrorIs(t, err, ErrNoTimestamp)
	_, err = FileTimestamp("latest_2016-03-07.bin")
	assert.ErrorIs(t, err, ErrNoTimestamp)
}

func TestFileIterator(t *testing.T) {
	root := t.TempDir()

	// 2016-03-07 00:00:00 UTC is 1457308800
	writeFile(t, root, "2016/03/07", "1457334014_2016-03-07-07-00-14.bin", nil)
	writeFile(t, root, "2016/03/07", "1457308800_2016-03-07-00-00-00.bin", nil)
	writeFile(t, root, "2016/03/07", "1457334044_2016-03-07-07-00-44.bin", nil)
	writeFile(t, root, "2016/03/07", "notes.txt", nil)
	writeFile(t, root, "2016/03/08", "1457395200_2016-03-08-00-00-00.bin", nil)
	writeFile(t, root, "2016/03/08", "1457400000_2016-03-08-01-20-00.bin", nil)
	// Nothing for the 9th
	writeFile(t, root, "2016/03/10", "1457568000_2016-03-10-00-00-00.bin", nil)
	writeFile(t, root, "2016/03/10", "1457600000_2016-03-10-08-53-20.bin", nil)

	iterator := NewFileIterator(root, 1457334014, 1457600000, time.UTC)

	var names []string
	for path, ok := iterator.Next(); ok; path, ok = iterator.Next() {
		names = append(names, filepath.Base(path))
	}

	assert.Equal(t, []string{
		"1457334014_2016-03-07-07-00-14.bin",
		"1457334044_2016-03-07-07-00-44.bin",
		"1457395200_2016-03-08-00-00-00.bin",
		"1457400000_2016-03-08-01-20-00.bin",
		"1457568000_2016-03-10-00-00-00.bin",
	}, names)

	_, ok := iterator.Next()
	assert.False(t, ok)

	iterator.Reset()
	first, ok := iterator.Next()
	require.True(t, ok)
	assert.Equal(t, "1457334014_2016-03-07-07-00-14.bin", filepath.Base(first))
}

func TestFileIteratorLocalDays(t *testing.T) {
	root := t.TempDir()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2016-03-07 23:30 UTC is already the 8th in Tokyo
	writeFile(t, root, "2016/03/08", "1457393400_2016-03-08-08-30-00.bin", nil)

	iterator := NewFileIterator(root, 1457391600, 1457395200, tokyo)
	path, ok := iterator.Next()
	require.True(t, ok)
	assert.Equal(t, "2016/03/08", FileDatePath(path))

	assert.Equal(t, filepath.Join(root, "2016", "03", "08"), iterator.DayDirectory(time.Unix(1457393400, 0)))
}

func TestFileIteratorEmptyWindow(t *testing.T) {
	iterator := NewFileIterator(t.TempDir(), 1457334014, 1457334014, nil)

	_, ok := iterator.Next()
	assert.False(t, ok)
}

func TestDecodeGTFSRealtime(t *testing.T) {
	data := gtfsFeed(t, 1457334014,
		vehicleEntity("1", "bus-1", "U", 52.2, 0.12, 1457334010),
		vehicleEntity("entity-2", "", "", 52.21, 0.13, 0),
		&gtfs.FeedEntity{Id: proto.String("alert"), Alert: &gtfs.Alert{}},
	)

	records, err := DecodeGTFSRealtime(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "bus-1", records[0].VehicleID)
	assert.Equal(t, "U", records[0].RouteID)
	assert.InDelta(t, 52.2, records[0].Latitude, 1e-5)
	assert.InDelta(t, 0.12, records[0].Longitude, 1e-5)
	assert.Equal(t, int64(1457334010), records[0].Timestamp)

	assert.Equal(t, "entity-2", records[1].VehicleID)
	assert.Equal(t, "", records[1].RouteID)
	assert.Equal(t, int64(1457334014), records[1].Timestamp)

	_, err = DecodeGTFSRealtime([]byte("not a protobuf"))
	assert.Error(t, err)
}

func TestDecodeFile(t *testing.T) {
	root := t.TempDir()

	binPath := writeFile(t, root, "2016/03/07", "1457334014_2016-03-07-07-00-14.bin",
		gtfsFeed(t, 1457334014, vehicleEntity("1", "bus-1", "U", 52.2, 0.12, 1457334010)))

	batch, err := DecodeFile(binPath)
	require.NoError(t, err)
	assert.Equal(t, SourceGTFSRealtime, batch.Source)
	assert.Equal(t, "1457334014_2016-03-07-07-00-14", batch.Filename)
	assert.Equal(t, "2016/03/07", batch.Filepath)
	assert.Len(t, batch.Records, 1)

	jsonPath := writeFile(t, root, "2016/03/07", "1457334020_2016-03-07-07-00-20.json",
		[]byte(`{"entities":[{"vehicle_id":"bus-2","route_id":"4","lat":52.1,"lng":0.1,"ts":1457334019}]}`))

	batch, err = DecodeFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, SourceJSON, batch.Source)
	assert.Equal(t, []ctdf.PositionRecord{{VehicleID: "bus-2", RouteID: "4", Latitude: 52.1, Longitude: 0.1, Timestamp: 1457334019}}, batch.Records)

	_, err = DecodeFile(filepath.Join(root, "missing.bin"))
	assert.Error(t, err)
}

type recordingHandler struct {
	mutex   sync.Mutex
	batches []*ctdf.PositionBatch
}

func (h *recordingHandler) HandleBatch(_ context.Context, batch *ctdf.PositionBatch) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.batches = append(h.batches, batch)
}

func TestBatcherRun(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "2016/03/07", "1457334014_2016-03-07-07-00-14.bin",
		gtfsFeed(t, 1457334014, vehicleEntity("1", "bus-1", "U", 52.2, 0.12, 1457334010)))
	writeFile(t, root, "2016/03/07", "1457334044_2016-03-07-07-00-44.bin", []byte("corrupt"))
	writeFile(t, root, "2016/03/07", "1457334074_2016-03-07-07-01-14.bin",
		gtfsFeed(t, 1457334074,
			vehicleEntity("1", "bus-1", "U", 52.21, 0.12, 1457334070),
			vehicleEntity("2", "bus-2", "U", 52.22, 0.12, 1457334071),
		))

	handler := &recordingHandler{}
	batcher := New(NewFileIterator(root, 1457308800, 1457395200, time.UTC), handler)
	assert.NotEmpty(t, batcher.RunID)

	summary, err := batcher.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Files)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, int64(1457334074), summary.LastTimestamp)

	require.Len(t, handler.batches, 2)
	assert.Equal(t, "1457334014_2016-03-07-07-00-14", handler.batches[0].Filename)
	assert.Equal(t, "1457334074_2016-03-07-07-01-14", handler.batches[1].Filename)
}

func TestBatcherRunCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2016/03/07", "1457334014_2016-03-07-07-00-14.bin", gtfsFeed(t, 1457334014))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := &recordingHandler{}
	_, err := New(NewFileIterator(root, 1457308800, 1457395200, time.UTC), handler).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, handler.batches)
}

func TestParseTimestamp(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	timestamp, err := ParseTimestamp("1457334014", london)
	require.NoError(t, err)
	assert.Equal(t, int64(1457334014), timestamp)

	timestamp, err = ParseTimestamp("2016-03-07", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1457308800), timestamp)

	// British Summer Time
	timestamp, err = ParseTimestamp("2016-07-01", london)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 6, 30, 23, 0, 0, 0, time.UTC).Unix(), timestamp)

	timestamp, err = ParseTimestamp("2016-03-07T07:00:14Z", london)
	require.NoError(t, err)
	assert.Equal(t, int64(1457334014), timestamp)

	_, err = ParseTimestamp("yesterday", time.UTC)
	assert.Error(t, err)
}
