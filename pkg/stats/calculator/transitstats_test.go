package calculator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeAggregator answers each Aggregate call with the next set of documents
type fakeAggregator struct {
	results   [][]interface{}
	pipelines []interface{}
	err       error
}

func (f *fakeAggregator) Aggregate(_ context.Context, pipeline interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.pipelines = append(f.pipelines, pipeline)

	documents := f.results[0]
	f.results = f.results[1:]

	return mongo.NewCursorFromDocuments(documents, nil, nil)
}

func TestCountAggregate(t *testing.T) {
	collection := &fakeAggregator{
		results: [][]interface{}{
			{
				bson.M{"_id": "zone_start", "count": int32(4)},
				bson.M{"_id": "zone_completion", "count": int32(3)},
			},
		},
	}

	counts, err := CountAggregate(context.Background(), collection, bson.M{"module_id": "madingley_road_in"}, "$msg_type")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"zone_start": 4, "zone_completion": 3}, counts)
	assert.Equal(t, countPipeline(bson.M{"module_id": "madingley_road_in"}, "$msg_type"), collection.pipelines[0])
}

func TestGetTransitStats(t *testing.T) {
	collection := &fakeAggregator{
		results: [][]interface{}{
			{
				bson.M{"_id": "zone_start", "count": int32(4)},
				bson.M{"_id": "zone_completion", "count": int32(3)},
				bson.M{"_id": "zone_exit", "count": int32(1)},
			},
			{
				bson.M{"_id": "madingley_road_in", "count": int32(3), "mean": 600.5, "min": int64(420), "max": int64(900)},
			},
		},
	}

	stats, err := GetTransitStats(context.Background(), collection, "madingley_road_in")
	require.NoError(t, err)

	assert.Equal(t, &TransitStats{
		Zone:            "madingley_road_in",
		Events:          map[string]int{"zone_start": 4, "zone_completion": 3, "zone_exit": 1},
		Completions:     3,
		MeanDuration:    600.5,
		MinDuration:     420,
		MaxDuration:     900,
		MeanDurationStr: "00:10:01",
	}, stats)
	assert.Equal(t, durationPipeline("madingley_road_in"), collection.pipelines[1])
}

func TestGetTransitStatsNoCompletions(t *testing.T) {
	collection := &fakeAggregator{results: [][]interface{}{{}, {}}}

	stats, err := GetTransitStats(context.Background(), collection, "empty")
	require.NoError(t, err)

	assert.Equal(t, &TransitStats{Zone: "empty", Events: map[string]int{}}, stats)
}

func TestGetTransitStatsError(t *testing.T) {
	_, err := GetTransitStats(context.Background(), &fakeAggregator{err: errors.New("no reachable servers")}, "madingley_road_in")
	assert.Error(t, err)
}
