package feedmaker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/zones/pkg/ctdf"
	"gopkg.in/yaml.v3"
)

const carParkPage = `<h2><a href="/grafton-east-car-park">Grafton East car park</a></h2><p><strong>384 spaces</strong> (51% full and filling)</p>
<h2><a href="/grafton-west-car-park">Grafton West car park</a></h2><p><strong>98 spaces</strong> (65% full and filling)</p>`

const carParkTemplates = `
- tag_start: grafton-east-car-park
  fields:
    - {name: parking_id, type: fixed_string, string: grafton-east-car-park}
    - {name: spaces_capacity, type: fixed_int, int: 780}
    - {name: spaces_free, type: int, start: "<strong>", end: " spaces"}
    - {name: spaces_occupied, type: calc_minus, left: spaces_capacity, right: spaces_free}
- tag_start: park-street-car-park
  fields:
    - {name: parking_id, type: fixed_string, string: park-street-car-park}
- tag_start: grafton-west-car-park
  fields:
    - {name: parking_id, type: fixed_string, string: grafton-west-car-park}
    - {name: spaces_capacity, type: fixed_int, int: 280}
    - {name: spaces_free, type: int, start: "<strong>", end: " spaces"}
    - {name: spaces_occupied, type: calc_minus, left: spaces_capacity, right: spaces_free}
    - {name: spaces_total, type: calc_plus, left: spaces_free, right: spaces_occupied}
`

func TestParseArrayCarParks(t *testing.T) {
	var templates []FeedTemplate
	require.NoError(t, yaml.Unmarshal([]byte(carParkTemplates), &templates))
	require.Len(t, templates, 3)

	records := ParseArray(carParkPage, templates)

	assert.Equal(t, []Record{
		{
			"parking_id":      "grafton-east-car-park",
			"spaces_capacity": int64(780),
			"spaces_free":     int64(384),
			"spaces_occupied": int64(396),
		},
		{
			"parking_id":      "grafton-west-car-park",
			"spaces_capacity": int64(280),
			"spaces_free":     int64(98),
			"spaces_occupied": int64(182),
			"spaces_total":    int64(280),
		},
	}, records)
}

func TestParseArraySkipsFields(t *testing.T) {
	page := `<div id="bus-1">route <b>this route name is far far too long to be a real field value</b> speed <i>fast</i> count <c>12</c> code <d>` +
		strings.Repeat("a", MaxFieldLength) + `</d>`

	templates := []FeedTemplate{
		{
			TagStart: `<div id="bus-1">`,
			Fields: []FieldTemplate{
				{Name: "route", Extractor: DelimitedString{Start: "<b>", End: "</b>"}},
				{Name: "speed", Extractor: DelimitedInt{Start: "<i>", End: "</i>"}},
				{Name: "missing_start", Extractor: DelimitedString{Start: "<x>", End: "</x>"}},
				{Name: "missing_end", Extractor: DelimitedString{Start: "count ", End: "</zzz>"}},
				{Name: "count", Extractor: DelimitedInt{Start: "<c>", End: "</c>"}},
				{Name: "code", Extractor: DelimitedString{Start: "<d>", End: "</d>"}},
				{Name: "total", Extractor: Calc{Op: CalcPlus, Left: "count", Right: "speed"}},
				{Name: "double", Extractor: Calc{Op: CalcPlus, Left: "count", Right: "count"}},
				{Name: "not_int", Extractor: Calc{Op: CalcMinus, Left: "count", Right: "code"}},
			},
		},
		{
			TagStart: "not-on-the-page",
			Fields:   []FieldTemplate{{Name: "fixed", Extractor: FixedInt{Value: 1}}},
		},
	}

	records := ParseArray(page, templates)

	require.Len(t, records, 1)
	assert.Equal(t, Record{
		"count":  int64(12),
		"code":   strings.Repeat("a", MaxFieldLength),
		"double": int64(24),
	}, records[0])
}

func TestParseArraySearchesFromRecordStart(t *testing.T) {
	page := `<b>before</b> TAG <b>after</b>`

	records := ParseArray(page, []FeedTemplate{
		{TagStart: "TAG", Fields: []FieldTemplate{{Name: "value", Extractor: DelimitedString{Start: "<b>", End: "</b>"}}}},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "after", records[0]["value"])
}

const vehiclePage = `<v id="A1" lat="52.2" lng="0.12" ts="1457334014"/>
<v id="B2" lat="52.3" lng="0.13"/>`

func vehicleTemplate(repeat bool) FeedTemplate {
	return FeedTemplate{
		TagStart: "<v ",
		Repeat:   repeat,
		Fields: []FieldTemplate{
			{Name: "vehicle_id", Extractor: DelimitedString{Start: `id="`, End: `"`}},
			{Name: "lat", Extractor: DelimitedFloat{Start: `lat="`, End: `"`}},
			{Name: "lng", Extractor: DelimitedFloat{Start: `lng="`, End: `"`}},
			{Name: "ts", Extractor: DelimitedInt{Start: `ts="`, End: `"`}},
		},
	}
}

func TestParseArrayRepeat(t *testing.T) {
	records := ParseArray(vehiclePage, []FeedTemplate{vehicleTemplate(true)})

	assert.Equal(t, []Record{
		{"vehicle_id": "A1", "lat": 52.2, "lng": 0.12, "ts": int64(1457334014)},
		{"vehicle_id": "B2", "lat": 52.3, "lng": 0.13},
	}, records)

	assert.Len(t, ParseArray(vehiclePage, []FeedTemplate{vehicleTemplate(false)}), 1)
}

func TestRecordPositionRecord(t *testing.T) {
	records := ParseArray(vehiclePage, []FeedTemplate{vehicleTemplate(true)})
	require.Len(t, records, 2)

	first, err := records[0].PositionRecord(1000)
	require.NoError(t, err)
	assert.Equal(t, ctdf.PositionRecord{VehicleID: "A1", Latitude: 52.2, Longitude: 0.12, Timestamp: 1457334014}, first)

	second, err := records[1].PositionRecord(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), second.Timestamp)

	numeric, err := Record{"vehicle_id": int64(42), "route_id": "U", "lat": int64(52), "lng": 0.1}.PositionRecord(5)
	require.NoError(t, err)
	assert.Equal(t, ctdf.PositionRecord{VehicleID: "42", RouteID: "U", Latitude: 52, Longitude: 0.1, Timestamp: 5}, numeric)

	_, err = Record{"vehicle_id": "A1", "lng": 0.1}.PositionRecord(5)
	assert.ErrorIs(t, err, ErrIncompleteRecord)

	_, err = Record{"lat": 52.2, "lng": 0.1}.PositionRecord(5)
	assert.ErrorIs(t, err, ErrIncompleteRecord)

	_, err = Record{"vehicle_id": "A1", "lat": 95.0, "lng": 0.1}.PositionRecord(5)
	assert.ErrorIs(t, err, ctdf.ErrInvalidCoordinates)
}

func TestFieldTemplateYAML(t *testing.T) {
	var fields []FieldTemplate
	require.NoError(t, yaml.Unmarshal([]byte(`
- {name: a, type: fixed_int, int: 7}
- {name: b, type: fixed_string, string: x}
- {name: c, type: int, start: "<", end: ">"}
- {name: d, type: float, start: "<", end: ">"}
- {name: e, type: string, start: "<", end: ">"}
- {name: f, type: calc_plus, left: a, right: c}
- {name: g, type: calc_minus, left: a, right: c}
`), &fields))

	assert.Equal(t, []FieldTemplate{
		{Name: "a", Extractor: FixedInt{Value: 7}},
		{Name: "b", Extractor: FixedString{Value: "x"}},
		{Name: "c", Extractor: DelimitedInt{Start: "<", End: ">"}},
		{Name: "d", Extractor: DelimitedFloat{Start: "<", End: ">"}},
		{Name: "e", Extractor: DelimitedString{Start: "<", End: ">"}},
		{Name: "f", Extractor: Calc{Op: CalcPlus, Left: "a", Right: "c"}},
		{Name: "g", Extractor: Calc{Op: CalcMinus, Left: "a", Right: "c"}},
	}, fields)

	for name, source := range map[string]string{
		"unknown type":    `[{name: a, type: bool}]`,
		"missing end":     `[{name: a, type: int, start: "<"}]`,
		"missing operand": `[{name: a, type: calc_plus, left: b}]`,
		"missing name":    `[{type: fixed_int, int: 1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			var fields []FieldTemplate
			assert.Error(t, yaml.Unmarshal([]byte(source), &fields))
		})
	}
}
