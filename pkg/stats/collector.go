package stats

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for zone processing.
// A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Events          *prometheus.CounterVec
	Records         *prometheus.CounterVec
	SkippedRecords  *prometheus.CounterVec
	Vehicles        *prometheus.GaugeVec
	TransitDuration *prometheus.HistogramVec
	Batches         *prometheus.CounterVec
}

// NewCollector registers the zone metrics against reg, or the default registry when reg is nil.
// Registering twice against the same registry returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_events_total",
		Help: "Zone events emitted, labeled by zone and event type.",
	}, []string{"zone", "type"}), "zone_events_total")
	if err != nil {
		return nil, err
	}

	records, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_records_total",
		Help: "Position records processed by each zone.",
	}, []string{"zone"}), "zone_records_total")
	if err != nil {
		return nil, err
	}

	skipped, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_records_skipped_total",
		Help: "Position records dropped before reaching a zone, labeled by reason.",
	}, []string{"reason"}), "zone_records_skipped_total")
	if err != nil {
		return nil, err
	}

	vehicles, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zone_vehicles",
		Help: "Vehicles currently tracked by each zone.",
	}, []string{"zone"}), "zone_vehicles")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zone_transit_duration_seconds",
		Help:    "Duration of completed zone transits in seconds.",
		Buckets: []float64{30, 60, 120, 300, 600, 900, 1200, 1800, 2700, 3600, 7200},
	}, []string{"zone"}), "zone_transit_duration_seconds")
	if err != nil {
		return nil, err
	}

	batches, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_batches_total",
		Help: "Position batches handled, labeled by source.",
	}, []string{"source"}), "zone_batches_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Events:          events,
		Records:         records,
		SkippedRecords:  skipped,
		Vehicles:        vehicles,
		TransitDuration: duration,
		Batches:         batches,
	}, nil
}

// Handler exposes the metrics for a /metrics endpoint
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) RecordEvent(zone string, eventType string) {
	if c == nil {
		return
	}
	c.Events.WithLabelValues(zone, eventType).Inc()
}

func (c *Collector) RecordPosition(zone string) {
	if c == nil {
		return
	}
	c.Records.WithLabelValues(zone).Inc()
}

func (c *Collector) RecordSkipped(reason string) {
	if c == nil {
		return
	}
	c.SkippedRecords.WithLabelValues(reason).Inc()
}

func (c *Collector) SetVehicles(zone string, count int) {
	if c == nil {
		return
	}
	c.Vehicles.WithLabelValues(zone).Set(float64(count))
}

func (c *Collector) ObserveTransit(zone string, seconds int64) {
	if c == nil {
		return
	}
	c.TransitDuration.WithLabelValues(zone).Observe(float64(seconds))
}

func (c *Collector) RecordBatch(source string) {
	if c == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	c.Batches.WithLabelValues(source).Inc()
}

// register returns the collector already registered under name when there is one of the same type
func register[T prometheus.Collector](reg prometheus.Registerer, vec T, name string) (T, error) {
	err := reg.Register(vec)
	if err == nil {
		return vec, nil
	}

	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return vec, err
	}

	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return vec, fmt.Errorf("collector %s already registered with incompatible type", name)
	}
	return existing, nil
}
