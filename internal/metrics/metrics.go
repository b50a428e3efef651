// Package metrics counts decoded and merged glider rows with Prometheus
// collectors. A Collector implements dbd.Observer.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"glider-ng/internal/dbd"
)

const namespace = "glider"

// Collector holds the run counters. Each Collector owns its own registry so
// batch runs and tests do not share state.
type Collector struct {
	registry *prometheus.Registry

	RowsRead        *prometheus.CounterVec
	Readings        *prometheus.CounterVec
	ReadingsSkipped *prometheus.CounterVec
	MergedRows      *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	Exported        prometheus.Counter
}

var _ dbd.Observer = (*Collector)(nil)

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		RowsRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_read_total",
				Help:      "Data rows decoded per stream",
			},
			[]string{"stream"},
		),
		Readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_total",
				Help:      "Readings stored per stream",
			},
			[]string{"stream"},
		),
		ReadingsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_skipped_total",
				Help:      "NaN tokens skipped per stream",
			},
			[]string{"stream"},
		),
		MergedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "merge",
				Name:      "rows_total",
				Help:      "Rows emitted by the merger, by contributing stream",
			},
			[]string{"origin"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Decode errors per stream and kind",
			},
			[]string{"stream", "kind"},
		),
		Exported: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "export",
				Name:      "rows_total",
				Help:      "Rows written by the exporter",
			},
		),
	}

	c.registry.MustRegister(
		c.RowsRead,
		c.Readings,
		c.ReadingsSkipped,
		c.MergedRows,
		c.Errors,
		c.Exported,
	)
	return c
}

// Registry exposes the collectors, e.g. for promhttp or tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveRow(stream string, readings, skipped int) {
	c.RowsRead.WithLabelValues(stream).Inc()
	c.Readings.WithLabelValues(stream).Add(float64(readings))
	c.ReadingsSkipped.WithLabelValues(stream).Add(float64(skipped))
}

func (c *Collector) ObserveMerge(origin dbd.Origin) {
	c.MergedRows.WithLabelValues(origin.String()).Inc()
}

func (c *Collector) ObserveError(stream string, err error) {
	c.Errors.WithLabelValues(stream, dbd.ErrorKind(err)).Inc()
}

// WriteTextfile writes the current values in the text exposition format,
// for pickup by a node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
