package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/authgate/authgate"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Decision metrics
	DecisionsTotal metric.Int64Counter
	DenialsTotal   metric.Int64Counter

	// Resolution metrics
	ResolveTotal         metric.Int64Counter
	ResolveFailuresTotal metric.Int64Counter

	// Audit metrics
	AuditEventsRecorded metric.Int64Counter
	AuditEventsDropped  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.DecisionsTotal, _ = meter.Int64Counter(
		"authgate.decisions.total",
		metric.WithDescription("Total number of guard evaluations"),
		metric.WithUnit("{decision}"),
	)

	m.DenialsTotal, _ = meter.Int64Counter(
		"authgate.decisions.denials.total",
		metric.WithDescription("Total number of denied guard evaluations"),
		metric.WithUnit("{decision}"),
	)

	m.ResolveTotal, _ = meter.Int64Counter(
		"authgate.resolve.total",
		metric.WithDescription("Total number of principal resolution attempts"),
		metric.WithUnit("{request}"),
	)

	m.ResolveFailuresTotal, _ = meter.Int64Counter(
		"authgate.resolve.failures.total",
		metric.WithDescription("Total number of failed principal resolutions"),
		metric.WithUnit("{request}"),
	)

	m.AuditEventsRecorded, _ = meter.Int64Counter(
		"authgate.audit.recorded.total",
		metric.WithDescription("Total number of audit events recorded"),
		metric.WithUnit("{event}"),
	)

	m.AuditEventsDropped, _ = meter.Int64Counter(
		"authgate.audit.dropped.total",
		metric.WithDescription("Total number of audit events dropped"),
		metric.WithUnit("{event}"),
	)

	return m
}
