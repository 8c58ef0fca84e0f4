package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/polly"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Gateway metrics
	RequestsTotal        metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	RefreshTotal         metric.Int64Counter
	RefreshFailuresTotal metric.Int64Counter
	RetriesTotal         metric.Int64Counter

	// Session metrics
	SessionTransitionsTotal metric.Int64Counter
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

	m.RequestsTotal, _ = meter.Int64Counter(
		"polly.gateway.requests.total",
		metric.WithDescription("Total number of requests sent to the backend"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"polly.gateway.request.duration",
		metric.WithDescription("Duration of backend requests"),
		metric.WithUnit("ms"),
	)

	m.RefreshTotal, _ = meter.Int64Counter(
		"polly.gateway.refresh.total",
		metric.WithDescription("Total number of access token refresh attempts"),
		metric.WithUnit("{refresh}"),
	)

	m.RefreshFailuresTotal, _ = meter.Int64Counter(
		"polly.gateway.refresh.failures.total",
		metric.WithDescription("Total number of failed access token refreshes"),
		metric.WithUnit("{error}"),
	)

	m.RetriesTotal, _ = meter.Int64Counter(
		"polly.gateway.retries.total",
		metric.WithDescription("Total number of requests retried after a refresh"),
		metric.WithUnit("{request}"),
	)

	m.SessionTransitionsTotal, _ = meter.Int64Counter(
		"polly.session.transitions.total",
		metric.WithDescription("Total number of session state transitions"),
		metric.WithUnit("{transition}"),
	)

	return m
}
