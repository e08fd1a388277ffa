package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/storefront"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// API gateway metrics
	HTTPRequestsTotal     metric.Int64Counter
	HTTPUnauthorizedTotal metric.Int64Counter

	// Client state metrics
	CartMutationsTotal      metric.Int64Counter
	SessionTransitionsTotal metric.Int64Counter
	CheckoutTotal           metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments created before InitTelemetry are no-ops until a provider is installed.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.HTTPRequestsTotal, _ = meter.Int64Counter(
		"storefront.http.requests.total",
		metric.WithDescription("Total number of API requests sent"),
		metric.WithUnit("{request}"),
	)

	m.HTTPUnauthorizedTotal, _ = meter.Int64Counter(
		"storefront.http.unauthorized.total",
		metric.WithDescription("Total number of API responses rejected as unauthenticated"),
		metric.WithUnit("{response}"),
	)

	m.CartMutationsTotal, _ = meter.Int64Counter(
		"storefront.cart.mutations.total",
		metric.WithDescription("Total number of cart mutations"),
		metric.WithUnit("{mutation}"),
	)

	m.SessionTransitionsTotal, _ = meter.Int64Counter(
		"storefront.session.transitions.total",
		metric.WithDescription("Total number of session state transitions"),
		metric.WithUnit("{transition}"),
	)

	m.CheckoutTotal, _ = meter.Int64Counter(
		"storefront.checkout.total",
		metric.WithDescription("Total number of checkout attempts"),
		metric.WithUnit("{checkout}"),
	)

	return m
}
