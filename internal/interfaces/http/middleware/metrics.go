// Package middleware provides HTTP middleware for the delivery integration service.
package middleware

import (
	"context"
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// MeterProvider is the OpenTelemetry meter provider.
	MeterProvider *telemetry.MeterProvider
	// ServiceName is the name of the service for metric identification.
	ServiceName string
	// Enabled controls whether metrics collection is active.
	Enabled bool
}

var (
	requestSizeBuckets  = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}
	responseSizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000}
)

// httpMetrics holds all HTTP-related metrics instruments.
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

// newHTTPMetrics creates all HTTP metrics instruments from a meter.
func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	var err error
	histogram := func(name, desc string, boundaries []float64) *telemetry.Histogram {
		if err != nil {
			return nil
		}
		var h *telemetry.Histogram
		h, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name:        name,
			Description: desc,
			Unit:        "By",
			Boundaries:  boundaries,
		})
		return h
	}

	requestTotal, err := telemetry.NewCounter(
		meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m := &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestSize:     histogram("http_server_request_size_bytes", "HTTP request body size distribution in bytes", requestSizeBuckets),
		responseSize:    histogram("http_server_response_size_bytes", "HTTP response body size distribution in bytes", responseSizeBuckets),
	}
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// HTTPMetrics returns a Gin middleware that collects HTTP server metrics:
// request count, latency, request/response body sizes, and in-flight
// requests. Webhook routes additionally get a provider label.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	enabled := cfg.Enabled && cfg.MeterProvider != nil && cfg.MeterProvider.IsEnabled()
	if !enabled {
		return noopMiddleware
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter returns HTTP metrics middleware using an existing meter.
// This is useful for testing or when you want to provide a custom meter.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return noopMiddleware
	}

	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		// A broken instrument must not take request handling down with it.
		return noopMiddleware
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := c.Request.ContentLength

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		metrics.record(ctx, c, time.Since(start), requestSize)
	}
}

func noopMiddleware(c *gin.Context) {
	c.Next()
}

// routePattern returns the matched route pattern (e.g.
// "/api/v1/webhooks/:provider") rather than the raw path, keeping label
// cardinality bounded.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// record emits all instruments for a finished request. The request counter
// carries status code and provider; duration and size histograms carry only
// method and route to keep their label sets small.
func (m *httpMetrics) record(ctx context.Context, c *gin.Context, duration time.Duration, requestSize int64) {
	method := c.Request.Method
	route := routePattern(c)

	requestAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
		telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
	}
	// Provider is a route parameter with a small fixed value set, so it is
	// safe to use as a label.
	if provider := c.Param("provider"); provider != "" {
		requestAttrs = append(requestAttrs, telemetry.AttrProvider.String(provider))
	}
	m.requestTotal.Inc(ctx, requestAttrs...)

	baseAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
	}
	m.requestDuration.RecordDuration(ctx, duration, baseAttrs...)

	if requestSize > 0 {
		m.requestSize.Record(ctx, float64(requestSize), baseAttrs...)
	}
	// Size returns -1 when nothing was written.
	if responseSize := c.Writer.Size(); responseSize > 0 {
		m.responseSize.Record(ctx, float64(responseSize), baseAttrs...)
	}
}
