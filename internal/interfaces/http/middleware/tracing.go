// Package middleware provides HTTP middleware for the delivery integration service.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Constants for trace attribute validation.
const (
	// MaxRequestIDLength is the maximum length for request IDs to prevent DoS via large headers.
	MaxRequestIDLength = 128
	// MaxResourceIDLength is the maximum length for resource IDs taken from the path.
	MaxResourceIDLength = 64
)

// uuidRegex validates UUID format for resource IDs from path parameters.
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "delivery-integration",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns OpenTelemetry tracing middleware with custom configuration.
// It wraps otelgin and enriches each span with request_id, the :provider route
// parameter on webhook routes, and the :id route parameter (UUID-validated)
// on resource routes.
//
// The span name follows the format: "HTTP METHOD route_pattern" (e.g., "GET /api/v1/integrations/:id")
// Error responses (4xx/5xx) are marked with codes.Error status.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return noopMiddleware
	}

	otelMiddleware := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		// otelgin runs the rest of the chain inside its own handler, so the
		// span exists once it returns and can be enriched here.
		otelMiddleware(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(requestSpanAttributes(c)...)
		}
	}
}

// requestSpanAttributes collects the custom span attributes for a request.
// Route parameters are only trusted after validation; anything else would let
// a caller inject arbitrary data into trace attributes.
func requestSpanAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue

	if requestID := getRequestID(c); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if provider := c.Param("provider"); provider != "" {
		attrs = append(attrs, attribute.String("provider", provider))
	}
	if id := c.Param("id"); id != "" && isValidResourceID(id) {
		attrs = append(attrs, attribute.String("integration_id", id))
	}

	return attrs
}

// getRequestID retrieves the request ID from the gin context or header.
// Header values are truncated to MaxRequestIDLength.
func getRequestID(c *gin.Context) string {
	// The RequestID middleware stores its value in the gin context.
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok && id != "" {
			return id
		}
	}

	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// isValidResourceID validates that a resource ID is a proper UUID format.
func isValidResourceID(id string) bool {
	if len(id) > MaxResourceIDLength {
		return false
	}
	return uuidRegex.MatchString(id)
}

// errorStatusDescription maps an HTTP error status to the span status
// description recorded for it.
func errorStatusDescription(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusUnauthorized:
		return "Unauthorized"
	case status == http.StatusForbidden:
		return "Forbidden"
	case status == http.StatusNotFound:
		return "Not Found"
	default:
		return "Client Error"
	}
}

// SpanErrorMarker returns a middleware that marks spans with error status
// for HTTP error responses (4xx/5xx).
// This should be placed AFTER the Tracing middleware in the middleware chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}

		span.SetStatus(codes.Error, errorStatusDescription(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

// TracingAttributeInjector returns a middleware that injects custom attributes
// into the current span after routing has resolved path parameters.
// This should be placed AFTER the Tracing middleware in the chain.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(requestSpanAttributes(c)...)
		}
		c.Next()
	}
}
