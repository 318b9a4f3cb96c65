// Package telemetry provides Pyroscope continuous profiling integration.
package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys used to slice profiles in the Pyroscope UI. All of them have
// a small fixed value set; provider in particular is bounded by the list of
// supported delivery platforms.
const (
	// ProfilingLabelController is the label key for the handler/controller name.
	ProfilingLabelController = "controller"
	// ProfilingLabelRoute is the label key for the route pattern.
	ProfilingLabelRoute = "route"
	// ProfilingLabelMethod is the label key for the HTTP method.
	ProfilingLabelMethod = "method"
	// ProfilingLabelProvider is the label key for the delivery platform provider.
	ProfilingLabelProvider = "provider"
	// ProfilingLabelOperation is the label key for the operation name.
	ProfilingLabelOperation = "operation"
	// ProfilingLabelRegion is the label key for code regions (e.g., "db_query", "external_api").
	ProfilingLabelRegion = "region"
)

// maxLabelValueLength caps label values; anything longer is truncated to
// keep Pyroscope memory usage bounded.
const maxLabelValueLength = 128

// highCardinalityLabels are per-request identifiers that would explode the
// series count in Pyroscope. sanitizeLabels drops them silently; logging on
// this path would spam every profiled request.
var highCardinalityLabels = map[string]bool{
	"request_id":     true,
	"order_id":       true,
	"external_id":    true,
	"correlation_id": true,
	"inbox_item_id":  true,
	"delivery_id":    true,
	"trace_id":       true,
	"span_id":        true,
}

// WithProfilingLabels runs fn with the given labels attached to the
// profiling context, so samples collected inside fn can be filtered by
// them in the Pyroscope UI. Labels are sanitized first: empty and
// high-cardinality entries are dropped, keys are normalized to snake_case
// and overlong values truncated. pyroscope.TagWrapper builds on Go's
// native pprof label API, so the labels also show up in standard pprof
// output.
//
// Example:
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{
//	    "controller": "InboxHandler",
//	    "operation": "ReprocessItem",
//	}, func(c context.Context) {
//	    processItems(c)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	labelPairs := sanitizeLabels(labels)
	if len(labelPairs) == 0 {
		fn(ctx)
		return
	}

	pyroscope.TagWrapper(ctx, pyroscope.Labels(labelPairs...), fn)
}

// OperationLabels creates labels for a named operation.
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	return labelsWith(ProfilingLabelOperation, operation, extraLabels)
}

// RegionLabels creates labels for a code region (e.g., database, external API).
func RegionLabels(region string, extraLabels map[string]string) map[string]string {
	return labelsWith(ProfilingLabelRegion, region, extraLabels)
}

func labelsWith(key, value string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[key] = value
	maps.Copy(labels, extraLabels)
	return labels
}

// sanitizeLabels converts a label map to the flat key-value slice the
// pprof API expects. Keys are sorted so the output is deterministic.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		value := labels[key]
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}

		if len(value) > maxLabelValueLength {
			value = value[:maxLabelValueLength]
		}

		sanitizedKey := sanitizeLabelKey(key)
		if sanitizedKey == "" {
			continue
		}

		pairs = append(pairs, sanitizedKey, value)
	}

	return pairs
}

// sanitizeLabelKey normalizes a label key to snake_case, dropping any
// character that is not alphanumeric or underscore.
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)

	result := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			result = append(result, c)
		case c == ' ', c == '-':
			result = append(result, '_')
		}
	}

	return string(result)
}
