// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// IngestionMetrics provides business metrics for the delivery ingestion
// pipeline. It tracks inbox staging, item processing outcomes, sync runs,
// and the pending backlog per integration.
type IngestionMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	inboxStagedTotal    *Counter
	inboxProcessedTotal *Counter
	ordersIngestedTotal *Counter
	syncRunsTotal       *Counter

	// Histogram metrics
	syncDuration *Histogram

	// Gauge metrics (point-in-time values)
	inboxPending *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	backlogProvider InboxBacklogProvider
}

// InboxBacklog is one row of the pending-item backlog: how many staged
// payloads of one integration still await processing.
type InboxBacklog struct {
	IntegrationID uuid.UUID
	Provider      string
	Pending       int64
}

// InboxBacklogProvider provides inbox backlog data for periodic metrics
// collection. This interface allows the telemetry layer to query inbox
// state without depending on the inbox domain directly.
type InboxBacklogProvider interface {
	// GetPendingBacklog returns the count of pending inbox items per integration.
	GetPendingBacklog(ctx context.Context) ([]InboxBacklog, error)
}

// IngestionMetricsConfig holds configuration for ingestion metrics.
type IngestionMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 1 minute
	BacklogProvider InboxBacklogProvider
}

// NewIngestionMetrics creates a new IngestionMetrics instance.
func NewIngestionMetrics(cfg IngestionMetricsConfig) (*IngestionMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &IngestionMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		backlogProvider: cfg.BacklogProvider,
	}

	// Initialize counter metrics
	var err error

	// Inbox metrics
	im.inboxStagedTotal, err = NewCounter(
		cfg.Meter,
		"moby_inbox_staged_total",
		"Total number of payloads staged into the inbox",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	im.inboxProcessedTotal, err = NewCounter(
		cfg.Meter,
		"moby_inbox_processed_total",
		"Total number of inbox items that reached a terminal status",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	// Order metrics
	im.ordersIngestedTotal, err = NewCounter(
		cfg.Meter,
		"moby_orders_ingested_total",
		"Total number of platform orders upserted from inbox items",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	// Sync run metrics
	im.syncRunsTotal, err = NewCounter(
		cfg.Meter,
		"moby_sync_runs_total",
		"Total number of sync runs by trigger and outcome",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	im.syncDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "moby_sync_duration_seconds",
		Description: "Sync run duration distribution in seconds",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	// Backlog gauge metric
	im.inboxPending, err = NewGauge(
		cfg.Meter,
		"moby_inbox_pending",
		"Current number of pending inbox items per integration",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	return im, nil
}

// =============================================================================
// Inbox Metrics
// =============================================================================

// ItemOutcome labels the terminal disposition of an inbox item.
type ItemOutcome string

const (
	ItemOutcomeProcessed ItemOutcome = "processed"
	ItemOutcomeFailed    ItemOutcome = "failed"
	ItemOutcomeIgnored   ItemOutcome = "ignored"
)

// RecordPayloadStaged records a payload landing in the inbox.
// Source is the receive channel ("poll" or "webhook").
func (im *IngestionMetrics) RecordPayloadStaged(ctx context.Context, provider, source string) {
	im.inboxStagedTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrSource.String(source),
	)
}

// RecordItemProcessed records an inbox item reaching a terminal status.
// This should be called from the application layer after the status flip.
func (im *IngestionMetrics) RecordItemProcessed(ctx context.Context, provider string, outcome ItemOutcome) {
	im.inboxProcessedTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Order Metrics
// =============================================================================

// RecordOrderIngested records a platform order upserted from an inbox item.
func (im *IngestionMetrics) RecordOrderIngested(ctx context.Context, provider string) {
	im.ordersIngestedTotal.Inc(ctx,
		AttrProvider.String(provider),
	)
}

// =============================================================================
// Sync Run Metrics
// =============================================================================

// RecordSyncRun records a completed sync run with its duration.
// Trigger and outcome carry the domain values ("poll"/"manual",
// "success"/"partial"/"failed").
func (im *IngestionMetrics) RecordSyncRun(ctx context.Context, provider, trigger, outcome string, duration time.Duration) {
	im.syncRunsTotal.Inc(ctx,
		AttrProvider.String(provider),
		AttrTrigger.String(trigger),
		AttrOutcome.String(outcome),
	)
	im.syncDuration.RecordDuration(ctx, duration,
		AttrProvider.String(provider),
		AttrTrigger.String(trigger),
	)
}

// =============================================================================
// Backlog Metrics
// =============================================================================

// RecordPendingBacklog records the current pending item count for one
// integration. This is a gauge metric that should be updated periodically.
func (im *IngestionMetrics) RecordPendingBacklog(ctx context.Context, integrationID uuid.UUID, provider string, pending int64) {
	im.inboxPending.Record(ctx, pending,
		AttrIntegrationID.String(integrationID.String()),
		AttrProvider.String(provider),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the backlog gauge.
// It queries the backlog provider every interval (default: 1 minute).
// This is non-blocking - use Stop() to stop collection.
func (im *IngestionMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	im.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}

		go im.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (im *IngestionMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	im.collectBacklogMetrics(ctx)

	for {
		select {
		case <-im.stopChan:
			im.logger.Info("Stopping periodic ingestion metrics collection")
			return
		case <-ctx.Done():
			im.logger.Info("Context cancelled, stopping periodic ingestion metrics collection")
			return
		case <-ticker.C:
			im.collectBacklogMetrics(ctx)
		}
	}
}

// collectBacklogMetrics collects the pending backlog gauge for all integrations.
func (im *IngestionMetrics) collectBacklogMetrics(ctx context.Context) {
	if im.backlogProvider == nil {
		im.logger.Debug("No backlog provider configured, skipping backlog metrics collection")
		return
	}

	rows, err := im.backlogProvider.GetPendingBacklog(ctx)
	if err != nil {
		im.logger.Error("Failed to get inbox backlog for metrics collection", zap.Error(err))
		return
	}

	for _, row := range rows {
		im.RecordPendingBacklog(ctx, row.IntegrationID, row.Provider, row.Pending)
	}
}

// Stop stops the periodic collection.
func (im *IngestionMetrics) Stop() {
	im.stopOnce.Do(func() {
		close(im.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewIngestionMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
