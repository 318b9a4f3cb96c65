package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/telemetry"
)

func TestNewIngestionMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, im)
}

func TestNewIngestionMetrics_NilMeter(t *testing.T) {
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, im)
	assert.Equal(t, "NewIngestionMetrics: meter cannot be nil", err.Error())
}

func TestIngestionMetrics_RecordPayloadStaged(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	im.RecordPayloadStaged(ctx, "foody", "webhook")
	im.RecordPayloadStaged(ctx, "ifood", "poll")
}

func TestIngestionMetrics_RecordItemProcessed(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	im.RecordItemProcessed(ctx, "foody", telemetry.ItemOutcomeProcessed)
	im.RecordItemProcessed(ctx, "rappi", telemetry.ItemOutcomeFailed)
	im.RecordItemProcessed(ctx, "ifood", telemetry.ItemOutcomeIgnored)
}

func TestIngestionMetrics_RecordOrderIngested(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	im.RecordOrderIngested(ctx, "foody")
	im.RecordOrderIngested(ctx, "rappi")
}

func TestIngestionMetrics_RecordSyncRun(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic and record both the counter and the duration
	im.RecordSyncRun(ctx, "foody", "poll", "success", 1200*time.Millisecond)
	im.RecordSyncRun(ctx, "ifood", "manual", "partial", 3*time.Second)
	im.RecordSyncRun(ctx, "rappi", "poll", "failed", 400*time.Millisecond)
}

func TestIngestionMetrics_RecordPendingBacklog(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	integrationID := uuid.New()

	// Should not panic
	im.RecordPendingBacklog(ctx, integrationID, "foody", 12)
	im.RecordPendingBacklog(ctx, integrationID, "foody", 0)
}

// Mock implementation for testing periodic collection

type mockBacklogProvider struct {
	rows []telemetry.InboxBacklog
	err  error
}

func (m *mockBacklogProvider) GetPendingBacklog(ctx context.Context) ([]telemetry.InboxBacklog, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func TestIngestionMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	backlogProvider := &mockBacklogProvider{
		rows: []telemetry.InboxBacklog{
			{IntegrationID: uuid.New(), Provider: "foody", Pending: 7},
			{IntegrationID: uuid.New(), Provider: "ifood", Pending: 2},
		},
	}

	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter:           meter,
		Logger:          zap.NewNop(),
		BacklogProvider: backlogProvider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start periodic collection with short interval for testing
	im.StartPeriodicCollection(ctx, 100*time.Millisecond)

	// Wait for at least one collection cycle
	time.Sleep(150 * time.Millisecond)

	// Stop collection
	im.Stop()

	// Should complete without error
}

func TestIngestionMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
		// No backlog provider
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Should not panic with no backlog provider
	im.StartPeriodicCollection(ctx, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	im.Stop()
}

func TestIngestionMetrics_Stop_Idempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	// Calling Stop multiple times should not panic
	im.Stop()
	im.Stop()
	im.Stop()
}

func TestIngestionMetrics_StartPeriodicCollection_OnlyOnce(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	im, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Calling StartPeriodicCollection multiple times should only start once
	im.StartPeriodicCollection(ctx, time.Hour)
	im.StartPeriodicCollection(ctx, time.Minute)
	im.StartPeriodicCollection(ctx, time.Second)

	im.Stop()
}

func TestItemOutcome_Values(t *testing.T) {
	assert.Equal(t, telemetry.ItemOutcome("processed"), telemetry.ItemOutcomeProcessed)
	assert.Equal(t, telemetry.ItemOutcome("failed"), telemetry.ItemOutcomeFailed)
	assert.Equal(t, telemetry.ItemOutcome("ignored"), telemetry.ItemOutcomeIgnored)
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{
		Op:  "TestOperation",
		Err: "test error message",
	}

	assert.Equal(t, "TestOperation: test error message", err.Error())
}
