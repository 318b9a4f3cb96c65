package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/order"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/telemetry"
)

// defaultHTTPTimeout bounds platform calls when no timeout is configured
const defaultHTTPTimeout = 30 * time.Second

// defaultDrainLimit caps how many pending inbox items one sync run processes
const defaultDrainLimit = 100

// loadedIntegration is the runtime state of one active integration: the
// resolved adapter plus, for sales integrations, its poll task handles.
type loadedIntegration struct {
	integ   *integration.Integration
	adapter integration.PlatformAdapter

	// cancel and done are nil for integrations without a poll task
	cancel context.CancelFunc
	done   chan struct{}

	// busy makes poll ticks skip-if-busy instead of re-entrant
	busy atomic.Bool
}

// Manager owns the runtime side of integrations: resolved adapters, one poll
// task per active sales integration, and the ingestion pipeline from raw
// payload to order and work-time upserts. All durable writes go through
// keyed upserts, so concurrent callers (poll task, webhook handler, manual
// sync, reprocess) converge instead of conflicting.
type Manager struct {
	registry  *integration.Registry
	integs    integration.Repository
	syncLogs  integration.SyncLogRepository
	inboxRepo inbox.Repository
	orders    order.Repository
	worktimes worktime.Repository
	tokens    integration.TokenStore
	bus       shared.EventPublisher
	logger    *zap.Logger

	ingestionMetrics *telemetry.IngestionMetrics

	httpTimeout time.Duration
	drainLimit  int

	mu     sync.Mutex
	loaded map[uuid.UUID]*loadedIntegration
	closed bool
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithHTTPTimeout overrides the per-call timeout handed to adapters
func WithHTTPTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.httpTimeout = timeout
		}
	}
}

// WithDrainLimit overrides how many pending items one sync run drains
func WithDrainLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.drainLimit = limit
		}
	}
}

// NewManager creates a Manager. The event bus is optional; a nil bus simply
// skips publication.
func NewManager(
	registry *integration.Registry,
	integs integration.Repository,
	syncLogs integration.SyncLogRepository,
	inboxRepo inbox.Repository,
	orders order.Repository,
	worktimes worktime.Repository,
	tokens integration.TokenStore,
	bus shared.EventPublisher,
	logger *zap.Logger,
	opts ...ManagerOption,
) *Manager {
	m := &Manager{
		registry:    registry,
		integs:      integs,
		syncLogs:    syncLogs,
		inboxRepo:   inboxRepo,
		orders:      orders,
		worktimes:   worktimes,
		tokens:      tokens,
		bus:         bus,
		logger:      logger,
		httpTimeout: defaultHTTPTimeout,
		drainLimit:  defaultDrainLimit,
		loaded:      make(map[uuid.UUID]*loadedIntegration),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetIngestionMetrics sets the ingestion metrics collector. A nil collector
// skips recording.
func (m *Manager) SetIngestionMetrics(im *telemetry.IngestionMetrics) {
	m.ingestionMetrics = im
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// LoadIntegrations picks up every CONNECTED or INGESTING integration at
// startup. Failures are isolated per integration: one bad credential set
// marks that integration DEGRADED and the rest proceed. The only error
// returned is a repository failure listing the candidates.
func (m *Manager) LoadIntegrations(ctx context.Context) error {
	candidates, err := m.integs.FindLoadable(ctx)
	if err != nil {
		return err
	}

	active := 0
	for i := range candidates {
		integ := candidates[i]
		if m.activate(ctx, &integ) {
			active++
		}
	}

	m.logger.Info("integrations loaded",
		zap.Int("candidates", len(candidates)),
		zap.Int("active", active),
	)
	return nil
}

// AddIntegration constructs the adapter, authenticates, and for sales
// integrations starts a poll task at the configured interval. It reports
// failure instead of raising; the caller decides what to persist.
func (m *Manager) AddIntegration(ctx context.Context, integ *integration.Integration) bool {
	adapter, err := m.registry.Resolve(integ.Provider, m.adapterConfig(integ))
	if err != nil {
		m.logger.Error("adapter construction failed",
			zap.String("integration_id", integ.ID.String()),
			zap.String("provider", integ.Provider.String()),
			zap.Error(err),
		)
		return false
	}

	if err := adapter.Authenticate(ctx); err != nil {
		m.logger.Error("platform authentication failed",
			zap.String("integration_id", integ.ID.String()),
			zap.String("provider", integ.Provider.String()),
			zap.Error(err),
		)
		m.publish(ctx, integration.NewIntegrationDegradedEvent(integ, err.Error()))
		return false
	}

	li := &loadedIntegration{integ: integ, adapter: adapter}

	// Replacing an already-loaded integration stops its poll task first so
	// two tasks never share one cursor.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	prev := m.loaded[integ.ID]
	delete(m.loaded, integ.ID)
	m.mu.Unlock()
	m.stopTask(prev)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.loaded[integ.ID] = li
	if integ.Type == integration.IntegrationTypeSales {
		pollCtx, cancel := context.WithCancel(context.Background())
		li.cancel = cancel
		li.done = make(chan struct{})
		go m.poll(pollCtx, li)
	}
	m.mu.Unlock()

	m.publish(ctx, integration.NewIntegrationConnectedEvent(integ))
	m.logger.Info("integration loaded",
		zap.String("integration_id", integ.ID.String()),
		zap.String("provider", integ.Provider.String()),
		zap.String("type", string(integ.Type)),
	)
	return true
}

// RemoveIntegration unloads the adapter and cancels its poll task. The call
// blocks until the task has exited, so no tick fires afterwards. Removing an
// integration that was never loaded is a no-op.
func (m *Manager) RemoveIntegration(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	li := m.loaded[id]
	delete(m.loaded, id)
	m.mu.Unlock()

	if li == nil {
		return nil
	}
	m.stopTask(li)
	m.logger.Info("integration unloaded", zap.String("integration_id", id.String()))
	return nil
}

// Shutdown cancels every poll task and waits for them to exit, bounded by
// the context deadline. In-flight work completes and applies idempotently.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	tasks := make([]*loadedIntegration, 0, len(m.loaded))
	for _, li := range m.loaded {
		tasks = append(tasks, li)
	}
	m.loaded = make(map[uuid.UUID]*loadedIntegration)
	m.mu.Unlock()

	for _, li := range tasks {
		if li.cancel != nil {
			li.cancel()
		}
	}

	drained := make(chan struct{})
	go func() {
		for _, li := range tasks {
			if li.done != nil {
				<-li.done
			}
		}
		close(drained)
	}()

	select {
	case <-drained:
		m.logger.Info("integration manager stopped", zap.Int("released", len(tasks)))
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timed out waiting for poll tasks", zap.Int("released", len(tasks)))
		return ctx.Err()
	}
}

// activate runs AddIntegration and persists the resulting status: INGESTING
// for polled sales integrations, CONNECTED for logistics, DEGRADED on
// failure.
func (m *Manager) activate(ctx context.Context, integ *integration.Integration) bool {
	if !m.AddIntegration(ctx, integ) {
		integ.MarkDegraded()
		m.persistStatus(ctx, integ)
		return false
	}

	if integ.Type == integration.IntegrationTypeSales {
		integ.MarkIngesting()
	} else {
		integ.MarkConnected()
	}
	m.persistStatus(ctx, integ)
	return true
}

func (m *Manager) persistStatus(ctx context.Context, integ *integration.Integration) {
	if err := m.integs.UpdateStatus(ctx, integ.ID, integ.Status); err != nil {
		m.logger.Error("integration status update failed",
			zap.String("integration_id", integ.ID.String()),
			zap.String("status", string(integ.Status)),
			zap.Error(err),
		)
	}
}

// stopTask cancels a poll task and waits for it to exit
func (m *Manager) stopTask(li *loadedIntegration) {
	if li == nil || li.cancel == nil {
		return
	}
	li.cancel()
	<-li.done
}

// ---------------------------------------------------------------------------
// Poll task
// ---------------------------------------------------------------------------

// poll is the per-integration loop: one tick per sync interval, skipped when
// the previous run has not returned. Tasks across integrations are
// independent and may overlap.
func (m *Manager) poll(ctx context.Context, li *loadedIntegration) {
	defer close(li.done)

	interval := li.integ.SyncInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("poll task started",
		zap.String("integration_id", li.integ.ID.String()),
		zap.String("provider", li.integ.Provider.String()),
		zap.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("poll task stopped",
				zap.String("integration_id", li.integ.ID.String()),
			)
			return
		case <-ticker.C:
			if !li.busy.CompareAndSwap(false, true) {
				m.logger.Debug("previous poll still running, skipping tick",
					zap.String("integration_id", li.integ.ID.String()),
				)
				continue
			}
			m.runPollCycle(ctx, li)
			li.busy.Store(false)
		}
	}
}

// runPollCycle executes one scheduled sync. Errors are logged and the
// schedule continues at the next interval; only configuration and
// authentication failures park the integration as DEGRADED.
func (m *Manager) runPollCycle(ctx context.Context, li *loadedIntegration) {
	report, err := m.syncRuntime(ctx, li.integ, li.adapter, integration.SyncTriggerSystem)
	if err != nil {
		m.logger.Error("scheduled sync failed",
			zap.String("integration_id", li.integ.ID.String()),
			zap.String("provider", li.integ.Provider.String()),
			zap.Error(err),
		)
		var cfgErr *integration.ConfigError
		if errors.As(err, &cfgErr) || errors.Is(err, integration.ErrPlatformAuthFailed) {
			li.integ.MarkDegraded()
			m.persistStatus(ctx, li.integ)
			m.publish(ctx, integration.NewIntegrationDegradedEvent(li.integ, err.Error()))
		}
		return
	}

	m.logger.Info("scheduled sync finished",
		zap.String("integration_id", li.integ.ID.String()),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("items", report.ItemCount),
		zap.Int("failed", report.FailedCount),
	)
}

// ---------------------------------------------------------------------------
// Sync operations
// ---------------------------------------------------------------------------

// SyncOrders runs the direct fetch-and-upsert path for one integration: the
// window opens at the later of the last successful sync and the 24h backfill
// horizon, fetched orders are upserted, and a sync log row records the run.
// The cursor advances only when every fetched order landed.
func (m *Manager) SyncOrders(ctx context.Context, id uuid.UUID) (*SyncReport, error) {
	integ, adapter, err := m.resolveRuntime(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return m.fetchAndUpsert(ctx, integ, adapter, integration.SyncTriggerManual)
}

// ManualSync triggers one sync run outside the schedule. Adapters with inbox
// ingestion stage raw events and drain them through ProcessPayload; the rest
// fall back to the direct fetch path.
func (m *Manager) ManualSync(ctx context.Context, id uuid.UUID) (*SyncReport, error) {
	integ, adapter, err := m.resolveRuntime(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return m.syncRuntime(ctx, integ, adapter, integration.SyncTriggerManual)
}

// syncRuntime picks the ingestion path the adapter supports
func (m *Manager) syncRuntime(ctx context.Context, integ *integration.Integration, adapter integration.PlatformAdapter, trigger integration.SyncTrigger) (*SyncReport, error) {
	if ingestor, ok := adapter.(integration.OrderIngestor); ok {
		return m.ingestAndDrain(ctx, integ, adapter, ingestor, trigger)
	}
	return m.fetchAndUpsert(ctx, integ, adapter, trigger)
}

// fetchAndUpsert is the direct path: FetchOrders then keyed upserts, no
// inbox staging. Per-order failures never abort the batch.
func (m *Manager) fetchAndUpsert(ctx context.Context, integ *integration.Integration, adapter integration.PlatformAdapter, trigger integration.SyncTrigger) (*SyncReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "integration", "sync_direct")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrIntegrationID, integ.ID.String(),
		telemetry.SpanAttrProvider, integ.Provider.String(),
		telemetry.SpanAttrTrigger, string(trigger),
	)

	sales, ok := adapter.(integration.SalesAdapter)
	if !ok {
		telemetry.RecordError(span, integration.ErrSalesNotSupported)
		return nil, integration.ErrSalesNotSupported
	}

	now := time.Now().UTC()
	windowStart := integ.SyncWindowStart(now)
	syncLog := integration.NewSyncLog(integ.ID, trigger, windowStart, now)

	fetched, err := sales.FetchOrders(ctx, windowStart)
	if err != nil {
		telemetry.RecordError(span, err)
		syncLog.Finish(integration.SyncOutcomeFailed, 0, 0, err)
		m.finishSyncRun(ctx, integ, syncLog)
		return nil, err
	}

	failed := 0
	for i := range fetched {
		if err := m.persistOrder(ctx, integ, &fetched[i]); err != nil {
			failed++
			m.logger.Error("order upsert failed",
				zap.String("integration_id", integ.ID.String()),
				zap.String("external_id", fetched[i].ExternalID),
				zap.Error(err),
			)
			continue
		}
		if err := m.persistTiming(ctx, integ, &fetched[i]); err != nil {
			failed++
			m.logger.Error("work-time upsert failed",
				zap.String("integration_id", integ.ID.String()),
				zap.String("external_id", fetched[i].ExternalID),
				zap.Error(err),
			)
		}
	}

	outcome := integration.SyncOutcomeSuccess
	if failed > 0 {
		// The window is retried on the next cycle; upserts make the retry
		// converge instead of duplicating.
		outcome = integration.SyncOutcomePartial
	} else {
		m.advanceCursor(ctx, integ, now)
	}

	telemetry.SetAttributes(span, "item_count", len(fetched), "failed_count", failed)
	syncLog.Finish(outcome, len(fetched), failed, nil)
	m.finishSyncRun(ctx, integ, syncLog)
	return reportFromSyncLog(syncLog), nil
}

// ingestAndDrain is the inbox path: raw events are staged durably, then
// pending items are drained through ProcessPayload. Staged items survive
// process restarts, so the cursor advances once staging succeeded even when
// individual items fail; failures stay in the inbox for reprocessing.
func (m *Manager) ingestAndDrain(ctx context.Context, integ *integration.Integration, adapter integration.PlatformAdapter, ingestor integration.OrderIngestor, trigger integration.SyncTrigger) (*SyncReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "integration", "sync_inbox")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrIntegrationID, integ.ID.String(),
		telemetry.SpanAttrProvider, integ.Provider.String(),
		telemetry.SpanAttrTrigger, string(trigger),
	)

	now := time.Now().UTC()
	windowStart := integ.SyncWindowStart(now)
	syncLog := integration.NewSyncLog(integ.ID, trigger, windowStart, now)

	events, err := ingestor.IngestOrders(ctx, windowStart)
	if err != nil {
		telemetry.RecordError(span, err)
		syncLog.Finish(integration.SyncOutcomeFailed, 0, 0, err)
		m.finishSyncRun(ctx, integ, syncLog)
		return nil, err
	}

	staged := 0
	stageFailed := 0
	for _, ev := range events {
		item, err := inbox.NewItem(integ.ID, sourcePoll, ev.Payload, ev.Event, ev.ExternalID, ev.CorrelationID)
		if err != nil {
			stageFailed++
			m.logger.Error("inbox staging rejected payload",
				zap.String("integration_id", integ.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := m.inboxRepo.Save(ctx, item); err != nil {
			stageFailed++
			m.logger.Error("inbox staging failed",
				zap.String("integration_id", integ.ID.String()),
				zap.Error(err),
			)
			continue
		}
		staged++
		if m.ingestionMetrics != nil {
			m.ingestionMetrics.RecordPayloadStaged(ctx, integ.Provider.String(), sourcePoll)
		}
	}

	pending, err := m.inboxRepo.ListPending(ctx, integ.ID, m.drainLimit)
	if err != nil {
		telemetry.RecordError(span, err)
		syncLog.Finish(integration.SyncOutcomeFailed, staged, stageFailed, err)
		m.finishSyncRun(ctx, integ, syncLog)
		return nil, err
	}

	processFailed := 0
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("DrainInbox", map[string]string{
		telemetry.ProfilingLabelProvider: integ.Provider.String(),
	}), func(c context.Context) {
		for i := range pending {
			if err := m.processItem(c, integ, adapter, &pending[i]); err != nil {
				processFailed++
			}
		}
	})

	m.advanceCursor(ctx, integ, now)

	outcome := integration.SyncOutcomeSuccess
	if stageFailed > 0 || processFailed > 0 {
		outcome = integration.SyncOutcomePartial
	}
	telemetry.SetAttributes(span, "staged_count", staged, "item_count", len(pending), "failed_count", stageFailed+processFailed)
	syncLog.Finish(outcome, len(pending), stageFailed+processFailed, nil)
	m.finishSyncRun(ctx, integ, syncLog)
	return reportFromSyncLog(syncLog), nil
}

// ReprocessInboxItem returns the item to PENDING and re-invokes the
// adapter's ProcessPayload, re-marking the item as if freshly received. The
// adapter is resolved live when loaded, otherwise transiently reconstructed
// from the stored integration; ProcessPayload parses locally, so no
// authentication round trip is made for the transient case.
func (m *Manager) ReprocessInboxItem(ctx context.Context, itemID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "integration", "reprocess_item")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrItemID, itemID.String())

	item, err := m.inboxRepo.FindByID(ctx, itemID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	integ, adapter, err := m.resolveRuntime(ctx, item.IntegrationID, false)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrIntegrationID, integ.ID.String(),
		telemetry.SpanAttrProvider, integ.Provider.String(),
	)

	if err := item.Reopen(); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := m.inboxRepo.Save(ctx, item); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := m.processItem(ctx, integ, adapter, item); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// WebhookDelivery is one inbound webhook as read off the wire
type WebhookDelivery struct {
	Provider  integration.Provider
	Signature string
	Event     string
	// ExternalID is the platform order reference when the delivery headers
	// carry one
	ExternalID    string
	CorrelationID string
	// MerchantHint disambiguates when several integrations exist for the
	// provider; matched against stored credential values
	MerchantHint string
	Body         json.RawMessage
}

// IngestWebhook verifies, stages and best-effort processes one webhook
// delivery. Receipt is durable once the inbox row exists; a processing
// failure is recorded on the item and does not fail the call, so the
// platform never re-delivers a payload we already hold.
func (m *Manager) IngestWebhook(ctx context.Context, delivery WebhookDelivery) (*inbox.Item, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "integration", "ingest_webhook")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrProvider, delivery.Provider.String(),
		telemetry.SpanAttrEvent, delivery.Event,
		telemetry.SpanAttrSource, sourceWebhook,
	)

	integ, err := m.resolveWebhookTarget(ctx, delivery)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrIntegrationID, integ.ID.String())

	_, adapter, err := m.resolveRuntime(ctx, integ.ID, false)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if verifier, ok := adapter.(integration.WebhookVerifier); ok {
		if err := verifier.VerifyWebhook(delivery.Signature, delivery.Body); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	item, err := inbox.NewItem(integ.ID, sourceWebhook, delivery.Body, delivery.Event, delivery.ExternalID, delivery.CorrelationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := m.inboxRepo.Save(ctx, item); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if m.ingestionMetrics != nil {
		m.ingestionMetrics.RecordPayloadStaged(ctx, integ.Provider.String(), sourceWebhook)
	}

	if err := m.processItem(ctx, integ, adapter, item); err != nil {
		m.logger.Warn("webhook payload staged but processing failed",
			zap.String("integration_id", integ.ID.String()),
			zap.String("item_id", item.ID.String()),
			zap.Error(err),
		)
	}
	return item, nil
}

// resolveWebhookTarget picks the integration a delivery belongs to. One
// configured integration per provider is the common case; the merchant hint
// settles deployments with several.
func (m *Manager) resolveWebhookTarget(ctx context.Context, delivery WebhookDelivery) (*integration.Integration, error) {
	integs, err := m.integs.FindByProvider(ctx, delivery.Provider)
	if err != nil {
		return nil, err
	}

	candidates := make([]*integration.Integration, 0, len(integs))
	for i := range integs {
		if integs[i].Status == integration.StatusStopped {
			continue
		}
		candidates = append(candidates, &integs[i])
	}
	if len(candidates) == 0 {
		return nil, integration.ErrIntegrationNotFound
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if delivery.MerchantHint != "" {
		for _, integ := range candidates {
			for _, value := range integ.Credentials {
				if value == delivery.MerchantHint {
					return integ, nil
				}
			}
		}
	}
	return nil, integration.ErrWebhookTargetAmbiguous
}

// advanceCursor moves lastSyncAt forward and persists it
func (m *Manager) advanceCursor(ctx context.Context, integ *integration.Integration, to time.Time) {
	integ.AdvanceSyncCursor(to)
	if err := m.integs.UpdateLastSyncAt(ctx, integ.ID, to); err != nil {
		m.logger.Error("sync cursor update failed",
			zap.String("integration_id", integ.ID.String()),
			zap.Error(err),
		)
	}
}

// finishSyncRun persists the sync log row and records the run metrics
func (m *Manager) finishSyncRun(ctx context.Context, integ *integration.Integration, syncLog *integration.SyncLog) {
	if err := m.syncLogs.Save(ctx, syncLog); err != nil {
		m.logger.Error("sync log write failed",
			zap.String("integration_id", syncLog.IntegrationID.String()),
			zap.Error(err),
		)
	}
	if m.ingestionMetrics != nil {
		m.ingestionMetrics.RecordSyncRun(ctx, integ.Provider.String(),
			string(syncLog.Trigger), string(syncLog.Outcome),
			syncLog.FinishedAt.Sub(syncLog.StartedAt))
	}
}

// ---------------------------------------------------------------------------
// Ingestion pipeline
// ---------------------------------------------------------------------------

// processItem runs one staged payload through ProcessPayload and the keyed
// upserts. Safe to call any number of times for the same item: repetition
// converges on identical rows. The item ends PROCESSED, IGNORED or FAILED;
// the returned error mirrors the FAILED case for batch accounting.
func (m *Manager) processItem(ctx context.Context, integ *integration.Integration, adapter integration.PlatformAdapter, item *inbox.Item) error {
	ingestor, ok := adapter.(integration.OrderIngestor)
	if !ok {
		return m.failItem(ctx, integ, item, integration.ErrIngestNotSupported)
	}

	result, err := ingestor.ProcessPayload(ctx, item.Event, item.Payload)
	if err != nil {
		return m.failItem(ctx, integ, item, err)
	}

	if result.Ignore {
		if err := item.MarkIgnored(result.IgnoreReason); err != nil {
			return err
		}
		if err := m.inboxRepo.Save(ctx, item); err != nil {
			return err
		}
		m.recordItemOutcome(ctx, integ, telemetry.ItemOutcomeIgnored)
		return nil
	}

	externalID := item.ExternalID
	if result.Order != nil {
		externalID = result.Order.ExternalID
		if err := m.persistOrder(ctx, integ, result.Order); err != nil {
			return m.failItem(ctx, integ, item, err)
		}
	}

	var workday time.Time
	if result.Timing != nil && externalID != "" {
		record, err := worktime.NewRecord(integ.CostCenterID, integ.Provider.String(), externalID, *result.Timing, item.Payload)
		if err != nil {
			return m.failItem(ctx, integ, item, err)
		}
		if err := m.worktimes.Upsert(ctx, record); err != nil {
			return m.failItem(ctx, integ, item, err)
		}
		workday = record.Workday
	}

	var parsed json.RawMessage
	if result.Order != nil {
		if encoded, err := json.Marshal(result.Order); err == nil {
			parsed = encoded
		}
	}

	if err := item.MarkProcessed(parsed); err != nil {
		return err
	}
	if err := m.inboxRepo.Save(ctx, item); err != nil {
		return err
	}
	m.recordItemOutcome(ctx, integ, telemetry.ItemOutcomeProcessed)

	m.publish(ctx, integration.NewOrderIngestedEvent(item.ID, integ.ID, integ.Provider, externalID, workday, item.Payload))
	return nil
}

// failItem marks the item FAILED with the cause and returns the cause so
// batch loops can count it
func (m *Manager) failItem(ctx context.Context, integ *integration.Integration, item *inbox.Item, cause error) error {
	if err := item.MarkFailed(cause.Error()); err != nil {
		return err
	}
	if err := m.inboxRepo.Save(ctx, item); err != nil {
		return err
	}
	m.recordItemOutcome(ctx, integ, telemetry.ItemOutcomeFailed)
	return cause
}

func (m *Manager) recordItemOutcome(ctx context.Context, integ *integration.Integration, outcome telemetry.ItemOutcome) {
	if m.ingestionMetrics == nil {
		return
	}
	m.ingestionMetrics.RecordItemProcessed(ctx, integ.Provider.String(), outcome)
}

// persistOrder validates a normalized order and upserts it under the key the
// order carries: (cost center, external id, platform) for marketplace
// orders, (cost center, code) for POS orders.
func (m *Manager) persistOrder(ctx context.Context, integ *integration.Integration, n *integration.NormalizedOrder) error {
	n.FillTotal()
	if err := n.Validate(); err != nil {
		return err
	}

	o, err := order.FromNormalized(integ.CostCenterID, n)
	if err != nil {
		return err
	}

	if o.HasExternalKey() {
		err = m.orders.UpsertByExternalKey(ctx, o)
	} else {
		err = m.orders.UpsertByCode(ctx, o)
	}
	if err != nil {
		return err
	}

	if m.ingestionMetrics != nil {
		m.ingestionMetrics.RecordOrderIngested(ctx, integ.Provider.String())
	}
	return nil
}

// persistTiming reconciles the order's status trail into a work-time record
// when the payload carries timing signal
func (m *Manager) persistTiming(ctx context.Context, integ *integration.Integration, n *integration.NormalizedOrder) error {
	if n.ExternalID == "" {
		return nil
	}
	if len(n.StatusHistory) == 0 && n.ReadyAt == nil && n.PickedUpAt == nil && n.DeliveredAt == nil {
		return nil
	}

	in := worktime.Input{
		ArrivedAt:   n.PlacedAt,
		ReadyAt:     n.ReadyAt,
		PickedUpAt:  n.PickedUpAt,
		DeliveredAt: n.DeliveredAt,
	}
	for _, ev := range n.StatusHistory {
		in.History = append(in.History, worktime.HistoryEntry{Label: ev.Label, At: ev.At})
	}

	timing := worktime.Reconcile(in)
	record, err := worktime.NewRecord(integ.CostCenterID, n.Platform.String(), n.ExternalID, timing, []byte(n.RawData))
	if err != nil {
		return err
	}
	return m.worktimes.Upsert(ctx, record)
}

// ---------------------------------------------------------------------------
// Adapter-directed operations
// ---------------------------------------------------------------------------

// ConfirmOrder confirms an order on the platform behind the integration
func (m *Manager) ConfirmOrder(ctx context.Context, id uuid.UUID, externalID string) error {
	sales, err := m.salesFor(ctx, id)
	if err != nil {
		return err
	}
	return sales.ConfirmOrder(ctx, externalID)
}

// RejectOrder rejects an order on the platform behind the integration
func (m *Manager) RejectOrder(ctx context.Context, id uuid.UUID, externalID, reason string) error {
	sales, err := m.salesFor(ctx, id)
	if err != nil {
		return err
	}
	return sales.RejectOrder(ctx, externalID, reason)
}

// MarkOrderReady signals the platform that preparation finished
func (m *Manager) MarkOrderReady(ctx context.Context, id uuid.UUID, externalID string) error {
	sales, err := m.salesFor(ctx, id)
	if err != nil {
		return err
	}
	return sales.MarkOrderReady(ctx, externalID)
}

// DispatchOrder signals the platform that the order left the store
func (m *Manager) DispatchOrder(ctx context.Context, id uuid.UUID, externalID string) error {
	sales, err := m.salesFor(ctx, id)
	if err != nil {
		return err
	}
	return sales.DispatchOrder(ctx, externalID)
}

// CancelOrder cancels an order on the platform behind the integration
func (m *Manager) CancelOrder(ctx context.Context, id uuid.UUID, externalID, reason string) error {
	sales, err := m.salesFor(ctx, id)
	if err != nil {
		return err
	}
	return sales.CancelOrder(ctx, externalID, reason)
}

// GetDeliveryQuote prices a delivery with the carrier behind the integration
func (m *Manager) GetDeliveryQuote(ctx context.Context, id uuid.UUID, req *integration.DeliveryQuoteRequest) (*integration.DeliveryQuote, error) {
	logistics, err := m.logisticsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return logistics.GetDeliveryQuote(ctx, req)
}

// RequestDelivery places a delivery with the carrier behind the integration
func (m *Manager) RequestDelivery(ctx context.Context, id uuid.UUID, req *integration.DeliveryRequest) (string, error) {
	logistics, err := m.logisticsFor(ctx, id)
	if err != nil {
		return "", err
	}
	return logistics.RequestDelivery(ctx, req)
}

// CancelDelivery cancels a placed delivery
func (m *Manager) CancelDelivery(ctx context.Context, id uuid.UUID, deliveryID, reason string) error {
	logistics, err := m.logisticsFor(ctx, id)
	if err != nil {
		return err
	}
	return logistics.CancelDelivery(ctx, deliveryID, reason)
}

// GetDeliveryTracking reads the carrier's live view of a delivery
func (m *Manager) GetDeliveryTracking(ctx context.Context, id uuid.UUID, deliveryID string) (*integration.DeliveryTracking, error) {
	logistics, err := m.logisticsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return logistics.GetDeliveryTracking(ctx, deliveryID)
}

// TestConnection probes platform reachability for one integration. The probe
// itself never fails; the error covers adapter resolution only.
func (m *Manager) TestConnection(ctx context.Context, id uuid.UUID) (bool, error) {
	_, adapter, err := m.resolveRuntime(ctx, id, false)
	if err != nil {
		return false, err
	}
	return adapter.TestConnection(ctx), nil
}

// ---------------------------------------------------------------------------
// Runtime resolution
// ---------------------------------------------------------------------------

// resolveRuntime returns the live adapter for a loaded integration, or
// transiently reconstructs one from the stored record. Transient adapters
// authenticate only when the caller needs network calls.
func (m *Manager) resolveRuntime(ctx context.Context, id uuid.UUID, authenticate bool) (*integration.Integration, integration.PlatformAdapter, error) {
	m.mu.Lock()
	li, ok := m.loaded[id]
	m.mu.Unlock()
	if ok {
		return li.integ, li.adapter, nil
	}

	integ, err := m.integs.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if integ.Status == integration.StatusStopped {
		return nil, nil, integration.ErrIntegrationStopped
	}

	adapter, err := m.registry.Resolve(integ.Provider, m.adapterConfig(integ))
	if err != nil {
		return nil, nil, err
	}
	if authenticate {
		if err := adapter.Authenticate(ctx); err != nil {
			return nil, nil, err
		}
	}
	return integ, adapter, nil
}

// LoadedAdapter exposes the live adapter for an integration when one is
// loaded. Webhook verification uses it to avoid reconstructing adapters per
// delivery.
func (m *Manager) LoadedAdapter(id uuid.UUID) (integration.PlatformAdapter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	li, ok := m.loaded[id]
	if !ok {
		return nil, false
	}
	return li.adapter, true
}

// LoadedCount reports how many integrations are currently loaded
func (m *Manager) LoadedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

func (m *Manager) salesFor(ctx context.Context, id uuid.UUID) (integration.SalesAdapter, error) {
	_, adapter, err := m.resolveRuntime(ctx, id, true)
	if err != nil {
		return nil, err
	}
	sales, ok := adapter.(integration.SalesAdapter)
	if !ok {
		return nil, integration.ErrSalesNotSupported
	}
	return sales, nil
}

func (m *Manager) logisticsFor(ctx context.Context, id uuid.UUID) (integration.LogisticsAdapter, error) {
	_, adapter, err := m.resolveRuntime(ctx, id, true)
	if err != nil {
		return nil, err
	}
	logistics, ok := adapter.(integration.LogisticsAdapter)
	if !ok {
		return nil, integration.ErrLogisticsNotSupported
	}
	return logistics, nil
}

func (m *Manager) adapterConfig(integ *integration.Integration) integration.AdapterConfig {
	return integration.AdapterConfig{
		Credentials: integ.Credentials.Clone(),
		Sandbox:     integ.Sandbox,
		HTTPTimeout: m.httpTimeout,
		TokenStore:  m.tokens,
		TokenKey:    integ.ID.String(),
	}
}

func (m *Manager) publish(ctx context.Context, events ...shared.DomainEvent) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, events...); err != nil {
		m.logger.Warn("event publish failed", zap.Error(err))
	}
}
