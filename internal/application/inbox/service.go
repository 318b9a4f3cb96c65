package inbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/telemetry"
)

// Service exposes the inbox: durable receipt of raw inbound payloads and the
// operability surface over them. Writes are append-plus-update; nothing is
// ever deleted on failure.
type Service struct {
	repo   inbox.Repository
	logger *zap.Logger

	ingestionMetrics *telemetry.IngestionMetrics
}

// NewService creates a new inbox service
func NewService(repo inbox.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// SetIngestionMetrics sets the ingestion metrics collector. A nil collector
// skips recording.
func (s *Service) SetIngestionMetrics(im *telemetry.IngestionMetrics) {
	s.ingestionMetrics = im
}

// LogIngestionInput mirrors the inbound event shape accepted by the inbox.
// Provider only labels logs and metrics; the item itself is keyed by
// integration id.
type LogIngestionInput struct {
	IntegrationID uuid.UUID       `json:"integration_id"`
	Provider      string          `json:"provider,omitempty"`
	Source        string          `json:"source"`
	RawPayload    json.RawMessage `json:"raw_payload"`
	Event         string          `json:"event,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// LogIngestion stages one raw payload as PENDING. Receipts are never
// deduplicated here: duplicates across polling windows and webhook retries
// are tolerated by the downstream idempotent processing.
func (s *Service) LogIngestion(ctx context.Context, input LogIngestionInput) (*inbox.Item, error) {
	item, err := inbox.NewItem(input.IntegrationID, input.Source, input.RawPayload, input.Event, input.ExternalID, input.CorrelationID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}

	if s.ingestionMetrics != nil && input.Provider != "" {
		s.ingestionMetrics.RecordPayloadStaged(ctx, input.Provider, input.Source)
	}

	s.logger.Debug("payload staged",
		zap.String("item_id", item.ID.String()),
		zap.String("integration_id", input.IntegrationID.String()),
		zap.String("source", input.Source),
		zap.String("event", input.Event),
	)
	return item, nil
}

// MarkProcessed finishes an item successfully, optionally recording the
// normalized result for audit
func (s *Service) MarkProcessed(ctx context.Context, id uuid.UUID, parsed json.RawMessage) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := item.MarkProcessed(parsed); err != nil {
		return err
	}
	return s.repo.Save(ctx, item)
}

// MarkFailed records a processing failure, bumping the retry count
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := item.MarkFailed(message); err != nil {
		return err
	}
	return s.repo.Save(ctx, item)
}

// MarkIgnored finishes an item as irrelevant to order ingestion
func (s *Service) MarkIgnored(ctx context.Context, id uuid.UUID, reason string) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := item.MarkIgnored(reason); err != nil {
		return err
	}
	return s.repo.Save(ctx, item)
}

// GetPendingItems returns PENDING items FIFO by receipt time
func (s *Service) GetPendingItems(ctx context.Context, integrationID uuid.UUID, limit int) ([]inbox.Item, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListPending(ctx, integrationID, limit)
}

// ListItems pages through inbox items with the operability filters
func (s *Service) ListItems(ctx context.Context, filter inbox.Filter) ([]inbox.Item, int64, error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// GetItem loads one inbox item by id
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*inbox.Item, error) {
	return s.repo.FindByID(ctx, id)
}
