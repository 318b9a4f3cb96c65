package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
)

// PayloadArchive stores raw platform payloads for audit and replay.
// Implementations live in infrastructure/storage.
type PayloadArchive interface {
	// Upload writes data under the given key, overwriting any previous object
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// ArchiveHandler copies every processed payload into the long-term archive.
// It subscribes to OrderIngested; the same inbox item may be reprocessed any
// number of times, so uploads are keyed by item id and overwrite in place.
type ArchiveHandler struct {
	archive PayloadArchive
	logger  *zap.Logger
}

// NewArchiveHandler creates a new archive event handler
func NewArchiveHandler(archive PayloadArchive, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archive: archive,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ArchiveHandler) EventTypes() []string {
	return []string{integration.EventTypeOrderIngested}
}

// Handle writes the ingested payload to the archive under
// <provider>/<workday>/<inbox item id>.json.
func (h *ArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	ingested, ok := event.(*integration.OrderIngestedEvent)
	if !ok {
		return nil
	}

	key := archiveKey(ingested.Provider, ingested.Workday, ingested.InboxItemID)
	if err := h.archive.Upload(ctx, key, ingested.Payload, "application/json"); err != nil {
		return fmt.Errorf("failed to archive payload %s: %w", key, err)
	}

	h.logger.Debug("payload archived",
		zap.String("key", key),
		zap.String("external_id", ingested.ExternalID),
	)
	return nil
}

func archiveKey(provider integration.Provider, workday time.Time, itemID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s.json", provider, workday.Format("2006-01-02"), itemID)
}

// Ensure ArchiveHandler implements EventHandler
var _ shared.EventHandler = (*ArchiveHandler)(nil)
