package handler

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	inboxapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/scheduler"
)

// InboxHandler exposes the durable inbox for inspection and reprocessing
type InboxHandler struct {
	BaseHandler
	service   *inboxapp.Service
	scheduler *scheduler.ReprocessScheduler
	logger    *zap.Logger
}

// NewInboxHandler creates a new InboxHandler
func NewInboxHandler(service *inboxapp.Service, sched *scheduler.ReprocessScheduler, logger *zap.Logger) *InboxHandler {
	return &InboxHandler{
		service:   service,
		scheduler: sched,
		logger:    logger,
	}
}

// InboxItemResponse is the list view of one inbox item
// @Description Inbox item summary
type InboxItemResponse struct {
	ID            uuid.UUID  `json:"id"`
	IntegrationID uuid.UUID  `json:"integration_id"`
	Source        string     `json:"source"`
	Event         string     `json:"event"`
	ExternalID    string     `json:"external_id,omitempty"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	RetryCount    int        `json:"retry_count"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// InboxItemDetailResponse adds the raw and parsed payloads to the item view
// @Description Inbox item with payloads
type InboxItemDetailResponse struct {
	InboxItemResponse
	Payload       json.RawMessage `json:"payload,omitempty"`
	ParsedPayload json.RawMessage `json:"parsed_payload,omitempty"`
}

func inboxItemResponseFrom(item *inbox.Item) InboxItemResponse {
	return InboxItemResponse{
		ID:            item.ID,
		IntegrationID: item.IntegrationID,
		Source:        item.Source,
		Event:         item.Event,
		ExternalID:    item.ExternalID,
		Status:        string(item.Status),
		ErrorMessage:  item.ErrorMessage,
		RetryCount:    item.RetryCount,
		CorrelationID: item.CorrelationID,
		ReceivedAt:    item.ReceivedAt,
		ProcessedAt:   item.ProcessedAt,
	}
}

// List godoc
// @Summary      List inbox items
// @Description  Lists received platform events, newest first, with optional integration, status and date-range filters
// @Tags         inbox
// @Produce      json
// @Param        integration_id query string false "Integration ID" format(uuid)
// @Param        status query string false "Item status" Enums(PENDING, PROCESSED, FAILED, IGNORED)
// @Param        start_date query string false "Receipt window start (RFC 3339 or YYYY-MM-DD)"
// @Param        end_date query string false "Receipt window end (RFC 3339 or YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]InboxItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inbox [get]
func (h *InboxHandler) List(c *gin.Context) {
	filter, err := h.bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, total, err := h.service.ListItems(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]InboxItemResponse, 0, len(items))
	for i := range items {
		responses = append(responses, inboxItemResponseFrom(&items[i]))
	}
	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

func (h *InboxHandler) bindFilter(c *gin.Context) (inbox.Filter, error) {
	var filter inbox.Filter

	integrationID, err := queryUUID(c, "integration_id")
	if err != nil {
		return filter, errBadUUID
	}
	filter.IntegrationID = integrationID

	if raw := c.Query("status"); raw != "" {
		status := inbox.Status(raw)
		if !status.IsValid() {
			return filter, errBadStatus
		}
		filter.Status = &status
	}

	if filter.StartDate, err = queryTime(c, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = queryTime(c, "end_date"); err != nil {
		return filter, err
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter.Normalize()
	return filter, nil
}

// Get godoc
// @Summary      Get inbox item by ID
// @Description  Returns one inbox item including its raw and parsed payloads
// @Tags         inbox
// @Produce      json
// @Param        id path string true "Inbox item ID" format(uuid)
// @Success      200 {object} dto.Response{data=InboxItemDetailResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inbox/{id} [get]
func (h *InboxHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid inbox item ID format")
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, InboxItemDetailResponse{
		InboxItemResponse: inboxItemResponseFrom(item),
		Payload:           item.Payload,
		ParsedPayload:     item.ParsedPayload,
	})
}

// Reprocess godoc
// @Summary      Queue an inbox item for reprocessing
// @Description  Enqueues a terminal (PROCESSED, FAILED or IGNORED) item on the reprocess worker pool. The item is re-run from its stored raw payload; the idempotent upsert makes re-running a PROCESSED item safe.
// @Tags         inbox
// @Produce      json
// @Param        id path string true "Inbox item ID" format(uuid)
// @Success      202 {object} dto.Response{data=ReprocessData}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inbox/{id}/reprocess [post]
func (h *InboxHandler) Reprocess(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid inbox item ID format")
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !item.CanReprocess() {
		h.HandleError(c, inbox.ErrReprocessNotPermitted)
		return
	}

	job := scheduler.NewJob(item.ID)
	if err := h.scheduler.Submit(job); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("inbox reprocess queued",
		zap.String("item_id", item.ID.String()),
		zap.String("job_id", job.ID.String()))

	h.Accepted(c, ReprocessData{
		JobID:  job.ID.String(),
		ItemID: item.ID.String(),
	})
}
