package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// Webhook delivery headers. Platforms that sign payloads put the signature
// in HeaderSignature; the rest are routing hints.
const (
	HeaderSignature  = "X-Signature"
	HeaderEventType  = "X-Event-Type"
	HeaderOrderID    = "X-Order-Id"
	HeaderMerchantID = "X-Merchant-Id"
	HeaderDeliveryID = "X-Delivery-Id"
)

// WebhookHandler receives platform push deliveries
type WebhookHandler struct {
	BaseHandler
	manager *integrationapp.Manager
	logger  *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(manager *integrationapp.Manager, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{manager: manager, logger: logger}
}

// WebhookReceiptData acknowledges a staged delivery
// @Description Webhook receipt acknowledgement
type WebhookReceiptData struct {
	ItemID string `json:"item_id"`
	Status string `json:"status"`
}

// Receive godoc
// @Summary      Receive a platform webhook
// @Description  Verifies, durably stages and best-effort processes one platform push delivery. Answers 200 once the payload is staged, even when processing fails, so platforms do not re-deliver payloads already held.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        provider path string true "Platform" Enums(foody, ifood, rappi, lalamove)
// @Param        X-Signature header string false "Payload signature, for signing platforms"
// @Param        X-Event-Type header string false "Platform event name"
// @Param        X-Order-Id header string false "Platform-native order ID"
// @Param        X-Merchant-Id header string false "Merchant routing hint"
// @Success      200 {object} dto.Response{data=WebhookReceiptData}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/{provider} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := integration.Provider(c.Param("provider"))
	if !provider.IsValid() {
		h.NotFound(c, "Unknown platform: "+c.Param("provider"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Unreadable request body")
		return
	}
	if len(body) == 0 {
		h.BadRequest(c, "Empty webhook body")
		return
	}

	event := c.GetHeader(HeaderEventType)
	if event == "" {
		event = c.Query("event")
	}

	item, err := h.manager.IngestWebhook(c.Request.Context(), integrationapp.WebhookDelivery{
		Provider:      provider,
		Signature:     c.GetHeader(HeaderSignature),
		Event:         event,
		ExternalID:    c.GetHeader(HeaderOrderID),
		CorrelationID: getRequestID(c),
		MerchantHint:  c.GetHeader(HeaderMerchantID),
		Body:          body,
	})
	if err != nil {
		h.logger.Warn("webhook rejected",
			zap.String("provider", provider.String()),
			zap.Error(err),
		)
		h.HandleError(c, err)
		return
	}

	h.Success(c, WebhookReceiptData{ItemID: item.ID.String(), Status: string(item.Status)})
}
