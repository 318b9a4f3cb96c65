package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// DeliveryHandler routes courier operations to logistics integrations
type DeliveryHandler struct {
	BaseHandler
	manager *integrationapp.Manager
}

// NewDeliveryHandler creates a new DeliveryHandler
func NewDeliveryHandler(manager *integrationapp.Manager) *DeliveryHandler {
	return &DeliveryHandler{manager: manager}
}

// DeliveryQuoteRequest asks a carrier for price and ETA
// @Description Request body for a delivery quote
type DeliveryQuoteRequest struct {
	IntegrationID string                           `json:"integration_id" binding:"required,uuid"`
	Quote         integration.DeliveryQuoteRequest `json:"quote" binding:"required"`
}

// DeliveryDispatchRequest dispatches a courier through a carrier
// @Description Request body for requesting a delivery
type DeliveryDispatchRequest struct {
	IntegrationID string                      `json:"integration_id" binding:"required,uuid"`
	Delivery      integration.DeliveryRequest `json:"delivery" binding:"required"`
}

// DeliveryCancelRequest cancels a dispatched delivery
// @Description Request body for cancelling a delivery
type DeliveryCancelRequest struct {
	IntegrationID string `json:"integration_id" binding:"required,uuid"`
	Reason        string `json:"reason" binding:"max=500"`
}

// DeliveryCreatedData carries the carrier-side delivery id
// @Description Dispatched delivery reference
type DeliveryCreatedData struct {
	DeliveryID string `json:"delivery_id"`
}

// Quote godoc
// @Summary      Quote a delivery
// @Description  Asks the logistics integration's carrier for availability, price and ETA
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        request body DeliveryQuoteRequest true "Quote request"
// @Success      200 {object} dto.Response{data=integration.DeliveryQuote}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /deliveries/quote [post]
func (h *DeliveryHandler) Quote(c *gin.Context) {
	var req DeliveryQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	id, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	quote, err := h.manager.GetDeliveryQuote(c.Request.Context(), id, &req.Quote)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Request godoc
// @Summary      Request a delivery
// @Description  Dispatches a courier for an order through the logistics integration
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        request body DeliveryDispatchRequest true "Dispatch request"
// @Success      201 {object} dto.Response{data=DeliveryCreatedData}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /deliveries [post]
func (h *DeliveryHandler) Request(c *gin.Context) {
	var req DeliveryDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	id, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	deliveryID, err := h.manager.RequestDelivery(c.Request.Context(), id, &req.Delivery)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, DeliveryCreatedData{DeliveryID: deliveryID})
}

// Cancel godoc
// @Summary      Cancel a delivery
// @Description  Cancels a previously dispatched delivery on the carrier
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id path string true "Carrier-side delivery ID"
// @Param        request body DeliveryCancelRequest true "Cancel request"
// @Success      204
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /deliveries/{id} [delete]
func (h *DeliveryHandler) Cancel(c *gin.Context) {
	deliveryID := c.Param("id")
	if deliveryID == "" {
		h.BadRequest(c, "Delivery ID is required")
		return
	}

	var req DeliveryCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	id, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	if err := h.manager.CancelDelivery(c.Request.Context(), id, deliveryID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Tracking godoc
// @Summary      Track a delivery
// @Description  Fetches courier status, position and ETA for a dispatched delivery
// @Tags         deliveries
// @Produce      json
// @Param        id path string true "Carrier-side delivery ID"
// @Param        integration_id query string true "Integration ID" format(uuid)
// @Success      200 {object} dto.Response{data=integration.DeliveryTracking}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /deliveries/{id}/tracking [get]
func (h *DeliveryHandler) Tracking(c *gin.Context) {
	deliveryID := c.Param("id")
	if deliveryID == "" {
		h.BadRequest(c, "Delivery ID is required")
		return
	}
	integrationID, err := queryUUID(c, "integration_id")
	if err != nil || integrationID == nil {
		h.BadRequest(c, "A valid integration_id is required")
		return
	}

	tracking, err := h.manager.GetDeliveryTracking(c.Request.Context(), *integrationID, deliveryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tracking)
}
