package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/order"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
)

// OrderHandler exposes the persisted, platform-agnostic order records
type OrderHandler struct {
	BaseHandler
	orders order.Repository
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders order.Repository) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// OrderResponse is the API view of one ingested order
// @Description Platform-agnostic order record
type OrderResponse struct {
	ID            uuid.UUID                    `json:"id"`
	CostCenterID  uuid.UUID                    `json:"cost_center_id"`
	ExternalID    string                       `json:"external_id,omitempty"`
	Platform      integration.Provider         `json:"platform,omitempty"`
	Code          string                       `json:"code,omitempty"`
	Status        integration.OrderStatus      `json:"status"`
	Customer      integration.Customer         `json:"customer"`
	Address       *integration.DeliveryAddress `json:"address,omitempty"`
	Items         []integration.OrderItem      `json:"items"`
	Subtotal      decimal.Decimal              `json:"subtotal"`
	DeliveryFee   decimal.Decimal              `json:"delivery_fee"`
	Discount      decimal.Decimal              `json:"discount"`
	Total         decimal.Decimal              `json:"total"`
	PaymentMethod string                       `json:"payment_method,omitempty"`
	PaymentStatus string                       `json:"payment_status,omitempty"`
	PlacedAt      time.Time                    `json:"placed_at"`
	ReadyAt       *time.Time                   `json:"ready_at,omitempty"`
	PickedUpAt    *time.Time                   `json:"picked_up_at,omitempty"`
	DeliveredAt   *time.Time                   `json:"delivered_at,omitempty"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

func orderResponseFrom(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		CostCenterID:  o.CostCenterID,
		ExternalID:    o.ExternalID,
		Platform:      o.Platform,
		Code:          o.Code,
		Status:        o.Status,
		Customer:      o.Customer,
		Address:       o.Address,
		Items:         o.Items,
		Subtotal:      o.Subtotal,
		DeliveryFee:   o.DeliveryFee,
		Discount:      o.Discount,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		PlacedAt:      o.PlacedAt,
		ReadyAt:       o.ReadyAt,
		PickedUpAt:    o.PickedUpAt,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// List godoc
// @Summary      List ingested orders
// @Description  Lists orders for one cost center, newest placement first
// @Tags         orders
// @Produce      json
// @Param        cost_center_id query string true "Cost center ID" format(uuid)
// @Param        status query string false "Order status filter"
// @Param        platform query string false "Platform filter"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]OrderResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	costCenterID, err := uuid.Parse(c.Query("cost_center_id"))
	if err != nil {
		h.BadRequest(c, "Invalid cost center ID format")
		return
	}

	filter := shared.DefaultFilter()
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter.OrderBy = "placed_at"
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if platform := c.Query("platform"); platform != "" {
		filter.Filters["platform"] = platform
	}
	filter.Normalize()

	orders, total, err := h.orders.ListByCostCenter(c.Request.Context(), costCenterID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, orderResponseFrom(&orders[i]))
	}
	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get an order by its platform key
// @Description  Resolves one order by (cost center, external id, platform)
// @Tags         orders
// @Produce      json
// @Param        cost_center_id query string true "Cost center ID" format(uuid)
// @Param        external_id query string true "Platform-native order ID"
// @Param        platform query string true "Platform"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /orders/lookup [get]
func (h *OrderHandler) Get(c *gin.Context) {
	costCenterID, err := uuid.Parse(c.Query("cost_center_id"))
	if err != nil {
		h.BadRequest(c, "Invalid cost center ID format")
		return
	}
	externalID := c.Query("external_id")
	platform := c.Query("platform")
	if externalID == "" || platform == "" {
		h.BadRequest(c, "external_id and platform are required")
		return
	}

	o, err := h.orders.FindByExternalKey(c.Request.Context(), costCenterID, externalID, integration.Provider(platform))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orderResponseFrom(o))
}
