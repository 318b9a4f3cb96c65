package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
)

// WorktimeHandler exposes the reconciled operational-timing records
type WorktimeHandler struct {
	BaseHandler
	records worktime.Repository
}

// NewWorktimeHandler creates a new WorktimeHandler
func NewWorktimeHandler(records worktime.Repository) *WorktimeHandler {
	return &WorktimeHandler{records: records}
}

// WorktimeRecordResponse is the API view of one timing record
// @Description Reconciled order timing record
type WorktimeRecordResponse struct {
	ID              uuid.UUID      `json:"id"`
	RestaurantID    uuid.UUID      `json:"restaurant_id"`
	Provider        string         `json:"provider"`
	ProviderOrderID string         `json:"provider_order_id"`
	ArrivedAt       time.Time      `json:"arrived_at"`
	ReadyAt         *time.Time     `json:"ready_at,omitempty"`
	PickedUpAt      *time.Time     `json:"picked_up_at,omitempty"`
	DeliveredAt     *time.Time     `json:"delivered_at,omitempty"`
	PrepMinutes     *int           `json:"prep_minutes,omitempty"`
	PickupMinutes   *int           `json:"pickup_minutes,omitempty"`
	DeliveryMinutes *int           `json:"delivery_minutes,omitempty"`
	TotalMinutes    *int           `json:"total_minutes,omitempty"`
	Shift           worktime.Shift `json:"shift"`
	Workday         string         `json:"workday"`
	Invalidated     bool           `json:"invalidated"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func worktimeRecordResponseFrom(r *worktime.Record) WorktimeRecordResponse {
	return WorktimeRecordResponse{
		ID:              r.ID,
		RestaurantID:    r.RestaurantID,
		Provider:        r.Provider,
		ProviderOrderID: r.ProviderOrderID,
		ArrivedAt:       r.ArrivedAt,
		ReadyAt:         r.ReadyAt,
		PickedUpAt:      r.PickedUpAt,
		DeliveredAt:     r.DeliveredAt,
		PrepMinutes:     r.PrepMinutes,
		PickupMinutes:   r.PickupMinutes,
		DeliveryMinutes: r.DeliveryMinutes,
		TotalMinutes:    r.TotalMinutes,
		Shift:           r.Shift,
		Workday:         r.Workday.Format(dateOnlyLayout),
		Invalidated:     r.Invalidated,
		UpdatedAt:       r.UpdatedAt,
	}
}

// List godoc
// @Summary      List timing records by workday range
// @Description  Lists reconciled timing records for one restaurant over an inclusive workday range
// @Tags         worktime
// @Produce      json
// @Param        restaurant_id query string true "Restaurant ID" format(uuid)
// @Param        from query string true "Range start (RFC 3339 or YYYY-MM-DD)"
// @Param        to query string true "Range end (RFC 3339 or YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]WorktimeRecordResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /worktime [get]
func (h *WorktimeHandler) List(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Query("restaurant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid restaurant ID format")
		return
	}

	from, err := queryTime(c, "from")
	if err != nil || from == nil {
		h.BadRequest(c, "A valid from date is required")
		return
	}
	to, err := queryTime(c, "to")
	if err != nil || to == nil {
		h.BadRequest(c, "A valid to date is required")
		return
	}
	if to.Before(*from) {
		h.BadRequest(c, "to must not precede from")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.records.ListByWorkday(c.Request.Context(), restaurantID, *from, *to, page, pageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]WorktimeRecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, worktimeRecordResponseFrom(&records[i]))
	}
	h.SuccessWithMeta(c, responses, total, page, pageSize)
}
