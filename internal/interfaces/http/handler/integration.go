package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// IntegrationHandler handles the integration administration endpoints
type IntegrationHandler struct {
	BaseHandler
	service *integrationapp.Service
	manager *integrationapp.Manager
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(service *integrationapp.Service, manager *integrationapp.Manager) *IntegrationHandler {
	return &IntegrationHandler{
		service: service,
		manager: manager,
	}
}

// ConnectIntegrationRequest represents a request to connect a platform
// @Description Request body for connecting one delivery platform
type ConnectIntegrationRequest struct {
	Provider            string            `json:"provider" binding:"required,provider" example:"foody"`
	Type                string            `json:"type" binding:"required,oneof=sales logistics" example:"sales"`
	Name                string            `json:"name" binding:"max=100" example:"Foody - downtown"`
	Credentials         map[string]string `json:"credentials" binding:"required"`
	Sandbox             bool              `json:"sandbox"`
	SyncIntervalMinutes int               `json:"sync_interval_minutes" binding:"omitempty,min=1,max=1440" example:"5"`
	CostCenterID        string            `json:"cost_center_id" binding:"required,uuid"`
	OrganizationID      string            `json:"organization_id" binding:"omitempty,uuid"`
}

// UpdateIntegrationRequest represents a request to patch integration settings
// @Description Request body for updating integration settings
type UpdateIntegrationRequest struct {
	Name                *string           `json:"name" binding:"omitempty,max=100"`
	SyncIntervalMinutes *int              `json:"sync_interval_minutes" binding:"omitempty,min=1,max=1440"`
	Sandbox             *bool             `json:"sandbox"`
	Credentials         map[string]string `json:"credentials"`
}

// Connect godoc
// @Summary      Connect a delivery platform
// @Description  Stores a new integration and tries to bring it online. An authentication failure leaves the integration DEGRADED instead of failing the request.
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        request body ConnectIntegrationRequest true "Integration connection request"
// @Success      201 {object} dto.Response{data=integrationapp.IntegrationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations [post]
func (h *IntegrationHandler) Connect(c *gin.Context) {
	var req ConnectIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq, err := h.toConnectRequest(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	integ, err := h.service.Connect(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, integrationapp.IntegrationResponseFrom(integ))
}

func (h *IntegrationHandler) toConnectRequest(req ConnectIntegrationRequest) (integrationapp.ConnectIntegrationRequest, error) {
	costCenterID, err := uuid.Parse(req.CostCenterID)
	if err != nil {
		return integrationapp.ConnectIntegrationRequest{}, err
	}

	appReq := integrationapp.ConnectIntegrationRequest{
		Provider:            integration.Provider(req.Provider),
		Type:                integration.IntegrationType(req.Type),
		Name:                req.Name,
		Credentials:         req.Credentials,
		Sandbox:             req.Sandbox,
		SyncIntervalMinutes: req.SyncIntervalMinutes,
		CostCenterID:        costCenterID,
	}
	if req.OrganizationID != "" {
		orgID, err := uuid.Parse(req.OrganizationID)
		if err != nil {
			return integrationapp.ConnectIntegrationRequest{}, err
		}
		appReq.OrganizationID = orgID
	}
	return appReq, nil
}

// List godoc
// @Summary      List integrations
// @Description  Lists configured integrations, optionally narrowed to one cost center
// @Tags         integrations
// @Produce      json
// @Param        cost_center_id query string false "Cost center ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]integrationapp.IntegrationResponse}
// @Router       /integrations [get]
func (h *IntegrationHandler) List(c *gin.Context) {
	costCenterID, err := queryUUID(c, "cost_center_id")
	if err != nil {
		h.BadRequest(c, "Invalid cost center ID format")
		return
	}

	integs, err := h.service.List(c.Request.Context(), costCenterID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]integrationapp.IntegrationResponse, 0, len(integs))
	for i := range integs {
		responses = append(responses, integrationapp.IntegrationResponseFrom(&integs[i]))
	}
	h.Success(c, responses)
}

// Get godoc
// @Summary      Get integration by ID
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.IntegrationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{id} [get]
func (h *IntegrationHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	integ, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, integrationapp.IntegrationResponseFrom(integ))
}

// Update godoc
// @Summary      Update integration settings
// @Description  Patches name, sync interval, sandbox flag or credentials. A loaded integration is reloaded so the poll task picks up the change.
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Param        request body UpdateIntegrationRequest true "Settings patch"
// @Success      200 {object} dto.Response{data=integrationapp.IntegrationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{id} [patch]
func (h *IntegrationHandler) Update(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	var req UpdateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	integ, err := h.service.Update(c.Request.Context(), id, integrationapp.UpdateIntegrationRequest{
		Name:                req.Name,
		SyncIntervalMinutes: req.SyncIntervalMinutes,
		Sandbox:             req.Sandbox,
		Credentials:         req.Credentials,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, integrationapp.IntegrationResponseFrom(integ))
}

// Disconnect godoc
// @Summary      Disconnect an integration
// @Description  Stops polling and marks the integration STOPPED. Inbox history and orders are retained.
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{id} [delete]
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	if err := h.service.Disconnect(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ManualSync godoc
// @Summary      Trigger a manual sync
// @Description  Runs one out-of-schedule sync for the integration and returns the run report
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.SyncReport}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{id}/sync [post]
func (h *IntegrationHandler) ManualSync(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	report, err := h.service.ManualSync(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// TestConnection godoc
// @Summary      Test platform connectivity
// @Description  Best-effort reachability probe against the platform API
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Success      200 {object} dto.Response{data=ConnectionTestData}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{id}/test [post]
func (h *IntegrationHandler) TestConnection(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	reachable, err := h.service.TestConnection(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ConnectionTestData{Reachable: reachable})
}

// SyncLogs godoc
// @Summary      List sync-run audit records
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Param        limit query int false "Maximum rows" default(20)
// @Success      200 {object} dto.Response{data=[]integrationapp.SyncLogResponse}
// @Router       /integrations/{id}/sync-logs [get]
func (h *IntegrationHandler) SyncLogs(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, err := h.service.SyncLogs(c.Request.Context(), id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]integrationapp.SyncLogResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, integrationapp.SyncLogResponseFrom(&logs[i]))
	}
	h.Success(c, responses)
}

// OrderActionRequest carries the optional reason for reject/cancel actions
// @Description Request body for order lifecycle actions
type OrderActionRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderAction godoc
// @Summary      Drive an order's lifecycle on the platform
// @Description  Routes confirm/reject/ready/dispatch/cancel to the platform adapter owning the integration
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Integration ID" format(uuid)
// @Param        external_id path string true "Platform-native order ID"
// @Param        action path string true "Action" Enums(confirm, reject, ready, dispatch, cancel)
// @Param        request body OrderActionRequest false "Action options"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrations/{id}/orders/{external_id}/{action} [post]
func (h *IntegrationHandler) OrderAction(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}
	externalID := c.Param("external_id")
	if externalID == "" {
		h.BadRequest(c, "External order ID is required")
		return
	}

	var req OrderActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	switch action := c.Param("action"); action {
	case "confirm":
		err = h.manager.ConfirmOrder(ctx, id, externalID)
	case "reject":
		err = h.manager.RejectOrder(ctx, id, externalID, req.Reason)
	case "ready":
		err = h.manager.MarkOrderReady(ctx, id, externalID)
	case "dispatch":
		err = h.manager.DispatchOrder(ctx, id, externalID)
	case "cancel":
		err = h.manager.CancelOrder(ctx, id, externalID, req.Reason)
	default:
		h.BadRequest(c, "Unknown order action: "+action)
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, nil)
}
