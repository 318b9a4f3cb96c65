package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/order"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/scheduler"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response for work queued asynchronously
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	statusCode := dto.GetHTTPStatus(code)
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// notFoundSentinels are domain errors that all mean "no such resource"
var notFoundSentinels = []error{
	integration.ErrIntegrationNotFound,
	integration.ErrOrderNotFound,
	integration.ErrProviderNotRegistered,
	inbox.ErrItemNotFound,
	order.ErrOrderNotFound,
	worktime.ErrRecordNotFound,
}

// capabilitySentinels all mean "the platform's adapter cannot do this"
var capabilitySentinels = []error{
	integration.ErrSalesNotSupported,
	integration.ErrLogisticsNotSupported,
	integration.ErrIngestNotSupported,
}

// HandleError maps domain and integration errors onto HTTP responses.
// Unknown error types become 500 without leaking internals.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	var notFound *integration.NotFoundError
	if errors.As(err, &notFound) {
		h.ErrorWithCode(c, dto.ErrCodeNotFound, notFound.Error())
		return
	}
	var configErr *integration.ConfigError
	if errors.As(err, &configErr) {
		h.ErrorWithCode(c, dto.ErrCodePlatformConfig, configErr.Error())
		return
	}
	var apiErr *integration.PlatformAPIError
	if errors.As(err, &apiErr) {
		h.ErrorWithCode(c, dto.ErrCodePlatformAPI, apiErr.Error())
		return
	}
	var validationErr *integration.ValidationError
	if errors.As(err, &validationErr) {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, validationErr.Error())
		return
	}

	for _, sentinel := range notFoundSentinels {
		if errors.Is(err, sentinel) {
			h.ErrorWithCode(c, dto.ErrCodeNotFound, sentinel.Error())
			return
		}
	}
	for _, sentinel := range capabilitySentinels {
		if errors.Is(err, sentinel) {
			h.ErrorWithCode(c, dto.ErrCodeCapabilityUnsupported, sentinel.Error())
			return
		}
	}

	switch {
	case errors.Is(err, integration.ErrPlatformUnavailable):
		h.ErrorWithCode(c, dto.ErrCodePlatformUnavailable, err.Error())
	case errors.Is(err, integration.ErrIntegrationStopped):
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, integration.ErrWebhookTargetAmbiguous):
		h.ErrorWithCode(c, dto.ErrCodeConflict, err.Error())
	case errors.Is(err, integration.ErrPlatformInvalidSignature), errors.Is(err, integration.ErrPlatformAuthFailed):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, err.Error())
	case errors.Is(err, inbox.ErrReprocessNotPermitted), errors.Is(err, inbox.ErrTerminalStatus):
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, scheduler.ErrJobQueueFull), errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.ErrorWithCode(c, dto.ErrCodeQueueFull, err.Error())
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal,
			"An unexpected error occurred",
			requestID,
		))
	}
}
