package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/scheduler"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/tests/testutil"
)

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(tc *testutil.TestContext)
		expectedID string
	}{
		{
			name: "from context string",
			setup: func(tc *testutil.TestContext) {
				tc.SetRequestID("ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(tc *testutil.TestContext) {
				tc.SetHeader(RequestIDKey, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(tc *testutil.TestContext) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(tc *testutil.TestContext) {
				tc.SetRequestID("ctx-id")
				tc.SetHeader(RequestIDKey, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			tt.setup(tc)

			assert.Equal(t, tt.expectedID, getRequestID(tc.Context))
		})
	}
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	tc := testutil.NewTestContext(t)

	h.Success(tc.Context, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, tc.ResponseCode())
	testutil.AssertSuccessResponse(t, tc)
}

func TestBaseHandlerSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	tc := testutil.NewTestContext(t)

	h.SuccessWithMeta(tc.Context, []string{"item1", "item2"}, 100, 1, 10)

	assert.Equal(t, http.StatusOK, tc.ResponseCode())
	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, int64(100), resp.Meta.Total)
}

func TestBaseHandlerCreatedAndAccepted(t *testing.T) {
	h := &BaseHandler{}

	tc := testutil.NewTestContext(t)
	h.Created(tc.Context, map[string]string{"id": "123"})
	assert.Equal(t, http.StatusCreated, tc.ResponseCode())

	tc = testutil.NewTestContext(t)
	h.Accepted(tc.Context, map[string]string{"job_id": "456"})
	assert.Equal(t, http.StatusAccepted, tc.ResponseCode())
}

func TestBaseHandlerNoContent(t *testing.T) {
	h := &BaseHandler{}

	router := gin.New()
	router.DELETE("/test", func(c *gin.Context) {
		h.NoContent(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name         string
		method       func(*BaseHandler, *gin.Context)
		expectedCode int
		expectedErr  string
	}{
		{
			name: "BadRequest",
			method: func(h *BaseHandler, c *gin.Context) {
				h.BadRequest(c, "Invalid request")
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeBadRequest,
		},
		{
			name: "NotFound",
			method: func(h *BaseHandler, c *gin.Context) {
				h.NotFound(c, "Resource not found")
			},
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name: "Conflict",
			method: func(h *BaseHandler, c *gin.Context) {
				h.Conflict(c, "Resource conflict")
			},
			expectedCode: http.StatusConflict,
			expectedErr:  dto.ErrCodeConflict,
		},
		{
			name: "UnprocessableEntity",
			method: func(h *BaseHandler, c *gin.Context) {
				h.UnprocessableEntity(c, dto.ErrCodeInvalidState, "Wrong state")
			},
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeInvalidState,
		},
		{
			name: "InternalError",
			method: func(h *BaseHandler, c *gin.Context) {
				h.InternalError(c, "Server error")
			},
			expectedCode: http.StatusInternalServerError,
			expectedErr:  dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			tc := testutil.NewTestContext(t)

			tt.method(h, tc.Context)

			assert.Equal(t, tt.expectedCode, tc.ResponseCode())
			testutil.AssertErrorResponse(t, tc, tt.expectedErr)
		})
	}
}

func TestBaseHandlerErrorWithRequestID(t *testing.T) {
	h := &BaseHandler{}
	tc := testutil.NewTestContext(t)
	tc.SetRequestID("test-request-123")

	h.BadRequest(tc.Context, "Invalid request")

	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	assert.Equal(t, "test-request-123", resp.Error.RequestID)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "domain error",
			err:          &shared.DomainError{Code: dto.ErrCodeNotFound, Message: "gone"},
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "config error",
			err:          integration.NewConfigError(integration.ProviderFoody, "apiToken", "is required"),
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodePlatformConfig,
		},
		{
			name:         "platform api error",
			err:          &integration.PlatformAPIError{Provider: integration.ProviderIfood, Status: http.StatusBadGateway},
			expectedCode: http.StatusBadGateway,
			expectedErr:  dto.ErrCodePlatformAPI,
		},
		{
			name:         "validation error",
			err:          integration.NewValidationError(integration.ProviderFoody, "bad payload"),
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeInvalidInput,
		},
		{
			name:         "integration not found",
			err:          integration.ErrIntegrationNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "inbox item not found",
			err:          inbox.ErrItemNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "capability missing",
			err:          integration.ErrLogisticsNotSupported,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeCapabilityUnsupported,
		},
		{
			name:         "platform unavailable",
			err:          integration.ErrPlatformUnavailable,
			expectedCode: http.StatusBadGateway,
			expectedErr:  dto.ErrCodePlatformUnavailable,
		},
		{
			name:         "integration stopped",
			err:          integration.ErrIntegrationStopped,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeInvalidState,
		},
		{
			name:         "webhook ambiguous",
			err:          integration.ErrWebhookTargetAmbiguous,
			expectedCode: http.StatusConflict,
			expectedErr:  dto.ErrCodeConflict,
		},
		{
			name:         "invalid signature",
			err:          integration.ErrPlatformInvalidSignature,
			expectedCode: http.StatusUnauthorized,
			expectedErr:  dto.ErrCodeUnauthorized,
		},
		{
			name:         "reprocess not permitted",
			err:          inbox.ErrReprocessNotPermitted,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeInvalidState,
		},
		{
			name:         "queue full",
			err:          scheduler.ErrJobQueueFull,
			expectedCode: http.StatusServiceUnavailable,
			expectedErr:  dto.ErrCodeQueueFull,
		},
		{
			name:         "unknown error hides internals",
			err:          errors.New("pq: connection refused"),
			expectedCode: http.StatusInternalServerError,
			expectedErr:  dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			tc := testutil.NewTestContext(t)

			h.HandleError(tc.Context, tt.err)

			assert.Equal(t, tt.expectedCode, tc.ResponseCode())
			testutil.AssertErrorResponse(t, tc, tt.expectedErr)
		})
	}
}

func TestBaseHandlerHandleErrorHidesInternalMessage(t *testing.T) {
	h := &BaseHandler{}
	tc := testutil.NewTestContext(t)

	h.HandleError(tc.Context, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	assert.NotContains(t, resp.Error.Message, "10.0.0.5")
}
