package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
)

// stubSignedAdapter rejects every signature except "valid"
type stubSignedAdapter struct {
	stubIngestAdapter
}

func (a *stubSignedAdapter) VerifyWebhook(signature string, body []byte) error {
	if signature != "valid" {
		return integration.ErrPlatformInvalidSignature
	}
	return nil
}

func newWebhookRouter(f *handlerFixture) *gin.Engine {
	h := NewWebhookHandler(f.manager, zap.NewNop())
	router := gin.New()
	router.POST("/webhooks/:provider", h.Receive)
	return router
}

func TestWebhookHandlerReceive(t *testing.T) {
	adapter := &stubSignedAdapter{
		stubIngestAdapter: stubIngestAdapter{stubAdapter: stubAdapter{provider: integration.ProviderFoody}},
	}
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderFoody: staticFactory(adapter),
	})
	router := newWebhookRouter(f)
	integ := f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodPost, "/webhooks/foody", map[string]any{"id": "WH-1"}, map[string]string{
		HeaderSignature: "valid",
		HeaderEventType: "order.created",
		HeaderOrderID:   "WH-1",
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, string(inbox.StatusIgnored), dataField(t, resp, "status"))
	assert.NotEmpty(t, dataField(t, resp, "item_id"))

	items, _, err := f.inboxRepo.List(context.Background(), inbox.Filter{IntegrationID: &integ.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "webhook", items[0].Source)
	assert.Equal(t, "order.created", items[0].Event)
}

func TestWebhookHandlerBadSignature(t *testing.T) {
	adapter := &stubSignedAdapter{
		stubIngestAdapter: stubIngestAdapter{stubAdapter: stubAdapter{provider: integration.ProviderFoody}},
	}
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderFoody: staticFactory(adapter),
	})
	router := newWebhookRouter(f)
	f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodPost, "/webhooks/foody", map[string]any{"id": "WH-1"}, map[string]string{
		HeaderSignature: "forged",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
}

func TestWebhookHandlerUnknownProvider(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newWebhookRouter(f)

	w := performRequest(router, http.MethodPost, "/webhooks/acme-eats", map[string]any{"id": "1"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookHandlerNoIntegrationConfigured(t *testing.T) {
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderFoody: staticFactory(&stubIngestAdapter{stubAdapter: stubAdapter{provider: integration.ProviderFoody}}),
	})
	router := newWebhookRouter(f)

	w := performRequest(router, http.MethodPost, "/webhooks/foody", map[string]any{"id": "1"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookHandlerEmptyBody(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newWebhookRouter(f)

	w := performRequest(router, http.MethodPost, "/webhooks/foody", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandlerAcknowledgesFailedProcessing(t *testing.T) {
	adapter := &stubIngestAdapter{
		stubAdapter: stubAdapter{provider: integration.ProviderFoody},
		processFunc: func(ctx context.Context, event string, payload []byte) (*integration.IngestResult, error) {
			return nil, integration.ErrPlatformInvalidResponse
		},
	}
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderFoody: staticFactory(adapter),
	})
	router := newWebhookRouter(f)
	f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodPost, "/webhooks/foody", map[string]any{"id": "WH-2"}, nil)

	// receipt succeeds; the failure lives on the inbox item for reprocessing
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, string(inbox.StatusFailed), dataField(t, resp, "status"))
}
