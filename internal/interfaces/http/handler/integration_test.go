package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
)

func newIntegrationRouter(f *handlerFixture) *gin.Engine {
	h := NewIntegrationHandler(f.service, f.manager)
	router := gin.New()
	router.POST("/integrations", h.Connect)
	router.GET("/integrations", h.List)
	router.GET("/integrations/:id", h.Get)
	router.PATCH("/integrations/:id", h.Update)
	router.DELETE("/integrations/:id", h.Disconnect)
	router.POST("/integrations/:id/sync", h.ManualSync)
	router.POST("/integrations/:id/test", h.TestConnection)
	router.GET("/integrations/:id/sync-logs", h.SyncLogs)
	router.POST("/integrations/:id/orders/:external_id/:action", h.OrderAction)
	return router
}

func TestIntegrationHandlerConnect(t *testing.T) {
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderFoody: staticFactory(&stubIngestAdapter{stubAdapter: stubAdapter{provider: integration.ProviderFoody}}),
	})
	router := newIntegrationRouter(f)

	w := performRequest(router, http.MethodPost, "/integrations", map[string]any{
		"provider":       "foody",
		"type":           "sales",
		"credentials":    map[string]string{"apiToken": "secret"},
		"cost_center_id": uuid.New().String(),
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "foody", dataField(t, resp, "provider"))
	assert.Equal(t, string(integration.StatusIngesting), dataField(t, resp, "status"))
	// credentials never echo back; only the key names do
	keys, ok := dataField(t, resp, "credential_keys").([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"apiToken"}, keys)

	f.manager.Shutdown(context.Background())
}

func TestIntegrationHandlerConnectDegradedOnAuthFailure(t *testing.T) {
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderIfood: staticFactory(&stubAdapter{provider: integration.ProviderIfood, authErr: integration.ErrPlatformAuthFailed}),
	})
	router := newIntegrationRouter(f)

	w := performRequest(router, http.MethodPost, "/integrations", map[string]any{
		"provider":       "ifood",
		"type":           "sales",
		"credentials":    map[string]string{"clientId": "a", "clientSecret": "b"},
		"cost_center_id": uuid.New().String(),
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, string(integration.StatusDegraded), dataField(t, resp, "status"))
}

func TestIntegrationHandlerConnectValidation(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newIntegrationRouter(f)

	// missing credentials fails binding
	w := performRequest(router, http.MethodPost, "/integrations", map[string]any{
		"provider":       "foody",
		"type":           "sales",
		"cost_center_id": uuid.New().String(),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown type fails binding before the service sees it
	w = performRequest(router, http.MethodPost, "/integrations", map[string]any{
		"provider":       "foody",
		"type":           "catering",
		"credentials":    map[string]string{"apiToken": "x"},
		"cost_center_id": uuid.New().String(),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntegrationHandlerConnectUnknownProvider(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newIntegrationRouter(f)

	w := performRequest(router, http.MethodPost, "/integrations", map[string]any{
		"provider":       "acme-eats",
		"type":           "sales",
		"credentials":    map[string]string{"apiToken": "x"},
		"cost_center_id": uuid.New().String(),
	}, nil)

	// Unknown slugs are rejected at binding time by the provider validator.
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
}

func TestIntegrationHandlerGetAndList(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newIntegrationRouter(f)
	integ := f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)
	f.saveConnected(t, integration.ProviderIfood, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodGet, "/integrations/"+integ.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, integ.ID.String(), dataField(t, resp, "id"))

	w = performRequest(router, http.MethodGet, "/integrations", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	all, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, all, 2)

	w = performRequest(router, http.MethodGet, "/integrations?cost_center_id="+integ.CostCenterID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	scoped, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, scoped, 1)
}

func TestIntegrationHandlerGetNotFound(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newIntegrationRouter(f)

	w := performRequest(router, http.MethodGet, "/integrations/"+uuid.New().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)

	w = performRequest(router, http.MethodGet, "/integrations/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntegrationHandlerUpdate(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newIntegrationRouter(f)
	integ := f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodPatch, "/integrations/"+integ.ID.String(), map[string]any{
		"name":                  "Foody - beachfront",
		"sync_interval_minutes": 10,
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "Foody - beachfront", dataField(t, resp, "name"))
	assert.Equal(t, float64(10), dataField(t, resp, "sync_interval_minutes"))
}

func TestIntegrationHandlerDisconnect(t *testing.T) {
	f := newHandlerFixture(nil)
	router := newIntegrationRouter(f)
	integ := f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodDelete, "/integrations/"+integ.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, err := f.integs.FindByID(context.Background(), integ.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.StatusStopped, stored.Status)
}

func TestIntegrationHandlerTestConnection(t *testing.T) {
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderFoody: staticFactory(&stubAdapter{provider: integration.ProviderFoody}),
	})
	router := newIntegrationRouter(f)
	integ := f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodPost, "/integrations/"+integ.ID.String()+"/test", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, true, dataField(t, resp, "reachable"))
}

func TestIntegrationHandlerOrderActions(t *testing.T) {
	adapter := &stubAdapter{provider: integration.ProviderFoody}
	f := newHandlerFixture(map[integration.Provider]integration.Factory{
		integration.ProviderFoody: staticFactory(adapter),
	})
	router := newIntegrationRouter(f)
	integ := f.saveConnected(t, integration.ProviderFoody, integration.IntegrationTypeSales)

	w := performRequest(router, http.MethodPost, "/integrations/"+integ.ID.String()+"/orders/F-77/confirm", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"F-77"}, adapter.confirmed)

	w = performRequest(router, http.MethodPost, "/integrations/"+integ.ID.String()+"/orders/F-78/reject", map[string]any{
		"reason": "kitchen closed",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"F-78:kitchen closed"}, adapter.rejected)

	w = performRequest(router, http.MethodPost, "/integrations/"+integ.ID.String()+"/orders/F-79/refund", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
