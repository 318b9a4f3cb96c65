package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	inboxapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/inbox"
	integrationapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/order"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// ---------------------------------------------------------------------------
// Stub adapters
// ---------------------------------------------------------------------------

type stubAdapter struct {
	provider integration.Provider
	authErr  error

	mu        sync.Mutex
	confirmed []string
	rejected  []string
}

func (a *stubAdapter) Provider() integration.Provider          { return a.provider }
func (a *stubAdapter) Authenticate(ctx context.Context) error  { return a.authErr }
func (a *stubAdapter) IsTokenValid() bool                      { return a.authErr == nil }
func (a *stubAdapter) TestConnection(ctx context.Context) bool { return a.authErr == nil }

func (a *stubAdapter) FetchOrders(ctx context.Context, since time.Time) ([]integration.NormalizedOrder, error) {
	return nil, nil
}

func (a *stubAdapter) GetOrderDetails(ctx context.Context, externalID string) (*integration.NormalizedOrder, error) {
	return nil, integration.ErrOrderNotFound
}

func (a *stubAdapter) ConfirmOrder(ctx context.Context, externalID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.confirmed = append(a.confirmed, externalID)
	return nil
}

func (a *stubAdapter) RejectOrder(ctx context.Context, externalID, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected = append(a.rejected, externalID+":"+reason)
	return nil
}

func (a *stubAdapter) MarkOrderReady(ctx context.Context, externalID string) error { return nil }
func (a *stubAdapter) DispatchOrder(ctx context.Context, externalID string) error  { return nil }
func (a *stubAdapter) CancelOrder(ctx context.Context, externalID, reason string) error {
	return nil
}

// stubIngestAdapter adds the inbox ingestion capability
type stubIngestAdapter struct {
	stubAdapter
	processFunc func(ctx context.Context, event string, payload []byte) (*integration.IngestResult, error)
}

func (a *stubIngestAdapter) IngestOrders(ctx context.Context, since time.Time) ([]integration.RawEvent, error) {
	return nil, nil
}

func (a *stubIngestAdapter) ProcessPayload(ctx context.Context, event string, payload []byte) (*integration.IngestResult, error) {
	if a.processFunc != nil {
		return a.processFunc(ctx, event, payload)
	}
	return &integration.IngestResult{Ignore: true, IgnoreReason: "no handler"}, nil
}

// stubLogisticsAdapter answers courier operations with canned values
type stubLogisticsAdapter struct {
	stubAdapter
	quote    *integration.DeliveryQuote
	tracking *integration.DeliveryTracking
}

func (a *stubLogisticsAdapter) GetDeliveryQuote(ctx context.Context, req *integration.DeliveryQuoteRequest) (*integration.DeliveryQuote, error) {
	return a.quote, nil
}

func (a *stubLogisticsAdapter) RequestDelivery(ctx context.Context, req *integration.DeliveryRequest) (string, error) {
	return "DLV-1", nil
}

func (a *stubLogisticsAdapter) CancelDelivery(ctx context.Context, deliveryID, reason string) error {
	return nil
}

func (a *stubLogisticsAdapter) GetDeliveryTracking(ctx context.Context, deliveryID string) (*integration.DeliveryTracking, error) {
	if a.tracking == nil {
		return nil, integration.ErrOrderNotFound
	}
	return a.tracking, nil
}

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memIntegrationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]integration.Integration
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{items: make(map[uuid.UUID]integration.Integration)}
}

func (r *memIntegrationRepo) Save(ctx context.Context, integ *integration.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[integ.ID] = *integ
	return nil
}

func (r *memIntegrationRepo) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	integ, ok := r.items[id]
	if !ok {
		return nil, integration.ErrIntegrationNotFound
	}
	found := integ
	return &found, nil
}

func (r *memIntegrationRepo) FindAll(ctx context.Context) ([]integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]integration.Integration, 0, len(r.items))
	for _, integ := range r.items {
		all = append(all, integ)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

func (r *memIntegrationRepo) FindLoadable(ctx context.Context) ([]integration.Integration, error) {
	all, _ := r.FindAll(ctx)
	loadable := make([]integration.Integration, 0, len(all))
	for _, integ := range all {
		if integ.Status.IsLoadable() {
			loadable = append(loadable, integ)
		}
	}
	return loadable, nil
}

func (r *memIntegrationRepo) FindByCostCenter(ctx context.Context, costCenterID uuid.UUID) ([]integration.Integration, error) {
	all, _ := r.FindAll(ctx)
	matched := make([]integration.Integration, 0, len(all))
	for _, integ := range all {
		if integ.CostCenterID == costCenterID {
			matched = append(matched, integ)
		}
	}
	return matched, nil
}

func (r *memIntegrationRepo) FindByProvider(ctx context.Context, provider integration.Provider) ([]integration.Integration, error) {
	all, _ := r.FindAll(ctx)
	matched := make([]integration.Integration, 0, len(all))
	for _, integ := range all {
		if integ.Provider == provider {
			matched = append(matched, integ)
		}
	}
	return matched, nil
}

func (r *memIntegrationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status integration.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	integ, ok := r.items[id]
	if !ok {
		return integration.ErrIntegrationNotFound
	}
	integ.Status = status
	r.items[id] = integ
	return nil
}

func (r *memIntegrationRepo) UpdateLastSyncAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	integ, ok := r.items[id]
	if !ok {
		return integration.ErrIntegrationNotFound
	}
	integ.LastSyncAt = &at
	r.items[id] = integ
	return nil
}

type memSyncLogRepo struct {
	mu   sync.Mutex
	logs []integration.SyncLog
}

func (r *memSyncLogRepo) Save(ctx context.Context, syncLog *integration.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *syncLog)
	return nil
}

func (r *memSyncLogRepo) ListByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]integration.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]integration.SyncLog, 0, len(r.logs))
	for i := len(r.logs) - 1; i >= 0 && len(matched) < limit; i-- {
		if r.logs[i].IntegrationID == integrationID {
			matched = append(matched, r.logs[i])
		}
	}
	return matched, nil
}

type memInboxRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]inbox.Item
}

func newMemInboxRepo() *memInboxRepo {
	return &memInboxRepo{items: make(map[uuid.UUID]inbox.Item)}
}

func (r *memInboxRepo) Save(ctx context.Context, item *inbox.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = *item
	return nil
}

func (r *memInboxRepo) FindByID(ctx context.Context, id uuid.UUID) (*inbox.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, inbox.ErrItemNotFound
	}
	found := item
	return &found, nil
}

func (r *memInboxRepo) ListPending(ctx context.Context, integrationID uuid.UUID, limit int) ([]inbox.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := make([]inbox.Item, 0)
	for _, item := range r.items {
		if item.IntegrationID == integrationID && item.Status == inbox.StatusPending {
			pending = append(pending, item)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ReceivedAt.Before(pending[j].ReceivedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *memInboxRepo) List(ctx context.Context, filter inbox.Filter) ([]inbox.Item, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]inbox.Item, 0)
	for _, item := range r.items {
		if filter.IntegrationID != nil && item.IntegrationID != *filter.IntegrationID {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ReceivedAt.After(matched[j].ReceivedAt) })
	return matched, int64(len(matched)), nil
}

type memOrderRepo struct {
	mu   sync.Mutex
	rows map[string]order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{rows: make(map[string]order.Order)}
}

func (r *memOrderRepo) UpsertByExternalKey(ctx context.Context, o *order.Order) error {
	key := strings.Join([]string{o.CostCenterID.String(), o.ExternalID, o.Platform.String()}, "|")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key] = *o
	return nil
}

func (r *memOrderRepo) UpsertByCode(ctx context.Context, o *order.Order) error {
	key := strings.Join([]string{o.CostCenterID.String(), "code", o.Code}, "|")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key] = *o
	return nil
}

func (r *memOrderRepo) FindByExternalKey(ctx context.Context, costCenterID uuid.UUID, externalID string, platform integration.Provider) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.Join([]string{costCenterID.String(), externalID, platform.String()}, "|")
	row, ok := r.rows[key]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	found := row
	return &found, nil
}

func (r *memOrderRepo) ListByCostCenter(ctx context.Context, costCenterID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]order.Order, 0)
	for _, row := range r.rows {
		if row.CostCenterID == costCenterID {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].PlacedAt.After(matched[j].PlacedAt) })
	return matched, int64(len(matched)), nil
}

type memWorktimeRepo struct {
	mu   sync.Mutex
	rows map[string]worktime.Record
}

func newMemWorktimeRepo() *memWorktimeRepo {
	return &memWorktimeRepo{rows: make(map[string]worktime.Record)}
}

func (r *memWorktimeRepo) Upsert(ctx context.Context, record *worktime.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.Join([]string{record.RestaurantID.String(), record.Provider, record.ProviderOrderID}, "|")
	r.rows[key] = *record
	return nil
}

func (r *memWorktimeRepo) FindByKey(ctx context.Context, restaurantID uuid.UUID, provider, providerOrderID string) (*worktime.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.Join([]string{restaurantID.String(), provider, providerOrderID}, "|")
	row, ok := r.rows[key]
	if !ok {
		return nil, worktime.ErrRecordNotFound
	}
	found := row
	return &found, nil
}

func (r *memWorktimeRepo) ListByWorkday(ctx context.Context, restaurantID uuid.UUID, from, to time.Time, page, pageSize int) ([]worktime.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]worktime.Record, 0)
	for _, row := range r.rows {
		if row.RestaurantID == restaurantID && !row.Workday.Before(from) && !row.Workday.After(to) {
			matched = append(matched, row)
		}
	}
	return matched, int64(len(matched)), nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type handlerFixture struct {
	integs    *memIntegrationRepo
	syncLogs  *memSyncLogRepo
	inboxRepo *memInboxRepo
	orders    *memOrderRepo
	worktimes *memWorktimeRepo

	manager  *integrationapp.Manager
	service  *integrationapp.Service
	inboxSvc *inboxapp.Service
}

func newHandlerFixture(factories map[integration.Provider]integration.Factory) *handlerFixture {
	registry := integration.NewRegistry()
	for provider, factory := range factories {
		registry.Register(provider, factory)
	}

	f := &handlerFixture{
		integs:    newMemIntegrationRepo(),
		syncLogs:  &memSyncLogRepo{},
		inboxRepo: newMemInboxRepo(),
		orders:    newMemOrderRepo(),
		worktimes: newMemWorktimeRepo(),
	}
	logger := zap.NewNop()
	f.manager = integrationapp.NewManager(registry, f.integs, f.syncLogs, f.inboxRepo, f.orders, f.worktimes, nil, nil, logger)
	f.service = integrationapp.NewService(f.manager, f.integs, f.syncLogs, logger)
	f.inboxSvc = inboxapp.NewService(f.inboxRepo, logger)
	return f
}

func staticFactory(adapter integration.PlatformAdapter) integration.Factory {
	return func(cfg integration.AdapterConfig) (integration.PlatformAdapter, error) {
		return adapter, nil
	}
}

func (f *handlerFixture) saveConnected(t *testing.T, provider integration.Provider, typ integration.IntegrationType) *integration.Integration {
	t.Helper()
	integ, err := integration.NewIntegration(provider, typ, "", integration.Credentials{"apiToken": "token"}, uuid.New(), uuid.New())
	require.NoError(t, err)
	integ.MarkConnected()
	require.NoError(t, f.integs.Save(context.Background(), integ))
	return integ
}

func (f *handlerFixture) saveOrder(t *testing.T, costCenterID uuid.UUID, externalID string) *order.Order {
	t.Helper()
	o := &order.Order{
		ID:           uuid.New(),
		CostCenterID: costCenterID,
		ExternalID:   externalID,
		Platform:     integration.ProviderFoody,
		Status:       integration.OrderStatusConfirmed,
		Customer:     integration.Customer{Name: "Ana"},
		Subtotal:     decimal.NewFromInt(30),
		Total:        decimal.NewFromInt(30),
		PlacedAt:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, f.orders.UpsertByExternalKey(context.Background(), o))
	return o
}

func (f *handlerFixture) saveInboxItem(t *testing.T, integrationID uuid.UUID, status inbox.Status) *inbox.Item {
	t.Helper()
	item, err := inbox.NewItem(integrationID, "poll", json.RawMessage(`{"id":"X1"}`), "order.created", "X1", "")
	require.NoError(t, err)
	switch status {
	case inbox.StatusProcessed:
		require.NoError(t, item.MarkProcessed(nil))
	case inbox.StatusFailed:
		require.NoError(t, item.MarkFailed("boom"))
	case inbox.StatusIgnored:
		require.NoError(t, item.MarkIgnored("heartbeat"))
	}
	require.NoError(t, f.inboxRepo.Save(context.Background(), item))
	return item
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

func performRequest(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataField(t *testing.T, resp dto.Response, key string) any {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "response data is not an object")
	return data[key]
}
