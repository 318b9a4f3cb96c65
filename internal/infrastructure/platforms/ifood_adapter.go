package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const (
	ifoodTokenPath   = "/authentication/v1.0/oauth/token"
	ifoodEventsPath  = "/order/v1.0/events:polling"
	ifoodAckPath     = "/order/v1.0/events/acknowledgment"
	ifoodOrdersPath  = "/order/v1.0/orders/"
	ifoodCatalogPath = "/catalog/v2.0/merchants/"

	// iFood cancellation codes: 501 is merchant-initiated rejection,
	// 506 covers cancellations after confirmation
	ifoodCancelCodeRejected  = "501"
	ifoodCancelCodeCancelled = "506"
)

// IfoodAdapter implements the iFood merchant API. Order status never comes
// from the order details endpoint: iFood publishes lifecycle transitions as
// events, so FetchOrders polls the event queue, loads details per order and
// acknowledges the batch.
type IfoodAdapter struct {
	config     *IfoodConfig
	httpClient *http.Client

	tokenStore integration.TokenStore
	tokenKey   string

	tokenMu sync.Mutex
	token   integration.Token
}

// NewIfoodAdapter creates a new iFood adapter from an integration's config
func NewIfoodAdapter(cfg integration.AdapterConfig) (*IfoodAdapter, error) {
	config, err := NewIfoodConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &IfoodAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		tokenStore: cfg.TokenStore,
		tokenKey:   cfg.TokenKey,
	}, nil
}

// Provider returns the platform this adapter handles
func (a *IfoodAdapter) Provider() integration.Provider {
	return integration.ProviderIfood
}

// Authenticate performs the client-credentials grant and caches the token
func (a *IfoodAdapter) Authenticate(ctx context.Context) error {
	token, err := a.fetchToken(ctx)
	if err != nil {
		return err
	}

	a.tokenMu.Lock()
	a.token = token
	a.tokenMu.Unlock()

	if a.tokenStore != nil && a.tokenKey != "" {
		if err := a.tokenStore.Put(ctx, a.tokenKey, token); err != nil {
			return fmt.Errorf("ifood: failed to store token: %w", err)
		}
	}
	return nil
}

// IsTokenValid reports whether the cached token is still usable
func (a *IfoodAdapter) IsTokenValid() bool {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	return a.token.Valid(tokenExpiryMargin)
}

// TestConnection probes the merchant endpoint, swallowing transport errors
func (a *IfoodAdapter) TestConnection(ctx context.Context) bool {
	_, err := a.doRequest(ctx, http.MethodGet, "/merchant/v1.0/merchants/"+url.PathEscape(a.config.MerchantID), nil, nil)
	return err == nil
}

// ---------------------------------------------------------------------------
// Sales Operations
// ---------------------------------------------------------------------------

// FetchOrders drains the merchant's event queue and loads the affected
// orders. The queue supersedes the since window: iFood delivers each event
// once and expects an acknowledgment, so the parameter is unused.
func (a *IfoodAdapter) FetchOrders(ctx context.Context, _ time.Time) ([]integration.NormalizedOrder, error) {
	events, err := a.pollEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	// Later events win: the queue is ordered, so one pass keeps the most
	// recent fullCode per order.
	latest := make(map[string]ifoodEvent)
	orderIDs := make([]string, 0, len(events))
	for _, event := range events {
		if event.OrderID == "" {
			continue
		}
		if _, seen := latest[event.OrderID]; !seen {
			orderIDs = append(orderIDs, event.OrderID)
		}
		latest[event.OrderID] = event
	}

	orders := make([]integration.NormalizedOrder, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		order, err := a.GetOrderDetails(ctx, orderID)
		if err != nil {
			return nil, err
		}
		order.Status = mapIfoodStatus(latest[orderID].FullCode)
		orders = append(orders, *order)
	}

	if err := a.acknowledgeEvents(ctx, events); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrderDetails loads one order by its iFood id. The returned status is
// pending; callers that know the event fullCode overwrite it.
func (a *IfoodAdapter) GetOrderDetails(ctx context.Context, externalID string) (*integration.NormalizedOrder, error) {
	if externalID == "" {
		return nil, integration.ErrOrderNotFound
	}

	body, err := a.doRequest(ctx, http.MethodGet, ifoodOrdersPath+url.PathEscape(externalID), nil, nil)
	if err != nil {
		var apiErr *integration.PlatformAPIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, integration.ErrOrderNotFound
		}
		return nil, err
	}

	var wire ifoodOrder
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("ifood: failed to parse order: %w", err)
	}

	order := a.normalizeOrder(&wire, body)
	return &order, nil
}

// ConfirmOrder accepts a placed order
func (a *IfoodAdapter) ConfirmOrder(ctx context.Context, externalID string) error {
	return a.postOrderAction(ctx, externalID, "confirm", nil)
}

// RejectOrder declines a placed order with a reason
func (a *IfoodAdapter) RejectOrder(ctx context.Context, externalID, reason string) error {
	return a.postOrderAction(ctx, externalID, "requestCancellation", &ifoodCancellation{
		Reason:           reason,
		CancellationCode: ifoodCancelCodeRejected,
	})
}

// MarkOrderReady signals the order is ready for the courier
func (a *IfoodAdapter) MarkOrderReady(ctx context.Context, externalID string) error {
	return a.postOrderAction(ctx, externalID, "readyToPickup", nil)
}

// DispatchOrder signals the order left with the courier
func (a *IfoodAdapter) DispatchOrder(ctx context.Context, externalID string) error {
	return a.postOrderAction(ctx, externalID, "dispatch", nil)
}

// CancelOrder requests cancellation of an in-flight order
func (a *IfoodAdapter) CancelOrder(ctx context.Context, externalID, reason string) error {
	return a.postOrderAction(ctx, externalID, "requestCancellation", &ifoodCancellation{
		Reason:           reason,
		CancellationCode: ifoodCancelCodeCancelled,
	})
}

func (a *IfoodAdapter) postOrderAction(ctx context.Context, externalID, action string, payload any) error {
	if externalID == "" {
		return integration.ErrOrderNotFound
	}
	_, err := a.doRequest(ctx, http.MethodPost, ifoodOrdersPath+url.PathEscape(externalID)+"/"+action, payload, nil)
	return err
}

// ---------------------------------------------------------------------------
// Catalog Sync
// ---------------------------------------------------------------------------

// SyncCatalog pushes availability and price per item. iFood exposes no batch
// endpoint, so the push is per item and stops at the first failure.
func (a *IfoodAdapter) SyncCatalog(ctx context.Context, items []integration.CatalogItem) error {
	for _, item := range items {
		status := "UNAVAILABLE"
		if item.Available {
			status = "AVAILABLE"
		}

		body := ifoodCatalogItem{
			ExternalCode: item.ExternalCode,
			Name:         item.Name,
			Description:  item.Description,
			Category:     item.Category,
			Status:       status,
			Price:        ifoodItemPrice{Value: item.Price},
		}

		path := ifoodCatalogPath + url.PathEscape(a.config.MerchantID) + "/items"
		if _, err := a.doRequest(ctx, http.MethodPatch, path, body, nil); err != nil {
			return fmt.Errorf("ifood: catalog push failed for %s: %w", item.ExternalCode, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// pollEvents reads the merchant's pending events; 204 means an empty queue
func (a *IfoodAdapter) pollEvents(ctx context.Context) ([]ifoodEvent, error) {
	headers := map[string]string{"x-polling-merchants": a.config.MerchantID}
	body, err := a.doRequest(ctx, http.MethodGet, ifoodEventsPath, nil, headers)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var events []ifoodEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("ifood: failed to parse events: %w", err)
	}
	return events, nil
}

// acknowledgeEvents confirms receipt so iFood stops redelivering the batch
func (a *IfoodAdapter) acknowledgeEvents(ctx context.Context, events []ifoodEvent) error {
	if len(events) == 0 {
		return nil
	}

	acks := make([]map[string]string, 0, len(events))
	for _, event := range events {
		acks = append(acks, map[string]string{"id": event.ID})
	}

	_, err := a.doRequest(ctx, http.MethodPost, ifoodAckPath, acks, nil)
	return err
}

// fetchToken performs the OAuth client-credentials grant
func (a *IfoodAdapter) fetchToken(ctx context.Context) (integration.Token, error) {
	form := url.Values{}
	form.Set("grantType", "client_credentials")
	form.Set("clientId", a.config.ClientID)
	form.Set("clientSecret", a.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+ifoodTokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return integration.Token{}, fmt.Errorf("ifood: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return integration.Token{}, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return integration.Token{}, fmt.Errorf("ifood: failed to read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return integration.Token{}, fmt.Errorf("%w: status %d", integration.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return integration.Token{}, integration.NewPlatformAPIError(integration.ProviderIfood, resp.StatusCode, string(body))
	}

	var wire ifoodTokenResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return integration.Token{}, fmt.Errorf("ifood: failed to parse token response: %w", err)
	}
	if wire.AccessToken == "" {
		return integration.Token{}, fmt.Errorf("%w: empty access token", integration.ErrPlatformAuthFailed)
	}

	return integration.Token{
		AccessToken: wire.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(wire.ExpiresIn) * time.Second),
	}, nil
}

// ensureToken returns a usable bearer token, refreshing through the shared
// store or the token endpoint when the cached one expired
func (a *IfoodAdapter) ensureToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	if a.token.Valid(tokenExpiryMargin) {
		token := a.token.AccessToken
		a.tokenMu.Unlock()
		return token, nil
	}
	a.tokenMu.Unlock()

	if a.tokenStore != nil && a.tokenKey != "" {
		if stored, ok, err := a.tokenStore.Get(ctx, a.tokenKey); err == nil && ok && stored.Valid(tokenExpiryMargin) {
			a.tokenMu.Lock()
			a.token = stored
			a.tokenMu.Unlock()
			return stored.AccessToken, nil
		}
	}

	if err := a.Authenticate(ctx); err != nil {
		return "", err
	}

	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	return a.token.AccessToken, nil
}

// doRequest performs an authenticated HTTP request to the iFood API. A 204
// comes back as an empty body.
func (a *IfoodAdapter) doRequest(ctx context.Context, method, path string, payload any, headers map[string]string) ([]byte, error) {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ifood: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("ifood: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("ifood: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Expired or revoked token: drop the cache so the next call re-auths
		a.tokenMu.Lock()
		a.token = integration.Token{}
		a.tokenMu.Unlock()
		return nil, fmt.Errorf("%w: status %d", integration.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, integration.NewPlatformAPIError(integration.ProviderIfood, resp.StatusCode, string(body))
	}
	return body, nil
}

// normalizeOrder converts an iFood wire order to the normalized shape
func (a *IfoodAdapter) normalizeOrder(wire *ifoodOrder, raw []byte) integration.NormalizedOrder {
	order := integration.NormalizedOrder{
		ExternalID:  wire.ID,
		Platform:    integration.ProviderIfood,
		Code:        wire.DisplayID,
		Status:      integration.OrderStatusPending,
		Customer:    integration.Customer{Name: wire.Customer.Name, Phone: wire.Customer.Phone.Number, Document: wire.Customer.DocumentNumber},
		Subtotal:    wire.Total.SubTotal,
		DeliveryFee: wire.Total.DeliveryFee,
		Discount:    wire.Total.Benefits,
		Total:       wire.Total.OrderAmount,
		PlacedAt:    wire.CreatedAt,
		RawData:     string(raw),
	}

	if len(wire.Payments.Methods) > 0 {
		method := wire.Payments.Methods[0]
		order.PaymentMethod = method.Method
		if method.Prepaid {
			order.PaymentStatus = "prepaid"
		}
	}

	if wire.Delivery != nil {
		addr := wire.Delivery.DeliveryAddress
		order.Address = &integration.DeliveryAddress{
			Street:       addr.StreetName,
			Number:       addr.StreetNumber,
			Complement:   addr.Complement,
			Neighborhood: addr.Neighborhood,
			City:         addr.City,
			State:        addr.State,
			PostalCode:   addr.PostalCode,
			Latitude:     addr.Coordinates.Latitude,
			Longitude:    addr.Coordinates.Longitude,
			Reference:    addr.Reference,
		}
	}

	for _, item := range wire.Items {
		orderItem := integration.OrderItem{
			Name:         item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
			Observations: item.Observations,
		}
		for _, opt := range item.Options {
			orderItem.SubItems = append(orderItem.SubItems, integration.OrderSubItem{
				Name:      opt.Name,
				Quantity:  opt.Quantity,
				UnitPrice: opt.UnitPrice,
			})
		}
		order.Items = append(order.Items, orderItem)
	}

	order.FillTotal()
	return order
}

// Ensure IfoodAdapter implements its capability profiles
var (
	_ integration.SalesAdapter  = (*IfoodAdapter)(nil)
	_ integration.CatalogSyncer = (*IfoodAdapter)(nil)
)
