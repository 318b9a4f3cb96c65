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
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const rappiOrdersPath = "/api/v2/restaurants/orders"

// RappiAdapter implements the Rappi restaurants API. Auth0 issues a JWT
// whose exp claim is the source of truth for token validity; the adapter
// reads it without verifying the signature, verification is Rappi's job.
type RappiAdapter struct {
	config     *RappiConfig
	httpClient *http.Client

	tokenStore integration.TokenStore
	tokenKey   string

	tokenMu sync.Mutex
	token   integration.Token
}

// NewRappiAdapter creates a new Rappi adapter from an integration's config
func NewRappiAdapter(cfg integration.AdapterConfig) (*RappiAdapter, error) {
	config, err := NewRappiConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &RappiAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		tokenStore: cfg.TokenStore,
		tokenKey:   cfg.TokenKey,
	}, nil
}

// Provider returns the platform this adapter handles
func (a *RappiAdapter) Provider() integration.Provider {
	return integration.ProviderRappi
}

// Authenticate performs the Auth0 client-credentials grant and caches the
// issued JWT
func (a *RappiAdapter) Authenticate(ctx context.Context) error {
	token, err := a.fetchToken(ctx)
	if err != nil {
		return err
	}

	a.tokenMu.Lock()
	a.token = token
	a.tokenMu.Unlock()

	if a.tokenStore != nil && a.tokenKey != "" {
		if err := a.tokenStore.Put(ctx, a.tokenKey, token); err != nil {
			return fmt.Errorf("rappi: failed to store token: %w", err)
		}
	}
	return nil
}

// IsTokenValid inspects the JWT's unverified exp claim
func (a *RappiAdapter) IsTokenValid() bool {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()

	if a.token.AccessToken == "" {
		return false
	}
	expiresAt, err := rappiTokenExpiry(a.token.AccessToken)
	if err != nil {
		return false
	}
	return time.Now().Add(tokenExpiryMargin).Before(expiresAt)
}

// TestConnection probes the orders endpoint, swallowing transport errors
func (a *RappiAdapter) TestConnection(ctx context.Context) bool {
	_, err := a.doRequest(ctx, http.MethodGet, rappiOrdersPath, nil)
	return err == nil
}

// ---------------------------------------------------------------------------
// Sales Operations
// ---------------------------------------------------------------------------

// FetchOrders lists the restaurant's active orders. Rappi exposes the live
// order set rather than a time window, so the since parameter is unused.
func (a *RappiAdapter) FetchOrders(ctx context.Context, _ time.Time) ([]integration.NormalizedOrder, error) {
	body, err := a.doRequest(ctx, http.MethodGet, rappiOrdersPath, nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var wires []rappiOrder
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, fmt.Errorf("rappi: failed to parse order list: %w", err)
	}

	orders := make([]integration.NormalizedOrder, 0, len(wires))
	for i := range wires {
		raw, _ := json.Marshal(&wires[i])
		orders = append(orders, a.normalizeOrder(&wires[i], raw))
	}
	return orders, nil
}

// GetOrderDetails loads one order by its Rappi id
func (a *RappiAdapter) GetOrderDetails(ctx context.Context, externalID string) (*integration.NormalizedOrder, error) {
	if externalID == "" {
		return nil, integration.ErrOrderNotFound
	}

	body, err := a.doRequest(ctx, http.MethodGet, rappiOrdersPath+"/"+url.PathEscape(externalID), nil)
	if err != nil {
		var apiErr *integration.PlatformAPIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, integration.ErrOrderNotFound
		}
		return nil, err
	}

	var wire rappiOrder
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("rappi: failed to parse order: %w", err)
	}

	order := a.normalizeOrder(&wire, body)
	return &order, nil
}

// ConfirmOrder takes a new order
func (a *RappiAdapter) ConfirmOrder(ctx context.Context, externalID string) error {
	return a.postOrderAction(ctx, externalID, "take", nil)
}

// RejectOrder declines a new order with a reason
func (a *RappiAdapter) RejectOrder(ctx context.Context, externalID, reason string) error {
	return a.postOrderAction(ctx, externalID, "reject", map[string]string{"reason": reason})
}

// MarkOrderReady signals the order is ready for the courier
func (a *RappiAdapter) MarkOrderReady(ctx context.Context, externalID string) error {
	return a.postOrderAction(ctx, externalID, "ready-for-pickup", nil)
}

// DispatchOrder is a no-op: Rappi's own courier fleet collects the order,
// the platform flips the status to SENT on pickup
func (a *RappiAdapter) DispatchOrder(ctx context.Context, externalID string) error {
	return nil
}

// CancelOrder cancels an in-flight order with a reason
func (a *RappiAdapter) CancelOrder(ctx context.Context, externalID, reason string) error {
	return a.postOrderAction(ctx, externalID, "cancel", map[string]string{"reason": reason})
}

func (a *RappiAdapter) postOrderAction(ctx context.Context, externalID, action string, payload any) error {
	if externalID == "" {
		return integration.ErrOrderNotFound
	}
	_, err := a.doRequest(ctx, http.MethodPost, rappiOrdersPath+"/"+url.PathEscape(externalID)+"/"+action, payload)
	return err
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// fetchToken performs the Auth0 client-credentials grant. The expiry comes
// from the JWT's own exp claim; expires_in is the fallback when the claim
// is unreadable.
func (a *RappiAdapter) fetchToken(ctx context.Context) (integration.Token, error) {
	grant := rappiAuthRequest{
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
		Audience:     a.config.Audience,
		GrantType:    "client_credentials",
	}
	bodyBytes, err := json.Marshal(grant)
	if err != nil {
		return integration.Token{}, fmt.Errorf("rappi: failed to marshal grant: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.AuthURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return integration.Token{}, fmt.Errorf("rappi: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return integration.Token{}, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return integration.Token{}, fmt.Errorf("rappi: failed to read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return integration.Token{}, fmt.Errorf("%w: status %d", integration.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return integration.Token{}, integration.NewPlatformAPIError(integration.ProviderRappi, resp.StatusCode, string(body))
	}

	var wire rappiTokenResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return integration.Token{}, fmt.Errorf("rappi: failed to parse token response: %w", err)
	}
	if wire.AccessToken == "" {
		return integration.Token{}, fmt.Errorf("%w: empty access token", integration.ErrPlatformAuthFailed)
	}

	expiresAt, err := rappiTokenExpiry(wire.AccessToken)
	if err != nil {
		expiresAt = time.Now().Add(time.Duration(wire.ExpiresIn) * time.Second)
	}

	return integration.Token{AccessToken: wire.AccessToken, ExpiresAt: expiresAt}, nil
}

// rappiTokenExpiry reads the exp claim without verifying the signature
func rappiTokenExpiry(raw string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}

	expiresAt, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if expiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return expiresAt.Time, nil
}

// ensureToken returns a usable bearer token, refreshing through the shared
// store or Auth0 when the cached one expired
func (a *RappiAdapter) ensureToken(ctx context.Context) (string, error) {
	if a.IsTokenValid() {
		a.tokenMu.Lock()
		defer a.tokenMu.Unlock()
		return a.token.AccessToken, nil
	}

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

// doRequest performs an authenticated HTTP request to the Rappi API
func (a *RappiAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("rappi: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("rappi: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("rappi: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Expired or revoked token: drop the cache so the next call re-auths
		a.tokenMu.Lock()
		a.token = integration.Token{}
		a.tokenMu.Unlock()
		return nil, fmt.Errorf("%w: status %d", integration.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, integration.NewPlatformAPIError(integration.ProviderRappi, resp.StatusCode, string(body))
	}
	return body, nil
}

// normalizeOrder converts a Rappi wire order to the normalized shape
func (a *RappiAdapter) normalizeOrder(wire *rappiOrder, raw []byte) integration.NormalizedOrder {
	order := integration.NormalizedOrder{
		ExternalID:    wire.OrderID,
		Platform:      integration.ProviderRappi,
		Status:        mapRappiStatus(wire.Status),
		Customer:      integration.Customer{Name: wire.Customer.Name, Phone: wire.Customer.Phone, Document: wire.Customer.DocumentNumber},
		Subtotal:      wire.Totals.TotalProducts,
		DeliveryFee:   wire.Totals.DeliveryFee,
		Discount:      wire.Totals.Discount,
		Total:         wire.Totals.TotalOrder,
		PaymentMethod: wire.PaymentMethod,
		PlacedAt:      wire.CreatedAt,
		RawData:       string(raw),
	}

	if wire.DeliveryInformation != nil {
		info := wire.DeliveryInformation
		order.Address = &integration.DeliveryAddress{
			Street:       info.CompleteAddress,
			Neighborhood: info.Neighborhood,
			City:         info.City,
			PostalCode:   info.ZipCode,
			Latitude:     info.Latitude,
			Longitude:    info.Longitude,
		}
	}

	for _, item := range wire.Items {
		orderItem := integration.OrderItem{
			Name:         item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.Price,
			TotalPrice:   item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Observations: item.Comments,
		}
		for _, topping := range item.Toppings {
			orderItem.SubItems = append(orderItem.SubItems, integration.OrderSubItem{
				Name:      topping.Name,
				Quantity:  topping.Quantity,
				UnitPrice: topping.Price,
			})
		}
		order.Items = append(order.Items, orderItem)
	}

	order.FillTotal()
	return order
}

// Ensure RappiAdapter implements its capability profile
var _ integration.SalesAdapter = (*RappiAdapter)(nil)
