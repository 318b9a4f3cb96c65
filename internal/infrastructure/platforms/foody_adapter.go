package platforms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
)

// FoodyAdapter implements the Foody Delivery REST API: order lifecycle,
// inbox ingestion with full payload staging, and signed webhook deliveries.
// Foody payloads carry the statusHistory trail that feeds timestamp
// reconciliation.
type FoodyAdapter struct {
	config     *FoodyConfig
	httpClient *http.Client
}

// NewFoodyAdapter creates a new Foody adapter from an integration's config
func NewFoodyAdapter(cfg integration.AdapterConfig) (*FoodyAdapter, error) {
	config, err := NewFoodyConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &FoodyAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Provider returns the platform this adapter handles
func (a *FoodyAdapter) Provider() integration.Provider {
	return integration.ProviderFoody
}

// Authenticate validates the static token. Foody issues long-lived tokens,
// so there is nothing to establish; a revoked token surfaces as 401 on the
// first API call.
func (a *FoodyAdapter) Authenticate(ctx context.Context) error {
	if a.config.APIToken == "" {
		return integration.NewConfigError(integration.ProviderFoody, "apiToken", "is required")
	}
	return nil
}

// IsTokenValid reports whether a token is configured. Static tokens carry no
// expiry.
func (a *FoodyAdapter) IsTokenValid() bool {
	return a.config.APIToken != ""
}

// TestConnection probes the orders endpoint, swallowing transport errors
func (a *FoodyAdapter) TestConnection(ctx context.Context) bool {
	_, err := a.doRequest(ctx, http.MethodGet, "/orders?limit=1", nil)
	return err == nil
}

// ---------------------------------------------------------------------------
// Sales Operations
// ---------------------------------------------------------------------------

// FetchOrders lists orders created or updated since the given instant
func (a *FoodyAdapter) FetchOrders(ctx context.Context, since time.Time) ([]integration.NormalizedOrder, error) {
	raws, err := a.listOrders(ctx, since)
	if err != nil {
		return nil, err
	}

	orders := make([]integration.NormalizedOrder, 0, len(raws))
	for _, raw := range raws {
		var wire foodyOrder
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("foody: failed to parse order: %w", err)
		}
		orders = append(orders, a.normalizeOrder(&wire, raw))
	}
	return orders, nil
}

// GetOrderDetails loads one order by its Foody uid
func (a *FoodyAdapter) GetOrderDetails(ctx context.Context, externalID string) (*integration.NormalizedOrder, error) {
	if externalID == "" {
		return nil, integration.ErrOrderNotFound
	}

	body, err := a.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(externalID), nil)
	if err != nil {
		var apiErr *integration.PlatformAPIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, integration.ErrOrderNotFound
		}
		return nil, err
	}

	var wire foodyOrder
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("foody: failed to parse order: %w", err)
	}

	order := a.normalizeOrder(&wire, body)
	return &order, nil
}

// ConfirmOrder accepts a placed order
func (a *FoodyAdapter) ConfirmOrder(ctx context.Context, externalID string) error {
	return a.updateOrderStatus(ctx, externalID, mapToFoodyStatus(integration.OrderStatusConfirmed), "")
}

// RejectOrder declines a placed order with a reason
func (a *FoodyAdapter) RejectOrder(ctx context.Context, externalID, reason string) error {
	return a.updateOrderStatus(ctx, externalID, mapToFoodyStatus(integration.OrderStatusCancelled), reason)
}

// MarkOrderReady signals the order is ready for the courier
func (a *FoodyAdapter) MarkOrderReady(ctx context.Context, externalID string) error {
	return a.updateOrderStatus(ctx, externalID, mapToFoodyStatus(integration.OrderStatusReady), "")
}

// DispatchOrder signals the order left with the courier
func (a *FoodyAdapter) DispatchOrder(ctx context.Context, externalID string) error {
	return a.updateOrderStatus(ctx, externalID, mapToFoodyStatus(integration.OrderStatusDispatched), "")
}

// CancelOrder cancels an in-flight order with a reason
func (a *FoodyAdapter) CancelOrder(ctx context.Context, externalID, reason string) error {
	return a.updateOrderStatus(ctx, externalID, mapToFoodyStatus(integration.OrderStatusCancelled), reason)
}

func (a *FoodyAdapter) updateOrderStatus(ctx context.Context, externalID, status, reason string) error {
	if externalID == "" {
		return integration.ErrOrderNotFound
	}

	payload := map[string]string{"status": status}
	if reason != "" {
		payload["reason"] = reason
	}

	_, err := a.doRequest(ctx, http.MethodPut, "/orders/"+url.PathEscape(externalID)+"/status", payload)
	return err
}

// ---------------------------------------------------------------------------
// Inbox Ingestion
// ---------------------------------------------------------------------------

// IngestOrders pulls raw order payloads for inbox staging. Payloads that do
// not parse are still staged (with an empty external id) so the inbox keeps
// them inspectable; ProcessPayload fails them with the parse error.
func (a *FoodyAdapter) IngestOrders(ctx context.Context, since time.Time) ([]integration.RawEvent, error) {
	raws, err := a.listOrders(ctx, since)
	if err != nil {
		return nil, err
	}

	events := make([]integration.RawEvent, 0, len(raws))
	for _, raw := range raws {
		var probe struct {
			UID    string `json:"uid"`
			Number string `json:"number"`
		}
		_ = json.Unmarshal(raw, &probe)

		externalID := probe.UID
		if externalID == "" {
			externalID = probe.Number
		}

		events = append(events, integration.RawEvent{
			Event:      foodyEventOrderSync,
			ExternalID: externalID,
			Payload:    raw,
		})
	}
	return events, nil
}

// ProcessPayload parses one staged payload into its normalized order and
// reconciled timing. Safe to repeat: it is a pure parse, all writes happen
// downstream on keyed upserts.
func (a *FoodyAdapter) ProcessPayload(ctx context.Context, event string, payload []byte) (*integration.IngestResult, error) {
	if isFoodyHeartbeat(event, payload) {
		return &integration.IngestResult{Ignore: true, IgnoreReason: "heartbeat event"}, nil
	}

	var wire foodyOrder
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, integration.NewValidationError(integration.ProviderFoody, "payload is not a foody order: "+err.Error())
	}
	if wire.UID == "" && wire.Number == "" {
		return nil, integration.NewValidationError(integration.ProviderFoody, "missing external order id")
	}

	normalized := a.normalizeOrder(&wire, payload)
	result := &integration.IngestResult{Order: &normalized}
	if timing, ok := reconcileFoodyTiming(&wire); ok {
		result.Timing = &timing
	}
	return result, nil
}

func isFoodyHeartbeat(event string, payload []byte) bool {
	switch strings.ToLower(event) {
	case "ping", "test", "webhook.test":
		return true
	}

	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &probe); err == nil {
		switch strings.ToLower(probe.Event) {
		case "ping", "test":
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Webhook Verification
// ---------------------------------------------------------------------------

// VerifyWebhook checks the hex HMAC-SHA256 of the raw body, keyed with the
// account's API token
func (a *FoodyAdapter) VerifyWebhook(signature string, body []byte) error {
	if signature == "" {
		return integration.ErrPlatformInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.config.APIToken))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return integration.ErrPlatformInvalidSignature
	}
	return nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// listOrders fetches the raw order list for a window. Items stay raw JSON so
// the ingestion path can stage the platform's exact bytes.
func (a *FoodyAdapter) listOrders(ctx context.Context, since time.Time) ([]json.RawMessage, error) {
	path := "/orders?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	body, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("foody: failed to parse order list: %w", err)
	}
	return raws, nil
}

// doRequest performs an HTTP request to the Foody API
func (a *FoodyAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("foody: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("foody: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", a.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("foody: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", integration.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, integration.NewPlatformAPIError(integration.ProviderFoody, resp.StatusCode, string(body))
	}
	return body, nil
}

// normalizeOrder converts a Foody wire order to the normalized shape
func (a *FoodyAdapter) normalizeOrder(wire *foodyOrder, raw []byte) integration.NormalizedOrder {
	externalID := wire.UID
	if externalID == "" {
		externalID = wire.Number
	}

	order := integration.NormalizedOrder{
		ExternalID:    externalID,
		Platform:      integration.ProviderFoody,
		Code:          wire.Number,
		Status:        mapFoodyStatus(wire.Status),
		Customer:      integration.Customer{Name: wire.Customer.Name, Phone: wire.Customer.Phone, Document: wire.Customer.Document},
		Subtotal:      wire.SubTotal,
		DeliveryFee:   wire.DeliveryFee,
		Discount:      wire.Discount,
		Total:         wire.Total,
		PaymentMethod: wire.PaymentMethod,
		PaymentStatus: wire.PaymentStatus,
		PlacedAt:      wire.CreatedAt,
		ReadyAt:       wire.ReadyAt,
		PickedUpAt:    wire.PickedUpAt,
		DeliveredAt:   wire.DeliveredAt,
		RawData:       string(raw),
	}

	if wire.Address != nil {
		order.Address = &integration.DeliveryAddress{
			Street:       wire.Address.Street,
			Number:       wire.Address.Number,
			Complement:   wire.Address.Complement,
			Neighborhood: wire.Address.Neighborhood,
			City:         wire.Address.City,
			State:        wire.Address.State,
			PostalCode:   wire.Address.PostalCode,
			Latitude:     wire.Address.Latitude,
			Longitude:    wire.Address.Longitude,
			Reference:    wire.Address.Reference,
		}
	}

	for _, item := range wire.Items {
		orderItem := integration.OrderItem{
			Name:         item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
			Observations: item.Note,
		}
		for _, sub := range item.SubItems {
			orderItem.SubItems = append(orderItem.SubItems, integration.OrderSubItem{
				Name:      sub.Name,
				Quantity:  sub.Quantity,
				UnitPrice: sub.UnitPrice,
			})
		}
		order.Items = append(order.Items, orderItem)
	}

	for _, change := range wire.StatusHistory {
		order.StatusHistory = append(order.StatusHistory, integration.StatusEvent{
			Label: change.Status,
			At:    change.Date,
		})
	}

	order.FillTotal()
	return order
}

// reconcileFoodyTiming derives operational timing from the payload's status
// trail and milestone fields. Payloads without timing signal yield no timing
// at all rather than a zeroed one.
func reconcileFoodyTiming(wire *foodyOrder) (worktime.Timing, bool) {
	hasSignal := len(wire.StatusHistory) > 0 || wire.ReadyAt != nil || wire.PickedUpAt != nil || wire.DeliveredAt != nil
	if wire.CreatedAt.IsZero() || !hasSignal {
		return worktime.Timing{}, false
	}

	in := worktime.Input{
		ArrivedAt:   wire.CreatedAt,
		ReadyAt:     wire.ReadyAt,
		PickedUpAt:  wire.PickedUpAt,
		DeliveredAt: wire.DeliveredAt,
	}
	for _, change := range wire.StatusHistory {
		in.History = append(in.History, worktime.HistoryEntry{Label: change.Status, At: change.Date})
	}
	return worktime.Reconcile(in), true
}

// Ensure FoodyAdapter implements its capability profiles
var (
	_ integration.SalesAdapter    = (*FoodyAdapter)(nil)
	_ integration.OrderIngestor   = (*FoodyAdapter)(nil)
	_ integration.WebhookVerifier = (*FoodyAdapter)(nil)
)
