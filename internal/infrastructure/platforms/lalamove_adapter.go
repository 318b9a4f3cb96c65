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
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const (
	lalamoveQuotationsPath = "/v3/quotations"
	lalamoveOrdersPath     = "/v3/orders"
	lalamoveCitiesPath     = "/v3/cities"

	// lalamoveServiceType is the vehicle class requested for restaurant
	// deliveries
	lalamoveServiceType = "MOTORCYCLE"
	lalamoveLanguage    = "pt_BR"
)

// LalamoveAdapter implements the Lalamove v3 logistics API. Every request is
// HMAC-signed with the account's secret; there is no token exchange, so the
// credentials never expire.
type LalamoveAdapter struct {
	config     *LalamoveConfig
	httpClient *http.Client
}

// NewLalamoveAdapter creates a new Lalamove adapter from an integration's
// config
func NewLalamoveAdapter(cfg integration.AdapterConfig) (*LalamoveAdapter, error) {
	config, err := NewLalamoveConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &LalamoveAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Provider returns the platform this adapter handles
func (a *LalamoveAdapter) Provider() integration.Provider {
	return integration.ProviderLalamove
}

// Authenticate validates the static key pair. Signing happens per request,
// so there is nothing to establish; a revoked key surfaces as 401 on the
// first API call.
func (a *LalamoveAdapter) Authenticate(ctx context.Context) error {
	if a.config.APIKey == "" || a.config.APISecret == "" {
		return integration.NewConfigError(integration.ProviderLalamove, "apiKey", "is required")
	}
	return nil
}

// IsTokenValid reports whether a key pair is configured. Static keys carry
// no expiry.
func (a *LalamoveAdapter) IsTokenValid() bool {
	return a.config.APIKey != "" && a.config.APISecret != ""
}

// TestConnection probes the cities endpoint, swallowing transport errors
func (a *LalamoveAdapter) TestConnection(ctx context.Context) bool {
	_, err := a.doRequest(ctx, http.MethodGet, lalamoveCitiesPath, nil)
	return err == nil
}

// ---------------------------------------------------------------------------
// Logistics Operations
// ---------------------------------------------------------------------------

// GetDeliveryQuote prices a pickup/dropoff pair. An unserviceable route is
// not an error: the quote comes back unavailable.
func (a *LalamoveAdapter) GetDeliveryQuote(ctx context.Context, req *integration.DeliveryQuoteRequest) (*integration.DeliveryQuote, error) {
	if err := req.Validate(integration.ProviderLalamove); err != nil {
		return nil, err
	}

	body := lalamoveQuotationRequest{
		Data: lalamoveQuotationBody{
			ServiceType: lalamoveServiceType,
			Language:    lalamoveLanguage,
			Stops: []lalamoveStop{
				{Coordinates: lalamoveCoord(req.PickupAddress.Latitude, req.PickupAddress.Longitude), Address: formatLalamoveAddress(req.PickupAddress)},
				{Coordinates: lalamoveCoord(req.DropoffAddress.Latitude, req.DropoffAddress.Longitude), Address: formatLalamoveAddress(req.DropoffAddress)},
			},
		},
	}
	if !req.ScheduledAt.IsZero() {
		body.Data.ScheduleAt = req.ScheduledAt.UTC().Format(time.RFC3339)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, lalamoveQuotationsPath, body)
	if err != nil {
		var apiErr *integration.PlatformAPIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			return &integration.DeliveryQuote{Available: false}, nil
		}
		return nil, err
	}

	var wire lalamoveQuotationResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("lalamove: failed to parse quotation: %w", err)
	}

	quote := &integration.DeliveryQuote{
		Available: true,
		QuoteID:   wire.Data.QuotationID,
	}
	if price, err := decimal.NewFromString(wire.Data.PriceBreakdown.Total); err == nil {
		quote.Price = price
	}
	if meters, err := strconv.ParseFloat(wire.Data.Distance.Value, 64); err == nil {
		quote.DistanceKm = meters / 1000
	}
	return quote, nil
}

// RequestDelivery places a courier order. The quotation carries the stop ids
// the order body must cite, so a request without a quote id gets quoted
// first.
func (a *LalamoveAdapter) RequestDelivery(ctx context.Context, req *integration.DeliveryRequest) (string, error) {
	if err := req.Validate(integration.ProviderLalamove); err != nil {
		return "", err
	}

	quotation, err := a.resolveQuotation(ctx, req)
	if err != nil {
		return "", err
	}
	if len(quotation.Stops) < 2 {
		return "", integration.NewValidationError(integration.ProviderLalamove, "quotation has no stops")
	}

	body := lalamoveOrderRequest{
		Data: lalamoveOrderBody{
			QuotationID: quotation.QuotationID,
			Sender: lalamoveContact{
				StopID: quotation.Stops[0].StopID,
				Name:   req.Sender.Name,
				Phone:  req.Sender.Phone,
			},
			Recipients: []lalamoveContact{{
				StopID:  quotation.Stops[1].StopID,
				Name:    req.Recipient.Name,
				Phone:   req.Recipient.Phone,
				Remarks: req.Notes,
			}},
			Metadata: map[string]string{"orderRef": req.OrderExternal},
		},
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, lalamoveOrdersPath, body)
	if err != nil {
		return "", err
	}

	var wire lalamoveOrderResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return "", fmt.Errorf("lalamove: failed to parse order: %w", err)
	}
	return wire.Data.OrderID, nil
}

// CancelDelivery cancels a courier order. Lalamove keeps no reason on the
// wire; the reason stays in this system's sync logs.
func (a *LalamoveAdapter) CancelDelivery(ctx context.Context, deliveryID, _ string) error {
	if deliveryID == "" {
		return integration.NewValidationError(integration.ProviderLalamove, "delivery id is required")
	}
	_, err := a.doRequest(ctx, http.MethodDelete, lalamoveOrdersPath+"/"+url.PathEscape(deliveryID), nil)
	return err
}

// GetDeliveryTracking reports the live state of a courier order. Driver
// details are enrichment: when the driver endpoint fails the tracking still
// comes back, without the driver.
func (a *LalamoveAdapter) GetDeliveryTracking(ctx context.Context, deliveryID string) (*integration.DeliveryTracking, error) {
	if deliveryID == "" {
		return nil, integration.NewValidationError(integration.ProviderLalamove, "delivery id is required")
	}

	respBody, err := a.doRequest(ctx, http.MethodGet, lalamoveOrdersPath+"/"+url.PathEscape(deliveryID), nil)
	if err != nil {
		return nil, err
	}

	var wire lalamoveOrderResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("lalamove: failed to parse order: %w", err)
	}

	tracking := &integration.DeliveryTracking{
		DeliveryID: wire.Data.OrderID,
		Status:     mapLalamoveStatus(wire.Data.Status),
	}

	if wire.Data.DriverID != "" {
		if driver, location, err := a.getDriver(ctx, deliveryID, wire.Data.DriverID); err == nil {
			tracking.Driver = driver
			tracking.Location = location
		}
	}
	return tracking, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// resolveQuotation loads the cited quotation or produces a fresh one
func (a *LalamoveAdapter) resolveQuotation(ctx context.Context, req *integration.DeliveryRequest) (*lalamoveQuotation, error) {
	if req.QuoteID != "" {
		respBody, err := a.doRequest(ctx, http.MethodGet, lalamoveQuotationsPath+"/"+url.PathEscape(req.QuoteID), nil)
		if err != nil {
			return nil, err
		}
		var wire lalamoveQuotationResponse
		if err := json.Unmarshal(respBody, &wire); err != nil {
			return nil, fmt.Errorf("lalamove: failed to parse quotation: %w", err)
		}
		return &wire.Data, nil
	}

	body := lalamoveQuotationRequest{
		Data: lalamoveQuotationBody{
			ServiceType: lalamoveServiceType,
			Language:    lalamoveLanguage,
			Stops: []lalamoveStop{
				{Coordinates: lalamoveCoord(req.PickupAddress.Latitude, req.PickupAddress.Longitude), Address: formatLalamoveAddress(req.PickupAddress)},
				{Coordinates: lalamoveCoord(req.DropoffAddress.Latitude, req.DropoffAddress.Longitude), Address: formatLalamoveAddress(req.DropoffAddress)},
			},
		},
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, lalamoveQuotationsPath, body)
	if err != nil {
		return nil, err
	}

	var wire lalamoveQuotationResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("lalamove: failed to parse quotation: %w", err)
	}
	return &wire.Data, nil
}

// getDriver loads the assigned courier's contact and position
func (a *LalamoveAdapter) getDriver(ctx context.Context, orderID, driverID string) (*integration.DriverInfo, *integration.GeoPoint, error) {
	path := lalamoveOrdersPath + "/" + url.PathEscape(orderID) + "/drivers/" + url.PathEscape(driverID)
	respBody, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, err
	}

	var wire lalamoveDriverResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, nil, fmt.Errorf("lalamove: failed to parse driver: %w", err)
	}

	driver := &integration.DriverInfo{
		Name:  wire.Data.Name,
		Phone: wire.Data.Phone,
		Plate: wire.Data.PlateNumber,
	}

	var location *integration.GeoPoint
	lat, latErr := strconv.ParseFloat(wire.Data.Coordinates.Lat, 64)
	lng, lngErr := strconv.ParseFloat(wire.Data.Coordinates.Lng, 64)
	if latErr == nil && lngErr == nil {
		location = &integration.GeoPoint{Latitude: lat, Longitude: lng}
	}
	return driver, location, nil
}

// sign produces the request signature over timestamp, method, path and body
func (a *LalamoveAdapter) sign(timestamp int64, method, path, body string) string {
	raw := fmt.Sprintf("%d\r\n%s\r\n%s\r\n\r\n%s", timestamp, method, path, body)
	mac := hmac.New(sha256.New, []byte(a.config.APISecret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest performs a signed HTTP request to the Lalamove API
func (a *LalamoveAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var bodyString string
	var reader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("lalamove: failed to marshal request: %w", err)
		}
		bodyString = string(bodyBytes)
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("lalamove: failed to create request: %w", err)
	}

	timestamp := time.Now().UnixMilli()
	signature := a.sign(timestamp, method, path, bodyString)

	req.Header.Set("Authorization", fmt.Sprintf("hmac %s:%d:%s", a.config.APIKey, timestamp, signature))
	req.Header.Set("Market", a.config.Market)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("lalamove: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", integration.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, integration.NewPlatformAPIError(integration.ProviderLalamove, resp.StatusCode, string(body))
	}
	return body, nil
}

// formatLalamoveAddress flattens a structured address into the single line
// the API expects
func formatLalamoveAddress(addr integration.DeliveryAddress) string {
	parts := make([]string, 0, 4)
	street := addr.Street
	if addr.Number != "" {
		street += ", " + addr.Number
	}
	parts = append(parts, street)
	if addr.Neighborhood != "" {
		parts = append(parts, addr.Neighborhood)
	}
	if addr.City != "" {
		parts = append(parts, addr.City)
	}
	if addr.State != "" {
		parts = append(parts, addr.State)
	}
	return strings.Join(parts, " - ")
}

// Ensure LalamoveAdapter implements its capability profile
var _ integration.LogisticsAdapter = (*LalamoveAdapter)(nil)
