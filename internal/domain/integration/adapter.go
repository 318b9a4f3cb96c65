package integration

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
)

// ---------------------------------------------------------------------------
// Adapter ports
// ---------------------------------------------------------------------------

// PlatformAdapter is the contract every platform implementation satisfies.
// Adapters hold no durable state beyond in-memory credentials and token
// expiry; network calls are their only side effects.
type PlatformAdapter interface {
	// Provider identifies the platform this adapter talks to
	Provider() Provider
	// Authenticate establishes or refreshes credentials. Missing or invalid
	// configuration fails with a *ConfigError.
	Authenticate(ctx context.Context) error
	// IsTokenValid reports whether the in-memory token is still usable.
	// Pure check, no I/O.
	IsTokenValid() bool
	// TestConnection is a best-effort reachability probe. Transport errors
	// are swallowed; the probe answers false instead of failing.
	TestConnection(ctx context.Context) bool
}

// SalesAdapter is the order-lifecycle capability profile
type SalesAdapter interface {
	PlatformAdapter

	// FetchOrders lists orders created or updated since the given instant
	FetchOrders(ctx context.Context, since time.Time) ([]NormalizedOrder, error)
	// GetOrderDetails loads one order by its platform-native id
	GetOrderDetails(ctx context.Context, externalID string) (*NormalizedOrder, error)

	ConfirmOrder(ctx context.Context, externalID string) error
	RejectOrder(ctx context.Context, externalID, reason string) error
	MarkOrderReady(ctx context.Context, externalID string) error
	DispatchOrder(ctx context.Context, externalID string) error
	CancelOrder(ctx context.Context, externalID, reason string) error
}

// LogisticsAdapter is the delivery-lifecycle capability profile
type LogisticsAdapter interface {
	PlatformAdapter

	GetDeliveryQuote(ctx context.Context, req *DeliveryQuoteRequest) (*DeliveryQuote, error)
	RequestDelivery(ctx context.Context, req *DeliveryRequest) (string, error)
	CancelDelivery(ctx context.Context, deliveryID, reason string) error
	GetDeliveryTracking(ctx context.Context, deliveryID string) (*DeliveryTracking, error)
}

// ---------------------------------------------------------------------------
// Optional capabilities, detected by type assertion
// ---------------------------------------------------------------------------

// OrderIngestor is implemented by adapters whose raw payloads are staged in
// the inbox and processed idempotently. ProcessPayload must be safe to call
// an arbitrary number of times for the same payload: downstream writes are
// keyed upserts, never insert-only.
type OrderIngestor interface {
	// IngestOrders pulls raw events since the given instant for staging
	IngestOrders(ctx context.Context, since time.Time) ([]RawEvent, error)
	// ProcessPayload parses one staged payload into its normalized result.
	// Heartbeats and irrelevant events come back with Ignore set instead of
	// an error.
	ProcessPayload(ctx context.Context, event string, payload []byte) (*IngestResult, error)
}

// CatalogSyncer is implemented by adapters that can push the local catalog
// to the platform
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context, items []CatalogItem) error
}

// WebhookVerifier is implemented by adapters whose platform signs webhook
// deliveries
type WebhookVerifier interface {
	VerifyWebhook(signature string, body []byte) error
}

// ---------------------------------------------------------------------------
// Ingestion value objects
// ---------------------------------------------------------------------------

// RawEvent is one platform-native payload awaiting inbox staging
type RawEvent struct {
	Event         string          `json:"event"`
	ExternalID    string          `json:"external_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// IngestResult is the outcome of processing one staged payload
type IngestResult struct {
	// Order is the normalized business record; nil when Ignore is set
	Order *NormalizedOrder
	// Timing carries the reconciled operational timestamps, when the
	// payload had timing signal
	Timing *worktime.Timing
	// Ignore marks heartbeats and events irrelevant to order ingestion
	Ignore       bool
	IgnoreReason string
}

// CatalogItem is one entry of the local catalog pushed by SyncCatalog
type CatalogItem struct {
	ExternalCode string          `json:"external_code"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Available    bool            `json:"available"`
	Category     string          `json:"category,omitempty"`
}

// ---------------------------------------------------------------------------
// Token store port
// ---------------------------------------------------------------------------

// Token is a platform access token with its expiry
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token exists and has not expired, with a safety
// margin so a token is refreshed before the platform rejects it
func (t Token) Valid(margin time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return time.Now().Add(margin).Before(t.ExpiresAt)
}

// TokenStore shares short-lived platform tokens between adapter instances.
// Implementations must be safe for concurrent use. Adapters treat a nil
// store as "keep the token in memory only".
type TokenStore interface {
	Get(ctx context.Context, key string) (Token, bool, error)
	Put(ctx context.Context, key string, token Token) error
	Delete(ctx context.Context, key string) error
}

// ---------------------------------------------------------------------------
// Adapter construction
// ---------------------------------------------------------------------------

// AdapterConfig is everything a factory needs to build one adapter instance
type AdapterConfig struct {
	Credentials Credentials
	// Sandbox selects the platform's test environment base URL
	Sandbox bool
	// HTTPTimeout bounds every platform call; factories apply a default
	// when zero
	HTTPTimeout time.Duration
	// TokenStore is optional; nil keeps tokens in memory only
	TokenStore TokenStore
	// TokenKey scopes stored tokens, normally the integration id
	TokenKey string
}
