package integration

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured    = errors.New("integration: platform not configured")
	ErrPlatformUnavailable      = errors.New("integration: platform temporarily unavailable")
	ErrPlatformInvalidResponse  = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed       = errors.New("integration: platform authentication failed")
	ErrPlatformTokenExpired     = errors.New("integration: platform token expired")
	ErrPlatformInvalidSignature = errors.New("integration: invalid platform signature")

	// Registry errors
	ErrProviderNotRegistered = errors.New("integration: provider not registered")

	// Webhook deliveries that cannot be attributed to one integration
	ErrWebhookTargetAmbiguous = errors.New("integration: webhook matches more than one integration")

	// Integration lifecycle errors
	ErrIntegrationNotFound  = errors.New("integration: integration not found")
	ErrIntegrationNotLoaded = errors.New("integration: integration not loaded")
	ErrIntegrationStopped   = errors.New("integration: integration is stopped")

	// Capability errors
	ErrSalesNotSupported     = errors.New("integration: platform has no sales capability")
	ErrLogisticsNotSupported = errors.New("integration: platform has no logistics capability")
	ErrIngestNotSupported    = errors.New("integration: platform has no inbox ingestion capability")

	// Order errors
	ErrOrderNotFound      = errors.New("integration: platform order not found")
	ErrOrderMissingID     = errors.New("integration: order payload has no external id")
	ErrOrderTotalMismatch = errors.New("integration: order totals do not reconcile")
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// ConfigError reports missing or invalid credentials detected while
// authenticating. It is fatal for the owning integration only and is never
// retried automatically; the manager marks the integration DEGRADED.
type ConfigError struct {
	Provider Provider
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("integration: %s configuration invalid: field %q %s", e.Provider, e.Field, e.Reason)
	}
	return fmt.Sprintf("integration: %s configuration invalid: %s", e.Provider, e.Reason)
}

// NewConfigError creates a ConfigError for a single credential field
func NewConfigError(provider Provider, field, reason string) *ConfigError {
	return &ConfigError{Provider: provider, Field: field, Reason: reason}
}

// PlatformAPIError reports a non-2xx response from a platform API. Carries
// the HTTP status and (bounded) response body for diagnosis. Retried by the
// next poll cycle or a manual reprocess, never in a tight loop.
type PlatformAPIError struct {
	Provider Provider
	Status   int
	Body     string
}

func (e *PlatformAPIError) Error() string {
	return fmt.Sprintf("integration: %s request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// Unwrap allows errors.Is(err, ErrPlatformUnavailable) checks on API errors
func (e *PlatformAPIError) Unwrap() error {
	return ErrPlatformUnavailable
}

// NewPlatformAPIError creates a PlatformAPIError, truncating oversized bodies
func NewPlatformAPIError(provider Provider, status int, body string) *PlatformAPIError {
	const maxBody = 1024
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &PlatformAPIError{Provider: provider, Status: status, Body: body}
}

// ValidationError reports a payload that cannot be normalized into a usable
// order. The owning inbox item is marked FAILED with this message.
type ValidationError struct {
	Provider Provider
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("integration: %s payload rejected: %s", e.Provider, e.Reason)
}

// NewValidationError creates a ValidationError
func NewValidationError(provider Provider, reason string) *ValidationError {
	return &ValidationError{Provider: provider, Reason: reason}
}

// NotFoundError reports a provider with no registered factory. Returned by
// Registry.Resolve instead of a nil adapter.
type NotFoundError struct {
	Provider Provider
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("integration: no adapter registered for provider %q", e.Provider)
}

// Unwrap allows errors.Is(err, ErrProviderNotRegistered) checks
func (e *NotFoundError) Unwrap() error {
	return ErrProviderNotRegistered
}
