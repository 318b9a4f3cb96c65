// Package platforms contains the concrete delivery-platform adapters. Each
// platform gets an adapter, a config and a wire-types file; all of them
// satisfy integration.PlatformAdapter plus the capability profiles the
// platform supports. Adapters hold no durable state beyond in-memory
// credentials and token expiry.
package platforms

import (
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const (
	// maxResponseBytes limits response body reads to prevent memory exhaustion
	maxResponseBytes = 10 * 1024 * 1024
	// defaultTimeout bounds platform calls when the integration carries none
	defaultTimeout = 30 * time.Second
	// tokenExpiryMargin refreshes OAuth tokens before the platform would
	// reject them
	tokenExpiryMargin = 60 * time.Second
)

// Register installs every built-in adapter factory into the registry. The
// composition root calls this once; tests register stubs instead.
func Register(registry *integration.Registry) {
	registry.Register(integration.ProviderFoody, func(cfg integration.AdapterConfig) (integration.PlatformAdapter, error) {
		return NewFoodyAdapter(cfg)
	})
	registry.Register(integration.ProviderIfood, func(cfg integration.AdapterConfig) (integration.PlatformAdapter, error) {
		return NewIfoodAdapter(cfg)
	})
	registry.Register(integration.ProviderRappi, func(cfg integration.AdapterConfig) (integration.PlatformAdapter, error) {
		return NewRappiAdapter(cfg)
	})
	registry.Register(integration.ProviderLalamove, func(cfg integration.AdapterConfig) (integration.PlatformAdapter, error) {
		return NewLalamoveAdapter(cfg)
	})
}
