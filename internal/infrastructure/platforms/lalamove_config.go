package platforms

import (
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const (
	// LalamoveProductionBaseURL is the production API endpoint
	LalamoveProductionBaseURL = "https://rest.lalamove.com"
	// LalamoveSandboxBaseURL is the sandbox API endpoint
	LalamoveSandboxBaseURL = "https://rest.sandbox.lalamove.com"

	// lalamoveDefaultMarket is the market header when the credential blob
	// carries none
	lalamoveDefaultMarket = "BR"
)

// LalamoveConfig holds configuration for the Lalamove v3 API
type LalamoveConfig struct {
	// APIKey and APISecret sign every request; there is no token exchange
	APIKey    string
	APISecret string
	// Market selects the country cluster the account operates in
	Market string
	// BaseURL is the API endpoint (production or sandbox)
	BaseURL string
	// Sandbox indicates the test environment
	Sandbox bool
	// Timeout bounds every HTTP call
	Timeout time.Duration
}

// NewLalamoveConfig builds a Lalamove configuration from an integration's
// credential blob
func NewLalamoveConfig(cfg integration.AdapterConfig) (*LalamoveConfig, error) {
	apiKey, err := cfg.Credentials.Require(integration.ProviderLalamove, "apiKey")
	if err != nil {
		return nil, err
	}
	apiSecret, err := cfg.Credentials.Require(integration.ProviderLalamove, "apiSecret")
	if err != nil {
		return nil, err
	}

	config := &LalamoveConfig{
		APIKey:    apiKey,
		APISecret: apiSecret,
		Market:    cfg.Credentials.Get("market"),
		Sandbox:   cfg.Sandbox,
		Timeout:   cfg.HTTPTimeout,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required fields and applies environment defaults
func (c *LalamoveConfig) Validate() error {
	if c.APIKey == "" {
		return integration.NewConfigError(integration.ProviderLalamove, "apiKey", "is required")
	}
	if c.APISecret == "" {
		return integration.NewConfigError(integration.ProviderLalamove, "apiSecret", "is required")
	}
	if c.Market == "" {
		c.Market = lalamoveDefaultMarket
	}
	if c.BaseURL == "" {
		if c.Sandbox {
			c.BaseURL = LalamoveSandboxBaseURL
		} else {
			c.BaseURL = LalamoveProductionBaseURL
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}
