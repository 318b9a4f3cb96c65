package platforms

import (
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const (
	// IfoodProductionBaseURL is the production merchant API endpoint
	IfoodProductionBaseURL = "https://merchant-api.ifood.com.br"
	// IfoodSandboxBaseURL is the sandbox merchant API endpoint
	IfoodSandboxBaseURL = "https://merchant-api-sandbox.ifood.com.br"
)

// IfoodConfig holds configuration for the iFood merchant API
type IfoodConfig struct {
	// MerchantID scopes every call to one restaurant unit
	MerchantID string
	// ClientID and ClientSecret feed the OAuth client-credentials grant
	ClientID     string
	ClientSecret string
	// BaseURL is the API endpoint (production or sandbox)
	BaseURL string
	// Sandbox indicates the test environment
	Sandbox bool
	// Timeout bounds every HTTP call
	Timeout time.Duration
}

// NewIfoodConfig builds an iFood configuration from an integration's
// credential blob
func NewIfoodConfig(cfg integration.AdapterConfig) (*IfoodConfig, error) {
	merchantID, err := cfg.Credentials.Require(integration.ProviderIfood, "merchantId")
	if err != nil {
		return nil, err
	}
	clientID, err := cfg.Credentials.Require(integration.ProviderIfood, "clientId")
	if err != nil {
		return nil, err
	}
	clientSecret, err := cfg.Credentials.Require(integration.ProviderIfood, "clientSecret")
	if err != nil {
		return nil, err
	}

	config := &IfoodConfig{
		MerchantID:   merchantID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Sandbox:      cfg.Sandbox,
		Timeout:      cfg.HTTPTimeout,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required fields and applies environment defaults
func (c *IfoodConfig) Validate() error {
	if c.MerchantID == "" {
		return integration.NewConfigError(integration.ProviderIfood, "merchantId", "is required")
	}
	if c.ClientID == "" {
		return integration.NewConfigError(integration.ProviderIfood, "clientId", "is required")
	}
	if c.ClientSecret == "" {
		return integration.NewConfigError(integration.ProviderIfood, "clientSecret", "is required")
	}
	if c.BaseURL == "" {
		if c.Sandbox {
			c.BaseURL = IfoodSandboxBaseURL
		} else {
			c.BaseURL = IfoodProductionBaseURL
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}
