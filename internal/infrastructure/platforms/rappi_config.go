package platforms

import (
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const (
	// RappiProductionBaseURL is the production restaurants API endpoint
	RappiProductionBaseURL = "https://services.rappi.com.br"
	// RappiSandboxBaseURL is the development restaurants API endpoint
	RappiSandboxBaseURL = "https://services.dev.rappi.com.br"

	// RappiProductionAuthURL is the production Auth0 token endpoint
	RappiProductionAuthURL = "https://rests-auth.rappi.com.br/oauth/token"
	// RappiSandboxAuthURL is the development Auth0 token endpoint
	RappiSandboxAuthURL = "https://rests-auth.dev.rappi.com.br/oauth/token"

	// rappiAudience is the Auth0 audience of the restaurants API
	rappiAudience = "https://int-public-api-v2/api"
)

// RappiConfig holds configuration for the Rappi restaurants API
type RappiConfig struct {
	// ClientID and ClientSecret feed the Auth0 client-credentials grant
	ClientID     string
	ClientSecret string
	// BaseURL is the API endpoint (production or development)
	BaseURL string
	// AuthURL is the Auth0 token endpoint
	AuthURL string
	// Audience identifies the API the issued JWT is valid for
	Audience string
	// Sandbox indicates the development environment
	Sandbox bool
	// Timeout bounds every HTTP call
	Timeout time.Duration
}

// NewRappiConfig builds a Rappi configuration from an integration's
// credential blob
func NewRappiConfig(cfg integration.AdapterConfig) (*RappiConfig, error) {
	clientID, err := cfg.Credentials.Require(integration.ProviderRappi, "clientId")
	if err != nil {
		return nil, err
	}
	clientSecret, err := cfg.Credentials.Require(integration.ProviderRappi, "clientSecret")
	if err != nil {
		return nil, err
	}

	config := &RappiConfig{
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
func (c *RappiConfig) Validate() error {
	if c.ClientID == "" {
		return integration.NewConfigError(integration.ProviderRappi, "clientId", "is required")
	}
	if c.ClientSecret == "" {
		return integration.NewConfigError(integration.ProviderRappi, "clientSecret", "is required")
	}
	if c.BaseURL == "" {
		if c.Sandbox {
			c.BaseURL = RappiSandboxBaseURL
		} else {
			c.BaseURL = RappiProductionBaseURL
		}
	}
	if c.AuthURL == "" {
		if c.Sandbox {
			c.AuthURL = RappiSandboxAuthURL
		} else {
			c.AuthURL = RappiProductionAuthURL
		}
	}
	if c.Audience == "" {
		c.Audience = rappiAudience
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}
