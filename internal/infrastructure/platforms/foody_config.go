package platforms

import (
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

const (
	// FoodyProductionBaseURL is the production API endpoint
	FoodyProductionBaseURL = "https://api.foodydelivery.com/rest/1.2"
	// FoodySandboxBaseURL is the sandbox API endpoint
	FoodySandboxBaseURL = "https://sandbox.foodydelivery.com/rest/1.2"
)

// FoodyConfig holds configuration for the Foody Delivery API
type FoodyConfig struct {
	// APIToken is the static REST token issued per restaurant account
	APIToken string
	// BaseURL is the API endpoint (production or sandbox)
	BaseURL string
	// Sandbox indicates the test environment
	Sandbox bool
	// Timeout bounds every HTTP call
	Timeout time.Duration
}

// NewFoodyConfig builds a Foody configuration from an integration's
// credential blob
func NewFoodyConfig(cfg integration.AdapterConfig) (*FoodyConfig, error) {
	token, err := cfg.Credentials.Require(integration.ProviderFoody, "apiToken")
	if err != nil {
		return nil, err
	}

	config := &FoodyConfig{
		APIToken: token,
		Sandbox:  cfg.Sandbox,
		Timeout:  cfg.HTTPTimeout,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required fields and applies environment defaults
func (c *FoodyConfig) Validate() error {
	if c.APIToken == "" {
		return integration.NewConfigError(integration.ProviderFoody, "apiToken", "is required")
	}
	if c.BaseURL == "" {
		if c.Sandbox {
			c.BaseURL = FoodySandboxBaseURL
		} else {
			c.BaseURL = FoodyProductionBaseURL
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}
