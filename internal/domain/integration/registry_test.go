package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	provider Provider
}

func (s *stubAdapter) Provider() Provider                      { return s.provider }
func (s *stubAdapter) Authenticate(context.Context) error      { return nil }
func (s *stubAdapter) IsTokenValid() bool                      { return true }
func (s *stubAdapter) TestConnection(context.Context) bool     { return true }

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry()
	registry.Register(ProviderFoody, func(cfg AdapterConfig) (PlatformAdapter, error) {
		return &stubAdapter{provider: ProviderFoody}, nil
	})

	t.Run("resolves registered provider", func(t *testing.T) {
		adapter, err := registry.Resolve(ProviderFoody, AdapterConfig{})
		require.NoError(t, err)
		assert.Equal(t, ProviderFoody, adapter.Provider())
	})

	t.Run("unregistered provider is a typed not-found error", func(t *testing.T) {
		adapter, err := registry.Resolve(ProviderRappi, AdapterConfig{})
		assert.Nil(t, adapter)

		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, ProviderRappi, notFound.Provider)
		assert.ErrorIs(t, err, ErrProviderNotRegistered)
	})

	t.Run("factory errors propagate", func(t *testing.T) {
		registry.Register(ProviderIfood, func(cfg AdapterConfig) (PlatformAdapter, error) {
			return nil, NewConfigError(ProviderIfood, "clientId", "is required")
		})

		_, err := registry.Resolve(ProviderIfood, AdapterConfig{})
		var cfgErr *ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestRegistry_Providers(t *testing.T) {
	registry := NewRegistry()
	factory := func(cfg AdapterConfig) (PlatformAdapter, error) { return &stubAdapter{}, nil }

	registry.Register(ProviderRappi, factory)
	registry.Register(ProviderFoody, factory)
	registry.Register(ProviderLalamove, factory)

	assert.Equal(t, []Provider{ProviderFoody, ProviderLalamove, ProviderRappi}, registry.Providers())
	assert.True(t, registry.Has(ProviderFoody))
	assert.False(t, registry.Has(ProviderIfood))
}

func TestToken_Valid(t *testing.T) {
	t.Run("empty token is invalid", func(t *testing.T) {
		assert.False(t, Token{}.Valid(0))
	})

	t.Run("token inside margin is invalid", func(t *testing.T) {
		tok := Token{AccessToken: "abc", ExpiresAt: time.Now().Add(30 * time.Second)}
		assert.False(t, tok.Valid(time.Minute))
	})

	t.Run("token outside margin is valid", func(t *testing.T) {
		tok := Token{AccessToken: "abc", ExpiresAt: time.Now().Add(10 * time.Minute)}
		assert.True(t, tok.Valid(time.Minute))
	})
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("platform api error unwraps to unavailable", func(t *testing.T) {
		err := NewPlatformAPIError(ProviderFoody, 502, "bad gateway")
		assert.ErrorIs(t, err, ErrPlatformUnavailable)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("platform api error truncates huge bodies", func(t *testing.T) {
		body := make([]byte, 4096)
		for i := range body {
			body[i] = 'a'
		}
		err := NewPlatformAPIError(ProviderFoody, 500, string(body))
		assert.Len(t, err.Body, 1024)
	})

	t.Run("config error names the field", func(t *testing.T) {
		err := NewConfigError(ProviderIfood, "clientSecret", "is required")
		assert.Contains(t, err.Error(), "clientSecret")
		assert.Contains(t, err.Error(), "ifood")
	})

	t.Run("taxonomy types are distinguishable with errors.As", func(t *testing.T) {
		var target error = NewValidationError(ProviderFoody, "missing external order id")

		var validation *ValidationError
		var apiErr *PlatformAPIError
		assert.True(t, errors.As(target, &validation))
		assert.False(t, errors.As(target, &apiErr))
	})
}
