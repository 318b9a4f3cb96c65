package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/config"
)

// StoreFactory creates the token and idempotency stores based on whether
// Redis is configured. With Redis disabled both stores run in process memory,
// which is fine for a single instance; distributed deployments want Redis so
// instances share tokens and processed-event state.
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is enabled but unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateTokenStore creates the platform token store: Redis-backed when Redis
// is enabled, in-memory otherwise
func (f *StoreFactory) CreateTokenStore() (integration.TokenStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory token store")
		return NewInMemoryTokenStore(), nil
	}

	store, err := NewRedisTokenStore(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis token store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for token store but unavailable: %w", err)
	}

	f.logger.Warn("redis unavailable, falling back to in-memory token store. "+
		"Instances will not share platform tokens.",
		zap.Error(err),
	)
	return NewInMemoryTokenStore(), nil
}

// CreateIdempotencyStore creates the processed-event store used to
// deduplicate event handling: Redis-backed when Redis is enabled, in-memory
// otherwise
func (f *StoreFactory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("redis unavailable, falling back to in-memory idempotency store. "+
		"This may cause duplicate event processing in distributed deployments.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
