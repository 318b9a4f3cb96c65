package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/config"
)

// tokenKeyPrefix scopes platform tokens; keys are "moby:token:<integration id>"
const tokenKeyPrefix = "moby:token:"

// RedisTokenStore shares short-lived platform tokens between adapter
// instances through Redis. The entry TTL tracks the platform expiry, so a
// token disappears from the store the moment the platform stops accepting it.
type RedisTokenStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTokenStore creates a Redis-backed token store and verifies the
// connection before returning
func NewRedisTokenStore(cfg config.RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenStore{
		client:    client,
		keyPrefix: tokenKeyPrefix,
	}, nil
}

// NewRedisTokenStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components
func NewRedisTokenStoreWithClient(client *redis.Client, keyPrefix string) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = tokenKeyPrefix
	}
	return &RedisTokenStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached token for the key. A missing or expired entry
// reports found=false, never an error.
func (s *RedisTokenStore) Get(ctx context.Context, key string) (integration.Token, bool, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return integration.Token{}, false, nil
	}
	if err != nil {
		return integration.Token{}, false, fmt.Errorf("failed to read cached token: %w", err)
	}

	var token integration.Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return integration.Token{}, false, fmt.Errorf("failed to decode cached token: %w", err)
	}
	return token, true, nil
}

// Put stores the token under the key with a TTL matching the token expiry.
// Tokens that are already expired are dropped instead of stored.
func (s *RedisTokenStore) Put(ctx context.Context, key string, token integration.Token) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := s.client.Set(ctx, s.keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Delete removes the cached token for the key
func (s *RedisTokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisTokenStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisTokenStore implements integration.TokenStore
var _ integration.TokenStore = (*RedisTokenStore)(nil)
