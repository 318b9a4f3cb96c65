package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers delivery IDs that have already been
// processed. Platforms redeliver webhooks on timeouts and retries, so
// the same delivery can arrive more than once.
type IdempotencyStore interface {
	// MarkProcessed records a delivery ID with a TTL. It returns true
	// when the ID was newly recorded and false when a previous attempt
	// already claimed it.
	MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a delivery ID has been recorded.
	IsProcessed(ctx context.Context, deliveryID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig controls duplicate-delivery suppression.
type IdempotencyConfig struct {
	// TTL bounds how long a delivery ID is remembered. Platforms stop
	// retrying well within a day, so expired IDs are safe to reuse.
	TTL time.Duration

	// Enabled turns the check off entirely when false.
	Enabled bool
}

// DefaultIdempotencyConfig keeps delivery IDs for 24 hours.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
