package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/config"
)

func TestInMemoryTokenStore_PutGet(t *testing.T) {
	store := NewInMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("round trips a live token", func(t *testing.T) {
		token := integration.Token{
			AccessToken: "tok-abc",
			ExpiresAt:   time.Now().Add(time.Hour),
		}

		require.NoError(t, store.Put(ctx, "integ-1", token))

		got, found, err := store.Get(ctx, "integ-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "tok-abc", got.AccessToken)
	})

	t.Run("missing key reports not found", func(t *testing.T) {
		_, found, err := store.Get(ctx, "never-stored")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("expired token reports not found", func(t *testing.T) {
		token := integration.Token{
			AccessToken: "tok-stale",
			ExpiresAt:   time.Now().Add(10 * time.Millisecond),
		}
		require.NoError(t, store.Put(ctx, "integ-2", token))

		time.Sleep(20 * time.Millisecond)

		_, found, err := store.Get(ctx, "integ-2")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("storing an already expired token drops the entry", func(t *testing.T) {
		live := integration.Token{AccessToken: "tok-live", ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, store.Put(ctx, "integ-3", live))

		dead := integration.Token{AccessToken: "tok-dead", ExpiresAt: time.Now().Add(-time.Minute)}
		require.NoError(t, store.Put(ctx, "integ-3", dead))

		_, found, err := store.Get(ctx, "integ-3")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestInMemoryTokenStore_Delete(t *testing.T) {
	store := NewInMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	token := integration.Token{AccessToken: "tok-del", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Put(ctx, "integ-del", token))

	require.NoError(t, store.Delete(ctx, "integ-del"))

	_, found, err := store.Get(ctx, "integ-del")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting a missing key is a no-op
	assert.NoError(t, store.Delete(ctx, "integ-del"))
}

func TestInMemoryTokenStore_CleanupExpired(t *testing.T) {
	store := NewInMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	store.Put(ctx, "short-1", integration.Token{AccessToken: "a", ExpiresAt: time.Now().Add(10 * time.Millisecond)})
	store.Put(ctx, "short-2", integration.Token{AccessToken: "b", ExpiresAt: time.Now().Add(10 * time.Millisecond)})
	store.Put(ctx, "long", integration.Token{AccessToken: "c", ExpiresAt: time.Now().Add(time.Hour)})

	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)

	store.cleanupExpired()

	assert.Equal(t, 1, store.Size())

	_, found, err := store.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestInMemoryTokenStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			token := integration.Token{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
			_ = store.Put(ctx, "shared-key", token)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = store.Get(ctx, "shared-key")
		}()
	}
	wg.Wait()

	got, found, err := store.Get(ctx, "shared-key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok", got.AccessToken)
}

func TestInMemoryTokenStore_Close(t *testing.T) {
	store := NewInMemoryTokenStore()

	// Close should not panic and should return nil
	err := store.Close()
	assert.NoError(t, err)

	// Multiple closes should be safe
	err = store.Close()
	assert.NoError(t, err)
}

func TestStoreFactory_RedisDisabled(t *testing.T) {
	factory := NewStoreFactory(config.RedisConfig{Enabled: false})

	t.Run("token store falls back to memory", func(t *testing.T) {
		store, err := factory.CreateTokenStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryTokenStore{}, store)
		store.(*InMemoryTokenStore).Close()
	})

	t.Run("idempotency store falls back to memory", func(t *testing.T) {
		store, err := factory.CreateIdempotencyStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		store.(*InMemoryIdempotencyStore).Close()
	})
}
