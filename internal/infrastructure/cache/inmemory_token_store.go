package cache

import (
	"context"
	"sync"
	"time"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// InMemoryTokenStore keeps platform tokens in process memory. Suitable for
// single-instance deployments and testing; separate instances do not share
// tokens, so each authenticates on its own.
type InMemoryTokenStore struct {
	mu        sync.RWMutex
	tokens    map[string]integration.Token
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryTokenStore creates an in-memory token store. It starts a
// background goroutine that evicts expired tokens.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	store := &InMemoryTokenStore{
		tokens:   make(map[string]integration.Token),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the stored token for the key. Expired tokens report found=false.
func (s *InMemoryTokenStore) Get(ctx context.Context, key string) (integration.Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, exists := s.tokens[key]
	if !exists {
		return integration.Token{}, false, nil
	}
	if !time.Now().Before(token.ExpiresAt) {
		return integration.Token{}, false, nil
	}
	return token, true, nil
}

// Put stores the token under the key. Tokens that are already expired are
// dropped instead of stored.
func (s *InMemoryTokenStore) Put(ctx context.Context, key string, token integration.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !time.Now().Before(token.ExpiresAt) {
		delete(s.tokens, key)
		return nil
	}
	s.tokens[key] = token
	return nil
}

// Delete removes the stored token for the key
func (s *InMemoryTokenStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, key)
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryTokenStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically evicts expired tokens
func (s *InMemoryTokenStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

// cleanupExpired removes expired tokens from the store
func (s *InMemoryTokenStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, token := range s.tokens {
		if now.After(token.ExpiresAt) {
			delete(s.tokens, key)
		}
	}
}

// Size returns the number of stored tokens (for testing/monitoring)
func (s *InMemoryTokenStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Ensure InMemoryTokenStore implements integration.TokenStore
var _ integration.TokenStore = (*InMemoryTokenStore)(nil)
