package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
)

// MockEventHandler records every event it receives and can be told to fail,
// either permanently (SetError) or for the next n deliveries (FailTimes).
// All methods are safe for concurrent use, so it can sit behind the real
// event bus in tests.
type MockEventHandler struct {
	mu           sync.Mutex
	eventTypes   []string
	handled      []shared.DomainEvent
	err          error
	failErr      error
	failuresLeft int
}

// NewMockEventHandler creates a handler subscribed to the given event types.
// With no types it receives every event, like an audit sink.
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

// EventTypes returns the event types this handler subscribes to.
func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event, then returns the configured error if any.
func (h *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handled = append(h.handled, event)

	if h.failuresLeft > 0 {
		h.failuresLeft--
		return h.failErr
	}
	return h.err
}

// Handled returns a copy of all handled events.
func (h *MockEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]shared.DomainEvent, len(h.handled))
	copy(result, h.handled)
	return result
}

// HandledCount returns the number of handled events.
func (h *MockEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError makes every subsequent Handle call return err.
func (h *MockEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// FailTimes makes the next n Handle calls return err, after which the
// handler succeeds again. Models a subscriber that recovers after retries.
func (h *MockEventHandler) FailTimes(n int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failErr = err
	h.failuresLeft = n
}

// Reset clears recorded events and any configured failures.
func (h *MockEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = make([]shared.DomainEvent, 0)
	h.err = nil
	h.failErr = nil
	h.failuresLeft = 0
}

// WaitFor blocks until the handler has seen at least n events or the
// timeout passes. Returns whether the count was reached.
func (h *MockEventHandler) WaitFor(t *testing.T, n int, timeout time.Duration) bool {
	t.Helper()
	return poll(func() bool {
		return h.HandledCount() >= n
	}, timeout, 10*time.Millisecond)
}

// TestEvent is a minimal domain event for exercising the event bus.
type TestEvent struct {
	shared.BaseDomainEvent
	Payload string
}

// NewTestEvent creates a test event of the given type against an order
// aggregate.
func NewTestEvent(eventType string, aggregateID uuid.UUID) *TestEvent {
	return NewTestEventWithID(uuid.New(), eventType, aggregateID)
}

// NewTestEventWithID creates a test event with a fixed event ID, for
// idempotency and dedupe scenarios where the same ID must repeat.
func NewTestEventWithID(eventID uuid.UUID, eventType string, aggregateID uuid.UUID) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        eventID,
			Type:      eventType,
			Timestamp: time.Now(),
			AggID:     aggregateID,
			AggType:   "Order",
		},
		Payload: "test-payload",
	}
}
