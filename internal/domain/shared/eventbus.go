package shared

import "context"

// EventHandler consumes domain events published after state changes, such
// as a delivery landing in the inbox or an integration being paused.
type EventHandler interface {
	// Handle processes a single event. Returning an error does not stop
	// delivery to other handlers.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types this handler wants. An empty slice
	// subscribes the handler to every event (audit sinks use this).
	EventTypes() []string
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations.
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types, or for all
	// events when none are named.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes every registration of the handler.
	Unsubscribe(handler EventHandler)
}

// EventBus combines publishing and subscription with a lifecycle. What
// Start and Stop do is up to the implementation; a broker-backed bus opens
// and drains connections, the in-process one just flips state.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
