package integration

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeIntegration = "Integration"
	AggregateTypeInboxItem   = "InboxItem"
)

// Event type constants
const (
	EventTypeIntegrationConnected = "IntegrationConnected"
	EventTypeIntegrationDegraded  = "IntegrationDegraded"
	EventTypeOrderIngested        = "OrderIngested"
)

// IntegrationConnectedEvent is raised when an integration authenticates
// successfully and becomes eligible for polling
type IntegrationConnectedEvent struct {
	shared.BaseDomainEvent
	IntegrationID uuid.UUID `json:"integration_id"`
	Provider      Provider  `json:"provider"`
	Name          string    `json:"name"`
}

// NewIntegrationConnectedEvent creates a new IntegrationConnectedEvent
func NewIntegrationConnectedEvent(integ *Integration) *IntegrationConnectedEvent {
	return &IntegrationConnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationConnected, AggregateTypeIntegration, integ.ID),
		IntegrationID:   integ.ID,
		Provider:        integ.Provider,
		Name:            integ.Name,
	}
}

// EventType returns the event type name
func (e *IntegrationConnectedEvent) EventType() string {
	return EventTypeIntegrationConnected
}

// IntegrationDegradedEvent is raised when authentication or polling fails
// and the integration is parked for operator attention
type IntegrationDegradedEvent struct {
	shared.BaseDomainEvent
	IntegrationID uuid.UUID `json:"integration_id"`
	Provider      Provider  `json:"provider"`
	Reason        string    `json:"reason"`
}

// NewIntegrationDegradedEvent creates a new IntegrationDegradedEvent
func NewIntegrationDegradedEvent(integ *Integration, reason string) *IntegrationDegradedEvent {
	return &IntegrationDegradedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationDegraded, AggregateTypeIntegration, integ.ID),
		IntegrationID:   integ.ID,
		Provider:        integ.Provider,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *IntegrationDegradedEvent) EventType() string {
	return EventTypeIntegrationDegraded
}

// OrderIngestedEvent is raised after a staged payload is processed into its
// order and work-time upserts. Subscribers must tolerate duplicate delivery:
// the same inbox item may be reprocessed any number of times.
type OrderIngestedEvent struct {
	shared.BaseDomainEvent
	InboxItemID   uuid.UUID       `json:"inbox_item_id"`
	IntegrationID uuid.UUID       `json:"integration_id"`
	Provider      Provider        `json:"provider"`
	ExternalID    string          `json:"external_id"`
	Workday       time.Time       `json:"workday"`
	Payload       json.RawMessage `json:"payload"`
}

// NewOrderIngestedEvent creates a new OrderIngestedEvent
func NewOrderIngestedEvent(itemID, integrationID uuid.UUID, provider Provider, externalID string, workday time.Time, payload json.RawMessage) *OrderIngestedEvent {
	return &OrderIngestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderIngested, AggregateTypeInboxItem, itemID),
		InboxItemID:     itemID,
		IntegrationID:   integrationID,
		Provider:        provider,
		ExternalID:      externalID,
		Workday:         workday,
		Payload:         payload,
	}
}

// EventType returns the event type name
func (e *OrderIngestedEvent) EventType() string {
	return EventTypeOrderIngested
}
