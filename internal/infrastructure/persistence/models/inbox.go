package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
)

// InboxItemModel is the persistence model for the inbox Item entity. Raw and
// parsed payloads are stored as jsonb text columns. The dispatch index
// serves the FIFO pending scan (integration, status, received order).
type InboxItemModel struct {
	ID            uuid.UUID    `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID    `gorm:"type:uuid;not null;index:idx_inbox_items_dispatch,priority:1"`
	Source        string       `gorm:"type:varchar(20);not null"`
	Event         string       `gorm:"type:varchar(100)"`
	ExternalID    string       `gorm:"type:varchar(100);index:idx_inbox_items_external"`
	Payload       string       `gorm:"type:jsonb;not null"`
	CorrelationID string       `gorm:"type:varchar(64);index:idx_inbox_items_correlation"`
	Status        inbox.Status `gorm:"type:varchar(20);not null;index:idx_inbox_items_dispatch,priority:2"`
	ErrorMessage  string       `gorm:"type:varchar(500)"`
	RetryCount    int          `gorm:"not null;default:0"`
	ParsedPayload string       `gorm:"type:jsonb"`
	ReceivedAt    time.Time    `gorm:"not null;index:idx_inbox_items_dispatch,priority:3"`
	ProcessedAt   *time.Time
}

// TableName returns the table name for GORM
func (InboxItemModel) TableName() string {
	return "inbox_items"
}

// ToDomain converts the persistence model to a domain inbox Item.
func (m *InboxItemModel) ToDomain() *inbox.Item {
	item := &inbox.Item{
		ID:            m.ID,
		IntegrationID: m.IntegrationID,
		Source:        m.Source,
		Event:         m.Event,
		ExternalID:    m.ExternalID,
		Payload:       json.RawMessage(m.Payload),
		CorrelationID: m.CorrelationID,
		Status:        m.Status,
		ErrorMessage:  m.ErrorMessage,
		RetryCount:    m.RetryCount,
		ReceivedAt:    m.ReceivedAt,
		ProcessedAt:   m.ProcessedAt,
	}
	if m.ParsedPayload != "" {
		item.ParsedPayload = json.RawMessage(m.ParsedPayload)
	}
	return item
}

// FromDomain populates the persistence model from a domain inbox Item.
func (m *InboxItemModel) FromDomain(item *inbox.Item) {
	m.ID = item.ID
	m.IntegrationID = item.IntegrationID
	m.Source = item.Source
	m.Event = item.Event
	m.ExternalID = item.ExternalID
	m.Payload = string(item.Payload)
	m.CorrelationID = item.CorrelationID
	m.Status = item.Status
	m.ErrorMessage = item.ErrorMessage
	m.RetryCount = item.RetryCount
	m.ParsedPayload = string(item.ParsedPayload)
	m.ReceivedAt = item.ReceivedAt
	m.ProcessedAt = item.ProcessedAt
}

// InboxItemModelFromDomain creates a new persistence model from a domain
// inbox Item.
func InboxItemModelFromDomain(item *inbox.Item) *InboxItemModel {
	m := &InboxItemModel{}
	m.FromDomain(item)
	return m
}
