package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
)

// WorkTimeRecordModel is the persistence model for work-time records. The
// unique key (restaurant, provider, provider order id) is the idempotent
// upsert target.
type WorkTimeRecordModel struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key"`
	RestaurantID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_work_time_records_key,priority:1;index:idx_work_time_records_workday,priority:1"`
	Provider        string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_work_time_records_key,priority:2"`
	ProviderOrderID string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_work_time_records_key,priority:3"`
	OrderDate       time.Time      `gorm:"not null"`
	ArrivedAt       time.Time      `gorm:"not null"`
	ReadyAt         *time.Time
	PickedUpAt      *time.Time
	DeliveredAt     *time.Time
	PrepMinutes     *int
	PickupMinutes   *int
	DeliveryMinutes *int
	TotalMinutes    *int
	Shift           worktime.Shift `gorm:"type:varchar(10);not null"`
	Workday         time.Time      `gorm:"type:date;not null;index:idx_work_time_records_workday,priority:2"`
	Invalidated     bool           `gorm:"not null;default:false"`
	RawPayload      string         `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WorkTimeRecordModel) TableName() string {
	return "work_time_records"
}

// ToDomain converts the persistence model to a domain Record.
func (m *WorkTimeRecordModel) ToDomain() *worktime.Record {
	record := &worktime.Record{
		ID:              m.ID,
		RestaurantID:    m.RestaurantID,
		Provider:        m.Provider,
		ProviderOrderID: m.ProviderOrderID,
		OrderDate:       m.OrderDate,
		ArrivedAt:       m.ArrivedAt,
		ReadyAt:         m.ReadyAt,
		PickedUpAt:      m.PickedUpAt,
		DeliveredAt:     m.DeliveredAt,
		PrepMinutes:     m.PrepMinutes,
		PickupMinutes:   m.PickupMinutes,
		DeliveryMinutes: m.DeliveryMinutes,
		TotalMinutes:    m.TotalMinutes,
		Shift:           m.Shift,
		Workday:         m.Workday,
		Invalidated:     m.Invalidated,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.RawPayload != "" {
		record.RawPayload = []byte(m.RawPayload)
	}
	return record
}

// FromDomain populates the persistence model from a domain Record.
func (m *WorkTimeRecordModel) FromDomain(record *worktime.Record) {
	m.ID = record.ID
	m.RestaurantID = record.RestaurantID
	m.Provider = record.Provider
	m.ProviderOrderID = record.ProviderOrderID
	m.OrderDate = record.OrderDate
	m.ArrivedAt = record.ArrivedAt
	m.ReadyAt = record.ReadyAt
	m.PickedUpAt = record.PickedUpAt
	m.DeliveredAt = record.DeliveredAt
	m.PrepMinutes = record.PrepMinutes
	m.PickupMinutes = record.PickupMinutes
	m.DeliveryMinutes = record.DeliveryMinutes
	m.TotalMinutes = record.TotalMinutes
	m.Shift = record.Shift
	m.Workday = record.Workday
	m.Invalidated = record.Invalidated
	m.RawPayload = string(record.RawPayload)
	m.CreatedAt = record.CreatedAt
	m.UpdatedAt = record.UpdatedAt
}

// WorkTimeRecordModelFromDomain creates a new persistence model from a
// domain Record.
func WorkTimeRecordModelFromDomain(record *worktime.Record) *WorkTimeRecordModel {
	m := &WorkTimeRecordModel{}
	m.FromDomain(record)
	return m
}
