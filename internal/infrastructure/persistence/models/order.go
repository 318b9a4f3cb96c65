package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/order"
)

// OrderModel is the persistence model for persisted orders. The two upsert
// keys are full unique indexes with nullable members: external_id is null
// for POS orders and code is null when the platform carries none, so rows
// missing one key never collide on it.
type OrderModel struct {
	ID            uuid.UUID               `gorm:"type:uuid;primary_key"`
	CostCenterID  uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_orders_external_key,priority:1;uniqueIndex:idx_orders_code_key,priority:1;index:idx_orders_cost_center_placed,priority:1"`
	ExternalID    *string                 `gorm:"type:varchar(100);uniqueIndex:idx_orders_external_key,priority:3"`
	Platform      integration.Provider    `gorm:"type:varchar(20);not null;default:'';uniqueIndex:idx_orders_external_key,priority:2"`
	Code          *string                 `gorm:"type:varchar(40);uniqueIndex:idx_orders_code_key,priority:2"`
	Status        integration.OrderStatus `gorm:"type:varchar(20);not null"`
	CustomerJSON  string                  `gorm:"type:jsonb;column:customer"`
	AddressJSON   string                  `gorm:"type:jsonb;column:address"`
	ItemsJSON     string                  `gorm:"type:jsonb;column:items"`
	Subtotal      decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	DeliveryFee   decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Discount      decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	Total         decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentMethod string                  `gorm:"type:varchar(50)"`
	PaymentStatus string                  `gorm:"type:varchar(20)"`
	PlacedAt      time.Time               `gorm:"not null;index:idx_orders_cost_center_placed,priority:2"`
	ReadyAt       *time.Time
	PickedUpAt    *time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		ID:            m.ID,
		CostCenterID:  m.CostCenterID,
		ExternalID:    stringValue(m.ExternalID),
		Platform:      m.Platform,
		Code:          stringValue(m.Code),
		Status:        m.Status,
		Subtotal:      m.Subtotal,
		DeliveryFee:   m.DeliveryFee,
		Discount:      m.Discount,
		Total:         m.Total,
		PaymentMethod: m.PaymentMethod,
		PaymentStatus: m.PaymentStatus,
		PlacedAt:      m.PlacedAt,
		ReadyAt:       m.ReadyAt,
		PickedUpAt:    m.PickedUpAt,
		DeliveredAt:   m.DeliveredAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}

	if m.CustomerJSON != "" {
		var customer integration.Customer
		if err := json.Unmarshal([]byte(m.CustomerJSON), &customer); err == nil {
			o.Customer = customer
		}
	}
	if m.AddressJSON != "" {
		var address integration.DeliveryAddress
		if err := json.Unmarshal([]byte(m.AddressJSON), &address); err == nil {
			o.Address = &address
		}
	}
	if m.ItemsJSON != "" {
		var items []integration.OrderItem
		if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err == nil {
			o.Items = items
		}
	}

	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.ID = o.ID
	m.CostCenterID = o.CostCenterID
	m.ExternalID = nullableString(o.ExternalID)
	m.Platform = o.Platform
	m.Code = nullableString(o.Code)
	m.Status = o.Status
	m.Subtotal = o.Subtotal
	m.DeliveryFee = o.DeliveryFee
	m.Discount = o.Discount
	m.Total = o.Total
	m.PaymentMethod = o.PaymentMethod
	m.PaymentStatus = o.PaymentStatus
	m.PlacedAt = o.PlacedAt
	m.ReadyAt = o.ReadyAt
	m.PickedUpAt = o.PickedUpAt
	m.DeliveredAt = o.DeliveredAt
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt

	if jsonBytes, err := json.Marshal(o.Customer); err == nil {
		m.CustomerJSON = string(jsonBytes)
	}
	if o.Address != nil {
		if jsonBytes, err := json.Marshal(o.Address); err == nil {
			m.AddressJSON = string(jsonBytes)
		}
	} else {
		m.AddressJSON = ""
	}
	if len(o.Items) > 0 {
		if jsonBytes, err := json.Marshal(o.Items); err == nil {
			m.ItemsJSON = string(jsonBytes)
		}
	} else {
		m.ItemsJSON = "[]"
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// nullableString maps the domain's empty-string absence convention onto
// nullable columns, keeping unique indexes blind to missing keys.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
