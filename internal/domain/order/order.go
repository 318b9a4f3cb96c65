// Package order holds the persisted, platform-agnostic order records
// produced by the ingestion pipeline.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
)

var (
	ErrOrderNotFound   = errors.New("order: order not found")
	ErrMissingKey      = errors.New("order: upsert key fields are required")
	ErrMissingPlacedAt = errors.New("order: placed-at timestamp is required")
)

// Order is one persisted order. Two idempotency keys cover the ingestion
// paths: (cost center, external id, platform) for marketplace and logistics
// orders, and (cost center, code) for POS orders identified by short code.
type Order struct {
	ID uuid.UUID

	CostCenterID uuid.UUID
	ExternalID   string
	Platform     integration.Provider
	Code         string

	Status integration.OrderStatus

	Customer integration.Customer
	Address  *integration.DeliveryAddress
	Items    []integration.OrderItem

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal

	PaymentMethod string
	PaymentStatus string

	PlacedAt    time.Time
	ReadyAt     *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromNormalized stamps a normalized order with its owning cost center
func FromNormalized(costCenterID uuid.UUID, n *integration.NormalizedOrder) (*Order, error) {
	if costCenterID == uuid.Nil {
		return nil, ErrMissingKey
	}
	if n.ExternalID == "" && n.Code == "" {
		return nil, ErrMissingKey
	}
	if n.PlacedAt.IsZero() {
		return nil, ErrMissingPlacedAt
	}

	now := time.Now()
	return &Order{
		ID:            uuid.New(),
		CostCenterID:  costCenterID,
		ExternalID:    n.ExternalID,
		Platform:      n.Platform,
		Code:          n.Code,
		Status:        n.Status,
		Customer:      n.Customer,
		Address:       n.Address,
		Items:         n.Items,
		Subtotal:      n.Subtotal,
		DeliveryFee:   n.DeliveryFee,
		Discount:      n.Discount,
		Total:         n.Total,
		PaymentMethod: n.PaymentMethod,
		PaymentStatus: n.PaymentStatus,
		PlacedAt:      n.PlacedAt,
		ReadyAt:       n.ReadyAt,
		PickedUpAt:    n.PickedUpAt,
		DeliveredAt:   n.DeliveredAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// HasExternalKey reports whether the marketplace key is usable
func (o *Order) HasExternalKey() bool {
	return o.ExternalID != "" && o.Platform != ""
}

// Repository persists orders through keyed upserts, never insert-only
type Repository interface {
	// UpsertByExternalKey converges on (cost center, external id, platform)
	UpsertByExternalKey(ctx context.Context, o *Order) error
	// UpsertByCode converges on (cost center, code) for POS orders
	UpsertByCode(ctx context.Context, o *Order) error
	FindByExternalKey(ctx context.Context, costCenterID uuid.UUID, externalID string, platform integration.Provider) (*Order, error)
	ListByCostCenter(ctx context.Context, costCenterID uuid.UUID, filter shared.Filter) ([]Order, int64, error)
}
