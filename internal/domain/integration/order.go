package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// NormalizedOrder and its parts
// ---------------------------------------------------------------------------

// totalTolerance is the accepted rounding drift when reconciling totals
var totalTolerance = decimal.NewFromFloat(0.01)

// NormalizedOrder is the platform-agnostic representation of one order. It is
// produced by an adapter's normalization step and handed to persistence; it
// is never stored directly.
type NormalizedOrder struct {
	ExternalID string      `json:"external_id"`
	Platform   Provider    `json:"platform"`
	Code       string      `json:"code,omitempty"` // POS short code, when the platform carries one
	Status     OrderStatus `json:"status"`

	Customer Customer         `json:"customer"`
	Address  *DeliveryAddress `json:"address,omitempty"`
	Items    []OrderItem      `json:"items"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`

	PaymentMethod string `json:"payment_method,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`

	PlacedAt    time.Time  `json:"placed_at"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	// StatusHistory preserves the platform's status trail in native labels;
	// timestamp reconciliation derives milestones from it.
	StatusHistory []StatusEvent `json:"status_history,omitempty"`

	// RawData holds the original platform payload for audit
	RawData string `json:"raw_data,omitempty"`
}

// StatusEvent is one entry of a platform's status trail
type StatusEvent struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// Customer identifies the ordering customer
type Customer struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

// DeliveryAddress is the structured drop-off location
type DeliveryAddress struct {
	Street       string  `json:"street"`
	Number       string  `json:"number,omitempty"`
	Complement   string  `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state,omitempty"`
	PostalCode   string  `json:"postal_code,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	Reference    string  `json:"reference,omitempty"`
}

// OrderItem is one order line
type OrderItem struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Observations string          `json:"observations,omitempty"`
	SubItems     []OrderSubItem  `json:"sub_items,omitempty"`
}

// OrderSubItem is an addition or option nested under a line
type OrderSubItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Validate checks the invariants every normalized order must satisfy.
// Violations are ValidationErrors: the payload is staged but cannot be
// turned into a usable order.
func (o *NormalizedOrder) Validate() error {
	if o.ExternalID == "" {
		return NewValidationError(o.Platform, "missing external order id")
	}
	if !o.Platform.IsValid() {
		return NewValidationError(o.Platform, "unknown platform tag")
	}
	if !o.Status.IsValid() {
		return NewValidationError(o.Platform, "status outside normalized vocabulary: "+o.Status.String())
	}
	if o.PlacedAt.IsZero() {
		return NewValidationError(o.Platform, "missing order timestamp")
	}
	if o.Total.IsNegative() || o.Subtotal.IsNegative() {
		return NewValidationError(o.Platform, "negative order totals")
	}
	if !o.TotalsReconcile() {
		return NewValidationError(o.Platform, ErrOrderTotalMismatch.Error())
	}
	return nil
}

// TotalsReconcile reports whether subtotal + deliveryFee - discount matches
// total within the accepted tolerance
func (o *NormalizedOrder) TotalsReconcile() bool {
	expected := o.Subtotal.Add(o.DeliveryFee).Sub(o.Discount)
	return expected.Sub(o.Total).Abs().LessThanOrEqual(totalTolerance)
}

// FillTotal computes the total from the parts when the platform omitted it
func (o *NormalizedOrder) FillTotal() {
	if o.Total.IsZero() && !o.Subtotal.IsZero() {
		o.Total = o.Subtotal.Add(o.DeliveryFee).Sub(o.Discount)
	}
}
