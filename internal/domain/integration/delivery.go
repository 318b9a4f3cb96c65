package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Logistics value objects
// ---------------------------------------------------------------------------

// DeliveryQuoteRequest asks a carrier for price and availability
type DeliveryQuoteRequest struct {
	PickupAddress  DeliveryAddress `json:"pickup_address"`
	DropoffAddress DeliveryAddress `json:"dropoff_address"`
	// ScheduledAt requests a future pickup; zero means as soon as possible
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// Validate checks the minimum fields carriers require
func (r *DeliveryQuoteRequest) Validate(provider Provider) error {
	if r.PickupAddress.Street == "" || r.PickupAddress.City == "" {
		return NewValidationError(provider, "quote request missing pickup address")
	}
	if r.DropoffAddress.Street == "" || r.DropoffAddress.City == "" {
		return NewValidationError(provider, "quote request missing dropoff address")
	}
	return nil
}

// DeliveryQuote is a carrier's answer to a quote request
type DeliveryQuote struct {
	Available  bool            `json:"available"`
	Price      decimal.Decimal `json:"price,omitempty"`
	ETAMinutes int             `json:"eta_minutes,omitempty"`
	DistanceKm float64         `json:"distance_km,omitempty"`
	// QuoteID references the quote on the carrier side when a later
	// RequestDelivery must cite it
	QuoteID string `json:"quote_id,omitempty"`
}

// DeliveryRequest dispatches a courier
type DeliveryRequest struct {
	QuoteID        string          `json:"quote_id,omitempty"`
	OrderExternal  string          `json:"order_external_id"`
	PickupAddress  DeliveryAddress `json:"pickup_address"`
	DropoffAddress DeliveryAddress `json:"dropoff_address"`
	// Sender is the pickup contact, normally the restaurant
	Sender    Customer `json:"sender,omitempty"`
	Recipient Customer `json:"recipient"`
	Notes     string   `json:"notes,omitempty"`
}

// Validate checks the minimum fields carriers require
func (r *DeliveryRequest) Validate(provider Provider) error {
	if r.OrderExternal == "" {
		return NewValidationError(provider, "delivery request missing order reference")
	}
	if r.Recipient.Name == "" {
		return NewValidationError(provider, "delivery request missing recipient")
	}
	if r.DropoffAddress.Street == "" || r.DropoffAddress.City == "" {
		return NewValidationError(provider, "delivery request missing dropoff address")
	}
	return nil
}

// DeliveryTracking is the live state of one carrier delivery
type DeliveryTracking struct {
	DeliveryID string          `json:"delivery_id"`
	Status     DeliveryStatus  `json:"status"`
	Driver     *DriverInfo     `json:"driver,omitempty"`
	Location   *GeoPoint       `json:"location,omitempty"`
	ETA        *time.Time      `json:"eta,omitempty"`
	Events     []TrackingEvent `json:"events,omitempty"`
}

// DriverInfo identifies the assigned courier
type DriverInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Plate string `json:"plate,omitempty"`
}

// GeoPoint is a WGS84 coordinate pair
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TrackingEvent is one entry of a delivery's event trail
type TrackingEvent struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}
