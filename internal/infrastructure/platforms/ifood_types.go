package platforms

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// ifoodTokenResponse is the OAuth client-credentials grant response
type ifoodTokenResponse struct {
	AccessToken string `json:"accessToken"`
	Type        string `json:"type"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// ifoodEvent is one entry of the events polling queue. Order lifecycle
// events carry the orderId; the fullCode is the authoritative status.
type ifoodEvent struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	FullCode   string    `json:"fullCode"`
	OrderID    string    `json:"orderId"`
	MerchantID string    `json:"merchantId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ifoodOrder is the wire shape of the order details endpoint. Status is
// absent on purpose: iFood publishes status through events only.
type ifoodOrder struct {
	ID        string         `json:"id"`
	DisplayID string         `json:"displayId"`
	CreatedAt time.Time      `json:"createdAt"`
	OrderType string         `json:"orderType"`
	Customer  ifoodCustomer  `json:"customer"`
	Delivery  *ifoodDelivery `json:"delivery,omitempty"`
	Items     []ifoodItem    `json:"items"`
	Total     ifoodTotal     `json:"total"`
	Payments  ifoodPayments  `json:"payments"`
}

type ifoodCustomer struct {
	Name           string     `json:"name"`
	DocumentNumber string     `json:"documentNumber,omitempty"`
	Phone          ifoodPhone `json:"phone"`
}

type ifoodPhone struct {
	Number string `json:"number"`
}

type ifoodDelivery struct {
	DeliveryAddress ifoodAddress `json:"deliveryAddress"`
}

type ifoodAddress struct {
	StreetName   string           `json:"streetName"`
	StreetNumber string           `json:"streetNumber,omitempty"`
	Complement   string           `json:"complement,omitempty"`
	Neighborhood string           `json:"neighborhood,omitempty"`
	City         string           `json:"city"`
	State        string           `json:"state,omitempty"`
	PostalCode   string           `json:"postalCode,omitempty"`
	Reference    string           `json:"reference,omitempty"`
	Coordinates  ifoodCoordinates `json:"coordinates"`
}

type ifoodCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ifoodItem struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Observations string          `json:"observations,omitempty"`
	Options      []ifoodOption   `json:"options,omitempty"`
}

type ifoodOption struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type ifoodTotal struct {
	SubTotal    decimal.Decimal `json:"subTotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Benefits    decimal.Decimal `json:"benefits"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

type ifoodPayments struct {
	Methods []ifoodPaymentMethod `json:"methods"`
}

type ifoodPaymentMethod struct {
	Method  string `json:"method"`
	Prepaid bool   `json:"prepaid"`
}

// ifoodCancellation is the body of a cancellation request
type ifoodCancellation struct {
	Reason           string `json:"reason"`
	CancellationCode string `json:"cancellationCode"`
}

// ifoodCatalogItem is the per-item body of a catalog push
type ifoodCatalogItem struct {
	ExternalCode string         `json:"externalCode"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Category     string         `json:"category,omitempty"`
	Status       string         `json:"status"`
	Price        ifoodItemPrice `json:"price"`
}

type ifoodItemPrice struct {
	Value decimal.Decimal `json:"value"`
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// ifoodStatusMap translates event fullCodes to the normalized vocabulary.
// Unknown fullCodes map to pending, never an error.
var ifoodStatusMap = map[string]integration.OrderStatus{
	"PLACED":              integration.OrderStatusPending,
	"CONFIRMED":           integration.OrderStatusConfirmed,
	"PREPARATION_STARTED": integration.OrderStatusPreparing,
	"READY_TO_PICKUP":     integration.OrderStatusReady,
	"DISPATCHED":          integration.OrderStatusDispatched,
	"CONCLUDED":           integration.OrderStatusDelivered,
	"CANCELLED":           integration.OrderStatusCancelled,
}

func mapIfoodStatus(fullCode string) integration.OrderStatus {
	if mapped, ok := ifoodStatusMap[strings.ToUpper(fullCode)]; ok {
		return mapped
	}
	return integration.OrderStatusPending
}
