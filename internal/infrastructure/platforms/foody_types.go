package platforms

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// foodyEventOrderSync tags raw payloads staged by the polling path
const foodyEventOrderSync = "order.sync"

// foodyOrder is the wire shape of one Foody order. Webhook bodies and list
// entries carry the same shape; the optional statusHistory trail is what
// feeds timestamp reconciliation.
type foodyOrder struct {
	UID           string              `json:"uid"`
	Number        string              `json:"number,omitempty"`
	Status        string              `json:"status"`
	Customer      foodyCustomer       `json:"customer"`
	Address       *foodyAddress       `json:"address,omitempty"`
	Items         []foodyItem         `json:"items"`
	SubTotal      decimal.Decimal     `json:"subTotal"`
	DeliveryFee   decimal.Decimal     `json:"deliveryFee"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod string              `json:"paymentMethod,omitempty"`
	PaymentStatus string              `json:"paymentStatus,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	ReadyAt       *time.Time          `json:"readyAt,omitempty"`
	PickedUpAt    *time.Time          `json:"pickedUpAt,omitempty"`
	DeliveredAt   *time.Time          `json:"deliveredAt,omitempty"`
	StatusHistory []foodyStatusChange `json:"statusHistory,omitempty"`
}

// foodyStatusChange is one entry of the order's status trail
type foodyStatusChange struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

type foodyCustomer struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

type foodyAddress struct {
	Street       string  `json:"street"`
	Number       string  `json:"number,omitempty"`
	Complement   string  `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state,omitempty"`
	PostalCode   string  `json:"postalCode,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	Reference    string  `json:"reference,omitempty"`
}

type foodyItem struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Note       string          `json:"note,omitempty"`
	SubItems   []foodySubItem  `json:"subItems,omitempty"`
}

type foodySubItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// foodyStatusMap translates Foody's native vocabulary to the normalized one.
// Unknown native statuses map to pending, never an error, since the platform
// vocabulary evolves independently of this system.
var foodyStatusMap = map[string]integration.OrderStatus{
	"placed":      integration.OrderStatusPending,
	"accepted":    integration.OrderStatusConfirmed,
	"confirmed":   integration.OrderStatusConfirmed,
	"production":  integration.OrderStatusPreparing,
	"preparing":   integration.OrderStatusPreparing,
	"ready":       integration.OrderStatusReady,
	"dispatching": integration.OrderStatusReady,
	"dispatched":  integration.OrderStatusDispatched,
	"pickedup":    integration.OrderStatusDispatched,
	"collected":   integration.OrderStatusDispatched,
	"delivered":   integration.OrderStatusDelivered,
	"closed":      integration.OrderStatusDelivered,
	"canceled":    integration.OrderStatusCancelled,
	"cancelled":   integration.OrderStatusCancelled,
}

func mapFoodyStatus(status string) integration.OrderStatus {
	if mapped, ok := foodyStatusMap[strings.ToLower(status)]; ok {
		return mapped
	}
	return integration.OrderStatusPending
}

// mapToFoodyStatus translates the normalized vocabulary back to the native
// one for lifecycle updates
func mapToFoodyStatus(status integration.OrderStatus) string {
	switch status {
	case integration.OrderStatusPending:
		return "placed"
	case integration.OrderStatusConfirmed:
		return "accepted"
	case integration.OrderStatusPreparing:
		return "production"
	case integration.OrderStatusReady:
		return "ready"
	case integration.OrderStatusDispatched:
		return "dispatched"
	case integration.OrderStatusDelivered:
		return "delivered"
	case integration.OrderStatusCancelled:
		return "canceled"
	default:
		return "placed"
	}
}
