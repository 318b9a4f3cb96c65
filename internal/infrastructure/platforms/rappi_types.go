package platforms

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// rappiAuthRequest is the Auth0 client-credentials grant body
type rappiAuthRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
	GrantType    string `json:"grant_type"`
}

// rappiTokenResponse is the Auth0 grant response; the access token is a JWT
type rappiTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// rappiOrder is the wire shape of one Rappi order
type rappiOrder struct {
	OrderID             string             `json:"order_id"`
	Status              string             `json:"status"`
	CreatedAt           time.Time          `json:"created_at"`
	Customer            rappiCustomer      `json:"customer"`
	DeliveryInformation *rappiDeliveryInfo `json:"delivery_information,omitempty"`
	Items               []rappiItem        `json:"items"`
	Totals              rappiTotals        `json:"totals"`
	PaymentMethod       string             `json:"payment_method,omitempty"`
}

type rappiCustomer struct {
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
}

type rappiDeliveryInfo struct {
	CompleteAddress string  `json:"complete_address"`
	Neighborhood    string  `json:"neighborhood,omitempty"`
	City            string  `json:"city,omitempty"`
	ZipCode         string  `json:"zip_code,omitempty"`
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
}

type rappiItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Comments string          `json:"comments,omitempty"`
	Toppings []rappiTopping  `json:"toppings,omitempty"`
}

type rappiTopping struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type rappiTotals struct {
	TotalProducts decimal.Decimal `json:"total_products"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Discount      decimal.Decimal `json:"discount"`
	TotalOrder    decimal.Decimal `json:"total_order"`
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// rappiStatusMap translates Rappi's native vocabulary to the normalized one.
// Unknown native statuses map to pending, never an error.
var rappiStatusMap = map[string]integration.OrderStatus{
	"NEW":              integration.OrderStatusPending,
	"TAKEN":            integration.OrderStatusConfirmed,
	"COOKING":          integration.OrderStatusPreparing,
	"READY_FOR_PICKUP": integration.OrderStatusReady,
	"SENT":             integration.OrderStatusDispatched,
	"DELIVERED":        integration.OrderStatusDelivered,
	"CANCELED":         integration.OrderStatusCancelled,
}

func mapRappiStatus(status string) integration.OrderStatus {
	if mapped, ok := rappiStatusMap[strings.ToUpper(status)]; ok {
		return mapped
	}
	return integration.OrderStatusPending
}
