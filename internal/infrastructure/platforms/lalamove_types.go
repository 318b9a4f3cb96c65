package platforms

import (
	"strconv"
	"strings"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// Lalamove v3 wraps every request and response body in a data envelope.
// Coordinates and money travel as strings on this API.

type lalamoveQuotationRequest struct {
	Data lalamoveQuotationBody `json:"data"`
}

type lalamoveQuotationBody struct {
	ServiceType string         `json:"serviceType"`
	Language    string         `json:"language"`
	ScheduleAt  string         `json:"scheduleAt,omitempty"`
	Stops       []lalamoveStop `json:"stops"`
}

type lalamoveStop struct {
	Coordinates lalamoveCoordinates `json:"coordinates"`
	Address     string              `json:"address"`
}

type lalamoveCoordinates struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

type lalamoveQuotationResponse struct {
	Data lalamoveQuotation `json:"data"`
}

type lalamoveQuotation struct {
	QuotationID    string               `json:"quotationId"`
	ExpiresAt      string               `json:"expiresAt,omitempty"`
	PriceBreakdown lalamovePrice        `json:"priceBreakdown"`
	Distance       lalamoveDistance     `json:"distance"`
	Stops          []lalamoveQuotedStop `json:"stops"`
}

type lalamovePrice struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type lalamoveDistance struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

type lalamoveQuotedStop struct {
	StopID      string              `json:"stopId"`
	Coordinates lalamoveCoordinates `json:"coordinates"`
	Address     string              `json:"address"`
}

type lalamoveOrderRequest struct {
	Data lalamoveOrderBody `json:"data"`
}

type lalamoveOrderBody struct {
	QuotationID string            `json:"quotationId"`
	Sender      lalamoveContact   `json:"sender"`
	Recipients  []lalamoveContact `json:"recipients"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type lalamoveContact struct {
	StopID  string `json:"stopId"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Remarks string `json:"remarks,omitempty"`
}

type lalamoveOrderResponse struct {
	Data lalamoveOrderData `json:"data"`
}

type lalamoveOrderData struct {
	OrderID   string           `json:"orderId"`
	Status    string           `json:"status"`
	DriverID  string           `json:"driverId,omitempty"`
	ShareLink string           `json:"shareLink,omitempty"`
	Distance  lalamoveDistance `json:"distance"`
}

type lalamoveDriverResponse struct {
	Data lalamoveDriver `json:"data"`
}

type lalamoveDriver struct {
	Name        string              `json:"name"`
	Phone       string              `json:"phone"`
	PlateNumber string              `json:"plateNumber"`
	Coordinates lalamoveCoordinates `json:"coordinates"`
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// lalamoveStatusMap translates delivery states to the normalized vocabulary.
// REJECTED and EXPIRED collapse into cancelled: the job will never run.
var lalamoveStatusMap = map[string]integration.DeliveryStatus{
	"ASSIGNING_DRIVER": integration.DeliveryStatusPending,
	"ON_GOING":         integration.DeliveryStatusAssigned,
	"PICKED_UP":        integration.DeliveryStatusPickedUp,
	"COMPLETED":        integration.DeliveryStatusDelivered,
	"CANCELED":         integration.DeliveryStatusCancelled,
	"REJECTED":         integration.DeliveryStatusCancelled,
	"EXPIRED":          integration.DeliveryStatusCancelled,
}

func mapLalamoveStatus(status string) integration.DeliveryStatus {
	if mapped, ok := lalamoveStatusMap[strings.ToUpper(status)]; ok {
		return mapped
	}
	return integration.DeliveryStatusPending
}

// lalamoveCoord formats a WGS84 pair the way the API expects
func lalamoveCoord(lat, lng float64) lalamoveCoordinates {
	return lalamoveCoordinates{
		Lat: strconv.FormatFloat(lat, 'f', -1, 64),
		Lng: strconv.FormatFloat(lng, 'f', -1, 64),
	}
}
