package integration

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// Provider identifies an external platform
type Provider string

const (
	ProviderFoody    Provider = "foody"
	ProviderIfood    Provider = "ifood"
	ProviderRappi    Provider = "rappi"
	ProviderLalamove Provider = "lalamove"
)

// IsValid checks if the provider is a known platform
func (p Provider) IsValid() bool {
	switch p {
	case ProviderFoody, ProviderIfood, ProviderRappi, ProviderLalamove:
		return true
	}
	return false
}

// String returns the string representation
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns a human-readable platform name
func (p Provider) DisplayName() string {
	switch p {
	case ProviderFoody:
		return "Foody Delivery"
	case ProviderIfood:
		return "iFood"
	case ProviderRappi:
		return "Rappi"
	case ProviderLalamove:
		return "Lalamove"
	default:
		return string(p)
	}
}

// AllProviders returns every known provider
func AllProviders() []Provider {
	return []Provider{ProviderFoody, ProviderIfood, ProviderRappi, ProviderLalamove}
}

// ---------------------------------------------------------------------------
// Integration type
// ---------------------------------------------------------------------------

// IntegrationType selects the capability profile of a connection
type IntegrationType string

const (
	// IntegrationTypeSales covers order lifecycle platforms (marketplaces, POS networks)
	IntegrationTypeSales IntegrationType = "sales"
	// IntegrationTypeLogistics covers dedicated delivery carriers
	IntegrationTypeLogistics IntegrationType = "logistics"
)

// IsValid checks if the integration type is known
func (t IntegrationType) IsValid() bool {
	return t == IntegrationTypeSales || t == IntegrationTypeLogistics
}

// ---------------------------------------------------------------------------
// Order status
// ---------------------------------------------------------------------------

// OrderStatus is the normalized order status vocabulary. Every adapter maps
// its platform's native statuses onto this fixed enumeration; unknown native
// values map to OrderStatusPending, never to an error.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid checks if the status belongs to the normalized vocabulary
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDispatched, OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether no further transitions are expected
func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// String returns the string representation
func (s OrderStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Delivery Status
// ---------------------------------------------------------------------------

// DeliveryStatus is the normalized status vocabulary for carrier deliveries
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

// IsValid checks if the status belongs to the normalized vocabulary
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusAssigned, DeliveryStatusPickedUp,
		DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	}
	return false
}
