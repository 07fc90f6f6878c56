package enums

import "fmt"

// OrderStatus tracks the overall lifecycle of an order.
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "created"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusDeliveryFailed OrderStatus = "delivery_failed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusDisputed       OrderStatus = "disputed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusDeliveryFailed,
	OrderStatusCancelled,
	OrderStatusDisputed,
}

// Older records carry spellings from before the status vocabulary settled.
// Normalization happens once, at the read boundary; everything downstream
// sees canonical values only.
var legacyOrderStatuses = map[string]OrderStatus{
	"pending_payment": OrderStatusCreated,
	"processing":      OrderStatusConfirmed,
	"shipped":         OrderStatusOutForDelivery,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known canonical OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCancelled
}

// NormalizeOrderStatus maps legacy aliases onto the canonical set. Canonical
// values pass through unchanged.
func NormalizeOrderStatus(value string) (OrderStatus, error) {
	if mapped, ok := legacyOrderStatuses[value]; ok {
		return mapped, nil
	}
	status := OrderStatus(value)
	if status.IsValid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// ParseOrderStatus converts raw input into a canonical OrderStatus without
// accepting legacy aliases. New writes must use canonical spellings.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
