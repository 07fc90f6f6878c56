package enums

import "fmt"

// FulfillmentStatus tracks per-vendor item progression within an order.
type FulfillmentStatus string

const (
	FulfillmentStatusPending         FulfillmentStatus = "pending"
	FulfillmentStatusPacked          FulfillmentStatus = "packed"
	FulfillmentStatusHandedToCourier FulfillmentStatus = "handed_to_courier"
	FulfillmentStatusDelivered       FulfillmentStatus = "delivered"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPending,
	FulfillmentStatusPacked,
	FulfillmentStatusHandedToCourier,
	FulfillmentStatusDelivered,
}

// On the item axis "shipped" meant the courier hand-off, not the order-level
// out_for_delivery state.
var legacyFulfillmentStatuses = map[string]FulfillmentStatus{
	"shipped":   FulfillmentStatusHandedToCourier,
	"fulfilled": FulfillmentStatusDelivered,
}

// fulfillmentRank orders the statuses along the progression so roll-up
// checks can compare milestones.
var fulfillmentRank = map[FulfillmentStatus]int{
	FulfillmentStatusPending:         0,
	FulfillmentStatusPacked:          1,
	FulfillmentStatusHandedToCourier: 2,
	FulfillmentStatusDelivered:       3,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known canonical FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// AtLeast reports whether the status has reached or passed the milestone.
func (f FulfillmentStatus) AtLeast(milestone FulfillmentStatus) bool {
	return fulfillmentRank[f] >= fulfillmentRank[milestone]
}

// NormalizeFulfillmentStatus maps legacy aliases onto the canonical set.
func NormalizeFulfillmentStatus(value string) (FulfillmentStatus, error) {
	if mapped, ok := legacyFulfillmentStatuses[value]; ok {
		return mapped, nil
	}
	status := FulfillmentStatus(value)
	if status.IsValid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}

// ParseFulfillmentStatus converts raw input into a canonical
// FulfillmentStatus without accepting legacy aliases.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
