package lifecycle

import "github.com/mercatohq/mercato-backend/pkg/enums"

// itemGraph is the per-item fulfillment edge set. pending may jump straight
// to handed_to_courier for vendors that skip the packing step.
var itemGraph = map[enums.FulfillmentStatus][]enums.FulfillmentStatus{
	enums.FulfillmentStatusPending: {
		enums.FulfillmentStatusPacked,
		enums.FulfillmentStatusHandedToCourier,
	},
	enums.FulfillmentStatusPacked: {
		enums.FulfillmentStatusHandedToCourier,
	},
	enums.FulfillmentStatusHandedToCourier: {
		enums.FulfillmentStatusDelivered,
	},
	enums.FulfillmentStatusDelivered: {},
}

// ValidateItem decides whether an order item may move between fulfillment
// statuses. Item edges are vendor actions; admin may traverse them too.
func ValidateItem(current, target enums.FulfillmentStatus, role enums.ActorRole) Decision {
	if !current.IsValid() {
		return reject("unknown current fulfillment status '%s'", current)
	}
	if !target.IsValid() {
		return reject("unknown target fulfillment status '%s'", target)
	}
	if role != enums.ActorRoleVendor && role != enums.ActorRoleAdmin {
		return reject("actor '%s' cannot update item fulfillment", role)
	}
	for _, candidate := range itemGraph[current] {
		if candidate == target {
			return Decision{Valid: true}
		}
	}
	return reject("cannot move item from '%s' to '%s'", current, target)
}
