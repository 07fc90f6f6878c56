package lifecycle

import (
	"fmt"

	"github.com/mercatohq/mercato-backend/pkg/enums"
)

// Decision is the structured outcome of a transition check. Reason is only
// populated on rejection and is safe to surface to callers.
type Decision struct {
	Valid  bool
	Reason string
}

// transitionGraph is the base edge set. Terminal states (completed,
// cancelled) have no outgoing edges.
var transitionGraph = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusCreated: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusPreparing,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPreparing: {
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusReadyForPickup: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusDelivered,
		enums.OrderStatusDeliveryFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusCompleted,
		enums.OrderStatusDisputed,
	},
	enums.OrderStatusDeliveryFailed: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDisputed: {
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusCompleted: {},
	enums.OrderStatusCancelled: {},
}

// roleEdges restricts which base-graph edges each role may traverse. Admin
// is absent: it may traverse any edge that exists in the base graph.
var roleEdges = map[enums.ActorRole]map[enums.OrderStatus][]enums.OrderStatus{
	enums.ActorRoleSystem: {
		enums.OrderStatusCreated:   {enums.OrderStatusConfirmed},
		enums.OrderStatusDelivered: {enums.OrderStatusCompleted},
	},
	enums.ActorRoleVendor: {
		enums.OrderStatusConfirmed:      {enums.OrderStatusPreparing},
		enums.OrderStatusPreparing:      {enums.OrderStatusReadyForPickup},
		enums.OrderStatusReadyForPickup: {enums.OrderStatusOutForDelivery},
		enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered, enums.OrderStatusDeliveryFailed},
		enums.OrderStatusDeliveryFailed: {enums.OrderStatusOutForDelivery},
	},
	enums.ActorRoleBuyer: {
		enums.OrderStatusDelivered: {enums.OrderStatusDisputed},
	},
}

// Validate decides whether role may move an order from current to target.
// It is pure: persisting the new status and stamping auxiliary timestamps
// is the caller's responsibility.
func Validate(current, target enums.OrderStatus, role enums.ActorRole) Decision {
	if !current.IsValid() {
		return reject("unknown current status '%s'", current)
	}
	if !target.IsValid() {
		return reject("unknown target status '%s'", target)
	}
	if !role.IsValid() {
		return reject("unknown actor role '%s'", role)
	}

	if !edgeExists(transitionGraph[current], target) {
		if current.IsTerminal() {
			return reject("order is already %s; no further transitions allowed", current)
		}
		return reject("cannot transition from '%s' to '%s'", current, target)
	}

	if role == enums.ActorRoleAdmin {
		return Decision{Valid: true}
	}
	if !edgeExists(roleEdges[role][current], target) {
		return reject("actor '%s' cannot transition from '%s' to '%s'", role, current, target)
	}
	return Decision{Valid: true}
}

// Cancellable reports whether the status admits cancellation, directly or
// via the base graph. Every non-terminal status can still be cancelled by
// an admin even where the buyer/vendor edge does not exist.
func Cancellable(status enums.OrderStatus) bool {
	return status.IsValid() && !status.IsTerminal()
}

func edgeExists(targets []enums.OrderStatus, target enums.OrderStatus) bool {
	for _, candidate := range targets {
		if candidate == target {
			return true
		}
	}
	return false
}

func reject(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}
