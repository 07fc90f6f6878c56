package lifecycle

import (
	"testing"

	"github.com/mercatohq/mercato-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func TestValidateBaseGraph(t *testing.T) {
	cases := []struct {
		name    string
		current enums.OrderStatus
		target  enums.OrderStatus
		role    enums.ActorRole
		valid   bool
	}{
		{"system confirms paid order", enums.OrderStatusCreated, enums.OrderStatusConfirmed, enums.ActorRoleSystem, true},
		{"vendor starts preparing", enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.ActorRoleVendor, true},
		{"vendor readies pickup", enums.OrderStatusPreparing, enums.OrderStatusReadyForPickup, enums.ActorRoleVendor, true},
		{"vendor dispatches", enums.OrderStatusReadyForPickup, enums.OrderStatusOutForDelivery, enums.ActorRoleVendor, true},
		{"vendor marks delivered", enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered, enums.ActorRoleVendor, true},
		{"vendor marks delivery failed", enums.OrderStatusOutForDelivery, enums.OrderStatusDeliveryFailed, enums.ActorRoleVendor, true},
		{"vendor retries delivery", enums.OrderStatusDeliveryFailed, enums.OrderStatusOutForDelivery, enums.ActorRoleVendor, true},
		{"buyer disputes", enums.OrderStatusDelivered, enums.OrderStatusDisputed, enums.ActorRoleBuyer, true},
		{"system auto-completes", enums.OrderStatusDelivered, enums.OrderStatusCompleted, enums.ActorRoleSystem, true},

		{"skipping states is rejected", enums.OrderStatusCreated, enums.OrderStatusDelivered, enums.ActorRoleAdmin, false},
		{"completed is terminal", enums.OrderStatusCompleted, enums.OrderStatusCancelled, enums.ActorRoleAdmin, false},
		{"cancelled is terminal", enums.OrderStatusCancelled, enums.OrderStatusConfirmed, enums.ActorRoleAdmin, false},
		{"no backwards edge", enums.OrderStatusDelivered, enums.OrderStatusOutForDelivery, enums.ActorRoleAdmin, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Validate(tc.current, tc.target, tc.role)
			assert.Equal(t, tc.valid, decision.Valid)
			if !tc.valid {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestValidateRoleRestrictions(t *testing.T) {
	cases := []struct {
		name    string
		current enums.OrderStatus
		target  enums.OrderStatus
		role    enums.ActorRole
	}{
		{"vendor cannot confirm", enums.OrderStatusCreated, enums.OrderStatusConfirmed, enums.ActorRoleVendor},
		{"vendor cannot cancel delivered order", enums.OrderStatusDelivered, enums.OrderStatusCompleted, enums.ActorRoleVendor},
		{"buyer cannot advance fulfillment", enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.ActorRoleBuyer},
		{"buyer cannot cancel directly", enums.OrderStatusCreated, enums.OrderStatusCancelled, enums.ActorRoleBuyer},
		{"system cannot dispatch", enums.OrderStatusReadyForPickup, enums.OrderStatusOutForDelivery, enums.ActorRoleSystem},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Validate(tc.current, tc.target, tc.role)
			assert.False(t, decision.Valid)
			assert.NotEmpty(t, decision.Reason)
		})
	}
}

func TestAdminOverridesEveryBaseEdge(t *testing.T) {
	for current, targets := range transitionGraph {
		for _, target := range targets {
			decision := Validate(current, target, enums.ActorRoleAdmin)
			assert.True(t, decision.Valid, "admin should traverse %s -> %s", current, target)
		}
	}
}

func TestRestrictedRolesAreSubsetOfBaseGraph(t *testing.T) {
	for role, edges := range roleEdges {
		for current, targets := range edges {
			for _, target := range targets {
				assert.True(t, edgeExists(transitionGraph[current], target),
					"role %s edge %s -> %s missing from base graph", role, current, target)
			}
		}
	}
}

func TestCancellable(t *testing.T) {
	assert.True(t, Cancellable(enums.OrderStatusCreated))
	assert.True(t, Cancellable(enums.OrderStatusDisputed))
	assert.True(t, Cancellable(enums.OrderStatusDeliveryFailed))
	assert.False(t, Cancellable(enums.OrderStatusCompleted))
	assert.False(t, Cancellable(enums.OrderStatusCancelled))
	assert.False(t, Cancellable(enums.OrderStatus("bogus")))
}

func TestValidateItemTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current enums.FulfillmentStatus
		target  enums.FulfillmentStatus
		role    enums.ActorRole
		valid   bool
	}{
		{"pack", enums.FulfillmentStatusPending, enums.FulfillmentStatusPacked, enums.ActorRoleVendor, true},
		{"hand off", enums.FulfillmentStatusPacked, enums.FulfillmentStatusHandedToCourier, enums.ActorRoleVendor, true},
		{"skip packing", enums.FulfillmentStatusPending, enums.FulfillmentStatusHandedToCourier, enums.ActorRoleVendor, true},
		{"deliver", enums.FulfillmentStatusHandedToCourier, enums.FulfillmentStatusDelivered, enums.ActorRoleVendor, true},
		{"admin may pack", enums.FulfillmentStatusPending, enums.FulfillmentStatusPacked, enums.ActorRoleAdmin, true},

		{"delivered is terminal", enums.FulfillmentStatusDelivered, enums.FulfillmentStatusPending, enums.ActorRoleVendor, false},
		{"no direct pending to delivered", enums.FulfillmentStatusPending, enums.FulfillmentStatusDelivered, enums.ActorRoleVendor, false},
		{"buyer cannot touch items", enums.FulfillmentStatusPending, enums.FulfillmentStatusPacked, enums.ActorRoleBuyer, false},
		{"system cannot touch items", enums.FulfillmentStatusPacked, enums.FulfillmentStatusHandedToCourier, enums.ActorRoleSystem, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := ValidateItem(tc.current, tc.target, tc.role)
			assert.Equal(t, tc.valid, decision.Valid)
		})
	}
}
