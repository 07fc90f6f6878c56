package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"pending_payment":  OrderStatusCreated,
		"processing":       OrderStatusConfirmed,
		"shipped":          OrderStatusOutForDelivery,
		"created":          OrderStatusCreated,
		"delivered":        OrderStatusDelivered,
		"ready_for_pickup": OrderStatusReadyForPickup,
	}
	for raw, want := range cases {
		got, err := NormalizeOrderStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := NormalizeOrderStatus("totally_unknown")
	assert.Error(t, err)
}

func TestParseOrderStatusRejectsLegacyAliases(t *testing.T) {
	_, err := ParseOrderStatus("processing")
	assert.Error(t, err)

	got, err := ParseOrderStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusConfirmed, got)
}

func TestNormalizeFulfillmentStatus(t *testing.T) {
	got, err := NormalizeFulfillmentStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, FulfillmentStatusHandedToCourier, got)

	got, err = NormalizeFulfillmentStatus("fulfilled")
	require.NoError(t, err)
	assert.Equal(t, FulfillmentStatusDelivered, got)

	got, err = NormalizeFulfillmentStatus("packed")
	require.NoError(t, err)
	assert.Equal(t, FulfillmentStatusPacked, got)

	_, err = NormalizeFulfillmentStatus("teleported")
	assert.Error(t, err)
}

func TestFulfillmentAtLeast(t *testing.T) {
	assert.True(t, FulfillmentStatusDelivered.AtLeast(FulfillmentStatusPacked))
	assert.True(t, FulfillmentStatusPacked.AtLeast(FulfillmentStatusPacked))
	assert.False(t, FulfillmentStatusPending.AtLeast(FulfillmentStatusPacked))
	assert.False(t, FulfillmentStatusHandedToCourier.AtLeast(FulfillmentStatusDelivered))
}

func TestOrderStatusIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusDisputed.IsTerminal())
}
