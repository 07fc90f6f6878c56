package visibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
)

func sampleOrder(status enums.OrderStatus) (*models.Order, uuid.UUID, uuid.UUID) {
	buyerID := uuid.New()
	vendorID := uuid.New()
	order := &models.Order{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Status:  status,
		Items:   []models.OrderItem{{ID: uuid.New(), VendorID: vendorID}},
	}
	return order, buyerID, vendorID
}

func TestHiddenFromVendor(t *testing.T) {
	assert.True(t, HiddenFromVendor(enums.OrderStatusCreated))
	assert.True(t, HiddenFromVendor("pending_payment"))
	assert.False(t, HiddenFromVendor(enums.OrderStatusConfirmed))
	assert.False(t, HiddenFromVendor(enums.OrderStatusDelivered))
}

func TestBuyerSeesOnlyOwnOrders(t *testing.T) {
	order, buyerID, _ := sampleOrder(enums.OrderStatusCreated)

	require.NoError(t, EnsureOrderVisible(order, buyerID, enums.ActorRoleBuyer))

	err := EnsureOrderVisible(order, uuid.New(), enums.ActorRoleBuyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestVendorNeverSeesUnpaidOrders(t *testing.T) {
	order, _, vendorID := sampleOrder(enums.OrderStatusCreated)

	err := EnsureOrderVisible(order, vendorID, enums.ActorRoleVendor)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	order.Status = enums.OrderStatusConfirmed
	require.NoError(t, EnsureOrderVisible(order, vendorID, enums.ActorRoleVendor))
}

func TestVendorNeedsAnItemOnTheOrder(t *testing.T) {
	order, _, _ := sampleOrder(enums.OrderStatusConfirmed)

	err := EnsureOrderVisible(order, uuid.New(), enums.ActorRoleVendor)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdminAndSystemSeeEverything(t *testing.T) {
	order, _, _ := sampleOrder(enums.OrderStatusCreated)

	assert.NoError(t, EnsureOrderVisible(order, uuid.New(), enums.ActorRoleAdmin))
	assert.NoError(t, EnsureOrderVisible(order, uuid.Nil, enums.ActorRoleSystem))
}

func TestVendorHiddenStatusesCopy(t *testing.T) {
	statuses := VendorHiddenStatuses()
	require.NotEmpty(t, statuses)
	statuses[0] = "mutated"
	assert.NotEqual(t, statuses[0], VendorHiddenStatuses()[0])
}
