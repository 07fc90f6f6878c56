package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/internal/audit"
	"github.com/mercatohq/mercato-backend/internal/notifications"
	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/pagination"
)

type stubRepo struct {
	Repository
	orders  map[uuid.UUID]*models.Order
	updates []map[string]any
}

func newStubRepo(orders ...*models.Order) *stubRepo {
	repo := &stubRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (r *stubRepo) WithTx(_ *gorm.DB) Repository { return r }

func (r *stubRepo) FindOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *stubRepo) UpdateOrder(_ context.Context, id uuid.UUID, updates map[string]any) error {
	r.updates = append(r.updates, updates)
	order := r.orders[id]
	if raw, ok := updates["status"].(string); ok {
		order.Status = enums.OrderStatus(raw)
	}
	if raw, ok := updates["payment_status"].(string); ok {
		order.PaymentStatus = enums.PaymentStatus(raw)
	}
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubAuditor struct {
	entries []audit.Entry
}

func (a *stubAuditor) Record(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type stubNotifier struct {
	messages []notifications.Message
}

func (n *stubNotifier) Notify(_ context.Context, msg notifications.Message) {
	n.messages = append(n.messages, msg)
}

type stubRestorer struct {
	restored map[uuid.UUID]int
	err      error
}

func (r *stubRestorer) Restore(_ context.Context, _ *gorm.DB, productID uuid.UUID, qty int) error {
	if r.err != nil {
		return r.err
	}
	if r.restored == nil {
		r.restored = map[uuid.UUID]int{}
	}
	r.restored[productID] += qty
	return nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

type fixture struct {
	svc      *service
	repo     *stubRepo
	auditor  *stubAuditor
	notifier *stubNotifier
	restorer *stubRestorer
}

func newFixture(t *testing.T, orders ...*models.Order) *fixture {
	t.Helper()
	repo := newStubRepo(orders...)
	auditor := &stubAuditor{}
	notifier := &stubNotifier{}
	restorer := &stubRestorer{}

	svc, err := NewService(repo, stubTx{}, auditor, notifier, restorer, quietLogger())
	require.NoError(t, err)

	return &fixture{
		svc:      svc.(*service),
		repo:     repo,
		auditor:  auditor,
		notifier: notifier,
		restorer: restorer,
	}
}

func confirmedOrder(buyerID uuid.UUID, items ...models.OrderItem) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		Status:        enums.OrderStatusConfirmed,
		PaymentStatus: enums.PaymentStatusPaid,
		Items:         items,
	}
}

func TestTransitionValidEdgeUpdatesStatusAndAudits(t *testing.T) {
	order := &models.Order{ID: uuid.New(), BuyerID: uuid.New(), Status: enums.OrderStatusCreated}
	f := newFixture(t, order)

	updated, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusConfirmed,
		Role:    enums.ActorRoleSystem,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)

	require.Len(t, f.auditor.entries, 1)
	entry := f.auditor.entries[0]
	assert.Equal(t, enums.AuditActionStatusChange, entry.Action)
	assert.Equal(t, enums.AuditSeverityInfo, entry.Severity)
	assert.Equal(t, "created", entry.Details["from"])
	assert.Equal(t, "confirmed", entry.Details["to"])
}

func TestTransitionRejectedEdgeAuditsRejection(t *testing.T) {
	order := &models.Order{ID: uuid.New(), BuyerID: uuid.New(), Status: enums.OrderStatusCreated}
	f := newFixture(t, order)

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
		Role:    enums.ActorRoleSystem,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.OrderStatusCreated, order.Status, "rejected transitions leave state untouched")

	require.Len(t, f.auditor.entries, 1)
	assert.Equal(t, enums.AuditActionStatusRejected, f.auditor.entries[0].Action)
	assert.Equal(t, enums.AuditSeverityWarning, f.auditor.entries[0].Severity)
}

func TestTransitionDeliveredStampsTimestamp(t *testing.T) {
	vendorID := uuid.New()
	order := &models.Order{
		ID:      uuid.New(),
		BuyerID: uuid.New(),
		Status:  enums.OrderStatusOutForDelivery,
		Items:   []models.OrderItem{{VendorID: vendorID}},
	}
	f := newFixture(t, order)
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	updated, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
		ActorID: vendorID,
		Role:    enums.ActorRoleVendor,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DeliveredAt)
	assert.True(t, updated.DeliveredAt.Equal(now))
}

func TestTransitionUnknownOrderSkipsAudit(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: uuid.New(),
		Target:  enums.OrderStatusConfirmed,
		Role:    enums.ActorRoleSystem,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, f.auditor.entries, "nothing to audit for an order that was never loaded")
}

func TestTransitionEnforcesOwnership(t *testing.T) {
	order := &models.Order{
		ID:      uuid.New(),
		BuyerID: uuid.New(),
		Status:  enums.OrderStatusDelivered,
	}
	f := newFixture(t, order)

	reason := "item damaged"
	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDisputed,
		ActorID: uuid.New(), // not the buyer
		Role:    enums.ActorRoleBuyer,
		Reason:  &reason,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestTransitionRetrySameTargetIsRejectedNotDuplicated(t *testing.T) {
	order := &models.Order{ID: uuid.New(), BuyerID: uuid.New(), Status: enums.OrderStatusCreated}
	f := newFixture(t, order)

	input := TransitionInput{OrderID: order.ID, Target: enums.OrderStatusConfirmed, Role: enums.ActorRoleSystem}
	_, err := f.svc.Transition(context.Background(), input)
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), input)
	require.Error(t, err, "confirmed -> confirmed is not an edge")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Len(t, f.repo.updates, 1, "the retry must not write")
}

func TestCancelRestoresInventoryAndFlagsRefund(t *testing.T) {
	buyerID := uuid.New()
	vendorID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()
	order := confirmedOrder(buyerID,
		models.OrderItem{ProductID: productA, VendorID: vendorID, Qty: 2},
		models.OrderItem{ProductID: productB, VendorID: vendorID, Qty: 5},
	)
	f := newFixture(t, order)

	result, err := f.svc.Cancel(context.Background(), order.ID, uuid.New(), enums.ActorRoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCancelled, result.Order.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, result.Order.PaymentStatus)
	assert.True(t, result.Refund)
	assert.Equal(t, 2, f.restorer.restored[productA])
	assert.Equal(t, 5, f.restorer.restored[productB])

	require.Len(t, f.auditor.entries, 1)
	assert.Equal(t, enums.AuditActionOrderCancelled, f.auditor.entries[0].Action)

	// one buyer message plus one per distinct vendor
	require.Len(t, f.notifier.messages, 2)
	assert.Equal(t, buyerID, f.notifier.messages[0].UserID)
	assert.Equal(t, vendorID, f.notifier.messages[1].UserID)
}

func TestCancelUnpaidOrderDoesNotRefund(t *testing.T) {
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       uuid.New(),
		Status:        enums.OrderStatusCreated,
		PaymentStatus: enums.PaymentStatusPending,
		Items:         []models.OrderItem{{ProductID: uuid.New(), VendorID: uuid.New(), Qty: 1}},
	}
	f := newFixture(t, order)

	result, err := f.svc.Cancel(context.Background(), order.ID, uuid.New(), enums.ActorRoleSystem)
	require.NoError(t, err)
	assert.False(t, result.Refund)
	assert.Equal(t, enums.PaymentStatusPending, result.Order.PaymentStatus)
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled} {
		order := &models.Order{ID: uuid.New(), BuyerID: uuid.New(), Status: status}
		f := newFixture(t, order)

		_, err := f.svc.Cancel(context.Background(), order.ID, uuid.New(), enums.ActorRoleAdmin)
		require.Error(t, err, "status %s", status)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

		require.Len(t, f.auditor.entries, 1, "status %s", status)
		entry := f.auditor.entries[0]
		assert.Equal(t, enums.AuditActionStatusRejected, entry.Action)
		assert.Equal(t, enums.AuditSeverityWarning, entry.Severity)
		assert.Contains(t, entry.Details, "reason")
		assert.Equal(t, string(status), entry.Details["from"])
	}
}

func TestCancelForbiddenForBuyersAndVendors(t *testing.T) {
	order := confirmedOrder(uuid.New())
	f := newFixture(t, order)

	for i, role := range []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleVendor} {
		_, err := f.svc.Cancel(context.Background(), order.ID, uuid.New(), role)
		require.Error(t, err, "role %s", role)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

		require.Len(t, f.auditor.entries, i+1, "role %s", role)
		entry := f.auditor.entries[i]
		assert.Equal(t, enums.AuditActionStatusRejected, entry.Action)
		assert.Equal(t, enums.AuditSeverityWarning, entry.Severity)
		assert.Equal(t, role, entry.ActorRole)
	}
}

func TestCancelUnknownOrderSkipsAudit(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), uuid.New(), uuid.New(), enums.ActorRoleAdmin)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, f.auditor.entries, "orders that never existed leave no trail")
}

func TestCancelAbortsWhenInventoryRestoreFails(t *testing.T) {
	order := confirmedOrder(uuid.New(), models.OrderItem{ProductID: uuid.New(), VendorID: uuid.New(), Qty: 3})
	f := newFixture(t, order)
	f.restorer.err = pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")

	_, err := f.svc.Cancel(context.Background(), order.ID, uuid.New(), enums.ActorRoleAdmin)
	require.Error(t, err)
	assert.Empty(t, f.repo.updates, "nothing persists when compensation fails")
}

func TestTransitionToCancelledRunsCompensation(t *testing.T) {
	productID := uuid.New()
	order := confirmedOrder(uuid.New(), models.OrderItem{ProductID: productID, VendorID: uuid.New(), Qty: 4})
	f := newFixture(t, order)

	updated, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCancelled,
		ActorID: uuid.New(),
		Role:    enums.ActorRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 4, f.restorer.restored[productID], "cancel via transition still restores inventory")
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(context.Background(), CreateOrderInput{BuyerID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(context.Background(), CreateOrderInput{
		BuyerID: uuid.New(),
		Items:   []CreateItemInput{{ProductID: uuid.New(), VendorID: uuid.New(), Qty: 0}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListRequiresIdentifiers(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListBuyer(context.Background(), uuid.Nil, pagination.Params{}, ListFilters{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.ListVendor(context.Background(), uuid.Nil, pagination.Params{}, ListFilters{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
