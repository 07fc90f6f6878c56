package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/internal/audit"
	"github.com/mercatohq/mercato-backend/internal/inventory"
	"github.com/mercatohq/mercato-backend/internal/notifications"
	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/lifecycle"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/pagination"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the order lifecycle engine. All status mutations go through
// Transition or Cancel; callers never write status fields directly.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*CancelResult, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	auditor   audit.Recorder
	notifier  notifications.Notifier
	inventory inventory.Restorer
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the lifecycle engine with its collaborators.
func NewService(repo Repository, tx txRunner, auditor audit.Recorder, notifier notifications.Notifier, inv inventory.Restorer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory restorer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		auditor:   auditor,
		notifier:  notifier,
		inventory: inv,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.VendorID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product and vendor ids required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.UnitPriceCents < 0 || item.DiscountCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item amounts must not be negative")
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	subtotal := 0
	discount := 0
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		line := in.Qty * in.UnitPriceCents
		final := line - in.DiscountCents
		if final < 0 {
			final = 0
		}
		subtotal += line
		discount += in.DiscountCents
		items = append(items, models.OrderItem{
			ProductID:         in.ProductID,
			ProductName:       in.ProductName,
			VendorID:          in.VendorID,
			VendorName:        in.VendorName,
			Qty:               in.Qty,
			UnitPriceCents:    in.UnitPriceCents,
			DiscountCents:     in.DiscountCents,
			FinalCents:        final,
			FulfillmentStatus: enums.FulfillmentStatusPending,
			ImageURL:          in.ImageURL,
			Variation:         in.Variation,
		})
	}

	order := &models.Order{
		BuyerID:         input.BuyerID,
		BuyerName:       input.BuyerName,
		BuyerEmail:      input.BuyerEmail,
		SubtotalCents:   subtotal,
		DiscountCents:   discount,
		ShippingCents:   input.ShippingCents,
		TaxCents:        input.TaxCents,
		TotalCents:      subtotal - discount + input.ShippingCents + input.TaxCents,
		Currency:        currency,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusCreated,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
		CouponCode:      input.CouponCode,
		Items:           items,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, item := range order.Items {
			if err := inventory.Decrement(ctx, tx, item.ProductID, item.Qty); err != nil {
				return err
			}
		}
		_, err := s.repo.WithTx(tx).CreateOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Message{
		UserID:  order.BuyerID,
		Role:    enums.NotificationRecipientBuyer,
		Type:    enums.NotificationOrderPlaced,
		Title:   "Order placed",
		Message: "Your order has been placed and is awaiting payment.",
		Payload: types.JSONMap{"order_id": order.ID.String()},
	})

	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	list, err := s.repo.ListBuyerOrders(ctx, buyerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return list, nil
}

func (s *service) ListVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	list, err := s.repo.ListVendorOrders(ctx, vendorID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return list, nil
}

// Transition applies one validated status change. The read, validation, and
// write share a transaction so concurrent writers of the same order
// serialize; the validator re-checks against the row inside the tx.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown actor role")
	}

	if input.Target == enums.OrderStatusCancelled {
		result, err := s.Cancel(ctx, input.OrderID, input.ActorID, input.Role)
		if err != nil {
			return nil, err
		}
		return result.Order, nil
	}

	var updated *models.Order
	var previous enums.OrderStatus

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		previous = order.Status

		if err := s.authorizeActor(order, input.ActorID, input.Role); err != nil {
			return err
		}

		decision := lifecycle.Validate(order.Status, input.Target, input.Role)
		if !decision.Valid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, decision.Reason)
		}

		updates := map[string]any{"status": string(input.Target)}
		now := s.now().UTC()
		switch input.Target {
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusDisputed:
			if input.Reason == nil || *input.Reason == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
			}
			updates["disputed_at"] = now
			updates["dispute_reason"] = *input.Reason
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist status change")
		}

		order.Status = input.Target
		switch input.Target {
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		case enums.OrderStatusDisputed:
			order.DisputedAt = &now
			order.DisputeReason = input.Reason
		}
		updated = order
		return nil
	})

	s.auditTransition(ctx, input, previous, err)
	if err != nil {
		return nil, err
	}

	s.notifyTransition(ctx, updated)
	return updated, nil
}

// Cancel is the compensation engine: inventory goes back to the shelf and a
// paid order is flagged for refund. Only admin and system callers may
// invoke it.
func (s *service) Cancel(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*CancelResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	result := &CancelResult{}
	var previous enums.OrderStatus

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		previous = order.Status

		if role != enums.ActorRoleAdmin && role != enums.ActorRoleSystem {
			return pkgerrors.Newf(pkgerrors.CodeForbidden, "actor '%s' cannot cancel orders", role)
		}
		if !lifecycle.Cancellable(order.Status) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "order is already %s and cannot be cancelled", order.Status)
		}

		for _, item := range order.Items {
			if err := s.inventory.Restore(ctx, tx, item.ProductID, item.Qty); err != nil {
				return err
			}
			result.Restored = append(result.Restored, InventoryDelta{
				ProductID: item.ProductID,
				Qty:       item.Qty,
			})
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":       string(enums.OrderStatusCancelled),
			"cancelled_at": now,
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			updates["payment_status"] = string(enums.PaymentStatusRefunded)
			order.PaymentStatus = enums.PaymentStatusRefunded
			result.Refund = true
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cancellation")
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		result.Order = order
		return nil
	})
	s.auditCancel(ctx, orderID, actorID, role, previous, result, err)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Message{
		UserID:  result.Order.BuyerID,
		Role:    enums.NotificationRecipientBuyer,
		Type:    enums.NotificationOrderCancelled,
		Title:   "Order cancelled",
		Message: "Your order has been cancelled.",
		Payload: types.JSONMap{"order_id": orderID.String(), "refund": result.Refund},
	})
	for _, vendorID := range vendorIDs(result.Order.Items) {
		s.notifier.Notify(ctx, notifications.Message{
			UserID:  vendorID,
			Role:    enums.NotificationRecipientVendor,
			Type:    enums.NotificationOrderCancelled,
			Title:   "Order cancelled",
			Message: "An order containing your items has been cancelled.",
			Payload: types.JSONMap{"order_id": orderID.String()},
		})
	}

	return result, nil
}

// authorizeActor enforces ownership: buyers may only touch their own
// orders, vendors only orders containing their items.
func (s *service) authorizeActor(order *models.Order, actorID uuid.UUID, role enums.ActorRole) error {
	switch role {
	case enums.ActorRoleBuyer:
		if order.BuyerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
	case enums.ActorRoleVendor:
		for _, item := range order.Items {
			if item.VendorID == actorID {
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order has no items for vendor")
	}
	return nil
}

func (s *service) auditTransition(ctx context.Context, input TransitionInput, previous enums.OrderStatus, cause error) {
	if previous == "" {
		// order never loaded; nothing meaningful to audit
		return
	}
	action := enums.AuditActionStatusChange
	severity := enums.AuditSeverityInfo
	details := types.JSONMap{
		"from": string(previous),
		"to":   string(input.Target),
	}
	if cause != nil {
		action = enums.AuditActionStatusRejected
		severity = enums.AuditSeverityWarning
		details["reason"] = cause.Error()
	}
	actor := input.ActorID
	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     action,
		ActorID:    &actor,
		ActorRole:  input.Role,
		TargetID:   input.OrderID,
		TargetType: enums.AuditTargetOrder,
		Details:    details,
		Severity:   severity,
	}); err != nil {
		s.logg.Error(ctx, "audit record failed", err)
	}
}

// auditCancel records every cancellation attempt against a real order,
// rejected ones included.
func (s *service) auditCancel(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole, previous enums.OrderStatus, result *CancelResult, cause error) {
	if previous == "" {
		// order never loaded; nothing meaningful to audit
		return
	}
	action := enums.AuditActionOrderCancelled
	severity := enums.AuditSeverityInfo
	details := types.JSONMap{"from": string(previous)}
	if cause != nil {
		action = enums.AuditActionStatusRejected
		severity = enums.AuditSeverityWarning
		details["reason"] = cause.Error()
	} else {
		details["restored"] = result.Restored
		details["refund"] = result.Refund
	}
	actor := actorID
	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     action,
		ActorID:    &actor,
		ActorRole:  role,
		TargetID:   orderID,
		TargetType: enums.AuditTargetOrder,
		Details:    details,
		Severity:   severity,
	}); err != nil {
		s.logg.Error(ctx, "audit record failed", err)
	}
}

func (s *service) notifyTransition(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}

	var buyerType enums.NotificationType
	var title, message string
	switch order.Status {
	case enums.OrderStatusOutForDelivery:
		buyerType = enums.NotificationOrderShipped
		title = "Order on its way"
		message = "Your order is out for delivery."
	case enums.OrderStatusDelivered:
		buyerType = enums.NotificationOrderDelivered
		title = "Order delivered"
		message = "Your order has been delivered."
	case enums.OrderStatusCompleted:
		buyerType = enums.NotificationOrderCompleted
		title = "Order completed"
		message = "Your order is complete. Thanks for shopping with us."
	default:
		return
	}

	s.notifier.Notify(ctx, notifications.Message{
		UserID:  order.BuyerID,
		Role:    enums.NotificationRecipientBuyer,
		Type:    buyerType,
		Title:   title,
		Message: message,
		Payload: types.JSONMap{"order_id": order.ID.String(), "status": string(order.Status)},
	})
}

func vendorIDs(items []models.OrderItem) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	for _, item := range items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		ids = append(ids, item.VendorID)
	}
	return ids
}
