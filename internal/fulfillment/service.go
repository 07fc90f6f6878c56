package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/internal/audit"
	"github.com/mercatohq/mercato-backend/internal/notifications"
	"github.com/mercatohq/mercato-backend/internal/orders"
	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/lifecycle"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UpdateItemInput asks for one item fulfillment change.
type UpdateItemInput struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
	Target  enums.FulfillmentStatus
	ActorID uuid.UUID
	Role    enums.ActorRole
}

// SetTrackingInput sets the tracking number side-field on an item without a
// status transition.
type SetTrackingInput struct {
	OrderID        uuid.UUID
	ItemID         uuid.UUID
	TrackingNumber string
	ActorID        uuid.UUID
	Role           enums.ActorRole
}

// Result reports the item change plus any roll-up the change triggered.
type Result struct {
	Item        *models.OrderItem `json:"item"`
	OrderStatus enums.OrderStatus `json:"order_status"`
	RolledUp    bool              `json:"rolled_up"`
}

// Service tracks per-item fulfillment and promotes the parent order once
// all items cross a milestone.
type Service interface {
	UpdateItemStatus(ctx context.Context, input UpdateItemInput) (*Result, error)
	SetTracking(ctx context.Context, input SetTrackingInput) error
}

type service struct {
	repo     orders.Repository
	tx       txRunner
	auditor  audit.Recorder
	notifier notifications.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the fulfillment tracker.
func NewService(repo orders.Repository, tx txRunner, auditor audit.Recorder, notifier notifications.Notifier, logg *logger.Logger) (Service, error) {
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
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		auditor:  auditor,
		notifier: notifier,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Order statuses a vendor can still act on item-wise, in roll-up order.
var deliveryChain = []enums.OrderStatus{
	enums.OrderStatusConfirmed,
	enums.OrderStatusPreparing,
	enums.OrderStatusReadyForPickup,
	enums.OrderStatusOutForDelivery,
	enums.OrderStatusDelivered,
}

func chainIndex(status enums.OrderStatus) int {
	for i, candidate := range deliveryChain {
		if candidate == status {
			return i
		}
	}
	return -1
}

func (s *service) UpdateItemStatus(ctx context.Context, input UpdateItemInput) (*Result, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and item ids required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment status")
	}

	result := &Result{}
	var previous enums.FulfillmentStatus

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, item, err := s.loadOwnedItem(ctx, repo, input.OrderID, input.ItemID, input.ActorID, input.Role)
		if err != nil {
			return err
		}
		previous = item.FulfillmentStatus

		if chainIndex(order.Status) < 0 || order.Status == enums.OrderStatusDelivered {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "items cannot be updated while order is '%s'", order.Status)
		}

		decision := lifecycle.ValidateItem(item.FulfillmentStatus, input.Target, input.Role)
		if !decision.Valid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, decision.Reason)
		}

		updates := map[string]any{"fulfillment_status": string(input.Target)}
		now := s.now().UTC()
		if input.Target == enums.FulfillmentStatusDelivered {
			updates["fulfilled_at"] = now
		}
		if err := repo.UpdateOrderItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist item status")
		}
		item.FulfillmentStatus = input.Target
		if input.Target == enums.FulfillmentStatusDelivered {
			item.FulfilledAt = &now
		}
		result.Item = item

		rolled, status, err := s.rollUp(ctx, repo, order, input.Role)
		if err != nil {
			return err
		}
		result.RolledUp = rolled
		result.OrderStatus = status
		return nil
	})

	s.auditItem(ctx, input, previous, err)
	if err != nil {
		return nil, err
	}

	if result.RolledUp {
		s.notifyRollUp(ctx, input.OrderID, result.OrderStatus)
	}
	return result, nil
}

func (s *service) SetTracking(ctx context.Context, input SetTrackingInput) error {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order and item ids required")
	}
	if input.TrackingNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		_, item, err := s.loadOwnedItem(ctx, repo, input.OrderID, input.ItemID, input.ActorID, input.Role)
		if err != nil {
			return err
		}
		if err := repo.UpdateOrderItem(ctx, item.ID, map[string]any{"tracking_number": input.TrackingNumber}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist tracking number")
		}
		return nil
	})
}

func (s *service) loadOwnedItem(ctx context.Context, repo orders.Repository, orderID, itemID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, *models.OrderItem, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	item, err := repo.FindOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	if item.OrderID != order.ID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to order")
	}
	if role == enums.ActorRoleVendor && item.VendorID != actorID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to vendor")
	}
	if role != enums.ActorRoleVendor && role != enums.ActorRoleAdmin {
		return nil, nil, pkgerrors.Newf(pkgerrors.CodeForbidden, "actor '%s' cannot update items", role)
	}
	return order, item, nil
}

// rollUp promotes the parent order once every item has crossed a
// milestone. Re-running on an order already at or past the target is a
// no-op.
func (s *service) rollUp(ctx context.Context, repo orders.Repository, order *models.Order, role enums.ActorRole) (bool, enums.OrderStatus, error) {
	items, err := repo.FindOrderItems(ctx, order.ID)
	if err != nil {
		return false, order.Status, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload items")
	}

	target := rollUpTarget(items)
	if target == "" {
		return false, order.Status, nil
	}

	current := chainIndex(order.Status)
	goal := chainIndex(target)
	if current < 0 || goal <= current {
		return false, order.Status, nil
	}

	// Advance edge by edge so each hop passes the same validator every
	// other caller uses.
	for current < goal {
		next := deliveryChain[current+1]
		decision := lifecycle.Validate(deliveryChain[current], next, role)
		if !decision.Valid {
			return false, order.Status, pkgerrors.New(pkgerrors.CodeStateConflict, decision.Reason)
		}
		current++
	}

	updates := map[string]any{"status": string(target)}
	now := s.now().UTC()
	if target == enums.OrderStatusDelivered {
		updates["delivered_at"] = now
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return false, order.Status, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist roll-up")
	}

	order.Status = target
	if target == enums.OrderStatusDelivered {
		order.DeliveredAt = &now
	}
	return true, target, nil
}

// rollUpTarget picks the furthest order milestone every item has reached.
func rollUpTarget(items []models.OrderItem) enums.OrderStatus {
	if len(items) == 0 {
		return ""
	}
	allDelivered := true
	allHanded := true
	allPacked := true
	for _, item := range items {
		if !item.FulfillmentStatus.AtLeast(enums.FulfillmentStatusDelivered) {
			allDelivered = false
		}
		if !item.FulfillmentStatus.AtLeast(enums.FulfillmentStatusHandedToCourier) {
			allHanded = false
		}
		if !item.FulfillmentStatus.AtLeast(enums.FulfillmentStatusPacked) {
			allPacked = false
		}
	}
	switch {
	case allDelivered:
		return enums.OrderStatusDelivered
	case allHanded:
		return enums.OrderStatusOutForDelivery
	case allPacked:
		return enums.OrderStatusPreparing
	default:
		return ""
	}
}

func (s *service) auditItem(ctx context.Context, input UpdateItemInput, previous enums.FulfillmentStatus, cause error) {
	if previous == "" {
		return
	}
	severity := enums.AuditSeverityInfo
	details := types.JSONMap{
		"from": string(previous),
		"to":   string(input.Target),
	}
	if cause != nil {
		severity = enums.AuditSeverityWarning
		details["reason"] = cause.Error()
	}
	actor := input.ActorID
	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     enums.AuditActionItemStatusChange,
		ActorID:    &actor,
		ActorRole:  input.Role,
		TargetID:   input.ItemID,
		TargetType: enums.AuditTargetOrderItem,
		Details:    details,
		Severity:   severity,
	}); err != nil {
		s.logg.Error(ctx, "audit record failed", err)
	}
}

func (s *service) notifyRollUp(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		s.logg.Error(ctx, "reload order for notification", err)
		return
	}

	var notifType enums.NotificationType
	var title, message string
	switch status {
	case enums.OrderStatusOutForDelivery:
		notifType = enums.NotificationOrderShipped
		title = "Order on its way"
		message = "All items in your order are with the courier."
	case enums.OrderStatusDelivered:
		notifType = enums.NotificationOrderDelivered
		title = "Order delivered"
		message = "All items in your order have been delivered."
	default:
		return
	}
	s.notifier.Notify(ctx, notifications.Message{
		UserID:  order.BuyerID,
		Role:    enums.NotificationRecipientBuyer,
		Type:    notifType,
		Title:   title,
		Message: message,
		Payload: types.JSONMap{"order_id": orderID.String(), "status": string(status)},
	})
}
