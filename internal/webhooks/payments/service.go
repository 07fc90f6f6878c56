package paymentwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/internal/audit"
	"github.com/mercatohq/mercato-backend/internal/commission"
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

type categoryReader interface {
	ProductCategory(ctx context.Context, productID uuid.UUID) (*uuid.UUID, error)
}

// Event is the inbound payment provider callback. Providers retry
// aggressively, so handling must be idempotent.
type Event struct {
	OrderID       uuid.UUID           `json:"order_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Reference     string              `json:"reference"`
	Provider      string              `json:"provider"`
	Method        string              `json:"method"`
	PaidAt        *time.Time          `json:"paid_at"`
}

// Service applies payment callbacks to the order lifecycle.
type Service struct {
	repo       orders.Repository
	tx         txRunner
	commission commission.Calculator
	categories categoryReader
	auditor    audit.Recorder
	notifier   notifications.Notifier
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams configure the webhook handler.
type ServiceParams struct {
	OrderRepo  orders.Repository
	TxRunner   txRunner
	Commission commission.Calculator
	Categories categoryReader
	Auditor    audit.Recorder
	Notifier   notifications.Notifier
	Logger     *logger.Logger
}

// NewService builds the payment webhook handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Commission == nil {
		return nil, fmt.Errorf("commission calculator required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("category reader required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:       params.OrderRepo,
		tx:         params.TxRunner,
		commission: params.Commission,
		categories: params.Categories,
		auditor:    params.Auditor,
		notifier:   params.Notifier,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// HandleEvent processes one provider callback. A retried "paid" event for
// an order that already advanced is a successful no-op; webhook status
// never drags an order backwards.
func (s *Service) HandleEvent(ctx context.Context, event Event) error {
	if event.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !event.PaymentStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
	}

	var order *models.Order
	var promoted bool

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindOrder(ctx, event.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		order = loaded

		switch event.PaymentStatus {
		case enums.PaymentStatusPaid:
			p, err := s.applyPaid(ctx, repo, order, event)
			promoted = p
			return err
		case enums.PaymentStatusFailed:
			return s.applyFailed(ctx, repo, order)
		default:
			// refunds and pending rollbacks never come from the provider
			return pkgerrors.Newf(pkgerrors.CodeValidation, "webhook cannot report status '%s'", event.PaymentStatus)
		}
	})

	s.auditEvent(ctx, event, err)
	if err != nil {
		return err
	}

	if promoted {
		s.notifyPaid(ctx, order)
	}
	return nil
}

// applyPaid marks the payment settled and promotes created orders to
// confirmed. Orders already past created keep their status untouched.
func (s *Service) applyPaid(ctx context.Context, repo orders.Repository, order *models.Order, event Event) (bool, error) {
	updates := map[string]any{}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		paidAt := event.PaidAt
		if paidAt == nil {
			now := s.now().UTC()
			paidAt = &now
		}
		updates["payment_status"] = string(enums.PaymentStatusPaid)
		updates["paid_at"] = *paidAt
		if event.Reference != "" {
			updates["payment_reference"] = event.Reference
		}
		if event.Provider != "" {
			updates["payment_provider"] = event.Provider
		}
		if event.Method != "" {
			updates["payment_method"] = event.Method
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = paidAt
	}

	promoted := false
	if order.Status == enums.OrderStatusCreated {
		decision := lifecycle.Validate(order.Status, enums.OrderStatusConfirmed, enums.ActorRoleSystem)
		if !decision.Valid {
			return false, pkgerrors.New(pkgerrors.CodeStateConflict, decision.Reason)
		}
		updates["status"] = string(enums.OrderStatusConfirmed)
		order.Status = enums.OrderStatusConfirmed
		promoted = true
	}

	if len(updates) == 0 {
		// duplicate delivery, nothing left to apply
		return false, nil
	}

	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment update")
	}

	if promoted {
		if err := s.stampCommissions(ctx, repo, order); err != nil {
			return false, err
		}
	}
	return promoted, nil
}

func (s *Service) applyFailed(ctx context.Context, repo orders.Repository, order *models.Order) error {
	// a failure report after settlement is a provider hiccup, not a downgrade
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_status": string(enums.PaymentStatusFailed),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment failure")
	}
	order.PaymentStatus = enums.PaymentStatusFailed
	return nil
}

// stampCommissions freezes each item's commission split at confirmation
// time, so later rate changes never touch existing orders.
func (s *Service) stampCommissions(ctx context.Context, repo orders.Repository, order *models.Order) error {
	for i := range order.Items {
		item := &order.Items[i]

		categoryID, err := s.categories.ProductCategory(ctx, item.ProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product category")
		}

		breakdown, err := s.commission.Calculate(ctx, item.FinalCents, item.VendorID, categoryID)
		if err != nil {
			return err
		}

		source := breakdown.Source
		if err := repo.UpdateOrderItem(ctx, item.ID, map[string]any{
			"commission_rate":   breakdown.Rate,
			"commission_cents":  breakdown.CommissionCents,
			"commission_source": source,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist commission snapshot")
		}
		item.CommissionRate = breakdown.Rate
		item.CommissionCents = breakdown.CommissionCents
		item.CommissionSource = &source
	}
	return nil
}

func (s *Service) auditEvent(ctx context.Context, event Event, cause error) {
	severity := enums.AuditSeverityInfo
	details := types.JSONMap{
		"payment_status": string(event.PaymentStatus),
		"provider":       event.Provider,
		"reference":      event.Reference,
	}
	if cause != nil {
		severity = enums.AuditSeverityWarning
		details["rejected"] = cause.Error()
	}
	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     enums.AuditActionPaymentWebhook,
		ActorRole:  enums.ActorRoleSystem,
		TargetID:   event.OrderID,
		TargetType: enums.AuditTargetOrder,
		Details:    details,
		Severity:   severity,
	}); err != nil {
		s.logg.Error(ctx, "audit record failed", err)
	}
}

func (s *Service) notifyPaid(ctx context.Context, order *models.Order) {
	s.notifier.Notify(ctx, notifications.Message{
		UserID:  order.BuyerID,
		Role:    enums.NotificationRecipientBuyer,
		Type:    enums.NotificationOrderPaid,
		Title:   "Payment received",
		Message: "Your payment has been confirmed and vendors are preparing your order.",
		Payload: types.JSONMap{"order_id": order.ID.String()},
	})

	seen := map[uuid.UUID]struct{}{}
	for _, item := range order.Items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		s.notifier.Notify(ctx, notifications.Message{
			UserID:  item.VendorID,
			Role:    enums.NotificationRecipientVendor,
			Type:    enums.NotificationOrderPaid,
			Title:   "New paid order",
			Message: "A paid order with your items is ready to prepare.",
			Payload: types.JSONMap{"order_id": order.ID.String()},
		})
	}
}
