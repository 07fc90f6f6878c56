package disputes

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
	"github.com/mercatohq/mercato-backend/pkg/db"
	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/lifecycle"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// DefaultWindow is how long after delivery a buyer may contest an order.
const DefaultWindow = 48 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OpenInput carries a buyer's dispute request.
type OpenInput struct {
	OrderID uuid.UUID
	BuyerID uuid.UUID
	Reason  string
}

// Service enforces the dispute window and opens disputes.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.Dispute, error)
	HasOpenDispute(ctx context.Context, orderID uuid.UUID) (bool, error)
	WithinWindow(order *models.Order, now time.Time) bool
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
	tx        txRunner
	auditor   audit.Recorder
	notifier  notifications.Notifier
	logg      *logger.Logger
	window    time.Duration
	now       func() time.Time
}

// NewService builds the dispute window enforcer. window falls back to the
// 48 hour default when zero.
func NewService(repo Repository, orderRepo orders.Repository, tx txRunner, auditor audit.Recorder, notifier notifications.Notifier, logg *logger.Logger, window time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if orderRepo == nil {
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
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{
		repo:      repo,
		orderRepo: orderRepo,
		tx:        tx,
		auditor:   auditor,
		notifier:  notifier,
		logg:      logg,
		window:    window,
		now:       time.Now,
	}, nil
}

// WithinWindow reports whether the order can still be disputed at now.
func (s *service) WithinWindow(order *models.Order, now time.Time) bool {
	if order == nil || order.DeliveredAt == nil {
		return false
	}
	return now.Sub(*order.DeliveredAt) <= s.window
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Dispute, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	var dispute *models.Dispute
	var order *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		loaded, err := orderRepo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		order = loaded

		if order.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}

		now := s.now().UTC()
		if !s.WithinWindow(order, now) {
			return pkgerrors.Newf(pkgerrors.CodeValidation,
				"dispute window of %s after delivery has expired", s.window)
		}

		decision := lifecycle.Validate(order.Status, enums.OrderStatusDisputed, enums.ActorRoleBuyer)
		if !decision.Valid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, decision.Reason)
		}

		if err := orderRepo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":         string(enums.OrderStatusDisputed),
			"disputed_at":    now,
			"dispute_reason": input.Reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist dispute status")
		}
		order.Status = enums.OrderStatusDisputed
		order.DisputedAt = &now
		order.DisputeReason = &input.Reason

		created, err := s.repo.WithTx(tx).Create(ctx, &models.Dispute{
			OrderID: order.ID,
			BuyerID: input.BuyerID,
			Reason:  input.Reason,
			Open:    true,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "uq_disputes_open_order") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already has an open dispute")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}
		dispute = created
		return nil
	})

	s.auditOpen(ctx, input, err)
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		s.notifier.Notify(ctx, notifications.Message{
			UserID:  item.VendorID,
			Role:    enums.NotificationRecipientVendor,
			Type:    enums.NotificationOrderDisputed,
			Title:   "Order disputed",
			Message: "The buyer has opened a dispute on an order containing your items.",
			Payload: types.JSONMap{"order_id": order.ID.String()},
		})
	}

	return dispute, nil
}

func (s *service) HasOpenDispute(ctx context.Context, orderID uuid.UUID) (bool, error) {
	_, err := s.repo.FindOpenByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup open dispute")
	}
	return true, nil
}

func (s *service) auditOpen(ctx context.Context, input OpenInput, cause error) {
	severity := enums.AuditSeverityInfo
	details := types.JSONMap{"reason": input.Reason}
	if cause != nil {
		severity = enums.AuditSeverityWarning
		details["rejected"] = cause.Error()
	}
	actor := input.BuyerID
	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     enums.AuditActionDisputeOpened,
		ActorID:    &actor,
		ActorRole:  enums.ActorRoleBuyer,
		TargetID:   input.OrderID,
		TargetType: enums.AuditTargetOrder,
		Details:    details,
		Severity:   severity,
	}); err != nil {
		s.logg.Error(ctx, "audit record failed", err)
	}
}
