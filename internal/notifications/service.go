package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// Notifier is the fire-and-forget surface lifecycle services use. Delivery
// failures are logged and swallowed; they never affect lifecycle state.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Message describes one buyer/vendor facing notification.
type Message struct {
	UserID  uuid.UUID
	Role    enums.NotificationRecipientRole
	Type    enums.NotificationType
	Title   string
	Message string
	Payload types.JSONMap
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the notifier.
func NewService(repo Repository, logg *logger.Logger) (Notifier, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Notify(ctx context.Context, msg Message) {
	if msg.UserID == uuid.Nil || msg.Type == "" {
		s.logg.Warn(ctx, "dropping notification with missing recipient or type")
		return
	}
	row := &models.Notification{
		UserID:  msg.UserID,
		Role:    msg.Role,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Message,
		Payload: msg.Payload,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": msg.UserID.String(),
			"type":    string(msg.Type),
		})
		s.logg.Error(logCtx, "notification write failed", err)
	}
}
