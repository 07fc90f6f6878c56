package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/pkg/enums"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// Notification is a buyer/vendor facing message row. Delivery is
// best-effort; the lifecycle engine never depends on it.
type Notification struct {
	ID        uuid.UUID                       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                       `gorm:"column:user_id;type:uuid;not null;index"`
	Role      enums.NotificationRecipientRole `gorm:"column:role;type:text;not null"`
	Type      enums.NotificationType          `gorm:"column:type;type:text;not null"`
	Title     string                          `gorm:"column:title;not null"`
	Message   string                          `gorm:"column:message;not null"`
	Payload   types.JSONMap                   `gorm:"column:payload;type:jsonb;serializer:json"`
	ReadAt    *time.Time                      `gorm:"column:read_at"`
	CreatedAt time.Time                       `gorm:"column:created_at;autoCreateTime"`
}
