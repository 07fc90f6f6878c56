package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/pkg/enums"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// AuditLog records every lifecycle transition attempt, accepted or not.
type AuditLog struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Action     string                `gorm:"column:action;not null"`
	ActorID    *uuid.UUID            `gorm:"column:actor_id;type:uuid"`
	ActorRole  enums.ActorRole       `gorm:"column:actor_role;type:text;not null"`
	TargetID   uuid.UUID             `gorm:"column:target_id;type:uuid;not null;index"`
	TargetType enums.AuditTargetType `gorm:"column:target_type;type:text;not null"`
	Details    types.JSONMap         `gorm:"column:details;type:jsonb;serializer:json"`
	Severity   enums.AuditSeverity   `gorm:"column:severity;type:text;not null;default:'info'"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}
