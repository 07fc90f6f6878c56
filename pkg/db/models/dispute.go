package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute is created when a buyer contests a delivered order. Resolution
// happens outside the lifecycle engine; the engine only cares whether an
// open dispute exists.
type Dispute struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	BuyerID    uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null"`
	Reason     string     `gorm:"column:reason;not null"`
	Open       bool       `gorm:"column:open;not null;default:true"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
