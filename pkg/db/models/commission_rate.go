package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionRate configures an override of the platform default rate.
// Exactly one of VendorID / CategoryID is set; vendor rates win over
// category rates.
type CommissionRate struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID   *uuid.UUID      `gorm:"column:vendor_id;type:uuid;index"`
	CategoryID *uuid.UUID      `gorm:"column:category_id;type:uuid;index"`
	Rate       decimal.Decimal `gorm:"column:rate;type:numeric(6,3);not null"`
	Active     bool            `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
