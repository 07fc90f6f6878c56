package models

import (
	"time"

	"github.com/google/uuid"
)

// Product carries the inventory counter the compensation engine restores
// into. Catalog CRUD lives outside this service.
type Product struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID   uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;index"`
	CategoryID *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Name       string     `gorm:"column:name;not null"`
	PriceCents int        `gorm:"column:price_cents;not null"`
	Quantity   int        `gorm:"column:quantity;not null;default:0"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
