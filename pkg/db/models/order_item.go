package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/pkg/enums"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// OrderItem is one (order, vendor, product) row, the unit of per-vendor
// fulfillment. Product and vendor fields are denormalized snapshots taken
// at checkout.
type OrderItem struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null"`

	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName string    `gorm:"column:product_name;not null"`
	VendorID    uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	VendorName  string    `gorm:"column:vendor_name;not null"`

	Qty            int `gorm:"column:qty;not null"`
	UnitPriceCents int `gorm:"column:unit_price_cents;not null"`
	DiscountCents  int `gorm:"column:discount_cents;not null;default:0"`
	FinalCents     int `gorm:"column:final_cents;not null"`

	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null;default:'pending'"`
	FulfilledAt       *time.Time              `gorm:"column:fulfilled_at"`
	TrackingNumber    *string                 `gorm:"column:tracking_number"`

	ImageURL  *string        `gorm:"column:image_url"`
	Variation *types.JSONMap `gorm:"column:variation;type:jsonb;serializer:json"`

	// Commission snapshot, stamped when the order is confirmed.
	CommissionRate   decimal.Decimal `gorm:"column:commission_rate;type:numeric(6,3);not null;default:0"`
	CommissionCents  int             `gorm:"column:commission_cents;not null;default:0"`
	CommissionSource *string         `gorm:"column:commission_source"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AfterFind normalizes legacy fulfillment spellings at the read boundary.
func (i *OrderItem) AfterFind(_ *gorm.DB) error {
	status, err := enums.NormalizeFulfillmentStatus(string(i.FulfillmentStatus))
	if err != nil {
		return err
	}
	i.FulfillmentStatus = status
	return nil
}
