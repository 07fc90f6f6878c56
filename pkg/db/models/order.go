package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/pkg/enums"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// Order is the checkout-level aggregate. Line items carry the per-vendor
// fulfillment state; the order carries the overall and payment tracks.
type Order struct {
	ID uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`

	BuyerID    uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	BuyerName  string    `gorm:"column:buyer_name;not null"`
	BuyerEmail string    `gorm:"column:buyer_email;not null"`

	SubtotalCents int    `gorm:"column:subtotal_cents;not null"`
	DiscountCents int    `gorm:"column:discount_cents;not null;default:0"`
	ShippingCents int    `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents      int    `gorm:"column:tax_cents;not null;default:0"`
	TotalCents    int    `gorm:"column:total_cents;not null"`
	Currency      string `gorm:"column:currency;not null;default:'USD'"`

	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod    *string             `gorm:"column:payment_method"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	PaymentProvider  *string             `gorm:"column:payment_provider"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`

	Status enums.OrderStatus `gorm:"column:status;type:text;not null;default:'created'"`

	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	DeliveredAt   *time.Time `gorm:"column:delivered_at"`
	DisputedAt    *time.Time `gorm:"column:disputed_at"`
	DisputeReason *string    `gorm:"column:dispute_reason"`
	CancelledAt   *time.Time `gorm:"column:cancelled_at"`

	Notes      *string `gorm:"column:notes"`
	CouponCode *string `gorm:"column:coupon_code"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AfterFind normalizes legacy status spellings so everything past the read
// boundary sees canonical values only.
func (o *Order) AfterFind(_ *gorm.DB) error {
	status, err := enums.NormalizeOrderStatus(string(o.Status))
	if err != nil {
		return err
	}
	o.Status = status
	return nil
}
