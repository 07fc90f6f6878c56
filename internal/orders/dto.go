package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// ListFilters describe the inputs supported by the order lists.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// CreateItemInput is one checkout line destined for a vendor.
type CreateItemInput struct {
	ProductID      uuid.UUID
	ProductName    string
	VendorID       uuid.UUID
	VendorName     string
	Qty            int
	UnitPriceCents int
	DiscountCents  int
	ImageURL       *string
	Variation      *types.JSONMap
}

// CreateOrderInput carries everything checkout hands the lifecycle engine.
type CreateOrderInput struct {
	BuyerID         uuid.UUID
	BuyerName       string
	BuyerEmail      string
	Items           []CreateItemInput
	ShippingCents   int
	TaxCents        int
	Currency        string
	ShippingAddress *types.Address
	Notes           *string
	CouponCode      *string
}

// TransitionInput asks for one order-status change on behalf of an actor.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	ActorID uuid.UUID
	Role    enums.ActorRole
	// Reason is required when entering disputed and ignored elsewhere.
	Reason *string
}

// InventoryDelta reports one quantity restored during cancellation.
type InventoryDelta struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
}

// CancelResult is returned by the compensation engine for auditing.
type CancelResult struct {
	Order    *models.Order    `json:"order"`
	Restored []InventoryDelta `json:"restored"`
	Refund   bool             `json:"refund"`
}
