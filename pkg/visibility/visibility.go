package visibility

import (
	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
)

// Orders that have not cleared payment are invisible to vendors. The legacy
// spelling is kept so SQL filters also catch unmigrated rows.
var vendorHiddenStatuses = []string{
	string(enums.OrderStatusCreated),
	"pending_payment",
}

// VendorHiddenStatuses returns the status spellings, canonical and legacy,
// that hide an order from vendor-facing queries.
func VendorHiddenStatuses() []string {
	out := make([]string, len(vendorHiddenStatuses))
	copy(out, vendorHiddenStatuses)
	return out
}

// HiddenFromVendor reports whether an order in the given status is withheld
// from vendors.
func HiddenFromVendor(status enums.OrderStatus) bool {
	for _, hidden := range vendorHiddenStatuses {
		if string(status) == hidden {
			return true
		}
	}
	return false
}

// EnsureOrderVisible enforces the canonical read rules: buyers see their own
// orders, vendors see orders containing their items once payment clears, and
// admin or system callers see everything.
func EnsureOrderVisible(order *models.Order, actorID uuid.UUID, role enums.ActorRole) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	switch role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	case enums.ActorRoleBuyer:
		if order.BuyerID != actorID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil
	case enums.ActorRoleVendor:
		if HiddenFromVendor(order.Status) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		for _, item := range order.Items {
			if item.VendorID == actorID {
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	default:
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "actor '%s' cannot view orders", role)
	}
}
