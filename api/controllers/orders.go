package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/api/middleware"
	"github.com/mercatohq/mercato-backend/api/responses"
	"github.com/mercatohq/mercato-backend/api/validators"
	internalorders "github.com/mercatohq/mercato-backend/internal/orders"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/pagination"
	"github.com/mercatohq/mercato-backend/pkg/types"
	"github.com/mercatohq/mercato-backend/pkg/visibility"
)

type createOrderItemRequest struct {
	ProductID      uuid.UUID      `json:"product_id" validate:"required"`
	ProductName    string         `json:"product_name" validate:"required"`
	VendorID       uuid.UUID      `json:"vendor_id" validate:"required"`
	VendorName     string         `json:"vendor_name" validate:"required"`
	Qty            int            `json:"qty" validate:"required,min=1"`
	UnitPriceCents int            `json:"unit_price_cents" validate:"min=0"`
	DiscountCents  int            `json:"discount_cents" validate:"min=0"`
	ImageURL       *string        `json:"image_url,omitempty"`
	Variation      *types.JSONMap `json:"variation,omitempty"`
}

type createOrderRequest struct {
	BuyerID         uuid.UUID                `json:"buyer_id" validate:"required"`
	BuyerName       string                   `json:"buyer_name" validate:"required"`
	BuyerEmail      string                   `json:"buyer_email" validate:"required,email"`
	Items           []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingCents   int                      `json:"shipping_cents" validate:"min=0"`
	TaxCents        int                      `json:"tax_cents" validate:"min=0"`
	Currency        string                   `json:"currency,omitempty"`
	ShippingAddress *types.Address           `json:"shipping_address,omitempty"`
	Notes           *string                  `json:"notes,omitempty"`
	CouponCode      *string                  `json:"coupon_code,omitempty"`
}

type transitionRequest struct {
	Target string  `json:"target" validate:"required"`
	Reason *string `json:"reason,omitempty"`
}

// CreateOrder accepts a checkout hand-off and opens the order in `created`.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			BuyerID:         req.BuyerID,
			BuyerName:       req.BuyerName,
			BuyerEmail:      req.BuyerEmail,
			ShippingCents:   req.ShippingCents,
			TaxCents:        req.TaxCents,
			Currency:        req.Currency,
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			CouponCode:      req.CouponCode,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, internalorders.CreateItemInput{
				ProductID:      item.ProductID,
				ProductName:    item.ProductName,
				VendorID:       item.VendorID,
				VendorName:     item.VendorName,
				Qty:            item.Qty,
				UnitPriceCents: item.UnitPriceCents,
				DiscountCents:  item.DiscountCents,
				ImageURL:       item.ImageURL,
				Variation:      item.Variation,
			})
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderDetail returns one order with its items, scoped to what the request
// actor is allowed to see.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor, ok := middleware.ActorFromContext(r.Context()); ok {
			if err := visibility.EnsureOrderVisible(order, actor.ID, actor.Role); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, order)
	}
}

// ListBuyerOrders pages a buyer's order history, newest first.
func ListBuyerOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := parseUUIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, filters, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBuyer(r.Context(), buyerID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListVendorOrders pages the orders containing a vendor's items. Orders
// still waiting on payment never show up here.
func ListVendorOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := parseUUIDParam(r, "vendorID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, filters, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListVendor(r.Context(), vendorID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// TransitionOrder applies one status change on behalf of the request actor.
func TransitionOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor headers missing"))
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			ActorID: actor.ID,
			Role:    actor.Role,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CancelOrder runs the compensation engine: restock, refund flag, audit.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor headers missing"))
			return
		}

		result, err := svc.Cancel(r.Context(), orderID, actor.ID, actor.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func parseListQuery(r *http.Request) (pagination.Params, internalorders.ListFilters, error) {
	var filters internalorders.ListFilters

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, filters, err
	}
	params := pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.NormalizeOrderStatus(raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("date_from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_from")
		}
		filters.DateFrom = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("date_to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_to")
		}
		filters.DateTo = &to
	}

	return params, filters, nil
}
