package commission

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
)

// Rate sources, in priority order.
const (
	SourceVendor   = "vendor"
	SourceCategory = "category"
	SourceDefault  = "platform_default"
)

// Breakdown is the commission snapshot stamped onto a line item at
// confirmation time.
type Breakdown struct {
	Rate            decimal.Decimal `json:"rate"`
	CommissionCents int             `json:"commission_cents"`
	VendorCents     int             `json:"vendor_cents"`
	Source          string          `json:"source"`
}

// Calculator resolves the applicable rate and splits a subtotal.
type Calculator interface {
	Calculate(ctx context.Context, subtotalCents int, vendorID uuid.UUID, categoryID *uuid.UUID) (Breakdown, error)
}

type service struct {
	repo        Repository
	defaultRate decimal.Decimal
}

// NewService wires the commission calculator. defaultRate is a percentage,
// e.g. "10" for 10%.
func NewService(repo Repository, defaultRate string) (Calculator, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission repository required")
	}
	rate, err := decimal.NewFromString(defaultRate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid default commission rate")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "default commission rate out of range")
	}
	return &service{repo: repo, defaultRate: rate}, nil
}

func (s *service) Calculate(ctx context.Context, subtotalCents int, vendorID uuid.UUID, categoryID *uuid.UUID) (Breakdown, error) {
	if subtotalCents < 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}

	rate, source, err := s.resolveRate(ctx, vendorID, categoryID)
	if err != nil {
		return Breakdown{}, err
	}

	subtotal := decimal.NewFromInt(int64(subtotalCents))
	commission := subtotal.Mul(rate).Div(decimal.NewFromInt(100)).Round(0)
	commissionCents := int(commission.IntPart())

	return Breakdown{
		Rate:            rate,
		CommissionCents: commissionCents,
		VendorCents:     subtotalCents - commissionCents,
		Source:          source,
	}, nil
}

func (s *service) resolveRate(ctx context.Context, vendorID uuid.UUID, categoryID *uuid.UUID) (decimal.Decimal, string, error) {
	if vendorID != uuid.Nil {
		row, err := s.repo.FindVendorRate(ctx, vendorID)
		switch {
		case err == nil:
			return row.Rate, SourceVendor, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return decimal.Zero, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup vendor rate")
		}
	}
	if categoryID != nil && *categoryID != uuid.Nil {
		row, err := s.repo.FindCategoryRate(ctx, *categoryID)
		switch {
		case err == nil:
			return row.Rate, SourceCategory, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return decimal.Zero, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category rate")
		}
	}
	return s.defaultRate, SourceDefault, nil
}
