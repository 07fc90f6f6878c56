package commission

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
)

type stubRepo struct {
	vendorRates   map[uuid.UUID]decimal.Decimal
	categoryRates map[uuid.UUID]decimal.Decimal
}

func (r *stubRepo) FindVendorRate(_ context.Context, vendorID uuid.UUID) (*models.CommissionRate, error) {
	rate, ok := r.vendorRates[vendorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.CommissionRate{Rate: rate}, nil
}

func (r *stubRepo) FindCategoryRate(_ context.Context, categoryID uuid.UUID) (*models.CommissionRate, error) {
	rate, ok := r.categoryRates[categoryID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.CommissionRate{Rate: rate}, nil
}

func (r *stubRepo) ProductCategory(_ context.Context, _ uuid.UUID) (*uuid.UUID, error) {
	return nil, gorm.ErrRecordNotFound
}

func mustRate(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	rate, err := decimal.NewFromString(raw)
	require.NoError(t, err)
	return rate
}

func TestVendorRateWinsOverCategoryAndDefault(t *testing.T) {
	vendorID := uuid.New()
	categoryID := uuid.New()
	repo := &stubRepo{
		vendorRates:   map[uuid.UUID]decimal.Decimal{vendorID: mustRate(t, "7.5")},
		categoryRates: map[uuid.UUID]decimal.Decimal{categoryID: mustRate(t, "12")},
	}
	svc, err := NewService(repo, "10")
	require.NoError(t, err)

	breakdown, err := svc.Calculate(context.Background(), 10000, vendorID, &categoryID)
	require.NoError(t, err)
	assert.Equal(t, SourceVendor, breakdown.Source)
	assert.True(t, breakdown.Rate.Equal(mustRate(t, "7.5")))
	assert.Equal(t, 750, breakdown.CommissionCents)
	assert.Equal(t, 9250, breakdown.VendorCents)
}

func TestCategoryRateUsedWhenVendorHasNone(t *testing.T) {
	categoryID := uuid.New()
	repo := &stubRepo{
		categoryRates: map[uuid.UUID]decimal.Decimal{categoryID: mustRate(t, "12")},
	}
	svc, err := NewService(repo, "10")
	require.NoError(t, err)

	breakdown, err := svc.Calculate(context.Background(), 5000, uuid.New(), &categoryID)
	require.NoError(t, err)
	assert.Equal(t, SourceCategory, breakdown.Source)
	assert.Equal(t, 600, breakdown.CommissionCents)
	assert.Equal(t, 4400, breakdown.VendorCents)
}

func TestPlatformDefaultIsTheFallback(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo, "10")
	require.NoError(t, err)

	breakdown, err := svc.Calculate(context.Background(), 2599, uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, breakdown.Source)
	// 2599 * 10% = 259.9, rounded half up to 260
	assert.Equal(t, 260, breakdown.CommissionCents)
	assert.Equal(t, 2339, breakdown.VendorCents)
}

func TestZeroSubtotalSplitsToZero(t *testing.T) {
	svc, err := NewService(&stubRepo{}, "10")
	require.NoError(t, err)

	breakdown, err := svc.Calculate(context.Background(), 0, uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, breakdown.CommissionCents)
	assert.Equal(t, 0, breakdown.VendorCents)
}

func TestNegativeSubtotalRejected(t *testing.T) {
	svc, err := NewService(&stubRepo{}, "10")
	require.NoError(t, err)

	_, err = svc.Calculate(context.Background(), -1, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRejectsBadDefaultRate(t *testing.T) {
	for _, raw := range []string{"", "abc", "-1", "101"} {
		_, err := NewService(&stubRepo{}, raw)
		assert.Error(t, err, "rate %q", raw)
	}
}
