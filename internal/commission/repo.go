package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
)

// Repository looks up configured commission rate overrides.
type Repository interface {
	FindVendorRate(ctx context.Context, vendorID uuid.UUID) (*models.CommissionRate, error)
	FindCategoryRate(ctx context.Context, categoryID uuid.UUID) (*models.CommissionRate, error)
	ProductCategory(ctx context.Context, productID uuid.UUID) (*uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commission repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindVendorRate(ctx context.Context, vendorID uuid.UUID) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND active", vendorID).
		Order("updated_at DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) FindCategoryRate(ctx context.Context, categoryID uuid.UUID) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND active", categoryID).
		Order("updated_at DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) ProductCategory(ctx context.Context, productID uuid.UUID) (*uuid.UUID, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Select("category_id").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return product.CategoryID, nil
}
