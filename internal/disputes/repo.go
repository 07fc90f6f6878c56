package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
)

// Repository persists dispute rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error)
	FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, disputeID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a disputes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if err := r.db.WithContext(ctx).Create(dispute).Error; err != nil {
		return nil, err
	}
	return dispute, nil
}

func (r *repository) FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND open", orderID).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Resolve(ctx context.Context, disputeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND open", disputeID).
		Updates(map[string]any{
			"open":        false,
			"resolved_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
