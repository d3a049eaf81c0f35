package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFulfillmentRepository reads fulfillments recorded by SaveWithLock
type GormFulfillmentRepository struct {
	db *gorm.DB
}

// NewGormFulfillmentRepository creates a new GormFulfillmentRepository
func NewGormFulfillmentRepository(db *gorm.DB) *GormFulfillmentRepository {
	return &GormFulfillmentRepository{db: db}
}

// FindByOrderID returns an order's fulfillments oldest first
func (r *GormFulfillmentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.Fulfillment, error) {
	var rows []models.FulfillmentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]fulfillment.Fulfillment, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

// Ensure GormFulfillmentRepository implements fulfillment.FulfillmentRepository
var _ fulfillment.FulfillmentRepository = (*GormFulfillmentRepository)(nil)
