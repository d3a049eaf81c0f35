package persistence

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormShippingMethodMappingRepository stores per-location shipping method mappings
type GormShippingMethodMappingRepository struct {
	db *gorm.DB
}

// NewGormShippingMethodMappingRepository creates a new GormShippingMethodMappingRepository
func NewGormShippingMethodMappingRepository(db *gorm.DB) *GormShippingMethodMappingRepository {
	return &GormShippingMethodMappingRepository{db: db}
}

// FindByLocation returns a location's entries ordered by warehouse method id
func (r *GormShippingMethodMappingRepository) FindByLocation(ctx context.Context, locationID string) ([]fulfillment.ShippingMethodMappingEntry, error) {
	var rows []models.ShippingMethodMappingModel
	if err := r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("warehouse_method_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]fulfillment.ShippingMethodMappingEntry, len(rows))
	for i, row := range rows {
		entries[i] = fulfillment.ShippingMethodMappingEntry{
			WarehouseMethodID: row.WarehouseMethodID,
			ChannelMethodName: row.ChannelMethodName,
		}
	}
	return entries, nil
}

// Replace overwrites the stored entries for a location
func (r *GormShippingMethodMappingRepository) Replace(ctx context.Context, locationID string, entries []fulfillment.ShippingMethodMappingEntry) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", locationID).
			Delete(&models.ShippingMethodMappingModel{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		rows := make([]models.ShippingMethodMappingModel, len(entries))
		for i, e := range entries {
			rows[i] = models.ShippingMethodMappingModel{
				LocationID:        locationID,
				WarehouseMethodID: e.WarehouseMethodID,
				ChannelMethodName: e.ChannelMethodName,
				UpdatedAt:         now,
			}
		}
		return tx.Create(&rows).Error
	})
}

// Ensure GormShippingMethodMappingRepository implements fulfillment.ShippingMethodMappingRepository
var _ fulfillment.ShippingMethodMappingRepository = (*GormShippingMethodMappingRepository)(nil)
