package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFulfillmentOrderRepository implements fulfillment.OrderRepository using GORM
type GormFulfillmentOrderRepository struct {
	db *gorm.DB
}

// NewGormFulfillmentOrderRepository creates a new GormFulfillmentOrderRepository
func NewGormFulfillmentOrderRepository(db *gorm.DB) *GormFulfillmentOrderRepository {
	return &GormFulfillmentOrderRepository{db: db}
}

// FindByID finds an order with its line items and tracking entries
func (r *GormFulfillmentOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.FulfillmentOrder, error) {
	var model models.FulfillmentOrderModel
	if err := r.withChildren(r.db.WithContext(ctx)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.NewOrderNotFoundError(id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists orders matching the filter, returning the page and the total count
func (r *GormFulfillmentOrderRepository) FindAll(ctx context.Context, filter fulfillment.OrderFilter) ([]fulfillment.FulfillmentOrder, int64, error) {
	var total int64
	if err := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.FulfillmentOrderModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.FulfillmentOrderModel
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx), filter)
	if err := r.withChildren(r.applyPagination(query, filter.Filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]fulfillment.FulfillmentOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Create persists a newly ingested order with its line items
func (r *GormFulfillmentOrderRepository) Create(ctx context.Context, order *fulfillment.FulfillmentOrder) error {
	model := models.FulfillmentOrderModelFromDomain(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if err := appendAudit(tx, order.PendingAuditEntries()); err != nil {
			return err
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fulfillment.NewValidationError(order.ID, "order number %s already exists", order.OrderNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.OrderNumber, err)
	}
	return nil
}

// SaveWithLock saves the order with optimistic locking. The stored version must
// equal order.Version; on success the version is bumped in the store and on the
// aggregate. Pending audit entries and fulfillments are written in the same
// transaction.
func (r *GormFulfillmentOrderRepository) SaveWithLock(ctx context.Context, order *fulfillment.FulfillmentOrder) error {
	nextVersion := order.Version + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.FulfillmentOrderModel{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]any{
				"location_id":          order.LocationID,
				"status":               order.Status,
				"request_status":       order.RequestStatus,
				"request_reason":       order.RequestReason,
				"hold_reason":          order.HoldReason,
				"hold_notes":           order.HoldNotes,
				"hold_previous_status": order.HoldPreviousStatus,
				"fulfill_at":           order.FulfillAt,
				"closed_at":            order.ClosedAt,
				"cancelled_at":         order.CancelledAt,
				"updated_at":           order.UpdatedAt,
				"version":              nextVersion,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.FulfillmentOrderModel{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fulfillment.NewOrderNotFoundError(order.ID)
			}
			return shared.NewDomainErrorf(shared.CodeConcurrentModification,
				"order %s has been modified by another process", order.ID).WithOrder(order.ID)
		}

		for _, line := range order.LineItems {
			if err := tx.Model(&models.LineItemModel{}).
				Where("id = ? AND order_id = ?", line.ID, order.ID).
				Update("fulfilled_quantity", line.FulfilledQuantity).Error; err != nil {
				return err
			}
		}

		if len(order.TrackingEntries) > 0 {
			entries := make([]models.TrackingEntryModel, len(order.TrackingEntries))
			for i, t := range order.TrackingEntries {
				entries[i] = models.TrackingEntryFromDomain(order.ID, t)
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"tracking_number", "carrier_name", "tracking_url", "notified_customer", "updated_at"}),
			}).Create(&entries).Error; err != nil {
				return err
			}
		}

		for _, f := range order.PendingFulfillments() {
			if err := tx.Create(models.FulfillmentFromDomain(f)).Error; err != nil {
				return err
			}
		}

		return appendAudit(tx, order.PendingAuditEntries())
	})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return de
		}
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}

	order.Version = nextVersion
	return nil
}

// withChildren preloads line items in their original order and tracking entries oldest first
func (r *GormFulfillmentOrderRepository) withChildren(query *gorm.DB) *gorm.DB {
	return query.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("TrackingEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

func (r *GormFulfillmentOrderRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Clauses(orderSort.orderBy(filter.OrderBy, filter.OrderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

func (r *GormFulfillmentOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter fulfillment.OrderFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequestStatus != "" {
		query = query.Where("request_status = ?", filter.RequestStatus)
	}
	if filter.LocationID != "" {
		query = query.Where("location_id = ?", filter.LocationID)
	}
	return query
}

// Ensure GormFulfillmentOrderRepository implements fulfillment.OrderRepository
var _ fulfillment.OrderRepository = (*GormFulfillmentOrderRepository)(nil)
