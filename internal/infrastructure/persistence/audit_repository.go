package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements fulfillment.AuditRepository using GORM.
// Entries are inserted by appendAudit inside the order save transaction.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// FindByOrderID returns an order's entries ordered by PerformedAt then Sequence
func (r *GormAuditRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.AuditEntry, error) {
	var rows []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("performed_at ASC").
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]fulfillment.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// appendAudit inserts entries inside an existing transaction, one row at a
// time so the sequence follows slice order
func appendAudit(tx *gorm.DB, entries []fulfillment.AuditEntry) error {
	for _, e := range entries {
		if err := tx.Create(models.AuditEntryFromDomain(e)).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormAuditRepository implements fulfillment.AuditRepository
var _ fulfillment.AuditRepository = (*GormAuditRepository)(nil)
