package orders

import (
	"errors"
	"fmt"

	"mesa-system/internal/database/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextOrderNumber returns max(order_number)+1 for the tenant. tx must be an
// open transaction: the tenant row stays locked until it ends, which
// serializes order creation per tenant without blocking other tenants.
func NextOrderNumber(tx *gorm.DB, tenantID string) (int64, error) {
	_, n, err := allocateOrderNumber(tx, tenantID)
	return n, err
}

func allocateOrderNumber(tx *gorm.DB, tenantID string) (*models.Tenant, int64, error) {
	if _, ok := tx.Statement.ConnPool.(gorm.TxCommitter); !ok {
		return nil, 0, ErrNoTransaction
	}

	var t models.Tenant
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", tenantID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, ErrTenantNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("lock tenant: %w", err)
	}

	var last int64
	if err := tx.Model(&models.Order{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(MAX(order_number), 0)").
		Scan(&last).Error; err != nil {
		return nil, 0, fmt.Errorf("max order number: %w", err)
	}
	return &t, last + 1, nil
}
