package persistence

import (
	"context"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReconciliationRepository stores reconciliation records using GORM
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// CreateReconciliation inserts one record
func (r *GormReconciliationRepository) CreateReconciliation(ctx context.Context, record *payment.ReconciliationRecord) error {
	var model models.ReconciliationRecordModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByPayment lists the records written for a payment
func (r *GormReconciliationRepository) FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]payment.ReconciliationRecord, error) {
	var rows []models.ReconciliationRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]payment.ReconciliationRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

var _ payment.ReconciliationRepository = (*GormReconciliationRepository)(nil)
