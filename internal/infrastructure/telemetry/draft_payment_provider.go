package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDraftPaymentProvider implements DraftPaymentProvider over the payments table.
type GormDraftPaymentProvider struct {
	db *gorm.DB
}

// NewGormDraftPaymentProvider creates a GormDraftPaymentProvider.
func NewGormDraftPaymentProvider(db *gorm.DB) *GormDraftPaymentProvider {
	return &GormDraftPaymentProvider{db: db}
}

// GetActiveTenantIDs returns every tenant that owns at least one payment.
func (p *GormDraftPaymentProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("payments").
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountDraftPayments counts the tenant's payments that are still editable.
func (p *GormDraftPaymentProvider) CountDraftPayments(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("payments").
		Where("tenant_id = ? AND state = ?", tenantID, "draft").
		Count(&count).Error
	return count, err
}
