package persistence

import (
	"context"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartnerRepository resolves partner hierarchies using GORM
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewGormPartnerRepository creates a new GormPartnerRepository
func NewGormPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// FindChildIDs returns the direct children of a partner
func (r *GormPartnerRepository) FindChildIDs(ctx context.Context, tenantID, partnerID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	if err := r.db.WithContext(ctx).
		Model(&models.PartnerModel{}).
		Where("tenant_id = ? AND parent_id = ?", tenantID, partnerID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates or updates a partner
func (r *GormPartnerRepository) Save(ctx context.Context, partner *models.PartnerModel) error {
	return r.db.WithContext(ctx).Save(partner).Error
}

var _ payment.PartnerFinder = (*GormPartnerRepository)(nil)
