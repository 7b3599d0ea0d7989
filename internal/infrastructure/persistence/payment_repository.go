package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements payment.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// FindByIDForTenant loads a payment and its lines in waterfall order
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists payments of a tenant with the total count before paging
func (r *GormPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter payment.PaymentFilter) ([]payment.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("tenant_id = ?", tenantID)
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.PaymentType != nil {
		query = query.Where("payment_type = ?", *filter.PaymentType)
	}
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, PaymentSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder))
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if offset := filter.Offset(); offset > 0 {
			query = query.Offset(offset)
		}
	}

	var rows []models.PaymentModel
	if err := query.Preload("Lines", orderedLines).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	payments := make([]payment.Payment, 0, len(rows))
	for i := range rows {
		payments = append(payments, *rows[i].ToDomain())
	}
	return payments, total, nil
}

// Save inserts or updates the payment header and replaces its line set
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	model := models.PaymentModelFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(model).Error; err != nil {
			return err
		}
		return replaceLines(tx, model)
	})
}

// SaveWithLock updates the payment only if nobody saved it since it was
// loaded. On success p.Version is incremented.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	model := models.PaymentModelFromDomain(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentModel{}).
			Where("tenant_id = ? AND id = ? AND version = ?", p.TenantID, p.ID, p.Version).
			Updates(map[string]any{
				"reference":        model.Reference,
				"state":            model.State,
				"partner_id":       model.PartnerID,
				"amount":           model.Amount,
				"currency":         model.Currency,
				"payment_date":     model.PaymentDate,
				"company_id":       model.CompanyID,
				"company_currency": model.CompanyCurrency,
				"posted_at":        model.PostedAt,
				"reconciled_at":    model.ReconciledAt,
				"cancelled_at":     model.CancelledAt,
				"version":          p.Version + 1,
				"updated_at":       model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENCY_CONFLICT",
				fmt.Sprintf("Payment %s was modified by another process", p.DisplayName()))
		}
		return replaceLines(tx, model)
	})
	if err != nil {
		return err
	}
	p.IncrementVersion()
	return nil
}

func replaceLines(tx *gorm.DB, model *models.PaymentModel) error {
	if err := tx.Where("payment_id = ?", model.ID).Delete(&models.AllocationLineModel{}).Error; err != nil {
		return err
	}
	if len(model.Lines) == 0 {
		return nil
	}
	return tx.Create(&model.Lines).Error
}

var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)
