package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/payalloc/internal/domain/fx"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/erp/payalloc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExchangeRateRepository implements fx.ExchangeRateRepository using GORM
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// FindEffective returns the tenant's latest rate for the pair on or before asOf
func (r *GormExchangeRateRepository) FindEffective(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (*fx.ExchangeRate, error) {
	var model models.ExchangeRateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ? AND from_currency = ? AND to_currency = ? AND effective_date <= ?",
			tenantID, companyID, from, to, fx.TruncateDay(asOf)).
		Order("effective_date DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert inserts a rate, or overwrites the rate the tenant already stored for the same pair and day
func (r *GormExchangeRateRepository) Upsert(ctx context.Context, rate *fx.ExchangeRate) error {
	var model models.ExchangeRateModel
	model.FromDomain(rate)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "company_id"}, {Name: "from_currency"}, {Name: "to_currency"}, {Name: "effective_date"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "updated_at"}),
		}).
		Create(&model).Error
}

// List returns the rates of a tenant with the total count before paging
func (r *GormExchangeRateRepository) List(ctx context.Context, tenantID uuid.UUID, filter fx.RateFilter) ([]fx.ExchangeRate, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ExchangeRateModel{}).Where("tenant_id = ?", tenantID)
	if filter.CompanyID != uuid.Nil {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.From != "" {
		query = query.Where("from_currency = ?", filter.From)
	}
	if filter.To != "" {
		query = query.Where("to_currency = ?", filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, ExchangeRateSortFields, "effective_date")
	query = query.Order(fmt.Sprintf("%s %s", sortField, ValidateSortOrder(filter.OrderDir)))
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if offset := filter.Offset(); offset > 0 {
			query = query.Offset(offset)
		}
	}

	var rows []models.ExchangeRateModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	rates := make([]fx.ExchangeRate, 0, len(rows))
	for i := range rows {
		rates = append(rates, *rows[i].ToDomain())
	}
	return rates, total, nil
}

var _ fx.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
