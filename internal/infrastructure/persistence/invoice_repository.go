package persistence

import (
	"context"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository reads ledger invoices using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindOpenInvoices returns posted invoices of the partners with a residual
// above query.MinResidual, oldest first. Ties on date are broken by number so seeding is stable.
func (r *GormInvoiceRepository) FindOpenInvoices(ctx context.Context, tenantID uuid.UUID, query payment.OpenInvoiceQuery) ([]payment.InvoiceSummary, error) {
	if len(query.PartnerIDs) == 0 {
		return []payment.InvoiceSummary{}, nil
	}
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND partner_id IN ? AND kind = ? AND state = ? AND amount_residual > ?",
			tenantID, query.PartnerIDs, query.Kind, models.InvoiceStatePosted, query.MinResidual).
		Order("invoice_date ASC, number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toSummaries(rows), nil
}

// FindByIDs returns the invoices that still exist among ids, in no particular order
func (r *GormInvoiceRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]payment.InvoiceSummary, error) {
	if len(ids) == 0 {
		return []payment.InvoiceSummary{}, nil
	}
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toSummaries(rows), nil
}

// Save creates or updates a ledger invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *models.InvoiceModel) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func toSummaries(rows []models.InvoiceModel) []payment.InvoiceSummary {
	out := make([]payment.InvoiceSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToSummary())
	}
	return out
}

var _ payment.InvoiceFinder = (*GormInvoiceRepository)(nil)
