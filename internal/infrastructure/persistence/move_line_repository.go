package persistence

import (
	"context"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMoveLineRepository reads journal entry lines using GORM
type GormMoveLineRepository struct {
	db *gorm.DB
}

// NewGormMoveLineRepository creates a new GormMoveLineRepository
func NewGormMoveLineRepository(db *gorm.DB) *GormMoveLineRepository {
	return &GormMoveLineRepository{db: db}
}

// FindLedgerMoveLines returns the move lines posted for a payment
func (r *GormMoveLineRepository) FindLedgerMoveLines(ctx context.Context, tenantID, paymentID uuid.UUID) ([]payment.MoveLine, error) {
	var rows []models.MoveLineModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]payment.MoveLine, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// FindInvoiceMoveLines returns the move lines of each invoice, keyed by invoice ID
func (r *GormMoveLineRepository) FindInvoiceMoveLines(ctx context.Context, tenantID uuid.UUID, invoiceIDs []uuid.UUID) (map[uuid.UUID][]payment.MoveLine, error) {
	out := make(map[uuid.UUID][]payment.MoveLine, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return out, nil
	}
	var rows []models.MoveLineModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id IN ?", tenantID, invoiceIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].InvoiceID == nil {
			continue
		}
		id := *rows[i].InvoiceID
		out[id] = append(out[id], rows[i].ToDomain())
	}
	return out, nil
}

// SaveLines writes journal entry lines for a tenant
func (r *GormMoveLineRepository) SaveLines(ctx context.Context, tenantID uuid.UUID, lines []payment.MoveLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.MoveLineModel, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, models.MoveLineModelFromDomain(tenantID, l))
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

var _ payment.MoveLineFinder = (*GormMoveLineRepository)(nil)
