package payment

import (
	"context"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentRepository persists payments together with their ordered lines
type PaymentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]Payment, int64, error)
	// Save inserts or updates the payment and replaces its line set
	Save(ctx context.Context, p *Payment) error
	// SaveWithLock saves only if the stored version still equals p.Version,
	// then bumps p.Version
	SaveWithLock(ctx context.Context, p *Payment) error
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	shared.Filter
	State       *PaymentState
	PaymentType *PaymentType
	PartnerID   *uuid.UUID
}

// InvoiceFinder reads invoices from the ledger
type InvoiceFinder interface {
	// FindOpenInvoices returns posted invoices of the given partners and kind
	// with a positive residual, ordered by invoice date
	FindOpenInvoices(ctx context.Context, tenantID uuid.UUID, query OpenInvoiceQuery) ([]InvoiceSummary, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]InvoiceSummary, error)
}

// PartnerFinder resolves partner hierarchies
type PartnerFinder interface {
	FindChildIDs(ctx context.Context, tenantID, partnerID uuid.UUID) ([]uuid.UUID, error)
}

// MoveLineFinder reads ledger move lines
type MoveLineFinder interface {
	FindLedgerMoveLines(ctx context.Context, tenantID, paymentID uuid.UUID) ([]MoveLine, error)
	FindInvoiceMoveLines(ctx context.Context, tenantID uuid.UUID, invoiceIDs []uuid.UUID) (map[uuid.UUID][]MoveLine, error)
}

// ReconciliationRepository stores reconciliation records
type ReconciliationRepository interface {
	CreateReconciliation(ctx context.Context, record *ReconciliationRecord) error
	FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]ReconciliationRecord, error)
}
