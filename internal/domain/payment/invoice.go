package payment

import (
	"time"

	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceSummary is the read-only view of an open invoice used to seed and
// snapshot allocation lines. Invoices themselves are owned by the ledger.
type InvoiceSummary struct {
	ID          uuid.UUID
	Number      string
	PartnerID   uuid.UUID
	Kind        InvoiceKind
	Currency    valueobject.Currency
	AmountTotal decimal.Decimal
	Residual    decimal.Decimal
	InvoiceDate time.Time
}

// OpenInvoiceQuery selects posted invoices whose residual is above MinResidual
type OpenInvoiceQuery struct {
	PartnerIDs []uuid.UUID
	Kind       InvoiceKind
	// MinResidual is exclusive; the zero value keeps every invoice with something left to pay
	MinResidual decimal.Decimal
}

// MoveLine is a ledger entry line. A payment's own lines carry PaymentID,
// an invoice's lines carry InvoiceID.
type MoveLine struct {
	ID        uuid.UUID
	MoveID    uuid.UUID
	PaymentID *uuid.UUID
	InvoiceID *uuid.UUID
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}
