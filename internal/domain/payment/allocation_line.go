package payment

import (
	"time"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationLine is one invoice selected for payment. AmountTotal and
// Residual are snapshots taken when the line was created, not live values.
type AllocationLine struct {
	ID              uuid.UUID
	PaymentID       uuid.UUID
	InvoiceID       uuid.UUID
	InvoiceNumber   string
	InvoiceCurrency valueobject.Currency
	InvoiceDate     time.Time
	AmountTotal     decimal.Decimal
	Residual        decimal.Decimal
	// Amount is the portion of the invoice being paid, in invoice currency
	Amount decimal.Decimal
	// ActualAmount is Amount expressed in payment currency at the payment date
	ActualAmount decimal.Decimal
}

// NewAllocationLine creates an unallocated line snapshotting inv
func NewAllocationLine(paymentID uuid.UUID, inv InvoiceSummary) AllocationLine {
	return AllocationLine{
		ID:              uuid.New(),
		PaymentID:       paymentID,
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		InvoiceCurrency: inv.Currency,
		InvoiceDate:     inv.InvoiceDate,
		AmountTotal:     inv.AmountTotal,
		Residual:        inv.Residual,
		Amount:          decimal.Zero,
		ActualAmount:    decimal.Zero,
	}
}

// Snapshot refreshes AmountTotal and Residual from the invoice.
// A nil invoice (no longer resolvable) zeroes both.
func (l *AllocationLine) Snapshot(inv *InvoiceSummary) error {
	if inv == nil {
		l.AmountTotal = decimal.Zero
		l.Residual = decimal.Zero
		return nil
	}
	if inv.ID != l.InvoiceID {
		return shared.NewDomainError("INVOICE_MISMATCH", "Cannot snapshot a different invoice onto line "+l.InvoiceNumber)
	}
	l.AmountTotal = inv.AmountTotal
	l.Residual = inv.Residual
	l.InvoiceCurrency = inv.Currency
	return nil
}

// IsAllocated returns true when some amount is being paid on the line
func (l *AllocationLine) IsAllocated() bool {
	return l.Amount.IsPositive()
}

// IsFullyPaid returns true when the line settles the whole residual
func (l *AllocationLine) IsFullyPaid() bool {
	return l.Residual.IsPositive() && l.Amount.GreaterThanOrEqual(l.Residual)
}
