package payment

import (
	"context"
	"time"

	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationRecord is a partial reconciliation between an invoice move
// line (debit side) and a payment settlement line (credit side).
// Amount is in company currency; AmountCurrency is in payment currency and
// only set, together with Currency, when the payment is in a foreign currency.
// Both are negative for outbound payments.
type ReconciliationRecord struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	PaymentID        uuid.UUID
	InvoiceID        uuid.UUID
	DebitMoveLineID  uuid.UUID
	CreditMoveLineID uuid.UUID
	Amount           decimal.Decimal
	AmountCurrency   decimal.Decimal
	Currency         *valueobject.Currency
	CreatedAt        time.Time
}

// ReconcileInput gathers everything the engine needs for one payment
type ReconcileInput struct {
	Payment *Payment
	// PaymentMoveLines are the ledger lines generated by posting the payment
	PaymentMoveLines []MoveLine
	// InvoiceMoveLines maps invoice ID to that invoice's ledger lines
	InvoiceMoveLines map[uuid.UUID][]MoveLine
}

// ReconciliationEngine pairs allocated invoices with the payment's settlement lines
type ReconciliationEngine struct {
	converter CurrencyConverter
}

// NewReconciliationEngine creates an engine converting to company currency through converter
func NewReconciliationEngine(converter CurrencyConverter) *ReconciliationEngine {
	return &ReconciliationEngine{converter: converter}
}

// SettlementLines picks the payment lines that settle invoices: debit lines
// for outbound payments, credit lines for inbound ones.
func SettlementLines(paymentType PaymentType, lines []MoveLine) []MoveLine {
	out := make([]MoveLine, 0, len(lines))
	for _, l := range lines {
		if paymentType == PaymentTypeOutbound && l.Debit.IsPositive() {
			out = append(out, l)
		}
		if paymentType == PaymentTypeInbound && l.Credit.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}

// Build produces one record per (allocated line, settlement line, invoice
// move line on the same account). Combinations with no account match are
// skipped. A payment with no allocated line yields no records.
func (e *ReconciliationEngine) Build(ctx context.Context, in ReconcileInput) ([]ReconciliationRecord, error) {
	p := in.Payment
	records := make([]ReconciliationRecord, 0)
	allocated := p.AllocatedLines()
	if len(allocated) == 0 {
		return records, nil
	}

	settlement := SettlementLines(p.PaymentType, in.PaymentMoveLines)
	if len(settlement) == 0 {
		return records, nil
	}

	sign := decimal.NewFromInt(p.PaymentType.sign())
	foreign := p.Currency != p.Company.Currency
	now := time.Now()

	for _, line := range allocated {
		invoiceLines := in.InvoiceMoveLines[line.InvoiceID]
		var (
			amount, amountCurrency decimal.Decimal
			computed               bool
		)
		for _, s := range settlement {
			for _, inv := range invoiceLines {
				if inv.AccountID != s.AccountID {
					continue
				}
				if !computed {
					var err error
					amount, amountCurrency, err = e.unsignedAmounts(ctx, p, line, foreign)
					if err != nil {
						return nil, err
					}
					computed = true
				}
				rec := ReconciliationRecord{
					ID:               uuid.New(),
					TenantID:         p.TenantID,
					PaymentID:        p.ID,
					InvoiceID:        line.InvoiceID,
					DebitMoveLineID:  inv.ID,
					CreditMoveLineID: s.ID,
					Amount:           amount.Mul(sign),
					AmountCurrency:   amountCurrency.Mul(sign),
					CreatedAt:        now,
				}
				if foreign {
					cur := p.Currency
					rec.Currency = &cur
				}
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

// unsignedAmounts returns (company-currency amount, payment-currency amount).
// In company currency the second value is zero.
func (e *ReconciliationEngine) unsignedAmounts(ctx context.Context, p *Payment, line AllocationLine, foreign bool) (decimal.Decimal, decimal.Decimal, error) {
	if !foreign {
		return line.ActualAmount, decimal.Zero, nil
	}
	amount, err := convert(ctx, e.converter, line.ActualAmount, p.Currency, p.Company.Currency, scopeOf(p))
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return amount, line.ActualAmount, nil
}
