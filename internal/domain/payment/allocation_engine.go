package payment

import (
	"context"
	"time"

	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationEngine distributes a payment amount across its invoice lines.
//
// The distribution is a greedy waterfall in line order: each line takes as
// much as it can absorb (up to its residual) from what is left of the
// payment, converted into the line's currency at the payment date. Lines the
// waterfall does not reach get zero.
type AllocationEngine struct {
	converter CurrencyConverter
}

// NewAllocationEngine creates an engine that converts through converter
func NewAllocationEngine(converter CurrencyConverter) *AllocationEngine {
	return &AllocationEngine{converter: converter}
}

// waterfallLine is the minimal view of a line the waterfall needs
type waterfallLine struct {
	Currency valueobject.Currency
	Residual decimal.Decimal
}

// waterfallContext carries the payment-level conversion parameters
type waterfallContext struct {
	Amount   decimal.Decimal
	Currency valueobject.Currency
	Scope    conversionScope
}

// Recompute overwrites Amount and ActualAmount on every line of p.
// On a conversion failure the lines are left exactly as they were.
func (e *AllocationEngine) Recompute(ctx context.Context, p *Payment) error {
	wc := waterfallContext{Amount: p.Amount, Currency: p.Currency, Scope: scopeOf(p)}
	lines := make([]waterfallLine, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = waterfallLine{Currency: l.InvoiceCurrency, Residual: l.Residual}
	}

	amounts, _, err := e.waterfall(ctx, wc, lines)
	if err != nil {
		return err
	}
	actuals, err := e.actualAmounts(ctx, wc, lines, amounts)
	if err != nil {
		return err
	}

	for i := range p.Lines {
		p.Lines[i].Amount = amounts[i]
		p.Lines[i].ActualAmount = actuals[i]
	}
	return nil
}

// RefreshActualAmounts recomputes ActualAmount from the current Amount of
// every line, leaving Amount untouched. Used after manual overrides.
func (e *AllocationEngine) RefreshActualAmounts(ctx context.Context, p *Payment) error {
	wc := waterfallContext{Amount: p.Amount, Currency: p.Currency, Scope: scopeOf(p)}
	lines := make([]waterfallLine, len(p.Lines))
	amounts := make([]decimal.Decimal, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = waterfallLine{Currency: l.InvoiceCurrency, Residual: l.Residual}
		amounts[i] = l.Amount
	}
	actuals, err := e.actualAmounts(ctx, wc, lines, amounts)
	if err != nil {
		return err
	}
	for i := range p.Lines {
		p.Lines[i].ActualAmount = actuals[i]
	}
	return nil
}

// ActualAmount converts a line amount into payment currency. Non-positive
// amounts map to zero without consulting the converter.
func (e *AllocationEngine) ActualAmount(ctx context.Context, p *Payment, line AllocationLine) (decimal.Decimal, error) {
	if !line.Amount.IsPositive() {
		return decimal.Zero, nil
	}
	return convert(ctx, e.converter, line.Amount, line.InvoiceCurrency, p.Currency, scopeOf(p))
}

// waterfall returns the per-line amounts in invoice currency and what is left
// of the payment, in payment currency.
func (e *AllocationEngine) waterfall(ctx context.Context, wc waterfallContext, lines []waterfallLine) ([]decimal.Decimal, decimal.Decimal, error) {
	amounts := make([]decimal.Decimal, len(lines))
	for i := range amounts {
		amounts[i] = decimal.Zero
	}
	if !wc.Amount.IsPositive() {
		return amounts, decimal.Zero, nil
	}

	remaining := wc.Amount
	for i, line := range lines {
		if !remaining.IsPositive() {
			break
		}
		couldBuy, err := convert(ctx, e.converter, remaining, wc.Currency, line.Currency, wc.Scope)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if line.Residual.LessThan(couldBuy) {
			amounts[i] = line.Residual
			spent, err := convert(ctx, e.converter, line.Residual, line.Currency, wc.Currency, wc.Scope)
			if err != nil {
				return nil, decimal.Zero, err
			}
			remaining = remaining.Sub(spent)
			continue
		}
		amounts[i] = couldBuy
		remaining = decimal.Zero
	}
	return amounts, remaining, nil
}

func (e *AllocationEngine) actualAmounts(ctx context.Context, wc waterfallContext, lines []waterfallLine, amounts []decimal.Decimal) ([]decimal.Decimal, error) {
	actuals := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		if !amounts[i].IsPositive() {
			actuals[i] = decimal.Zero
			continue
		}
		actual, err := convert(ctx, e.converter, amounts[i], line.Currency, wc.Currency, wc.Scope)
		if err != nil {
			return nil, err
		}
		actuals[i] = actual
	}
	return actuals, nil
}

// PreviewLine is a candidate invoice for a stateless allocation preview
type PreviewLine struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Currency      valueobject.Currency
	Residual      decimal.Decimal
}

// PreviewInput describes a payment that has not been saved
type PreviewInput struct {
	TenantID    uuid.UUID
	Amount      decimal.Decimal
	Currency    valueobject.Currency
	Company     Company
	PaymentDate time.Time
	Lines       []PreviewLine
}

// PreviewAllocation is the outcome for one preview line
type PreviewAllocation struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Currency      valueobject.Currency
	Residual      decimal.Decimal
	Amount        decimal.Decimal
	ActualAmount  decimal.Decimal
}

// AllocationPreview is the complete result of a preview
type AllocationPreview struct {
	Allocations           []PreviewAllocation
	TotalAllocated        decimal.Decimal // sum of actual amounts, payment currency
	RemainingAmount       decimal.Decimal // waterfall leftover, payment currency
	FullyAllocated        bool
	InvoicesFullyPaid     []uuid.UUID
	InvoicesPartiallyPaid []uuid.UUID
}

// Preview runs the waterfall on detached inputs without touching any aggregate
func (e *AllocationEngine) Preview(ctx context.Context, in PreviewInput) (*AllocationPreview, error) {
	wc := waterfallContext{
		Amount:   in.Amount,
		Currency: in.Currency,
		Scope:    conversionScope{TenantID: in.TenantID, Company: in.Company, Date: in.PaymentDate},
	}
	lines := make([]waterfallLine, len(in.Lines))
	for i, l := range in.Lines {
		lines[i] = waterfallLine{Currency: l.Currency, Residual: l.Residual}
	}

	amounts, remaining, err := e.waterfall(ctx, wc, lines)
	if err != nil {
		return nil, err
	}
	actuals, err := e.actualAmounts(ctx, wc, lines, amounts)
	if err != nil {
		return nil, err
	}

	result := &AllocationPreview{
		Allocations:           make([]PreviewAllocation, 0, len(in.Lines)),
		TotalAllocated:        decimal.Zero,
		RemainingAmount:       remaining,
		InvoicesFullyPaid:     make([]uuid.UUID, 0),
		InvoicesPartiallyPaid: make([]uuid.UUID, 0),
	}
	for i, l := range in.Lines {
		result.Allocations = append(result.Allocations, PreviewAllocation{
			InvoiceID:     l.InvoiceID,
			InvoiceNumber: l.InvoiceNumber,
			Currency:      l.Currency,
			Residual:      l.Residual,
			Amount:        amounts[i],
			ActualAmount:  actuals[i],
		})
		result.TotalAllocated = result.TotalAllocated.Add(actuals[i])
		if !amounts[i].IsPositive() {
			continue
		}
		if amounts[i].GreaterThanOrEqual(l.Residual) {
			result.InvoicesFullyPaid = append(result.InvoicesFullyPaid, l.InvoiceID)
		} else {
			result.InvoicesPartiallyPaid = append(result.InvoicesPartiallyPaid, l.InvoiceID)
		}
	}
	result.FullyAllocated = in.Amount.IsPositive() && !remaining.IsPositive()
	return result, nil
}
