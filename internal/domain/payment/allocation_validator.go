package payment

import (
	"fmt"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultAllocationTolerance is how far the selected total may exceed the
// payment amount. It absorbs per-line conversion drift; the engine itself
// never exceeds the payment amount except through that drift.
var DefaultAllocationTolerance = decimal.RequireFromString("0.05")

// AllocationValidator enforces line and payment bounds
type AllocationValidator struct {
	tolerance decimal.Decimal
}

// ValidatorOption configures an AllocationValidator
type ValidatorOption func(*AllocationValidator)

// WithTolerance overrides the over-allocation tolerance
func WithTolerance(tolerance decimal.Decimal) ValidatorOption {
	return func(v *AllocationValidator) {
		if !tolerance.IsNegative() {
			v.tolerance = tolerance
		}
	}
}

// NewAllocationValidator creates a validator with the default tolerance unless overridden
func NewAllocationValidator(opts ...ValidatorOption) *AllocationValidator {
	v := &AllocationValidator{tolerance: DefaultAllocationTolerance}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Tolerance returns the configured tolerance
func (v *AllocationValidator) Tolerance() decimal.Decimal {
	return v.tolerance
}

// ValidateLine checks 0 <= amount <= residual
func (v *AllocationValidator) ValidateLine(line AllocationLine) error {
	if line.Amount.IsNegative() {
		return shared.NewDomainError(CodeNegativeAllocation,
			fmt.Sprintf("Amount to pay cannot be negative (invoice %s)", line.InvoiceNumber))
	}
	if line.Amount.GreaterThan(line.Residual) {
		return shared.NewDomainError(CodeAllocationExceedsResidual,
			fmt.Sprintf("Amount to pay cannot exceed the amount due (invoice %s)", line.InvoiceNumber))
	}
	return nil
}

// ValidatePayment checks every line, then that the selected total does not
// exceed the payment amount by more than the tolerance. A payment without
// lines is always valid.
func (v *AllocationValidator) ValidatePayment(p *Payment) error {
	for _, line := range p.Lines {
		if err := v.ValidateLine(line); err != nil {
			return err
		}
	}
	if len(p.Lines) == 0 {
		return nil
	}
	over := p.SelectedInvoiceTotal().Sub(p.Amount)
	if over.GreaterThan(v.tolerance) {
		return shared.NewDomainError(CodeAllocationExceedsPayment,
			fmt.Sprintf("Selected invoices exceed the payment amount by %s (payment %s)", over.String(), p.DisplayName()))
	}
	return nil
}
