package payment

import (
	"fmt"
	"time"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the aggregate root for a single payment allocated across many
// invoices. Lines are ordered and the order drives the allocation waterfall.
type Payment struct {
	shared.TenantAggregateRoot
	Reference    string
	PaymentType  PaymentType
	State        PaymentState
	PartnerID    *uuid.UUID
	Amount       decimal.Decimal
	Currency     valueobject.Currency
	PaymentDate  time.Time
	Company      Company
	Lines        []AllocationLine
	PostedAt     *time.Time
	ReconciledAt *time.Time
	CancelledAt  *time.Time
}

// NewPaymentParams holds the fields required to open a draft payment
type NewPaymentParams struct {
	Reference   string
	PaymentType PaymentType
	PartnerID   *uuid.UUID
	Amount      decimal.Decimal
	Currency    valueobject.Currency
	PaymentDate time.Time
	Company     Company
}

// NewPayment creates a new draft payment with no lines
func NewPayment(tenantID uuid.UUID, params NewPaymentParams) (*Payment, error) {
	if !params.PaymentType.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidPaymentType, "Payment type must be inbound or outbound")
	}
	if !params.Currency.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidCurrency, "Payment currency is not valid")
	}
	if params.Company.ID == uuid.Nil || !params.Company.Currency.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidCompany, "Company and company currency are required")
	}
	if params.PaymentDate.IsZero() {
		return nil, shared.NewDomainError(CodeInvalidPaymentDate, "Payment date is required")
	}
	if len(params.Reference) > 64 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference cannot exceed 64 characters")
	}

	p := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Reference:           params.Reference,
		PaymentType:         params.PaymentType,
		State:               PaymentStateDraft,
		PartnerID:           params.PartnerID,
		Amount:              params.Amount,
		Currency:            params.Currency,
		PaymentDate:         params.PaymentDate,
		Company:             params.Company,
		Lines:               make([]AllocationLine, 0),
	}
	p.AddDomainEvent(NewPaymentCreatedEvent(p))
	return p, nil
}

// DisplayName identifies the payment in messages
func (p *Payment) DisplayName() string {
	if p.Reference != "" {
		return p.Reference
	}
	return p.ID.String()
}

// SelectedInvoiceTotal is the sum of the lines' actual amounts, in payment currency
func (p *Payment) SelectedInvoiceTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Lines {
		total = total.Add(p.Lines[i].ActualAmount)
	}
	return total
}

// Balance is the unassigned part of the payment, in payment currency.
// It is negative when lines are over-assigned. Converting payment currency
// into itself is the identity, so no converter is involved.
func (p *Payment) Balance() decimal.Decimal {
	if p.Company.ID == uuid.Nil {
		return decimal.Zero
	}
	return p.Amount.Sub(p.SelectedInvoiceTotal())
}

func (p *Payment) ensureEditable() error {
	if !p.State.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify payment in %s state", p.State))
	}
	return nil
}

// SetAmount changes the payment amount. The allocation must be recomputed afterwards.
func (p *Payment) SetAmount(amount decimal.Decimal) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	p.Amount = amount
	p.Touch()
	return nil
}

// SetPaymentDate changes the conversion date. The allocation must be recomputed afterwards.
func (p *Payment) SetPaymentDate(date time.Time) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	if date.IsZero() {
		return shared.NewDomainError(CodeInvalidPaymentDate, "Payment date is required")
	}
	p.PaymentDate = date
	p.Touch()
	return nil
}

// SetCurrency changes the payment currency. The allocation must be recomputed afterwards.
func (p *Payment) SetCurrency(currency valueobject.Currency) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	if !currency.IsValid() {
		return shared.NewDomainError(CodeInvalidCurrency, "Payment currency is not valid")
	}
	p.Currency = currency
	p.Touch()
	return nil
}

// ReplaceLines discards the current lines and seeds one unallocated line per
// invoice, keeping the given order.
func (p *Payment) ReplaceLines(invoices []InvoiceSummary) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool, len(invoices))
	lines := make([]AllocationLine, 0, len(invoices))
	for _, inv := range invoices {
		if seen[inv.ID] {
			return shared.NewDomainError(CodeDuplicateInvoice, "Invoice "+inv.Number+" is selected more than once")
		}
		seen[inv.ID] = true
		lines = append(lines, NewAllocationLine(p.ID, inv))
	}
	p.Lines = lines
	p.Touch()
	return nil
}

// ClearLines removes every line
func (p *Payment) ClearLines() error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	p.Lines = make([]AllocationLine, 0)
	p.Touch()
	return nil
}

// Line returns the line with the given ID
func (p *Payment) Line(lineID uuid.UUID) (*AllocationLine, error) {
	for i := range p.Lines {
		if p.Lines[i].ID == lineID {
			return &p.Lines[i], nil
		}
	}
	return nil, ErrLineNotFound
}

// SetLineAmount overrides one line's amount by hand. Bounds are not checked
// here; run the AllocationValidator before persisting.
func (p *Payment) SetLineAmount(lineID uuid.UUID, amount decimal.Decimal) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	line, err := p.Line(lineID)
	if err != nil {
		return err
	}
	line.Amount = amount
	p.Touch()
	return nil
}

// AllocatedLines returns the lines with a positive amount, in order
func (p *Payment) AllocatedLines() []AllocationLine {
	out := make([]AllocationLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		if l.IsAllocated() {
			out = append(out, l)
		}
	}
	return out
}

// InvoiceIDs returns the invoice of every line, in order
func (p *Payment) InvoiceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Lines))
	for _, l := range p.Lines {
		ids = append(ids, l.InvoiceID)
	}
	return ids
}

// Copy duplicates the payment as a new draft. Lines are never copied.
func (p *Payment) Copy() *Payment {
	dup := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID),
		Reference:           p.Reference,
		PaymentType:         p.PaymentType,
		State:               PaymentStateDraft,
		Amount:              p.Amount,
		Currency:            p.Currency,
		PaymentDate:         p.PaymentDate,
		Company:             p.Company,
		Lines:               make([]AllocationLine, 0),
	}
	if p.PartnerID != nil {
		partner := *p.PartnerID
		dup.PartnerID = &partner
	}
	dup.AddDomainEvent(NewPaymentCreatedEvent(dup))
	return dup
}

// Post moves the payment from draft to posted
func (p *Payment) Post() error {
	if !p.State.CanPost() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post payment in %s state", p.State))
	}
	if !p.Amount.IsPositive() {
		return shared.NewDomainError(CodeInvalidAmount, "Payment amount must be positive to post")
	}
	now := time.Now()
	p.State = PaymentStatePosted
	p.PostedAt = &now
	p.Touch()
	p.AddDomainEvent(NewPaymentPostedEvent(p))
	return nil
}

// MarkReconciled records that reconciliation records were written for the payment
func (p *Payment) MarkReconciled(records []ReconciliationRecord) error {
	if p.State == PaymentStateReconciled {
		return shared.NewDomainError(CodeAlreadyReconciled, "Payment "+p.DisplayName()+" is already reconciled")
	}
	if !p.State.CanReconcile() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reconcile payment in %s state", p.State))
	}
	now := time.Now()
	p.State = PaymentStateReconciled
	p.ReconciledAt = &now
	p.Touch()
	p.AddDomainEvent(NewPaymentReconciledEvent(p, records))
	return nil
}

// Cancel cancels a draft or posted payment
func (p *Payment) Cancel() error {
	if !p.State.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel payment in %s state", p.State))
	}
	now := time.Now()
	p.State = PaymentStateCancelled
	p.CancelledAt = &now
	p.Touch()
	return nil
}
