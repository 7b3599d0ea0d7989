package payment

import (
	"time"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const aggregateType = "Payment"

// Event type names
const (
	EventTypePaymentCreated    = "PaymentCreated"
	EventTypePaymentAllocated  = "PaymentAllocated"
	EventTypePaymentPosted     = "PaymentPosted"
	EventTypePaymentReconciled = "PaymentReconciled"
)

// PaymentCreatedEvent is raised when a draft payment is opened or copied
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID            `json:"payment_id"`
	Reference   string               `json:"reference"`
	PaymentType PaymentType          `json:"payment_type"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    valueobject.Currency `json:"currency"`
}

func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, aggregateType, p.ID, p.TenantID),
		PaymentID:       p.ID,
		Reference:       p.Reference,
		PaymentType:     p.PaymentType,
		Amount:          p.Amount,
		Currency:        p.Currency,
	}
}

// AllocatedInvoice is one line of a PaymentAllocatedEvent
type AllocatedInvoice struct {
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	Amount       decimal.Decimal `json:"amount"`
	ActualAmount decimal.Decimal `json:"actual_amount"`
}

// PaymentAllocatedEvent is raised after the lines of a payment were recomputed and validated
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID          `json:"payment_id"`
	Amount        decimal.Decimal    `json:"amount"`
	SelectedTotal decimal.Decimal    `json:"selected_total"`
	Balance       decimal.Decimal    `json:"balance"`
	Invoices      []AllocatedInvoice `json:"invoices"`
}

func NewPaymentAllocatedEvent(p *Payment) *PaymentAllocatedEvent {
	invoices := make([]AllocatedInvoice, 0, len(p.Lines))
	for _, l := range p.AllocatedLines() {
		invoices = append(invoices, AllocatedInvoice{
			InvoiceID:    l.InvoiceID,
			Amount:       l.Amount,
			ActualAmount: l.ActualAmount,
		})
	}
	return &PaymentAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentAllocated, aggregateType, p.ID, p.TenantID),
		PaymentID:       p.ID,
		Amount:          p.Amount,
		SelectedTotal:   p.SelectedInvoiceTotal(),
		Balance:         p.Balance(),
		Invoices:        invoices,
	}
}

// PaymentPostedEvent is raised when a payment leaves draft
type PaymentPostedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID `json:"payment_id"`
	PostedAt  time.Time `json:"posted_at"`
}

func NewPaymentPostedEvent(p *Payment) *PaymentPostedEvent {
	var postedAt time.Time
	if p.PostedAt != nil {
		postedAt = *p.PostedAt
	}
	return &PaymentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentPosted, aggregateType, p.ID, p.TenantID),
		PaymentID:       p.ID,
		PostedAt:        postedAt,
	}
}

// PaymentReconciledEvent is raised once reconciliation records were persisted
type PaymentReconciledEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID       `json:"payment_id"`
	RecordCount  int             `json:"record_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ReconciledAt time.Time       `json:"reconciled_at"`
}

func NewPaymentReconciledEvent(p *Payment, records []ReconciliationRecord) *PaymentReconciledEvent {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	var at time.Time
	if p.ReconciledAt != nil {
		at = *p.ReconciledAt
	}
	return &PaymentReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReconciled, aggregateType, p.ID, p.TenantID),
		PaymentID:       p.ID,
		RecordCount:     len(records),
		TotalAmount:     total,
		ReconciledAt:    at,
	}
}
