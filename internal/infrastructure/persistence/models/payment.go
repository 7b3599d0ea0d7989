package models

import (
	"cmp"
	"slices"
	"time"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	TenantAggregateModel
	Reference       string               `gorm:"type:varchar(64);index"`
	PaymentType     payment.PaymentType  `gorm:"type:varchar(20);not null;index"`
	State           payment.PaymentState `gorm:"type:varchar(20);not null;default:'draft';index"`
	PartnerID       *uuid.UUID           `gorm:"type:uuid;index"`
	Amount          decimal.Decimal      `gorm:"type:decimal(28,10);not null"`
	Currency        valueobject.Currency `gorm:"type:varchar(3);not null"`
	PaymentDate     time.Time            `gorm:"type:date;not null"`
	CompanyID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	CompanyCurrency valueobject.Currency `gorm:"type:varchar(3);not null"`
	PostedAt        *time.Time
	ReconciledAt    *time.Time
	CancelledAt     *time.Time
	Lines           []AllocationLineModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment. Lines are
// returned in sequence order.
func (m *PaymentModel) ToDomain() *payment.Payment {
	p := &payment.Payment{
		Reference:   m.Reference,
		PaymentType: m.PaymentType,
		State:       m.State,
		PartnerID:   m.PartnerID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		PaymentDate: m.PaymentDate,
		Company: payment.Company{
			ID:       m.CompanyID,
			Currency: m.CompanyCurrency,
		},
		PostedAt:     m.PostedAt,
		ReconciledAt: m.ReconciledAt,
		CancelledAt:  m.CancelledAt,
		Lines:        make([]payment.AllocationLine, 0, len(m.Lines)),
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	slices.SortStableFunc(m.Lines, func(a, b AllocationLineModel) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})
	for i := range m.Lines {
		p.Lines = append(p.Lines, m.Lines[i].ToDomain())
	}
	return p
}

// FromDomain populates the model from a domain Payment, numbering lines in order.
func (m *PaymentModel) FromDomain(p *payment.Payment) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Reference = p.Reference
	m.PaymentType = p.PaymentType
	m.State = p.State
	m.PartnerID = p.PartnerID
	m.Amount = p.Amount
	m.Currency = p.Currency
	m.PaymentDate = p.PaymentDate
	m.CompanyID = p.Company.ID
	m.CompanyCurrency = p.Company.Currency
	m.PostedAt = p.PostedAt
	m.ReconciledAt = p.ReconciledAt
	m.CancelledAt = p.CancelledAt
	m.Lines = make([]AllocationLineModel, len(p.Lines))
	for i := range p.Lines {
		m.Lines[i].FromDomain(&p.Lines[i], i)
		m.Lines[i].PaymentID = p.ID
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AllocationLineModel is one invoice line of a payment. Sequence preserves
// the waterfall order.
type AllocationLineModel struct {
	ID              uuid.UUID            `gorm:"type:uuid;primary_key"`
	PaymentID       uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_line_payment_seq,priority:1;uniqueIndex:idx_allocation_line_payment_invoice,priority:1"`
	Sequence        int                  `gorm:"not null;uniqueIndex:idx_allocation_line_payment_seq,priority:2"`
	InvoiceID       uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_line_payment_invoice,priority:2"`
	InvoiceNumber   string               `gorm:"type:varchar(64);not null"`
	InvoiceCurrency valueobject.Currency `gorm:"type:varchar(3);not null"`
	InvoiceDate     time.Time            `gorm:"type:date"`
	AmountTotal     decimal.Decimal      `gorm:"type:decimal(28,10);not null"`
	Residual        decimal.Decimal      `gorm:"type:decimal(28,10);not null"`
	Amount          decimal.Decimal      `gorm:"type:decimal(28,10);not null"`
	ActualAmount    decimal.Decimal      `gorm:"type:decimal(28,10);not null"`
}

// TableName returns the table name for GORM
func (AllocationLineModel) TableName() string {
	return "payment_allocation_lines"
}

// ToDomain converts the model to a domain AllocationLine
func (m *AllocationLineModel) ToDomain() payment.AllocationLine {
	return payment.AllocationLine{
		ID:              m.ID,
		PaymentID:       m.PaymentID,
		InvoiceID:       m.InvoiceID,
		InvoiceNumber:   m.InvoiceNumber,
		InvoiceCurrency: m.InvoiceCurrency,
		InvoiceDate:     m.InvoiceDate,
		AmountTotal:     m.AmountTotal,
		Residual:        m.Residual,
		Amount:          m.Amount,
		ActualAmount:    m.ActualAmount,
	}
}

// FromDomain populates the model from a domain AllocationLine at position seq
func (m *AllocationLineModel) FromDomain(l *payment.AllocationLine, seq int) {
	m.ID = l.ID
	m.PaymentID = l.PaymentID
	m.Sequence = seq
	m.InvoiceID = l.InvoiceID
	m.InvoiceNumber = l.InvoiceNumber
	m.InvoiceCurrency = l.InvoiceCurrency
	m.InvoiceDate = l.InvoiceDate
	m.AmountTotal = l.AmountTotal
	m.Residual = l.Residual
	m.Amount = l.Amount
	m.ActualAmount = l.ActualAmount
}
