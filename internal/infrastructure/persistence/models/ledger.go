package models

import (
	"time"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger invoice states. Only posted invoices can be paid.
const (
	InvoiceStateDraft     = "draft"
	InvoiceStatePosted    = "posted"
	InvoiceStateCancelled = "cancelled"
)

// PartnerModel is a customer or vendor. Child partners (contacts, branches)
// point at their parent and share its invoices for payment seeding.
type PartnerModel struct {
	BaseModel
	TenantID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name     string     `gorm:"type:varchar(200);not null"`
	ParentID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}

// InvoiceModel is the ledger's invoice header
type InvoiceModel struct {
	BaseModel
	TenantID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_invoice_open,priority:1"`
	Number         string               `gorm:"type:varchar(64);not null"`
	PartnerID      uuid.UUID            `gorm:"type:uuid;not null;index:idx_invoice_open,priority:2"`
	Kind           payment.InvoiceKind  `gorm:"type:varchar(20);not null;index:idx_invoice_open,priority:3"`
	State          string               `gorm:"type:varchar(20);not null;default:'draft'"`
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	AmountTotal    decimal.Decimal      `gorm:"type:decimal(28,10);not null"`
	AmountResidual decimal.Decimal      `gorm:"type:decimal(28,10);not null"`
	InvoiceDate    time.Time            `gorm:"type:date;not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToSummary converts the invoice into the read-only view used by payments
func (m *InvoiceModel) ToSummary() payment.InvoiceSummary {
	return payment.InvoiceSummary{
		ID:          m.ID,
		Number:      m.Number,
		PartnerID:   m.PartnerID,
		Kind:        m.Kind,
		Currency:    m.Currency,
		AmountTotal: m.AmountTotal,
		Residual:    m.AmountResidual,
		InvoiceDate: m.InvoiceDate,
	}
}

// MoveLineModel is one line of a journal entry. Payment entries set
// PaymentID, invoice entries set InvoiceID.
type MoveLineModel struct {
	BaseModel
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	MoveID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID *uuid.UUID      `gorm:"type:uuid;index"`
	InvoiceID *uuid.UUID      `gorm:"type:uuid;index"`
	AccountID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Debit     decimal.Decimal `gorm:"type:decimal(28,10);not null;default:0"`
	Credit    decimal.Decimal `gorm:"type:decimal(28,10);not null;default:0"`
}

// TableName returns the table name for GORM
func (MoveLineModel) TableName() string {
	return "move_lines"
}

// ToDomain converts the model to a domain MoveLine
func (m *MoveLineModel) ToDomain() payment.MoveLine {
	return payment.MoveLine{
		ID:        m.ID,
		MoveID:    m.MoveID,
		PaymentID: m.PaymentID,
		InvoiceID: m.InvoiceID,
		AccountID: m.AccountID,
		Debit:     m.Debit,
		Credit:    m.Credit,
	}
}

// MoveLineModelFromDomain creates a persistence model for a domain MoveLine
func MoveLineModelFromDomain(tenantID uuid.UUID, l payment.MoveLine) *MoveLineModel {
	now := time.Now()
	return &MoveLineModel{
		BaseModel: BaseModel{ID: l.ID, CreatedAt: now, UpdatedAt: now},
		TenantID:  tenantID,
		MoveID:    l.MoveID,
		PaymentID: l.PaymentID,
		InvoiceID: l.InvoiceID,
		AccountID: l.AccountID,
		Debit:     l.Debit,
		Credit:    l.Credit,
	}
}
