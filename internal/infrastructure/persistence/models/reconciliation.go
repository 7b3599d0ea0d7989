package models

import (
	"time"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationRecordModel is a partial reconciliation between an invoice
// move line and a payment settlement line.
type ReconciliationRecordModel struct {
	ID               uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaymentID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	DebitMoveLineID  uuid.UUID             `gorm:"type:uuid;not null"`
	CreditMoveLineID uuid.UUID             `gorm:"type:uuid;not null"`
	Amount           decimal.Decimal       `gorm:"type:decimal(28,10);not null"`
	AmountCurrency   decimal.Decimal       `gorm:"type:decimal(28,10);not null;default:0"`
	Currency         *valueobject.Currency `gorm:"type:varchar(3)"`
	CreatedAt        time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationRecordModel) TableName() string {
	return "reconciliation_records"
}

// ToDomain converts the model to a domain ReconciliationRecord
func (m *ReconciliationRecordModel) ToDomain() payment.ReconciliationRecord {
	return payment.ReconciliationRecord{
		ID:               m.ID,
		TenantID:         m.TenantID,
		PaymentID:        m.PaymentID,
		InvoiceID:        m.InvoiceID,
		DebitMoveLineID:  m.DebitMoveLineID,
		CreditMoveLineID: m.CreditMoveLineID,
		Amount:           m.Amount,
		AmountCurrency:   m.AmountCurrency,
		Currency:         m.Currency,
		CreatedAt:        m.CreatedAt,
	}
}

// FromDomain populates the model from a domain ReconciliationRecord
func (m *ReconciliationRecordModel) FromDomain(r *payment.ReconciliationRecord) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.PaymentID = r.PaymentID
	m.InvoiceID = r.InvoiceID
	m.DebitMoveLineID = r.DebitMoveLineID
	m.CreditMoveLineID = r.CreditMoveLineID
	m.Amount = r.Amount
	m.AmountCurrency = r.AmountCurrency
	m.Currency = r.Currency
	m.CreatedAt = r.CreatedAt
}
