package models

import (
	"time"

	"github.com/erp/payalloc/internal/domain/fx"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRateModel stores one daily rate of a currency pair for a company
type ExchangeRateModel struct {
	BaseModel
	TenantID      uuid.UUID            `gorm:"type:uuid;not null;index;uniqueIndex:idx_exchange_rate_pair_day,priority:1"`
	CompanyID     uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_exchange_rate_pair_day,priority:2"`
	FromCurrency  valueobject.Currency `gorm:"column:from_currency;type:varchar(3);not null;uniqueIndex:idx_exchange_rate_pair_day,priority:3"`
	ToCurrency    valueobject.Currency `gorm:"column:to_currency;type:varchar(3);not null;uniqueIndex:idx_exchange_rate_pair_day,priority:4"`
	EffectiveDate time.Time            `gorm:"type:date;not null;uniqueIndex:idx_exchange_rate_pair_day,priority:5"`
	Rate          decimal.Decimal      `gorm:"type:decimal(28,12);not null"`
	Source        string               `gorm:"type:varchar(32);not null;default:'manual'"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the model to a domain ExchangeRate
func (m *ExchangeRateModel) ToDomain() *fx.ExchangeRate {
	return &fx.ExchangeRate{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		CompanyID:     m.CompanyID,
		From:          m.FromCurrency,
		To:            m.ToCurrency,
		Rate:          m.Rate,
		EffectiveDate: m.EffectiveDate,
		Source:        m.Source,
	}
}

// FromDomain populates the model from a domain ExchangeRate
func (m *ExchangeRateModel) FromDomain(r *fx.ExchangeRate) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.TenantID = r.TenantID
	m.CompanyID = r.CompanyID
	m.FromCurrency = r.From
	m.ToCurrency = r.To
	m.EffectiveDate = r.EffectiveDate
	m.Rate = r.Rate
	m.Source = r.Source
}
