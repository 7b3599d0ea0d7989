package fx

import (
	"context"
	"time"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRate is the rate of one unit of From in To, effective from
// EffectiveDate until superseded by a later row for the same pair.
type ExchangeRate struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	CompanyID     uuid.UUID
	From          valueobject.Currency
	To            valueobject.Currency
	Rate          decimal.Decimal
	EffectiveDate time.Time
	Source        string
}

// NewExchangeRate validates and creates a rate row
func NewExchangeRate(tenantID, companyID uuid.UUID, from, to valueobject.Currency, rate decimal.Decimal, effective time.Time, source string) (*ExchangeRate, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company is required")
	}
	if !from.IsValid() || !to.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency codes must be three upper-case letters")
	}
	if from == to {
		return nil, shared.NewDomainError("INVALID_CURRENCY_PAIR", "Cannot define a rate from a currency to itself")
	}
	if !rate.IsPositive() {
		return nil, shared.NewDomainError("INVALID_RATE", "Rate must be positive")
	}
	if effective.IsZero() {
		return nil, shared.NewDomainError("INVALID_EFFECTIVE_DATE", "Effective date is required")
	}
	if source == "" {
		source = "manual"
	}
	return &ExchangeRate{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		CompanyID:     companyID,
		From:          from,
		To:            to,
		Rate:          rate,
		EffectiveDate: TruncateDay(effective),
		Source:        source,
	}, nil
}

// Convert applies the rate to amount without rounding
func (r *ExchangeRate) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Rate)
}

// InverseRate returns 1/Rate at 16 decimal places
func (r *ExchangeRate) InverseRate() decimal.Decimal {
	return decimal.NewFromInt(1).DivRound(r.Rate, 16)
}

// TruncateDay drops the time of day, rates are daily
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RateFilter narrows rate listings
type RateFilter struct {
	shared.Filter
	CompanyID uuid.UUID
	From      valueobject.Currency
	To        valueobject.Currency
}

// ExchangeRateRepository stores rates
type ExchangeRateRepository interface {
	// FindEffective returns the tenant's latest row for from->to with
	// EffectiveDate <= asOf, or shared.ErrNotFound
	FindEffective(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (*ExchangeRate, error)
	// Upsert inserts the row or replaces the rate of an existing row for the same tenant, pair and day
	Upsert(ctx context.Context, rate *ExchangeRate) error
	List(ctx context.Context, tenantID uuid.UUID, filter RateFilter) ([]ExchangeRate, int64, error)
}
