package payment

import (
	"context"
	"time"

	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Company is the legal entity that owns a payment
type Company struct {
	ID       uuid.UUID
	Currency valueobject.Currency
}

// ConversionRequest asks for amount expressed in From to be expressed in To,
// using the rates TenantID published for CompanyID effective on Date.
type ConversionRequest struct {
	Amount    decimal.Decimal
	From      valueobject.Currency
	To        valueobject.Currency
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	// CompanyCurrency lets a converter cross two foreign currencies through
	// the company's own rates
	CompanyCurrency valueobject.Currency
	Date            time.Time
	// Round rounds the result to the precision of To. The allocation and
	// reconciliation engines always leave it false.
	Round bool
}

// CurrencyConverter converts amounts between currencies.
// Implementations must return an error satisfying IsConversionUnavailable
// when no rate exists, never a 1:1 substitute.
type CurrencyConverter interface {
	Convert(ctx context.Context, req ConversionRequest) (decimal.Decimal, error)
}

// CurrencyConverterFunc adapts a function to CurrencyConverter
type CurrencyConverterFunc func(ctx context.Context, req ConversionRequest) (decimal.Decimal, error)

func (f CurrencyConverterFunc) Convert(ctx context.Context, req ConversionRequest) (decimal.Decimal, error) {
	return f(ctx, req)
}

// conversionScope fixes whose rates a conversion reads and as of when
type conversionScope struct {
	TenantID uuid.UUID
	Company  Company
	Date     time.Time
}

func scopeOf(p *Payment) conversionScope {
	return conversionScope{TenantID: p.TenantID, Company: p.Company, Date: p.PaymentDate}
}

// convert is the single conversion entry point of the engines. Identity pairs
// never reach the converter. Every failure surfaces as CONVERSION_UNAVAILABLE.
func convert(ctx context.Context, c CurrencyConverter, amount decimal.Decimal, from, to valueobject.Currency, scope conversionScope) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	if c == nil {
		return decimal.Zero, NewConversionUnavailableError(from, to, scope.Date, nil)
	}
	out, err := c.Convert(ctx, ConversionRequest{
		Amount:          amount,
		From:            from,
		To:              to,
		TenantID:        scope.TenantID,
		CompanyID:       scope.Company.ID,
		CompanyCurrency: scope.Company.Currency,
		Date:            scope.Date,
	})
	if err != nil {
		if IsConversionUnavailable(err) {
			return decimal.Zero, err
		}
		return decimal.Zero, NewConversionUnavailableError(from, to, scope.Date, err)
	}
	return out, nil
}
