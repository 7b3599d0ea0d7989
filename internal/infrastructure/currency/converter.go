package currency

import (
	"context"
	"errors"
	"time"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// inversePrecision is the number of decimal places kept when inverting a rate
const inversePrecision = 16

// RateTableConverter converts with the company's published daily rates.
// A pair resolves to whichever is newer as of the date: the direct row or the
// inverse of the opposite row, the direct row winning a tie. Without either,
// the conversion crosses through the company currency. There is never a 1:1
// fallback.
type RateTableConverter struct {
	source RateSource
	logger *zap.Logger
}

// NewRateTableConverter creates a converter over source
func NewRateTableConverter(source RateSource, logger *zap.Logger) *RateTableConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateTableConverter{source: source, logger: logger}
}

// Convert implements payment.CurrencyConverter
func (c *RateTableConverter) Convert(ctx context.Context, req payment.ConversionRequest) (decimal.Decimal, error) {
	if req.From == req.To {
		return c.round(req, req.Amount), nil
	}

	rate, err := c.pairRate(ctx, req.TenantID, req.CompanyID, req.From, req.To, req.Date)
	if errors.Is(err, shared.ErrNotFound) && c.canCross(req) {
		rate, err = c.crossRate(ctx, req)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.logger.Debug("no exchange rate",
				zap.String("from", req.From.String()),
				zap.String("to", req.To.String()),
				zap.Time("as_of", req.Date),
			)
			return decimal.Zero, payment.NewConversionUnavailableError(req.From, req.To, req.Date, nil)
		}
		return decimal.Zero, payment.NewConversionUnavailableError(req.From, req.To, req.Date, err)
	}
	return c.round(req, req.Amount.Mul(rate)), nil
}

func (c *RateTableConverter) round(req payment.ConversionRequest, amount decimal.Decimal) decimal.Decimal {
	if !req.Round {
		return amount
	}
	return req.To.Round(amount)
}

func (c *RateTableConverter) canCross(req payment.ConversionRequest) bool {
	cc := req.CompanyCurrency
	return cc.IsValid() && cc != req.From && cc != req.To
}

func (c *RateTableConverter) crossRate(ctx context.Context, req payment.ConversionRequest) (decimal.Decimal, error) {
	toCompany, err := c.pairRate(ctx, req.TenantID, req.CompanyID, req.From, req.CompanyCurrency, req.Date)
	if err != nil {
		return decimal.Zero, err
	}
	fromCompany, err := c.pairRate(ctx, req.TenantID, req.CompanyID, req.CompanyCurrency, req.To, req.Date)
	if err != nil {
		return decimal.Zero, err
	}
	return toCompany.Mul(fromCompany), nil
}

// pairRate resolves from->to from the direct row or the stored opposite pair
func (c *RateTableConverter) pairRate(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (decimal.Decimal, error) {
	direct, err := c.lookup(ctx, tenantID, companyID, from, to, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	opposite, err := c.lookup(ctx, tenantID, companyID, to, from, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if opposite != nil && !opposite.Rate.IsPositive() {
		opposite = nil
	}

	switch {
	case direct != nil && (opposite == nil || !opposite.EffectiveDate.After(direct.EffectiveDate)):
		return direct.Rate, nil
	case opposite != nil:
		return decimal.NewFromInt(1).DivRound(opposite.Rate, inversePrecision), nil
	default:
		return decimal.Zero, shared.ErrNotFound
	}
}

// lookup returns nil without error when the pair has no rate
func (c *RateTableConverter) lookup(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (*Quote, error) {
	quote, err := c.source.Rate(ctx, tenantID, companyID, from, to, asOf)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

var _ payment.CurrencyConverter = (*RateTableConverter)(nil)
