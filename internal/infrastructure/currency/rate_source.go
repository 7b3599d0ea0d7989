// Package currency implements payment.CurrencyConverter over the exchange
// rate table, with an optional Redis or in-memory rate cache in front.
package currency

import (
	"context"
	"time"

	"github.com/erp/payalloc/internal/domain/fx"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is a stored rate together with the day it took effect
type Quote struct {
	Rate          decimal.Decimal
	EffectiveDate time.Time
}

// RateSource returns the rate of one unit of from in to, as published by the
// tenant for the company on or before asOf. A missing rate is shared.ErrNotFound.
type RateSource interface {
	Rate(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (Quote, error)
}

// RepositoryRateSource reads rates straight from the rate table
type RepositoryRateSource struct {
	repo fx.ExchangeRateRepository
}

// NewRepositoryRateSource creates a RateSource over an ExchangeRateRepository
func NewRepositoryRateSource(repo fx.ExchangeRateRepository) *RepositoryRateSource {
	return &RepositoryRateSource{repo: repo}
}

// Rate returns the stored rate of the direct pair
func (s *RepositoryRateSource) Rate(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (Quote, error) {
	rate, err := s.repo.FindEffective(ctx, tenantID, companyID, from, to, asOf)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Rate: rate.Rate, EffectiveDate: rate.EffectiveDate}, nil
}
