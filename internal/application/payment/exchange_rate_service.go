package payment

import (
	"context"

	"github.com/erp/payalloc/internal/domain/fx"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/erp/payalloc/internal/infrastructure/logger"
	"github.com/erp/payalloc/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateCacheInvalidator forgets cached lookups of a currency pair
type RateCacheInvalidator interface {
	InvalidatePair(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency) error
}

// ExchangeRateService administers the rate table read by the converter
type ExchangeRateService struct {
	rateRepo    fx.ExchangeRateRepository
	invalidator RateCacheInvalidator
}

// NewExchangeRateService creates a new ExchangeRateService
func NewExchangeRateService(rateRepo fx.ExchangeRateRepository) *ExchangeRateService {
	return &ExchangeRateService{rateRepo: rateRepo}
}

// SetRateCacheInvalidator sets the cache to clear after a rate is stored
func (s *ExchangeRateService) SetRateCacheInvalidator(invalidator RateCacheInvalidator) {
	s.invalidator = invalidator
}

// UpsertRate stores the rate of a pair for a day, replacing an existing row,
// and drops the cached lookups of that pair.
func (s *ExchangeRateService) UpsertRate(ctx context.Context, tenantID uuid.UUID, req UpsertExchangeRateRequest) (*ExchangeRateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "upsert")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrFromCurrency, req.From,
		telemetry.SpanAttrToCurrency, req.To,
	)

	from, err := parseCurrency(req.From)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	to, err := parseCurrency(req.To)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	effective, err := parseDate(req.EffectiveDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rate, err := fx.NewExchangeRate(tenantID, req.CompanyID, from, to, req.Rate, effective, req.Source)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.rateRepo.Upsert(ctx, rate); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.invalidator != nil {
		// The row is stored; a stale cache entry only lives until its TTL.
		if err := s.invalidator.InvalidatePair(ctx, tenantID, rate.CompanyID, rate.From, rate.To); err != nil {
			logger.L(ctx).Warn("failed to invalidate cached rates",
				zap.String("from", rate.From.String()),
				zap.String("to", rate.To.String()),
				zap.Error(err),
			)
		}
	}

	logger.L(ctx).Info("exchange rate stored",
		zap.String("company_id", rate.CompanyID.String()),
		zap.String("from", rate.From.String()),
		zap.String("to", rate.To.String()),
		zap.String("rate", rate.Rate.String()),
		zap.String("effective_date", rate.EffectiveDate.Format(DateLayout)),
	)
	telemetry.SetOK(span)
	resp := ToExchangeRateResponse(rate)
	return &resp, nil
}

// ListRates returns a page of rates, newest effective date first
func (s *ExchangeRateService) ListRates(ctx context.Context, tenantID uuid.UUID, filter ExchangeRateListFilter) (*shared.Paginated[ExchangeRateResponse], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange_rate", "list")
	defer span.End()

	domainFilter := fx.RateFilter{Filter: shared.DefaultFilter()}
	domainFilter.OrderBy = "effective_date"
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.CompanyID != nil {
		domainFilter.CompanyID = *filter.CompanyID
	}
	if filter.From != "" {
		from, err := parseCurrency(filter.From)
		if err != nil {
			return nil, err
		}
		domainFilter.From = from
	}
	if filter.To != "" {
		to, err := parseCurrency(filter.To)
		if err != nil {
			return nil, err
		}
		domainFilter.To = to
	}

	rates, total, err := s.rateRepo.List(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	items := make([]ExchangeRateResponse, 0, len(rates))
	for i := range rates {
		items = append(items, ToExchangeRateResponse(&rates[i]))
	}
	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}
