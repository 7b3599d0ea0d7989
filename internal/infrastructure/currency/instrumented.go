package currency

import (
	"context"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// ConversionFailureRecorder counts conversions that found no rate
type ConversionFailureRecorder interface {
	RecordConversionFailure(ctx context.Context, from, to string)
}

// InstrumentedConverter traces every conversion and counts failures
type InstrumentedConverter struct {
	next     payment.CurrencyConverter
	recorder ConversionFailureRecorder
}

// NewInstrumentedConverter wraps next. A nil recorder only traces.
func NewInstrumentedConverter(next payment.CurrencyConverter, recorder ConversionFailureRecorder) *InstrumentedConverter {
	return &InstrumentedConverter{next: next, recorder: recorder}
}

// Convert implements payment.CurrencyConverter
func (c *InstrumentedConverter) Convert(ctx context.Context, req payment.ConversionRequest) (decimal.Decimal, error) {
	ctx, span := telemetry.StartSpan(ctx, "currency.convert",
		telemetry.WithAttribute(telemetry.SpanAttrFromCurrency, req.From.String()),
		telemetry.WithAttribute(telemetry.SpanAttrToCurrency, req.To.String()),
		telemetry.WithAttribute(telemetry.SpanAttrCompanyCurrency, req.CompanyCurrency.String()),
	)
	defer span.End()

	out, err := c.next.Convert(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		if c.recorder != nil {
			c.recorder.RecordConversionFailure(ctx, req.From.String(), req.To.String())
		}
		return decimal.Zero, err
	}
	return out, nil
}

var _ payment.CurrencyConverter = (*InstrumentedConverter)(nil)
