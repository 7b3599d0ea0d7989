package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testTenant  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testCompany = Company{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Currency: valueobject.USD}
	testDate    = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type pair struct {
	from, to valueobject.Currency
}

// rateConverter multiplies by a fixed rate per pair and counts calls
type rateConverter struct {
	rates map[pair]decimal.Decimal
	calls []ConversionRequest
	fail  error
}

func newRateConverter() *rateConverter {
	return &rateConverter{rates: make(map[pair]decimal.Decimal)}
}

// withRate registers from->to at rate and the exact inverse
func (c *rateConverter) withRate(from, to valueobject.Currency, rate string) *rateConverter {
	r := dec(rate)
	c.rates[pair{from, to}] = r
	c.rates[pair{to, from}] = decimal.NewFromInt(1).DivRound(r, 16)
	return c
}

func (c *rateConverter) Convert(_ context.Context, req ConversionRequest) (decimal.Decimal, error) {
	c.calls = append(c.calls, req)
	if c.fail != nil {
		return decimal.Zero, c.fail
	}
	r, ok := c.rates[pair{req.From, req.To}]
	if !ok {
		return decimal.Zero, NewConversionUnavailableError(req.From, req.To, req.Date, nil)
	}
	return req.Amount.Mul(r), nil
}

var errRateServiceDown = errors.New("rate service down")

func newTestPayment(t *testing.T, pt PaymentType, amount string, currency valueobject.Currency) *Payment {
	t.Helper()
	partner := uuid.New()
	p, err := NewPayment(testTenant, NewPaymentParams{
		Reference:   "PAY-0001",
		PaymentType: pt,
		PartnerID:   &partner,
		Amount:      dec(amount),
		Currency:    currency,
		PaymentDate: testDate,
		Company:     testCompany,
	})
	require.NoError(t, err)
	return p
}

func invoice(number string, currency valueobject.Currency, residual string) InvoiceSummary {
	return InvoiceSummary{
		ID:          uuid.New(),
		Number:      number,
		Kind:        InvoiceKindVendorBill,
		Currency:    currency,
		AmountTotal: dec(residual),
		Residual:    dec(residual),
		InvoiceDate: testDate.AddDate(0, -1, 0),
	}
}

func withLines(t *testing.T, p *Payment, invoices ...InvoiceSummary) *Payment {
	t.Helper()
	require.NoError(t, p.ReplaceLines(invoices))
	return p
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s got %s", want, got.String())
}
