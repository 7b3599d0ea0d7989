package payment

import (
	"context"
	"testing"

	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationEngine_Recompute(t *testing.T) {
	ctx := context.Background()

	t.Run("single currency waterfall fills lines in order", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
			invoice("BILL-1", valueobject.USD, "60"),
			invoice("BILL-2", valueobject.USD, "60"),
		)
		conv := newRateConverter()
		engine := NewAllocationEngine(conv)

		require.NoError(t, engine.Recompute(ctx, p))
		assertDecimal(t, "60", p.Lines[0].Amount)
		assertDecimal(t, "40", p.Lines[1].Amount)
		assertDecimal(t, "100", p.SelectedInvoiceTotal())
		assertDecimal(t, "0", p.Balance())
		assert.Empty(t, conv.calls, "identity conversions must not reach the converter")
	})

	t.Run("partial payment of a single invoice", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "50", valueobject.USD),
			invoice("BILL-1", valueobject.USD, "80"),
		)
		require.NoError(t, NewAllocationEngine(nil).Recompute(ctx, p))
		assertDecimal(t, "50", p.Lines[0].Amount)
		assertDecimal(t, "80", p.Lines[0].Residual)
		assertDecimal(t, "50", p.SelectedInvoiceTotal())
		assertDecimal(t, "0", p.Balance())
	})

	t.Run("foreign invoice consumes converted residual", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "10", valueobject.USD),
			invoice("BILL-EUR", valueobject.EUR, "15"),
		)
		conv := newRateConverter().withRate(valueobject.USD, valueobject.EUR, "2")
		require.NoError(t, NewAllocationEngine(conv).Recompute(ctx, p))

		assertDecimal(t, "15", p.Lines[0].Amount)
		assertDecimal(t, "7.5", p.Lines[0].ActualAmount)
		assertDecimal(t, "2.5", p.Balance())
		for _, call := range conv.calls {
			assert.False(t, call.Round)
			assert.Equal(t, testTenant, call.TenantID)
			assert.Equal(t, testCompany.ID, call.CompanyID)
			assert.True(t, call.Date.Equal(testDate))
		}
	})

	t.Run("leftover flows into the next foreign line", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "10", valueobject.USD),
			invoice("BILL-EUR", valueobject.EUR, "15"),
			invoice("BILL-USD", valueobject.USD, "100"),
		)
		conv := newRateConverter().withRate(valueobject.USD, valueobject.EUR, "2")
		require.NoError(t, NewAllocationEngine(conv).Recompute(ctx, p))

		assertDecimal(t, "15", p.Lines[0].Amount)
		assertDecimal(t, "2.5", p.Lines[1].Amount)
		assertDecimal(t, "10", p.SelectedInvoiceTotal())
	})

	t.Run("lines past exhaustion get zero", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeInbound, "30", valueobject.USD),
			invoice("INV-1", valueobject.USD, "30"),
			invoice("INV-2", valueobject.USD, "10"),
			invoice("INV-3", valueobject.USD, "10"),
		)
		require.NoError(t, p.SetLineAmount(p.Lines[2].ID, dec("5")))
		require.NoError(t, NewAllocationEngine(nil).Recompute(ctx, p))

		assertDecimal(t, "30", p.Lines[0].Amount)
		assertDecimal(t, "0", p.Lines[1].Amount)
		assertDecimal(t, "0", p.Lines[2].Amount)
		assertDecimal(t, "0", p.Lines[2].ActualAmount)
	})

	t.Run("waterfall exhaustion leaves positive balance", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "500", valueobject.USD),
			invoice("BILL-1", valueobject.USD, "120"),
			invoice("BILL-2", valueobject.EUR, "100"),
		)
		conv := newRateConverter().withRate(valueobject.USD, valueobject.EUR, "0.5")
		require.NoError(t, NewAllocationEngine(conv).Recompute(ctx, p))

		for _, l := range p.Lines {
			assert.True(t, l.Amount.Equal(l.Residual), "line %s should be fully allocated", l.InvoiceNumber)
		}
		assertDecimal(t, "320", p.SelectedInvoiceTotal())
		assertDecimal(t, "180", p.Balance())
	})

	t.Run("zero or negative amount clears every line", func(t *testing.T) {
		for _, amount := range []string{"0", "-10"} {
			p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
				invoice("BILL-1", valueobject.USD, "60"),
				invoice("BILL-2", valueobject.EUR, "60"),
			)
			conv := newRateConverter().withRate(valueobject.USD, valueobject.EUR, "1")
			engine := NewAllocationEngine(conv)
			require.NoError(t, engine.Recompute(ctx, p))
			require.True(t, p.Lines[0].Amount.IsPositive())

			require.NoError(t, p.SetAmount(dec(amount)))
			conv.calls = nil
			require.NoError(t, engine.Recompute(ctx, p))
			for _, l := range p.Lines {
				assertDecimal(t, "0", l.Amount)
				assertDecimal(t, "0", l.ActualAmount)
			}
			assert.Empty(t, conv.calls)
		}
	})

	t.Run("recompute is idempotent", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "77.77", valueobject.USD),
			invoice("BILL-1", valueobject.EUR, "33.33"),
			invoice("BILL-2", valueobject.JPY, "5000"),
			invoice("BILL-3", valueobject.USD, "10"),
		)
		conv := newRateConverter().
			withRate(valueobject.USD, valueobject.EUR, "0.9137").
			withRate(valueobject.USD, valueobject.JPY, "151.37")
		engine := NewAllocationEngine(conv)

		require.NoError(t, engine.Recompute(ctx, p))
		first := make([]AllocationLine, len(p.Lines))
		copy(first, p.Lines)
		require.NoError(t, engine.Recompute(ctx, p))
		for i := range p.Lines {
			assert.True(t, first[i].Amount.Equal(p.Lines[i].Amount))
			assert.True(t, first[i].ActualAmount.Equal(p.Lines[i].ActualAmount))
		}
	})

	t.Run("every line stays within its residual", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeInbound, "1000", valueobject.EUR),
			invoice("INV-1", valueobject.USD, "199.99"),
			invoice("INV-2", valueobject.GBP, "0.01"),
			invoice("INV-3", valueobject.EUR, "700"),
			invoice("INV-4", valueobject.USD, "500"),
		)
		conv := newRateConverter().
			withRate(valueobject.EUR, valueobject.USD, "1.0843").
			withRate(valueobject.EUR, valueobject.GBP, "0.8571")
		require.NoError(t, NewAllocationEngine(conv).Recompute(ctx, p))
		for _, l := range p.Lines {
			assert.False(t, l.Amount.IsNegative())
			assert.True(t, l.Amount.LessThanOrEqual(l.Residual))
		}
		require.NoError(t, NewAllocationValidator().ValidatePayment(p))
	})

	t.Run("conversion failure leaves lines untouched", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
			invoice("BILL-1", valueobject.USD, "40"),
			invoice("BILL-2", valueobject.EUR, "40"),
		)
		require.NoError(t, p.SetLineAmount(p.Lines[0].ID, dec("12")))
		conv := newRateConverter()

		err := NewAllocationEngine(conv).Recompute(ctx, p)
		require.Error(t, err)
		assert.True(t, IsConversionUnavailable(err))
		assert.Contains(t, err.Error(), "USD to EUR")
		assertDecimal(t, "12", p.Lines[0].Amount)
		assertDecimal(t, "0", p.Lines[1].Amount)
	})

	t.Run("converter transport errors surface as conversion unavailable", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
			invoice("BILL-1", valueobject.EUR, "40"),
		)
		conv := newRateConverter()
		conv.fail = errRateServiceDown
		err := NewAllocationEngine(conv).Recompute(ctx, p)
		require.Error(t, err)
		assert.True(t, IsConversionUnavailable(err))
		assert.ErrorIs(t, err, errRateServiceDown)
	})

	t.Run("missing converter is conversion unavailable for foreign lines", func(t *testing.T) {
		p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
			invoice("BILL-1", valueobject.EUR, "40"),
		)
		err := NewAllocationEngine(nil).Recompute(ctx, p)
		assert.True(t, IsConversionUnavailable(err))
	})
}

func TestAllocationEngine_RefreshActualAmounts(t *testing.T) {
	ctx := context.Background()
	p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
		invoice("BILL-1", valueobject.EUR, "40"),
		invoice("BILL-2", valueobject.USD, "40"),
	)
	require.NoError(t, p.SetLineAmount(p.Lines[0].ID, dec("20")))
	require.NoError(t, p.SetLineAmount(p.Lines[1].ID, dec("15")))

	conv := newRateConverter().withRate(valueobject.USD, valueobject.EUR, "2")
	require.NoError(t, NewAllocationEngine(conv).RefreshActualAmounts(ctx, p))

	assertDecimal(t, "20", p.Lines[0].Amount)
	assertDecimal(t, "10", p.Lines[0].ActualAmount)
	assertDecimal(t, "15", p.Lines[1].ActualAmount)
	assertDecimal(t, "25", p.SelectedInvoiceTotal())
	assertDecimal(t, "75", p.Balance())
}

func TestAllocationEngine_ActualAmount(t *testing.T) {
	ctx := context.Background()
	p := newTestPayment(t, PaymentTypeInbound, "100", valueobject.USD)
	conv := newRateConverter().withRate(valueobject.USD, valueobject.EUR, "2")
	engine := NewAllocationEngine(conv)

	got, err := engine.ActualAmount(ctx, p, AllocationLine{Amount: dec("0"), InvoiceCurrency: valueobject.EUR})
	require.NoError(t, err)
	assertDecimal(t, "0", got)
	assert.Empty(t, conv.calls)

	got, err = engine.ActualAmount(ctx, p, AllocationLine{Amount: dec("30"), InvoiceCurrency: valueobject.EUR})
	require.NoError(t, err)
	assertDecimal(t, "15", got)
}

func TestAllocationEngine_Preview(t *testing.T) {
	ctx := context.Background()
	conv := newRateConverter().withRate(valueobject.USD, valueobject.EUR, "2")
	engine := NewAllocationEngine(conv)

	first := invoice("BILL-1", valueobject.EUR, "15")
	second := invoice("BILL-2", valueobject.USD, "5")
	third := invoice("BILL-3", valueobject.USD, "5")
	preview, err := engine.Preview(ctx, PreviewInput{
		TenantID:    testTenant,
		Amount:      dec("10"),
		Currency:    valueobject.USD,
		Company:     testCompany,
		PaymentDate: testDate,
		Lines: []PreviewLine{
			{InvoiceID: first.ID, InvoiceNumber: first.Number, Currency: first.Currency, Residual: first.Residual},
			{InvoiceID: second.ID, InvoiceNumber: second.Number, Currency: second.Currency, Residual: second.Residual},
			{InvoiceID: third.ID, InvoiceNumber: third.Number, Currency: third.Currency, Residual: third.Residual},
		},
	})
	require.NoError(t, err)
	require.Len(t, preview.Allocations, 3)
	assertDecimal(t, "15", preview.Allocations[0].Amount)
	assertDecimal(t, "2.5", preview.Allocations[1].Amount)
	assertDecimal(t, "0", preview.Allocations[2].Amount)
	assertDecimal(t, "10", preview.TotalAllocated)
	assertDecimal(t, "0", preview.RemainingAmount)
	assert.True(t, preview.FullyAllocated)
	assert.Equal(t, first.ID, preview.InvoicesFullyPaid[0])
	assert.Equal(t, second.ID, preview.InvoicesPartiallyPaid[0])
	require.NotEmpty(t, conv.calls)
	for _, call := range conv.calls {
		assert.Equal(t, testTenant, call.TenantID)
	}

	empty, err := engine.Preview(ctx, PreviewInput{Amount: dec("10"), Currency: valueobject.USD, Company: testCompany, PaymentDate: testDate})
	require.NoError(t, err)
	assert.Empty(t, empty.Allocations)
	assertDecimal(t, "10", empty.RemainingAmount)
	assert.False(t, empty.FullyAllocated)
}
