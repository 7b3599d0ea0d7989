package payment

import (
	"testing"
	"time"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	valid := NewPaymentParams{
		PaymentType: PaymentTypeInbound,
		Amount:      dec("10"),
		Currency:    valueobject.EUR,
		PaymentDate: testDate,
		Company:     testCompany,
	}

	t.Run("creates draft with event", func(t *testing.T) {
		p, err := NewPayment(testTenant, valid)
		require.NoError(t, err)
		assert.Equal(t, PaymentStateDraft, p.State)
		assert.Equal(t, 1, p.Version)
		assert.Empty(t, p.Lines)
		require.Len(t, p.GetDomainEvents(), 1)
		assert.Equal(t, EventTypePaymentCreated, p.GetDomainEvents()[0].EventType())
	})

	cases := map[string]func(*NewPaymentParams){
		CodeInvalidPaymentType: func(np *NewPaymentParams) { np.PaymentType = "sideways" },
		CodeInvalidCurrency:    func(np *NewPaymentParams) { np.Currency = "euro" },
		CodeInvalidCompany:     func(np *NewPaymentParams) { np.Company = Company{} },
		CodeInvalidPaymentDate: func(np *NewPaymentParams) { np.PaymentDate = time.Time{} },
	}
	for code, mutate := range cases {
		t.Run("rejects "+code, func(t *testing.T) {
			params := valid
			mutate(&params)
			_, err := NewPayment(testTenant, params)
			assert.Equal(t, code, shared.CodeOf(err))
		})
	}
}

func TestPayment_ReplaceLines(t *testing.T) {
	p := newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD)
	a := invoice("BILL-1", valueobject.USD, "10")
	b := invoice("BILL-2", valueobject.EUR, "20")
	require.NoError(t, p.ReplaceLines([]InvoiceSummary{a, b}))

	require.Len(t, p.Lines, 2)
	assert.Equal(t, a.ID, p.Lines[0].InvoiceID)
	assert.Equal(t, b.ID, p.Lines[1].InvoiceID)
	assert.Equal(t, p.ID, p.Lines[0].PaymentID)
	assertDecimal(t, "0", p.Lines[1].Amount)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, p.InvoiceIDs())

	err := p.ReplaceLines([]InvoiceSummary{a, a})
	assert.Equal(t, CodeDuplicateInvoice, shared.CodeOf(err))

	require.NoError(t, p.ClearLines())
	assert.Empty(t, p.Lines)
}

func TestPayment_SetLineAmount(t *testing.T) {
	p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
		invoice("BILL-1", valueobject.USD, "10"),
	)
	require.NoError(t, p.SetLineAmount(p.Lines[0].ID, dec("7")))
	assertDecimal(t, "7", p.Lines[0].Amount)
	assert.Len(t, p.AllocatedLines(), 1)

	err := p.SetLineAmount(uuid.New(), dec("1"))
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestPayment_Balance(t *testing.T) {
	p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
		invoice("BILL-1", valueobject.USD, "200"),
	)
	p.Lines[0].ActualAmount = dec("120")
	assertDecimal(t, "-20", p.Balance())

	p.Company = Company{}
	assertDecimal(t, "0", p.Balance())
}

func TestPayment_Lifecycle(t *testing.T) {
	t.Run("post then reconcile", func(t *testing.T) {
		p := newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD)
		p.ClearDomainEvents()

		require.NoError(t, p.Post())
		assert.Equal(t, PaymentStatePosted, p.State)
		assert.NotNil(t, p.PostedAt)

		err := p.SetAmount(dec("5"))
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		require.NoError(t, p.MarkReconciled([]ReconciliationRecord{{Amount: dec("-40")}, {Amount: dec("-10")}}))
		assert.Equal(t, PaymentStateReconciled, p.State)
		events := p.GetDomainEvents()
		require.Len(t, events, 2)
		reconciled, ok := events[1].(*PaymentReconciledEvent)
		require.True(t, ok)
		assert.Equal(t, 2, reconciled.RecordCount)
		assertDecimal(t, "-50", reconciled.TotalAmount)

		err = p.MarkReconciled(nil)
		assert.Equal(t, CodeAlreadyReconciled, shared.CodeOf(err))
		assert.Error(t, p.Cancel())
	})

	t.Run("cannot post non-positive amount", func(t *testing.T) {
		p := newTestPayment(t, PaymentTypeOutbound, "0", valueobject.USD)
		assert.Equal(t, CodeInvalidAmount, shared.CodeOf(p.Post()))
	})

	t.Run("cannot reconcile a draft", func(t *testing.T) {
		p := newTestPayment(t, PaymentTypeOutbound, "10", valueobject.USD)
		assert.ErrorIs(t, p.MarkReconciled(nil), shared.ErrInvalidState)
	})

	t.Run("cancel draft", func(t *testing.T) {
		p := newTestPayment(t, PaymentTypeInbound, "10", valueobject.USD)
		require.NoError(t, p.Cancel())
		assert.True(t, p.State.IsTerminal())
		assert.Error(t, p.ClearLines())
	})
}

func TestPayment_Copy(t *testing.T) {
	p := withLines(t, newTestPayment(t, PaymentTypeOutbound, "100", valueobject.USD),
		invoice("BILL-1", valueobject.USD, "60"),
	)
	p.Lines[0].Amount, p.Lines[0].ActualAmount = dec("60"), dec("60")
	require.NoError(t, p.Post())

	dup := p.Copy()
	assert.NotEqual(t, p.ID, dup.ID)
	assert.Equal(t, PaymentStateDraft, dup.State)
	assert.Empty(t, dup.Lines)
	assertDecimal(t, "0", dup.SelectedInvoiceTotal())
	assertDecimal(t, "100", dup.Amount)
	require.NotNil(t, dup.PartnerID)
	assert.Equal(t, *p.PartnerID, *dup.PartnerID)
	assert.NotSame(t, p.PartnerID, dup.PartnerID)
}

func TestAllocationLine_Snapshot(t *testing.T) {
	inv := invoice("BILL-1", valueobject.USD, "60")
	line := NewAllocationLine(uuid.New(), inv)

	inv.Residual = dec("25")
	require.NoError(t, line.Snapshot(&inv))
	assertDecimal(t, "25", line.Residual)
	assertDecimal(t, "60", line.AmountTotal)

	other := invoice("BILL-2", valueobject.USD, "1")
	assert.Error(t, line.Snapshot(&other))

	require.NoError(t, line.Snapshot(nil))
	assertDecimal(t, "0", line.Residual)
	assertDecimal(t, "0", line.AmountTotal)
}

func TestPaymentType(t *testing.T) {
	assert.Equal(t, InvoiceKindVendorBill, PaymentTypeOutbound.InvoiceKind())
	assert.Equal(t, InvoiceKindCustomerInvoice, PaymentTypeInbound.InvoiceKind())
	assert.False(t, PaymentType("x").IsValid())
	assert.True(t, PaymentStatePosted.CanReconcile())
	assert.False(t, PaymentStateDraft.CanReconcile())
}
