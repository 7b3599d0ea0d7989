package payment

import (
	"context"
	"time"

	"github.com/erp/payalloc/internal/domain/fx"
	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPaymentRepository is a mock implementation of payment.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter payment.PaymentFilter) ([]payment.Payment, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]payment.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockInvoiceFinder is a mock implementation of payment.InvoiceFinder
type MockInvoiceFinder struct {
	mock.Mock
}

func (m *MockInvoiceFinder) FindOpenInvoices(ctx context.Context, tenantID uuid.UUID, query payment.OpenInvoiceQuery) ([]payment.InvoiceSummary, error) {
	args := m.Called(ctx, tenantID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.InvoiceSummary), args.Error(1)
}

func (m *MockInvoiceFinder) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]payment.InvoiceSummary, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.InvoiceSummary), args.Error(1)
}

// MockPartnerFinder is a mock implementation of payment.PartnerFinder
type MockPartnerFinder struct {
	mock.Mock
}

func (m *MockPartnerFinder) FindChildIDs(ctx context.Context, tenantID, partnerID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockMoveLineFinder is a mock implementation of payment.MoveLineFinder
type MockMoveLineFinder struct {
	mock.Mock
}

func (m *MockMoveLineFinder) FindLedgerMoveLines(ctx context.Context, tenantID, paymentID uuid.UUID) ([]payment.MoveLine, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.MoveLine), args.Error(1)
}

func (m *MockMoveLineFinder) FindInvoiceMoveLines(ctx context.Context, tenantID uuid.UUID, invoiceIDs []uuid.UUID) (map[uuid.UUID][]payment.MoveLine, error) {
	args := m.Called(ctx, tenantID, invoiceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]payment.MoveLine), args.Error(1)
}

// MockReconciliationRepository is a mock implementation of payment.ReconciliationRepository
type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) CreateReconciliation(ctx context.Context, record *payment.ReconciliationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockReconciliationRepository) FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]payment.ReconciliationRecord, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.ReconciliationRecord), args.Error(1)
}

// MockRateCacheInvalidator is a mock implementation of RateCacheInvalidator
type MockRateCacheInvalidator struct {
	mock.Mock
}

func (m *MockRateCacheInvalidator) InvalidatePair(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency) error {
	args := m.Called(ctx, tenantID, companyID, from, to)
	return args.Error(0)
}

// MockExchangeRateRepository is a mock implementation of fx.ExchangeRateRepository
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) FindEffective(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (*fx.ExchangeRate, error) {
	args := m.Called(ctx, tenantID, companyID, from, to, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fx.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) Upsert(ctx context.Context, rate *fx.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockExchangeRateRepository) List(ctx context.Context, tenantID uuid.UUID, filter fx.RateFilter) ([]fx.ExchangeRate, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fx.ExchangeRate), args.Get(1).(int64), args.Error(2)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// fakeTransactionScope runs fn against the given repositories. Nothing is
// rolled back; tests assert on which calls happened.
type fakeTransactionScope struct {
	payments        payment.PaymentRepository
	reconciliations payment.ReconciliationRepository
	calls           int
}

func (s *fakeTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls++
	return fn(s)
}

func (s *fakeTransactionScope) PaymentRepo() payment.PaymentRepository {
	return s.payments
}

func (s *fakeTransactionScope) ReconciliationRepo() payment.ReconciliationRepository {
	return s.reconciliations
}

// fixedRates converts with a fixed rate per pair. Unknown pairs fail with
// CONVERSION_UNAVAILABLE.
type fixedRates map[[2]valueobject.Currency]decimal.Decimal

func (r fixedRates) Convert(_ context.Context, req payment.ConversionRequest) (decimal.Decimal, error) {
	rate, ok := r[[2]valueobject.Currency{req.From, req.To}]
	if !ok {
		return decimal.Zero, payment.NewConversionUnavailableError(req.From, req.To, req.Date, nil)
	}
	return req.Amount.Mul(rate), nil
}
