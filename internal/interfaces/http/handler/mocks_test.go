package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	paymentapp "github.com/erp/payalloc/internal/application/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/interfaces/http/dto"
	"github.com/erp/payalloc/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func do(r http.Handler, method, path, body, tenant string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tenant != "" {
		req.Header.Set(middleware.TenantHeaderKey, tenant)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// MockPaymentUseCases is a mock implementation of PaymentUseCases
type MockPaymentUseCases struct {
	mock.Mock
}

func (m *MockPaymentUseCases) paymentResult(args mock.Arguments) (*paymentapp.PaymentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentUseCases) CreatePayment(ctx context.Context, tenantID uuid.UUID, req paymentapp.CreatePaymentRequest) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, req))
}

func (m *MockPaymentUseCases) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID))
}

func (m *MockPaymentUseCases) ListPayments(ctx context.Context, tenantID uuid.UUID, filter paymentapp.PaymentListFilter) (*shared.Paginated[paymentapp.PaymentListItemResponse], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[paymentapp.PaymentListItemResponse]), args.Error(1)
}

func (m *MockPaymentUseCases) ChangeAmount(ctx context.Context, tenantID, paymentID uuid.UUID, req paymentapp.ChangeAmountRequest) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID, req))
}

func (m *MockPaymentUseCases) ChangePaymentDate(ctx context.Context, tenantID, paymentID uuid.UUID, req paymentapp.ChangePaymentDateRequest) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID, req))
}

func (m *MockPaymentUseCases) ChangeCurrency(ctx context.Context, tenantID, paymentID uuid.UUID, req paymentapp.ChangeCurrencyRequest) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID, req))
}

func (m *MockPaymentUseCases) SetLineAmount(ctx context.Context, tenantID, paymentID, lineID uuid.UUID, req paymentapp.SetLineAmountRequest) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID, lineID, req))
}

func (m *MockPaymentUseCases) ReseedLines(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID))
}

func (m *MockPaymentUseCases) RefreshSnapshots(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID))
}

func (m *MockPaymentUseCases) ClearLines(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID))
}

func (m *MockPaymentUseCases) CopyPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID))
}

func (m *MockPaymentUseCases) PostPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
	return m.paymentResult(m.Called(ctx, tenantID, paymentID))
}

func (m *MockPaymentUseCases) ReconcilePayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.ReconcileResponse, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.ReconcileResponse), args.Error(1)
}

func (m *MockPaymentUseCases) ListReconciliations(ctx context.Context, tenantID, paymentID uuid.UUID) ([]paymentapp.ReconciliationRecordResponse, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]paymentapp.ReconciliationRecordResponse), args.Error(1)
}

func (m *MockPaymentUseCases) PreviewAllocation(ctx context.Context, tenantID uuid.UUID, req paymentapp.PreviewAllocationRequest) (*paymentapp.PreviewAllocationResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.PreviewAllocationResponse), args.Error(1)
}

// MockExchangeRateUseCases is a mock implementation of ExchangeRateUseCases
type MockExchangeRateUseCases struct {
	mock.Mock
}

func (m *MockExchangeRateUseCases) UpsertRate(ctx context.Context, tenantID uuid.UUID, req paymentapp.UpsertExchangeRateRequest) (*paymentapp.ExchangeRateResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.ExchangeRateResponse), args.Error(1)
}

func (m *MockExchangeRateUseCases) ListRates(ctx context.Context, tenantID uuid.UUID, filter paymentapp.ExchangeRateListFilter) (*shared.Paginated[paymentapp.ExchangeRateResponse], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[paymentapp.ExchangeRateResponse]), args.Error(1)
}
