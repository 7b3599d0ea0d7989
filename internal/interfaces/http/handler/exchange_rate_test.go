package handler

import (
	"net/http"
	"testing"

	paymentapp "github.com/erp/payalloc/internal/application/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func rateRouter(svc ExchangeRateUseCases) *gin.Engine {
	h := NewExchangeRateHandler(svc)
	r := gin.New()
	r.POST("/api/v1/exchange-rates", h.Upsert)
	r.GET("/api/v1/exchange-rates", h.List)
	return r
}

func TestExchangeRateHandler_Upsert(t *testing.T) {
	t.Run("stored", func(t *testing.T) {
		svc := new(MockExchangeRateUseCases)
		svc.On("UpsertRate", mock.Anything, testTenantID, mock.MatchedBy(func(req paymentapp.UpsertExchangeRateRequest) bool {
			return req.From == "EUR" && req.To == "USD" && req.Rate.String() == "1.0845"
		})).Return(&paymentapp.ExchangeRateResponse{From: "EUR", To: "USD"}, nil)

		w := do(rateRouter(svc), http.MethodPost, "/api/v1/exchange-rates",
			`{"company_id":"22222222-2222-2222-2222-222222222222","from":"EUR","to":"USD","rate":"1.0845","effective_date":"2024-03-15"}`,
			testTenantID.String())

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("identity pair rejected by binding", func(t *testing.T) {
		w := do(rateRouter(new(MockExchangeRateUseCases)), http.MethodPost, "/api/v1/exchange-rates",
			`{"company_id":"22222222-2222-2222-2222-222222222222","from":"USD","to":"USD","rate":"1","effective_date":"2024-03-15"}`,
			testTenantID.String())

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-positive rate", func(t *testing.T) {
		svc := new(MockExchangeRateUseCases)
		svc.On("UpsertRate", mock.Anything, testTenantID, mock.Anything).
			Return(nil, shared.NewDomainError("INVALID_RATE", "rate must be positive"))

		w := do(rateRouter(svc), http.MethodPost, "/api/v1/exchange-rates",
			`{"company_id":"22222222-2222-2222-2222-222222222222","from":"EUR","to":"USD","rate":"0","effective_date":"2024-03-15"}`,
			testTenantID.String())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_RATE", decode(t, w).Error.Code)
	})
}

func TestExchangeRateHandler_List(t *testing.T) {
	svc := new(MockExchangeRateUseCases)
	company := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	svc.On("ListRates", mock.Anything, testTenantID, mock.MatchedBy(func(f paymentapp.ExchangeRateListFilter) bool {
		return f.CompanyID != nil && *f.CompanyID == company && f.From == "EUR"
	})).Return(&shared.Paginated[paymentapp.ExchangeRateResponse]{
		Items: []paymentapp.ExchangeRateResponse{{From: "EUR", To: "USD"}}, Total: 1, Page: 1, PageSize: 20,
	}, nil)

	w := do(rateRouter(svc), http.MethodGet, "/api/v1/exchange-rates?from=EUR&company_id="+company.String(), "", testTenantID.String())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, int64(1), resp.Meta.Total)
}
