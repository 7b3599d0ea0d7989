package handler

import (
	"errors"
	"net/http"
	"testing"

	paymentapp "github.com/erp/payalloc/internal/application/payment"
	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func paymentRouter(svc PaymentUseCases) *gin.Engine {
	h := NewPaymentHandler(svc)
	r := gin.New()
	g := r.Group("/api/v1")
	g.POST("/payments", h.Create)
	g.GET("/payments", h.List)
	g.GET("/payments/:id", h.Get)
	g.PUT("/payments/:id/amount", h.ChangeAmount)
	g.PUT("/payments/:id/date", h.ChangeDate)
	g.PUT("/payments/:id/currency", h.ChangeCurrency)
	g.PUT("/payments/:id/lines/:line_id", h.SetLineAmount)
	g.POST("/payments/:id/lines/reseed", h.ReseedLines)
	g.POST("/payments/:id/lines/refresh", h.RefreshLines)
	g.DELETE("/payments/:id/lines", h.ClearLines)
	g.POST("/payments/:id/copy", h.Copy)
	g.POST("/payments/:id/post", h.Post)
	g.POST("/payments/:id/reconcile", h.Reconcile)
	g.GET("/payments/:id/reconciliations", h.ListReconciliations)
	g.POST("/allocations/preview", h.Preview)
	return r
}

func paymentResponse(id uuid.UUID, state string) *paymentapp.PaymentResponse {
	return &paymentapp.PaymentResponse{
		ID:       id,
		TenantID: testTenantID,
		State:    state,
		Amount:   decimal.RequireFromString("100"),
		Currency: "USD",
	}
}

const createBody = `{
	"reference": "PAY-001",
	"payment_type": "outbound",
	"amount": "100.00",
	"currency": "usd",
	"payment_date": "2024-03-15",
	"company_id": "22222222-2222-2222-2222-222222222222",
	"company_currency": "USD"
}`

func TestPaymentHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		id := uuid.New()
		svc.On("CreatePayment", mock.Anything, testTenantID, mock.MatchedBy(func(req paymentapp.CreatePaymentRequest) bool {
			return req.PaymentType == "outbound" && req.Amount.Equal(decimal.RequireFromString("100")) &&
				req.Currency == "usd" && req.PaymentDate == "2024-03-15"
		})).Return(paymentResponse(id, "draft"), nil)

		w := do(paymentRouter(svc), http.MethodPost, "/api/v1/payments", createBody, testTenantID.String())

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode(t, w)
		assert.True(t, resp.Success)
		assert.Equal(t, id.String(), resp.Data.(map[string]any)["id"])
		svc.AssertExpectations(t)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		svc := new(MockPaymentUseCases)

		w := do(paymentRouter(svc), http.MethodPost, "/api/v1/payments",
			`{"payment_type":"sideways","amount":"1","currency":"DOLLARS","payment_date":"2024-03-15","company_id":"22222222-2222-2222-2222-222222222222","company_currency":"USD"}`,
			testTenantID.String())

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := map[string]bool{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = true
		}
		assert.True(t, fields["payment_type"])
		assert.True(t, fields["currency"])
		svc.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := do(paymentRouter(new(MockPaymentUseCases)), http.MethodPost, "/api/v1/payments", `{"amount":`, testTenantID.String())

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, w).Error.Code)
	})

	t.Run("missing tenant", func(t *testing.T) {
		w := do(paymentRouter(new(MockPaymentUseCases)), http.MethodPost, "/api/v1/payments", createBody, "")

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeMissingTenant, decode(t, w).Error.Code)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("CreatePayment", mock.Anything, testTenantID, mock.Anything).
			Return(nil, shared.NewDomainError("INVOICE_NOT_FOUND", "invoice not found"))

		w := do(paymentRouter(svc), http.MethodPost, "/api/v1/payments", createBody, testTenantID.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "INVOICE_NOT_FOUND", decode(t, w).Error.Code)
	})
}

func TestPaymentHandler_Get(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		w := do(paymentRouter(new(MockPaymentUseCases)), http.MethodGet, "/api/v1/payments/not-a-uuid", "", testTenantID.String())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decode(t, w).Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		id := uuid.New()
		svc.On("GetPayment", mock.Anything, testTenantID, id).Return(nil, payment.ErrPaymentNotFound)

		w := do(paymentRouter(svc), http.MethodGet, "/api/v1/payments/"+id.String(), "", testTenantID.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, payment.CodePaymentNotFound, decode(t, w).Error.Code)
	})

	t.Run("unexpected errors are hidden", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		id := uuid.New()
		svc.On("GetPayment", mock.Anything, testTenantID, id).Return(nil, errors.New("pq: password authentication failed"))

		w := do(paymentRouter(svc), http.MethodGet, "/api/v1/payments/"+id.String(), "", testTenantID.String())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decode(t, w)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "password")
	})
}

func TestPaymentHandler_List(t *testing.T) {
	svc := new(MockPaymentUseCases)
	partner := uuid.New()
	page := &shared.Paginated[paymentapp.PaymentListItemResponse]{
		Items:    []paymentapp.PaymentListItemResponse{{ID: uuid.New(), State: "draft"}},
		Total:    21,
		Page:     2,
		PageSize: 20,
	}
	svc.On("ListPayments", mock.Anything, testTenantID, mock.MatchedBy(func(f paymentapp.PaymentListFilter) bool {
		return f.State == "draft" && f.Page == 2 && f.PartnerID != nil && *f.PartnerID == partner
	})).Return(page, nil)

	w := do(paymentRouter(svc), http.MethodGet, "/api/v1/payments?state=draft&page=2&partner_id="+partner.String(), "", testTenantID.String())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(21), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.Len(t, resp.Data, 1)

	t.Run("bad state", func(t *testing.T) {
		w := do(paymentRouter(new(MockPaymentUseCases)), http.MethodGet, "/api/v1/payments?state=paid", "", testTenantID.String())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad partner id", func(t *testing.T) {
		w := do(paymentRouter(new(MockPaymentUseCases)), http.MethodGet, "/api/v1/payments?partner_id=x", "", testTenantID.String())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPaymentHandler_Edits(t *testing.T) {
	id := uuid.New()
	base := "/api/v1/payments/" + id.String()

	t.Run("change amount", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("ChangeAmount", mock.Anything, testTenantID, id, mock.MatchedBy(func(req paymentapp.ChangeAmountRequest) bool {
			return req.Amount.Equal(decimal.RequireFromString("250.5"))
		})).Return(paymentResponse(id, "draft"), nil)

		w := do(paymentRouter(svc), http.MethodPut, base+"/amount", `{"amount":250.5}`, testTenantID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("change date rejects bad format", func(t *testing.T) {
		w := do(paymentRouter(new(MockPaymentUseCases)), http.MethodPut, base+"/date", `{"payment_date":"03/15/2024"}`, testTenantID.String())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decode(t, w).Error.Code)
	})

	t.Run("change currency without rate", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("ChangeCurrency", mock.Anything, testTenantID, id, paymentapp.ChangeCurrencyRequest{Currency: "GBP"}).
			Return(nil, payment.ErrConversionUnavailable)

		w := do(paymentRouter(svc), http.MethodPut, base+"/currency", `{"currency":"GBP"}`, testTenantID.String())

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, payment.CodeConversionUnavailable, decode(t, w).Error.Code)
	})

	t.Run("set line amount over residual", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		lineID := uuid.New()
		svc.On("SetLineAmount", mock.Anything, testTenantID, id, lineID, mock.Anything).
			Return(nil, shared.NewDomainError(payment.CodeAllocationExceedsResidual, "allocation exceeds residual"))

		w := do(paymentRouter(svc), http.MethodPut, base+"/lines/"+lineID.String(), `{"amount":"500"}`, testTenantID.String())

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, payment.CodeAllocationExceedsResidual, decode(t, w).Error.Code)
	})

	t.Run("line operations", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("ReseedLines", mock.Anything, testTenantID, id).Return(paymentResponse(id, "draft"), nil)
		svc.On("RefreshSnapshots", mock.Anything, testTenantID, id).Return(paymentResponse(id, "draft"), nil)
		svc.On("ClearLines", mock.Anything, testTenantID, id).Return(paymentResponse(id, "draft"), nil)
		r := paymentRouter(svc)

		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, base+"/lines/reseed", "", testTenantID.String()).Code)
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, base+"/lines/refresh", "", testTenantID.String()).Code)
		assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, base+"/lines", "", testTenantID.String()).Code)
		svc.AssertExpectations(t)
	})

	t.Run("edit after posting", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("ReseedLines", mock.Anything, testTenantID, id).Return(nil, shared.ErrInvalidState)

		w := do(paymentRouter(svc), http.MethodPost, base+"/lines/reseed", "", testTenantID.String())

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INVALID_STATE", decode(t, w).Error.Code)
	})
}

func TestPaymentHandler_Lifecycle(t *testing.T) {
	id := uuid.New()
	base := "/api/v1/payments/" + id.String()

	t.Run("copy creates", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("CopyPayment", mock.Anything, testTenantID, id).Return(paymentResponse(uuid.New(), "draft"), nil)

		w := do(paymentRouter(svc), http.MethodPost, base+"/copy", "", testTenantID.String())

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("post", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("PostPayment", mock.Anything, testTenantID, id).Return(paymentResponse(id, "posted"), nil)

		w := do(paymentRouter(svc), http.MethodPost, base+"/post", "", testTenantID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "posted", decode(t, w).Data.(map[string]any)["state"])
	})

	t.Run("reconcile", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("ReconcilePayment", mock.Anything, testTenantID, id).Return(&paymentapp.ReconcileResponse{
			Payment: *paymentResponse(id, "reconciled"),
			Records: []paymentapp.ReconciliationRecordResponse{{ID: uuid.New(), Amount: decimal.RequireFromString("-100")}},
		}, nil)

		w := do(paymentRouter(svc), http.MethodPost, base+"/reconcile", "", testTenantID.String())

		require.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Len(t, data["records"], 1)
	})

	t.Run("reconcile conflicts", func(t *testing.T) {
		for _, code := range []string{payment.CodeReconciliationInProgress, payment.CodeAlreadyReconciled, "CONCURRENCY_CONFLICT"} {
			svc := new(MockPaymentUseCases)
			svc.On("ReconcilePayment", mock.Anything, testTenantID, id).Return(nil, shared.NewDomainError(code, "conflict"))

			w := do(paymentRouter(svc), http.MethodPost, base+"/reconcile", "", testTenantID.String())

			assert.Equal(t, http.StatusConflict, w.Code, code)
			assert.Equal(t, code, decode(t, w).Error.Code)
		}
	})

	t.Run("list reconciliations", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("ListReconciliations", mock.Anything, testTenantID, id).
			Return([]paymentapp.ReconciliationRecordResponse{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

		w := do(paymentRouter(svc), http.MethodGet, base+"/reconciliations", "", testTenantID.String())

		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w).Data, 2)
	})
}

func TestPaymentHandler_Preview(t *testing.T) {
	svc := new(MockPaymentUseCases)
	inv := uuid.New()
	svc.On("PreviewAllocation", mock.Anything, testTenantID, mock.MatchedBy(func(req paymentapp.PreviewAllocationRequest) bool {
		return len(req.Lines) == 1 && req.Lines[0].InvoiceID == inv && req.Lines[0].Residual.Equal(decimal.RequireFromString("80"))
	})).Return(&paymentapp.PreviewAllocationResponse{
		TotalAllocated:    decimal.RequireFromString("80"),
		RemainingAmount:   decimal.RequireFromString("20"),
		InvoicesFullyPaid: []uuid.UUID{inv},
	}, nil)

	body := `{"amount":"100","currency":"USD","payment_date":"2024-03-15",
		"company_id":"22222222-2222-2222-2222-222222222222","company_currency":"USD",
		"lines":[{"invoice_id":"` + inv.String() + `","invoice_number":"INV/1","currency":"USD","residual":"80"}]}`

	w := do(paymentRouter(svc), http.MethodPost, "/api/v1/allocations/preview", body, testTenantID.String())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, "20", data["remaining_amount"])

	t.Run("bad line currency", func(t *testing.T) {
		bad := `{"amount":"100","currency":"USD","payment_date":"2024-03-15",
			"company_id":"22222222-2222-2222-2222-222222222222","company_currency":"USD",
			"lines":[{"invoice_id":"` + inv.String() + `","currency":"X1","residual":"80"}]}`

		w := do(paymentRouter(new(MockPaymentUseCases)), http.MethodPost, "/api/v1/allocations/preview", bad, testTenantID.String())

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "lines[0].currency", resp.Error.Details[0].Field)
	})

	t.Run("company currency may be left to the configured default", func(t *testing.T) {
		svc := new(MockPaymentUseCases)
		svc.On("PreviewAllocation", mock.Anything, testTenantID, mock.MatchedBy(func(req paymentapp.PreviewAllocationRequest) bool {
			return req.CompanyCurrency == ""
		})).Return(&paymentapp.PreviewAllocationResponse{}, nil)
		noCompanyCurrency := `{"amount":"100","currency":"USD","payment_date":"2024-03-15",
			"company_id":"22222222-2222-2222-2222-222222222222","lines":[]}`

		w := do(paymentRouter(svc), http.MethodPost, "/api/v1/allocations/preview", noCompanyCurrency, testTenantID.String())

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		svc := new(MockPaymentUseCases)

		w := do(paymentRouter(svc), http.MethodPost, "/api/v1/allocations/preview", body, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "PreviewAllocation", mock.Anything, mock.Anything, mock.Anything)
	})
}
