package handler

import (
	"context"

	paymentapp "github.com/erp/payalloc/internal/application/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExchangeRateUseCases administers the rate table
type ExchangeRateUseCases interface {
	UpsertRate(ctx context.Context, tenantID uuid.UUID, req paymentapp.UpsertExchangeRateRequest) (*paymentapp.ExchangeRateResponse, error)
	ListRates(ctx context.Context, tenantID uuid.UUID, filter paymentapp.ExchangeRateListFilter) (*shared.Paginated[paymentapp.ExchangeRateResponse], error)
}

// ExchangeRateHandler serves /exchange-rates
type ExchangeRateHandler struct {
	BaseHandler
	service ExchangeRateUseCases
}

// NewExchangeRateHandler creates a new ExchangeRateHandler
func NewExchangeRateHandler(service ExchangeRateUseCases) *ExchangeRateHandler {
	return &ExchangeRateHandler{service: service}
}

// Upsert handles POST /exchange-rates
func (h *ExchangeRateHandler) Upsert(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	var req paymentapp.UpsertExchangeRateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.UpsertRate(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /exchange-rates
func (h *ExchangeRateHandler) List(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	var filter paymentapp.ExchangeRateListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.CompanyID, ok = h.queryUUID(c, "company_id"); !ok {
		return
	}
	page, err := h.service.ListRates(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
