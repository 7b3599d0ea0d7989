package handler

import (
	"context"

	paymentapp "github.com/erp/payalloc/internal/application/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentUseCases is the part of paymentapp.PaymentService the HTTP layer drives
type PaymentUseCases interface {
	CreatePayment(ctx context.Context, tenantID uuid.UUID, req paymentapp.CreatePaymentRequest) (*paymentapp.PaymentResponse, error)
	GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error)
	ListPayments(ctx context.Context, tenantID uuid.UUID, filter paymentapp.PaymentListFilter) (*shared.Paginated[paymentapp.PaymentListItemResponse], error)
	ChangeAmount(ctx context.Context, tenantID, paymentID uuid.UUID, req paymentapp.ChangeAmountRequest) (*paymentapp.PaymentResponse, error)
	ChangePaymentDate(ctx context.Context, tenantID, paymentID uuid.UUID, req paymentapp.ChangePaymentDateRequest) (*paymentapp.PaymentResponse, error)
	ChangeCurrency(ctx context.Context, tenantID, paymentID uuid.UUID, req paymentapp.ChangeCurrencyRequest) (*paymentapp.PaymentResponse, error)
	SetLineAmount(ctx context.Context, tenantID, paymentID, lineID uuid.UUID, req paymentapp.SetLineAmountRequest) (*paymentapp.PaymentResponse, error)
	ReseedLines(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error)
	RefreshSnapshots(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error)
	ClearLines(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error)
	CopyPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error)
	PostPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error)
	ReconcilePayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.ReconcileResponse, error)
	ListReconciliations(ctx context.Context, tenantID, paymentID uuid.UUID) ([]paymentapp.ReconciliationRecordResponse, error)
	PreviewAllocation(ctx context.Context, tenantID uuid.UUID, req paymentapp.PreviewAllocationRequest) (*paymentapp.PreviewAllocationResponse, error)
}

// PaymentHandler exposes payment editing, posting and reconciliation
type PaymentHandler struct {
	BaseHandler
	service PaymentUseCases
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service PaymentUseCases) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// paymentCall resolves the tenant and :id, runs fn and writes its result
func (h *PaymentHandler) paymentCall(c *gin.Context, fn func(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error)) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create handles POST /payments. Lines are seeded from the given invoices or
// from the partner's open invoices, then allocated.
func (h *PaymentHandler) Create(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	var req paymentapp.CreatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.CreatePayment(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	h.paymentCall(c, h.service.GetPayment)
}

// List handles GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	var filter paymentapp.PaymentListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.PartnerID, ok = h.queryUUID(c, "partner_id"); !ok {
		return
	}
	page, err := h.service.ListPayments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ChangeAmount handles PUT /payments/:id/amount
func (h *PaymentHandler) ChangeAmount(c *gin.Context) {
	var req paymentapp.ChangeAmountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.paymentCall(c, func(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
		return h.service.ChangeAmount(ctx, tenantID, paymentID, req)
	})
}

// ChangeDate handles PUT /payments/:id/date
func (h *PaymentHandler) ChangeDate(c *gin.Context) {
	var req paymentapp.ChangePaymentDateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.paymentCall(c, func(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
		return h.service.ChangePaymentDate(ctx, tenantID, paymentID, req)
	})
}

// ChangeCurrency handles PUT /payments/:id/currency
func (h *PaymentHandler) ChangeCurrency(c *gin.Context) {
	var req paymentapp.ChangeCurrencyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.paymentCall(c, func(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
		return h.service.ChangeCurrency(ctx, tenantID, paymentID, req)
	})
}

// SetLineAmount handles PUT /payments/:id/lines/:line_id. The other lines keep
// their amounts.
func (h *PaymentHandler) SetLineAmount(c *gin.Context) {
	lineID, ok := h.pathUUID(c, "line_id")
	if !ok {
		return
	}
	var req paymentapp.SetLineAmountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.paymentCall(c, func(ctx context.Context, tenantID, paymentID uuid.UUID) (*paymentapp.PaymentResponse, error) {
		return h.service.SetLineAmount(ctx, tenantID, paymentID, lineID, req)
	})
}

// ReseedLines handles POST /payments/:id/lines/reseed
func (h *PaymentHandler) ReseedLines(c *gin.Context) {
	h.paymentCall(c, h.service.ReseedLines)
}

// RefreshLines handles POST /payments/:id/lines/refresh
func (h *PaymentHandler) RefreshLines(c *gin.Context) {
	h.paymentCall(c, h.service.RefreshSnapshots)
}

// ClearLines handles DELETE /payments/:id/lines
func (h *PaymentHandler) ClearLines(c *gin.Context) {
	h.paymentCall(c, h.service.ClearLines)
}

// Copy handles POST /payments/:id/copy. The copy starts with no lines.
func (h *PaymentHandler) Copy(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.CopyPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Post handles POST /payments/:id/post
func (h *PaymentHandler) Post(c *gin.Context) {
	h.paymentCall(c, h.service.PostPayment)
}

// Reconcile handles POST /payments/:id/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.ReconcilePayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListReconciliations handles GET /payments/:id/reconciliations
func (h *PaymentHandler) ListReconciliations(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	records, err := h.service.ListReconciliations(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// Preview handles POST /allocations/preview. Nothing is stored.
func (h *PaymentHandler) Preview(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	var req paymentapp.PreviewAllocationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.PreviewAllocation(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
