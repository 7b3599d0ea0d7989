package payment

import (
	"time"

	"github.com/erp/payalloc/internal/domain/fx"
	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of payment and rate dates
const DateLayout = time.DateOnly

// ==================== Payment Requests ====================

// CreatePaymentRequest opens a draft payment
type CreatePaymentRequest struct {
	Reference       string          `json:"reference" binding:"max=64"`
	PaymentType     string          `json:"payment_type" binding:"required,oneof=inbound outbound"`
	PartnerID       *uuid.UUID      `json:"partner_id"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Currency        string          `json:"currency" binding:"required,currency"`
	PaymentDate     string          `json:"payment_date" binding:"required,datetime=2006-01-02"`
	CompanyID       uuid.UUID       `json:"company_id" binding:"required"`
	CompanyCurrency string          `json:"company_currency" binding:"omitempty,currency"`
	// FromInvoiceContext is set when the payment is opened from an invoice.
	// Open invoices of the partner are then not seeded; only InvoiceIDs are used.
	FromInvoiceContext bool        `json:"from_invoice_context"`
	InvoiceIDs         []uuid.UUID `json:"invoice_ids"`
}

// ChangeAmountRequest changes the payment amount
type ChangeAmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// ChangePaymentDateRequest changes the conversion date
type ChangePaymentDateRequest struct {
	PaymentDate string `json:"payment_date" binding:"required,datetime=2006-01-02"`
}

// ChangeCurrencyRequest changes the payment currency
type ChangeCurrencyRequest struct {
	Currency string `json:"currency" binding:"required,currency"`
}

// SetLineAmountRequest overrides one line by hand
type SetLineAmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// PreviewLineInput is one invoice of a stateless preview
type PreviewLineInput struct {
	InvoiceID     uuid.UUID       `json:"invoice_id" binding:"required"`
	InvoiceNumber string          `json:"invoice_number" binding:"max=64"`
	Currency      string          `json:"currency" binding:"required,currency"`
	Residual      decimal.Decimal `json:"residual" binding:"required"`
}

// PreviewAllocationRequest runs the waterfall without touching any payment
type PreviewAllocationRequest struct {
	Amount          decimal.Decimal    `json:"amount" binding:"required"`
	Currency        string             `json:"currency" binding:"required,currency"`
	PaymentDate     string             `json:"payment_date" binding:"required,datetime=2006-01-02"`
	CompanyID       uuid.UUID          `json:"company_id" binding:"required"`
	CompanyCurrency string             `json:"company_currency" binding:"omitempty,currency"`
	Lines           []PreviewLineInput `json:"lines" binding:"dive"`
}

// PaymentListFilter holds list query parameters
type PaymentListFilter struct {
	State       string     `form:"state" binding:"omitempty,oneof=draft posted reconciled cancelled"`
	PaymentType string     `form:"payment_type" binding:"omitempty,oneof=inbound outbound"`
	PartnerID   *uuid.UUID `form:"-"` // parsed by the handler
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string     `form:"order_by"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ==================== Payment Responses ====================

// AllocationLineResponse is one line of a payment
type AllocationLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceCurrency string          `json:"invoice_currency"`
	InvoiceDate     string          `json:"invoice_date,omitempty"`
	AmountTotal     decimal.Decimal `json:"amount_total"`
	Residual        decimal.Decimal `json:"residual"`
	Amount          decimal.Decimal `json:"amount"`
	ActualAmount    decimal.Decimal `json:"actual_amount"`
	FullyPaid       bool            `json:"fully_paid"`
}

// PaymentResponse is the full payment with its lines and derived totals
type PaymentResponse struct {
	ID                   uuid.UUID                `json:"id"`
	TenantID             uuid.UUID                `json:"tenant_id"`
	Reference            string                   `json:"reference"`
	PaymentType          string                   `json:"payment_type"`
	State                string                   `json:"state"`
	PartnerID            *uuid.UUID               `json:"partner_id,omitempty"`
	Amount               decimal.Decimal          `json:"amount"`
	Currency             string                   `json:"currency"`
	PaymentDate          string                   `json:"payment_date"`
	CompanyID            uuid.UUID                `json:"company_id"`
	CompanyCurrency      string                   `json:"company_currency"`
	Lines                []AllocationLineResponse `json:"lines"`
	SelectedInvoiceTotal decimal.Decimal          `json:"selected_invoice_total"`
	Balance              decimal.Decimal          `json:"balance"`
	Version              int                      `json:"version"`
	PostedAt             *time.Time               `json:"posted_at,omitempty"`
	ReconciledAt         *time.Time               `json:"reconciled_at,omitempty"`
	CancelledAt          *time.Time               `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

// PaymentListItemResponse is a payment row without lines
type PaymentListItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Reference            string          `json:"reference"`
	PaymentType          string          `json:"payment_type"`
	State                string          `json:"state"`
	PartnerID            *uuid.UUID      `json:"partner_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	PaymentDate          string          `json:"payment_date"`
	LineCount            int             `json:"line_count"`
	SelectedInvoiceTotal decimal.Decimal `json:"selected_invoice_total"`
	Balance              decimal.Decimal `json:"balance"`
	CreatedAt            time.Time       `json:"created_at"`
}

// ReconciliationRecordResponse is one written reconciliation record
type ReconciliationRecordResponse struct {
	ID               uuid.UUID       `json:"id"`
	PaymentID        uuid.UUID       `json:"payment_id"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	DebitMoveLineID  uuid.UUID       `json:"debit_move_line_id"`
	CreditMoveLineID uuid.UUID       `json:"credit_move_line_id"`
	Amount           decimal.Decimal `json:"amount"`
	AmountCurrency   decimal.Decimal `json:"amount_currency"`
	Currency         *string         `json:"currency,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ReconcileResponse is the result of reconciling a payment
type ReconcileResponse struct {
	Payment PaymentResponse                `json:"payment"`
	Records []ReconciliationRecordResponse `json:"records"`
}

// PreviewAllocationResponse mirrors payment.AllocationPreview
type PreviewAllocationResponse struct {
	Allocations           []PreviewAllocationItem `json:"allocations"`
	TotalAllocated        decimal.Decimal         `json:"total_allocated"`
	RemainingAmount       decimal.Decimal         `json:"remaining_amount"`
	FullyAllocated        bool                    `json:"fully_allocated"`
	InvoicesFullyPaid     []uuid.UUID             `json:"invoices_fully_paid"`
	InvoicesPartiallyPaid []uuid.UUID             `json:"invoices_partially_paid"`
}

// PreviewAllocationItem is one invoice of a preview
type PreviewAllocationItem struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Currency      string          `json:"currency"`
	Residual      decimal.Decimal `json:"residual"`
	Amount        decimal.Decimal `json:"amount"`
	ActualAmount  decimal.Decimal `json:"actual_amount"`
}

// ==================== Exchange Rate DTOs ====================

// UpsertExchangeRateRequest creates or replaces the rate of a pair for a day
type UpsertExchangeRateRequest struct {
	CompanyID     uuid.UUID       `json:"company_id" binding:"required"`
	From          string          `json:"from" binding:"required,currency"`
	To            string          `json:"to" binding:"required,currency,nefield=From"`
	Rate          decimal.Decimal `json:"rate" binding:"required"`
	EffectiveDate string          `json:"effective_date" binding:"required,datetime=2006-01-02"`
	Source        string          `json:"source" binding:"max=32"`
}

// ExchangeRateListFilter holds rate list query parameters
type ExchangeRateListFilter struct {
	CompanyID *uuid.UUID `form:"-"` // parsed by the handler
	From      string     `form:"from" binding:"omitempty,currency"`
	To        string     `form:"to" binding:"omitempty,currency"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ExchangeRateResponse is a stored rate row
type ExchangeRateResponse struct {
	ID            uuid.UUID       `json:"id"`
	CompanyID     uuid.UUID       `json:"company_id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate string          `json:"effective_date"`
	Source        string          `json:"source"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ==================== Mappers ====================

// ToPaymentResponse maps a payment aggregate to its response
func ToPaymentResponse(p *payment.Payment) PaymentResponse {
	lines := make([]AllocationLineResponse, 0, len(p.Lines))
	for i := range p.Lines {
		lines = append(lines, toLineResponse(&p.Lines[i]))
	}
	return PaymentResponse{
		ID:                   p.ID,
		TenantID:             p.TenantID,
		Reference:            p.Reference,
		PaymentType:          p.PaymentType.String(),
		State:                p.State.String(),
		PartnerID:            p.PartnerID,
		Amount:               p.Amount,
		Currency:             p.Currency.String(),
		PaymentDate:          p.PaymentDate.Format(DateLayout),
		CompanyID:            p.Company.ID,
		CompanyCurrency:      p.Company.Currency.String(),
		Lines:                lines,
		SelectedInvoiceTotal: p.SelectedInvoiceTotal(),
		Balance:              p.Balance(),
		Version:              p.Version,
		PostedAt:             p.PostedAt,
		ReconciledAt:         p.ReconciledAt,
		CancelledAt:          p.CancelledAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toLineResponse(l *payment.AllocationLine) AllocationLineResponse {
	resp := AllocationLineResponse{
		ID:              l.ID,
		InvoiceID:       l.InvoiceID,
		InvoiceNumber:   l.InvoiceNumber,
		InvoiceCurrency: l.InvoiceCurrency.String(),
		AmountTotal:     l.AmountTotal,
		Residual:        l.Residual,
		Amount:          l.Amount,
		ActualAmount:    l.ActualAmount,
		FullyPaid:       l.IsFullyPaid(),
	}
	if !l.InvoiceDate.IsZero() {
		resp.InvoiceDate = l.InvoiceDate.Format(DateLayout)
	}
	return resp
}

// ToPaymentListItemResponse maps a payment to its list row
func ToPaymentListItemResponse(p *payment.Payment) PaymentListItemResponse {
	return PaymentListItemResponse{
		ID:                   p.ID,
		Reference:            p.Reference,
		PaymentType:          p.PaymentType.String(),
		State:                p.State.String(),
		PartnerID:            p.PartnerID,
		Amount:               p.Amount,
		Currency:             p.Currency.String(),
		PaymentDate:          p.PaymentDate.Format(DateLayout),
		LineCount:            len(p.Lines),
		SelectedInvoiceTotal: p.SelectedInvoiceTotal(),
		Balance:              p.Balance(),
		CreatedAt:            p.CreatedAt,
	}
}

// ToReconciliationRecordResponses maps written records
func ToReconciliationRecordResponses(records []payment.ReconciliationRecord) []ReconciliationRecordResponse {
	out := make([]ReconciliationRecordResponse, 0, len(records))
	for _, r := range records {
		item := ReconciliationRecordResponse{
			ID:               r.ID,
			PaymentID:        r.PaymentID,
			InvoiceID:        r.InvoiceID,
			DebitMoveLineID:  r.DebitMoveLineID,
			CreditMoveLineID: r.CreditMoveLineID,
			Amount:           r.Amount,
			AmountCurrency:   r.AmountCurrency,
			CreatedAt:        r.CreatedAt,
		}
		if r.Currency != nil {
			code := r.Currency.String()
			item.Currency = &code
		}
		out = append(out, item)
	}
	return out
}

// ToPreviewAllocationResponse maps an engine preview
func ToPreviewAllocationResponse(p *payment.AllocationPreview) PreviewAllocationResponse {
	items := make([]PreviewAllocationItem, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		items = append(items, PreviewAllocationItem{
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			Currency:      a.Currency.String(),
			Residual:      a.Residual,
			Amount:        a.Amount,
			ActualAmount:  a.ActualAmount,
		})
	}
	return PreviewAllocationResponse{
		Allocations:           items,
		TotalAllocated:        p.TotalAllocated,
		RemainingAmount:       p.RemainingAmount,
		FullyAllocated:        p.FullyAllocated,
		InvoicesFullyPaid:     nonNilIDs(p.InvoicesFullyPaid),
		InvoicesPartiallyPaid: nonNilIDs(p.InvoicesPartiallyPaid),
	}
}

// ToExchangeRateResponse maps a rate row
func ToExchangeRateResponse(r *fx.ExchangeRate) ExchangeRateResponse {
	return ExchangeRateResponse{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		From:          r.From.String(),
		To:            r.To.String(),
		Rate:          r.Rate,
		EffectiveDate: r.EffectiveDate.Format(DateLayout),
		Source:        r.Source,
		UpdatedAt:     r.UpdatedAt,
	}
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
