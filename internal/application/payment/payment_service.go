package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/erp/payalloc/internal/infrastructure/logger"
	"github.com/erp/payalloc/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Recompute triggers reported on the allocation metrics
const (
	TriggerCreate   = "create"
	TriggerAmount   = "amount"
	TriggerDate     = "payment_date"
	TriggerCurrency = "currency"
	TriggerReseed   = "reseed"
	TriggerRefresh  = "refresh"
)

// DefaultReconcileClaimTTL bounds how long a reconciliation claim survives a crashed worker
const DefaultReconcileClaimTTL = 5 * time.Minute

// PaymentServiceDeps holds the collaborators of PaymentService
type PaymentServiceDeps struct {
	PaymentRepo     payment.PaymentRepository
	Invoices        payment.InvoiceFinder
	Partners        payment.PartnerFinder
	MoveLines       payment.MoveLineFinder
	Reconciliations payment.ReconciliationRepository
	Engine          *payment.AllocationEngine
	Validator       *payment.AllocationValidator
	Reconciler      *payment.ReconciliationEngine
	TxScope         TransactionScope
	// CompanyCurrency is used when a request leaves company_currency empty
	CompanyCurrency valueobject.Currency
}

// PaymentService runs the payment allocation use-cases
type PaymentService struct {
	paymentRepo     payment.PaymentRepository
	invoices        payment.InvoiceFinder
	partners        payment.PartnerFinder
	moveLines       payment.MoveLineFinder
	reconciliations payment.ReconciliationRepository
	engine          *payment.AllocationEngine
	validator       *payment.AllocationValidator
	reconciler      *payment.ReconciliationEngine
	txScope         TransactionScope
	companyCurrency valueobject.Currency

	idempotency    shared.IdempotencyStore
	claimTTL       time.Duration
	eventPublisher shared.EventPublisher
	metrics        *telemetry.PaymentMetrics
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(deps PaymentServiceDeps) *PaymentService {
	validator := deps.Validator
	if validator == nil {
		validator = payment.NewAllocationValidator()
	}
	return &PaymentService{
		paymentRepo:     deps.PaymentRepo,
		invoices:        deps.Invoices,
		partners:        deps.Partners,
		moveLines:       deps.MoveLines,
		reconciliations: deps.Reconciliations,
		engine:          deps.Engine,
		validator:       validator,
		reconciler:      deps.Reconciler,
		txScope:         deps.TxScope,
		companyCurrency: deps.CompanyCurrency,
		claimTTL:        DefaultReconcileClaimTTL,
	}
}

// SetEventPublisher sets the publisher used after every successful save
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore sets the store guarding concurrent reconciliations
func (s *PaymentService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.claimTTL = ttl
	}
}

// SetPaymentMetrics sets the allocation metrics
func (s *PaymentService) SetPaymentMetrics(pm *telemetry.PaymentMetrics) {
	s.metrics = pm
}

// CreatePayment opens a draft payment and seeds its lines.
// Lines come from InvoiceIDs when given, otherwise from the open invoices of
// the partner and its child partners unless FromInvoiceContext is set.
func (s *PaymentService) CreatePayment(ctx context.Context, tenantID uuid.UUID, req CreatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentType, req.PaymentType,
		telemetry.SpanAttrAmount, req.Amount,
		telemetry.SpanAttrCurrency, req.Currency,
	)

	currency, err := parseCurrency(req.Currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	companyCurrency, err := s.parseCompanyCurrency(req.CompanyCurrency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	p, err := payment.NewPayment(tenantID, payment.NewPaymentParams{
		Reference:   strings.TrimSpace(req.Reference),
		PaymentType: payment.PaymentType(req.PaymentType),
		PartnerID:   req.PartnerID,
		Amount:      req.Amount,
		Currency:    currency,
		PaymentDate: paymentDate,
		Company:     payment.Company{ID: req.CompanyID, Currency: companyCurrency},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, p.ID.String())

	invoices, err := s.initialInvoices(ctx, tenantID, p, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := p.ReplaceLines(invoices); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.recomputeAndValidate(ctx, span, p, TriggerCreate); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Save(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	s.publishEvents(ctx, p)

	logger.L(ctx).Info("payment created",
		zap.String("payment_id", p.ID.String()),
		zap.String("payment_type", p.PaymentType.String()),
		zap.Int("line_count", len(p.Lines)),
	)
	telemetry.SetOK(span)
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// initialInvoices selects the invoices a new payment starts with
func (s *PaymentService) initialInvoices(ctx context.Context, tenantID uuid.UUID, p *payment.Payment, req CreatePaymentRequest) ([]payment.InvoiceSummary, error) {
	if len(req.InvoiceIDs) > 0 {
		return s.invoicesInOrder(ctx, tenantID, req.InvoiceIDs)
	}
	if req.FromInvoiceContext {
		return nil, nil
	}
	return s.openInvoices(ctx, tenantID, p)
}

// openInvoices returns the open invoices of the payment's partner and its
// child partners, of the kind the payment type settles
func (s *PaymentService) openInvoices(ctx context.Context, tenantID uuid.UUID, p *payment.Payment) ([]payment.InvoiceSummary, error) {
	if p.PartnerID == nil {
		return nil, nil
	}
	partnerIDs := []uuid.UUID{*p.PartnerID}
	if s.partners != nil {
		children, err := s.partners.FindChildIDs(ctx, tenantID, *p.PartnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve child partners: %w", err)
		}
		partnerIDs = append(partnerIDs, children...)
	}
	invoices, err := s.invoices.FindOpenInvoices(ctx, tenantID, payment.OpenInvoiceQuery{
		PartnerIDs: partnerIDs,
		Kind:       p.PaymentType.InvoiceKind(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find open invoices: %w", err)
	}
	return invoices, nil
}

// invoicesInOrder loads explicit invoices and keeps the caller's order
func (s *PaymentService) invoicesInOrder(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]payment.InvoiceSummary, error) {
	found, err := s.invoices.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	byID := make(map[uuid.UUID]payment.InvoiceSummary, len(found))
	for _, inv := range found {
		byID[inv.ID] = inv
	}
	out := make([]payment.InvoiceSummary, 0, len(ids))
	for _, id := range ids {
		inv, ok := byID[id]
		if !ok {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", fmt.Sprintf("Invoice %s not found", id))
		}
		out = append(out, inv)
	}
	return out, nil
}

// ChangeAmount sets a new payment amount and reruns the waterfall
func (s *PaymentService) ChangeAmount(ctx context.Context, tenantID, paymentID uuid.UUID, req ChangeAmountRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "change_amount")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrAmount, req.Amount)

	return s.editAndRecompute(ctx, span, tenantID, paymentID, TriggerAmount, func(p *payment.Payment) error {
		return p.SetAmount(req.Amount)
	})
}

// ChangePaymentDate sets a new conversion date and reruns the waterfall
func (s *PaymentService) ChangePaymentDate(ctx context.Context, tenantID, paymentID uuid.UUID, req ChangePaymentDateRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "change_payment_date")
	defer span.End()

	date, err := parseDate(req.PaymentDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.editAndRecompute(ctx, span, tenantID, paymentID, TriggerDate, func(p *payment.Payment) error {
		return p.SetPaymentDate(date)
	})
}

// ChangeCurrency sets a new payment currency and reruns the waterfall
func (s *PaymentService) ChangeCurrency(ctx context.Context, tenantID, paymentID uuid.UUID, req ChangeCurrencyRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "change_currency")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCurrency, req.Currency)

	currency, err := parseCurrency(req.Currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.editAndRecompute(ctx, span, tenantID, paymentID, TriggerCurrency, func(p *payment.Payment) error {
		return p.SetCurrency(currency)
	})
}

// ReseedLines drops every line and seeds again from the partner's open invoices
func (s *PaymentService) ReseedLines(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "reseed_lines")
	defer span.End()

	return s.editAndRecompute(ctx, span, tenantID, paymentID, TriggerReseed, func(p *payment.Payment) error {
		invoices, err := s.openInvoices(ctx, tenantID, p)
		if err != nil {
			return err
		}
		return p.ReplaceLines(invoices)
	})
}

// RefreshSnapshots reloads total and residual of every line from the ledger.
// Lines whose invoice can no longer be resolved are zeroed.
func (s *PaymentService) RefreshSnapshots(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "refresh_snapshots")
	defer span.End()

	return s.editAndRecompute(ctx, span, tenantID, paymentID, TriggerRefresh, func(p *payment.Payment) error {
		if !p.State.CanEdit() {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify payment in %s state", p.State))
		}
		found, err := s.invoices.FindByIDs(ctx, tenantID, p.InvoiceIDs())
		if err != nil {
			return fmt.Errorf("failed to load invoices: %w", err)
		}
		byID := make(map[uuid.UUID]*payment.InvoiceSummary, len(found))
		for i := range found {
			byID[found[i].ID] = &found[i]
		}
		for i := range p.Lines {
			if err := p.Lines[i].Snapshot(byID[p.Lines[i].InvoiceID]); err != nil {
				return err
			}
		}
		p.Touch()
		return nil
	})
}

// SetLineAmount overrides one line by hand. The waterfall is not rerun;
// only the line's payment-currency amount is refreshed before validating.
func (s *PaymentService) SetLineAmount(ctx context.Context, tenantID, paymentID, lineID uuid.UUID, req SetLineAmountRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "set_line_amount")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
		"line_id", lineID.String(),
		telemetry.SpanAttrAmount, req.Amount,
	)

	p, err := s.load(ctx, span, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.SetLineAmount(lineID, req.Amount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.engine.RefreshActualAmounts(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.validate(ctx, span, p); err != nil {
		return nil, err
	}
	p.AddDomainEvent(payment.NewPaymentAllocatedEvent(p))
	if err := s.saveWithLock(ctx, span, p); err != nil {
		return nil, err
	}

	telemetry.SetOK(span)
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// ClearLines removes every line of a draft payment
func (s *PaymentService) ClearLines(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "clear_lines")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	p, err := s.load(ctx, span, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.ClearLines(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.saveWithLock(ctx, span, p); err != nil {
		return nil, err
	}

	telemetry.SetOK(span)
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// GetPayment returns the payment with its lines, selected total and balance
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "get")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	p, err := s.load(ctx, span, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// ListPayments returns a page of payments
func (s *PaymentService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter PaymentListFilter) (*shared.Paginated[PaymentListItemResponse], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "list")
	defer span.End()

	domainFilter := payment.PaymentFilter{Filter: shared.DefaultFilter()}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.State != "" {
		state := payment.PaymentState(filter.State)
		domainFilter.State = &state
	}
	if filter.PaymentType != "" {
		pt := payment.PaymentType(filter.PaymentType)
		domainFilter.PaymentType = &pt
	}
	domainFilter.PartnerID = filter.PartnerID

	payments, total, err := s.paymentRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	items := make([]PaymentListItemResponse, 0, len(payments))
	for i := range payments {
		items = append(items, ToPaymentListItemResponse(&payments[i]))
	}
	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// CopyPayment duplicates a payment as a new draft without lines
func (s *PaymentService) CopyPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "copy")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	src, err := s.load(ctx, span, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	dup := src.Copy()
	if err := s.paymentRepo.Save(ctx, dup); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment copy: %w", err)
	}
	s.publishEvents(ctx, dup)

	logger.L(ctx).Info("payment copied",
		zap.String("source_payment_id", src.ID.String()),
		zap.String("payment_id", dup.ID.String()),
	)
	telemetry.SetOK(span)
	resp := ToPaymentResponse(dup)
	return &resp, nil
}

// PostPayment validates the allocation one last time and moves the payment to posted
func (s *PaymentService) PostPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "post")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	p, err := s.load(ctx, span, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, span, p); err != nil {
		return nil, err
	}
	if err := p.Post(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.saveWithLock(ctx, span, p); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("payment posted",
		zap.String("payment_id", p.ID.String()),
		zap.String("amount", p.Amount.String()),
		zap.String("currency", p.Currency.String()),
	)
	telemetry.SetOK(span)
	resp := ToPaymentResponse(p)
	return &resp, nil
}

// PreviewAllocation runs the waterfall on detached inputs
func (s *PaymentService) PreviewAllocation(ctx context.Context, tenantID uuid.UUID, req PreviewAllocationRequest) (*PreviewAllocationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "preview_allocation")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAmount, req.Amount,
		telemetry.SpanAttrCurrency, req.Currency,
		telemetry.SpanAttrLineCount, len(req.Lines),
	)

	in, err := s.toPreviewInput(tenantID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	preview, err := s.engine.Preview(ctx, in)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToPreviewAllocationResponse(preview)
	return &resp, nil
}

func (s *PaymentService) toPreviewInput(tenantID uuid.UUID, req PreviewAllocationRequest) (payment.PreviewInput, error) {
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return payment.PreviewInput{}, err
	}
	companyCurrency, err := s.parseCompanyCurrency(req.CompanyCurrency)
	if err != nil {
		return payment.PreviewInput{}, err
	}
	date, err := parseDate(req.PaymentDate)
	if err != nil {
		return payment.PreviewInput{}, err
	}
	lines := make([]payment.PreviewLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lc, err := parseCurrency(l.Currency)
		if err != nil {
			return payment.PreviewInput{}, err
		}
		lines = append(lines, payment.PreviewLine{
			InvoiceID:     l.InvoiceID,
			InvoiceNumber: l.InvoiceNumber,
			Currency:      lc,
			Residual:      l.Residual,
		})
	}
	return payment.PreviewInput{
		TenantID:    tenantID,
		Amount:      req.Amount,
		Currency:    currency,
		Company:     payment.Company{ID: req.CompanyID, Currency: companyCurrency},
		PaymentDate: date,
		Lines:       lines,
	}, nil
}

// editAndRecompute loads a payment, applies edit, reruns the waterfall,
// validates and saves with the optimistic lock
func (s *PaymentService) editAndRecompute(ctx context.Context, span trace.Span, tenantID, paymentID uuid.UUID, trigger string, edit func(*payment.Payment) error) (*PaymentResponse, error) {
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	p, err := s.load(ctx, span, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if err := edit(p); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.recomputeAndValidate(ctx, span, p, trigger); err != nil {
		return nil, err
	}
	if err := s.saveWithLock(ctx, span, p); err != nil {
		return nil, err
	}

	logger.L(ctx).Debug("payment allocation recomputed",
		zap.String("payment_id", p.ID.String()),
		zap.String("trigger", trigger),
		zap.String("selected_total", p.SelectedInvoiceTotal().String()),
		zap.String("balance", p.Balance().String()),
	)
	telemetry.SetOK(span)
	resp := ToPaymentResponse(p)
	return &resp, nil
}

func (s *PaymentService) load(ctx context.Context, span trace.Span, tenantID, paymentID uuid.UUID) (*payment.Payment, error) {
	p, err := s.paymentRepo.FindByIDForTenant(ctx, tenantID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentState, p.State.String(),
		telemetry.SpanAttrPaymentType, p.PaymentType.String(),
	)
	return p, nil
}

func (s *PaymentService) recomputeAndValidate(ctx context.Context, span trace.Span, p *payment.Payment, trigger string) error {
	start := time.Now()
	if err := s.engine.Recompute(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("allocation recompute failed",
			zap.String("payment_id", p.ID.String()),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordRecompute(ctx, p.TenantID, trigger, len(p.Lines), time.Since(start))
	}
	telemetry.AddEvent(span, "allocation.recomputed",
		telemetry.SpanAttrLineCount, len(p.Lines),
		"selected_total", p.SelectedInvoiceTotal(),
	)

	if err := s.validate(ctx, span, p); err != nil {
		return err
	}
	p.AddDomainEvent(payment.NewPaymentAllocatedEvent(p))
	return nil
}

func (s *PaymentService) validate(ctx context.Context, span trace.Span, p *payment.Payment) error {
	err := s.validator.ValidatePayment(p)
	if err == nil {
		return nil
	}
	telemetry.RecordError(span, err)
	if s.metrics != nil {
		s.metrics.RecordValidationFailure(ctx, p.TenantID, shared.CodeOf(err))
	}
	return err
}

func (s *PaymentService) saveWithLock(ctx context.Context, span trace.Span, p *payment.Payment) error {
	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.publishEvents(ctx, p)
	return nil
}

// publishEvents hands pending events to the bus. Handler failures never
// undo a save.
func (s *PaymentService) publishEvents(ctx context.Context, p *payment.Payment) {
	events := p.GetDomainEvents()
	if s.eventPublisher != nil && len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			logger.L(ctx).Warn("failed to publish payment events",
				zap.String("payment_id", p.ID.String()),
				zap.Int("event_count", len(events)),
				zap.Error(err),
			)
		}
	}
	p.ClearDomainEvents()
}

func parseCurrency(code string) (valueobject.Currency, error) {
	c, err := valueobject.ParseCurrency(code)
	if err != nil {
		return "", shared.WrapDomainError(payment.CodeInvalidCurrency, "Currency must be a three-letter code", err)
	}
	return c, nil
}

// parseCompanyCurrency falls back to the configured company currency when
// the request leaves it empty
func (s *PaymentService) parseCompanyCurrency(code string) (valueobject.Currency, error) {
	if strings.TrimSpace(code) == "" {
		code = s.companyCurrency.String()
	}
	return parseCurrency(code)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, shared.WrapDomainError(payment.CodeInvalidPaymentDate, "Date must be formatted as YYYY-MM-DD", err)
	}
	return t, nil
}
