package event

import (
	"context"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/infrastructure/logger"
	"github.com/erp/payalloc/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentAuditHandler writes one structured audit line per payment event.
type PaymentAuditHandler struct {
	logger *zap.Logger
}

// NewPaymentAuditHandler creates an audit handler that logs through base.
func NewPaymentAuditHandler(base *zap.Logger) *PaymentAuditHandler {
	if base == nil {
		base = zap.NewNop()
	}
	return &PaymentAuditHandler{logger: base.Named("audit")}
}

func (h *PaymentAuditHandler) EventTypes() []string {
	return []string{
		payment.EventTypePaymentCreated,
		payment.EventTypePaymentAllocated,
		payment.EventTypePaymentPosted,
		payment.EventTypePaymentReconciled,
	}
}

func (h *PaymentAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("payment_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *payment.PaymentCreatedEvent:
		fields = append(fields,
			zap.String("reference", e.Reference),
			zap.String("payment_type", string(e.PaymentType)),
			zap.String("amount", e.Amount.String()),
			zap.String("currency", e.Currency.String()),
		)
	case *payment.PaymentAllocatedEvent:
		fields = append(fields,
			zap.String("amount", e.Amount.String()),
			zap.String("selected_total", e.SelectedTotal.String()),
			zap.String("balance", e.Balance.String()),
			zap.Int("allocated_invoices", len(e.Invoices)),
		)
	case *payment.PaymentPostedEvent:
		fields = append(fields, zap.Time("posted_at", e.PostedAt))
	case *payment.PaymentReconciledEvent:
		fields = append(fields,
			zap.Int("record_count", e.RecordCount),
			zap.String("total_amount", e.TotalAmount.String()),
		)
	}

	if requestID := logger.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if traceID := telemetry.GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	h.logger.Info("payment event", fields...)
	return nil
}

var _ shared.EventHandler = (*PaymentAuditHandler)(nil)
