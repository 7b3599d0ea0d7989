package payment

import (
	"context"
	"fmt"

	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/infrastructure/logger"
	"github.com/erp/payalloc/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileClaimKey is the idempotency key held while a payment is being reconciled
func ReconcileClaimKey(paymentID uuid.UUID) string {
	return "payment:reconcile:" + paymentID.String()
}

// ReconcilePayment builds the reconciliation records of a posted payment and
// writes them together with the reconciled state in one transaction.
// A second call while the first is still running fails with
// RECONCILIATION_IN_PROGRESS; a call on a reconciled payment fails with
// ALREADY_RECONCILED.
func (s *PaymentService) ReconcilePayment(ctx context.Context, tenantID, paymentID uuid.UUID) (resp *ReconcileResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "reconcile")
	defer span.End()
	key := ReconcileClaimKey(paymentID)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
		telemetry.SpanAttrIdempotencyKey, key,
	)
	log := logger.L(ctx).With(zap.String("payment_id", paymentID.String()))

	claimed, release := s.claim(ctx, key)
	if !claimed {
		err = shared.NewDomainError(payment.CodeReconciliationInProgress,
			"Payment "+paymentID.String()+" is already being reconciled")
		telemetry.RecordError(span, err)
		s.recordReconciliation(ctx, tenantID, "", telemetry.OutcomeDuplicate, 0)
		return nil, err
	}
	defer release()

	p, err := s.load(ctx, span, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.recordReconciliation(ctx, tenantID, p.PaymentType.String(), telemetry.OutcomeFailed, 0)
		}
	}()

	if p.State == payment.PaymentStateReconciled {
		err = shared.NewDomainError(payment.CodeAlreadyReconciled, "Payment "+p.DisplayName()+" is already reconciled")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !p.State.CanReconcile() {
		err = shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reconcile payment in %s state", p.State))
		telemetry.RecordError(span, err)
		return nil, err
	}

	records, err := s.buildRecords(ctx, tenantID, p)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecordCount, len(records))

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		recRepo := repos.ReconciliationRepo()
		for i := range records {
			if err := recRepo.CreateReconciliation(ctx, &records[i]); err != nil {
				return fmt.Errorf("failed to write reconciliation record: %w", err)
			}
		}
		if err := p.MarkReconciled(records); err != nil {
			return err
		}
		return repos.PaymentRepo().SaveWithLock(ctx, p)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("reconciliation rolled back", zap.Int("record_count", len(records)), zap.Error(err))
		return nil, err
	}

	s.publishEvents(ctx, p)
	s.recordReconciliation(ctx, tenantID, p.PaymentType.String(), telemetry.OutcomeSuccess, len(records))
	log.Info("payment reconciled", zap.Int("record_count", len(records)))
	telemetry.SetOK(span)

	return &ReconcileResponse{
		Payment: ToPaymentResponse(p),
		Records: ToReconciliationRecordResponses(records),
	}, nil
}

// ListReconciliations returns the records written for a payment
func (s *PaymentService) ListReconciliations(ctx context.Context, tenantID, paymentID uuid.UUID) ([]ReconciliationRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "list_reconciliations")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	if _, err := s.load(ctx, span, tenantID, paymentID); err != nil {
		return nil, err
	}
	records, err := s.reconciliations.FindByPayment(ctx, tenantID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToReconciliationRecordResponses(records), nil
}

func (s *PaymentService) buildRecords(ctx context.Context, tenantID uuid.UUID, p *payment.Payment) ([]payment.ReconciliationRecord, error) {
	ledgerLines, err := s.moveLines.FindLedgerMoveLines(ctx, tenantID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment move lines: %w", err)
	}
	allocated := p.AllocatedLines()
	invoiceIDs := make([]uuid.UUID, 0, len(allocated))
	for _, l := range allocated {
		invoiceIDs = append(invoiceIDs, l.InvoiceID)
	}
	invoiceLines := map[uuid.UUID][]payment.MoveLine{}
	if len(invoiceIDs) > 0 {
		invoiceLines, err = s.moveLines.FindInvoiceMoveLines(ctx, tenantID, invoiceIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load invoice move lines: %w", err)
		}
	}
	return s.reconciler.Build(ctx, payment.ReconcileInput{
		Payment:          p,
		PaymentMoveLines: ledgerLines,
		InvoiceMoveLines: invoiceLines,
	})
}

// claim takes the reconciliation key. A store outage does not block
// reconciliation: the version check on save still rejects a concurrent winner.
// The returned release is always safe to call.
func (s *PaymentService) claim(ctx context.Context, key string) (bool, func()) {
	noop := func() {}
	if s.idempotency == nil {
		return true, noop
	}
	ok, err := s.idempotency.MarkProcessed(ctx, key, s.claimTTL)
	if err != nil {
		logger.L(ctx).Warn("idempotency store unavailable, reconciling without claim",
			zap.String("key", key), zap.Error(err))
		return true, noop
	}
	if !ok {
		return false, noop
	}
	return true, func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
			logger.L(ctx).Warn("failed to release reconciliation claim", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *PaymentService) recordReconciliation(ctx context.Context, tenantID uuid.UUID, paymentType, outcome string, records int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordReconciliation(ctx, tenantID, paymentType, outcome, records)
}
