package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PaymentMetrics tracks allocation, validation and reconciliation activity.
type PaymentMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	recomputeTotal        *Counter
	recomputeDuration     *Histogram
	allocationLineCount   *Histogram
	validationFailures    *Counter
	conversionFailures    *Counter
	reconciliationTotal   *Counter
	reconciliationRecords *Counter

	draftPayments *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	draftProvider DraftPaymentProvider
}

// DraftPaymentProvider reports open work per tenant for periodic collection.
type DraftPaymentProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	CountDraftPayments(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// PaymentMetricsConfig holds configuration for payment metrics.
type PaymentMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	DraftProvider DraftPaymentProvider
}

// NewPaymentMetrics registers the payment instruments on cfg.Meter.
func NewPaymentMetrics(cfg PaymentMetricsConfig) (*PaymentMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PaymentMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		draftProvider: cfg.DraftProvider,
	}

	var err error
	if pm.recomputeTotal, err = NewCounter(cfg.Meter,
		"payalloc_allocation_recompute_total",
		"Number of allocation waterfall recomputations",
		"{recomputes}",
	); err != nil {
		return nil, err
	}
	if pm.recomputeDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "payalloc_allocation_recompute_duration_seconds",
		Description: "Duration of allocation recomputations",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if pm.allocationLineCount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "payalloc_allocation_lines",
		Description: "Number of allocation lines per recomputed payment",
		Unit:        "{lines}",
		Boundaries:  LineCountBuckets,
	}); err != nil {
		return nil, err
	}
	if pm.validationFailures, err = NewCounter(cfg.Meter,
		"payalloc_allocation_validation_failures_total",
		"Allocation edits rejected by the validator",
		"{failures}",
	); err != nil {
		return nil, err
	}
	if pm.conversionFailures, err = NewCounter(cfg.Meter,
		"payalloc_conversion_failures_total",
		"Currency conversions that found no exchange rate",
		"{failures}",
	); err != nil {
		return nil, err
	}
	if pm.reconciliationTotal, err = NewCounter(cfg.Meter,
		"payalloc_reconciliation_total",
		"Reconciliation attempts by outcome",
		"{reconciliations}",
	); err != nil {
		return nil, err
	}
	if pm.reconciliationRecords, err = NewCounter(cfg.Meter,
		"payalloc_reconciliation_records_total",
		"Partial reconciliation records written",
		"{records}",
	); err != nil {
		return nil, err
	}
	if pm.draftPayments, err = NewGauge(cfg.Meter,
		"payalloc_draft_payments",
		"Payments still in draft",
		"{payments}",
	); err != nil {
		return nil, err
	}

	return pm, nil
}

// Reconciliation outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// RecordRecompute records one waterfall run over lineCount lines
func (pm *PaymentMetrics) RecordRecompute(ctx context.Context, tenantID uuid.UUID, trigger string, lineCount int, d time.Duration) {
	pm.recomputeTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrTrigger.String(trigger),
	)
	pm.recomputeDuration.RecordDuration(ctx, d, AttrTrigger.String(trigger))
	pm.allocationLineCount.Record(ctx, float64(lineCount), AttrTrigger.String(trigger))
}

// RecordValidationFailure records a rejected line edit
func (pm *PaymentMetrics) RecordValidationFailure(ctx context.Context, tenantID uuid.UUID, code string) {
	pm.validationFailures.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrErrorCode.String(code),
	)
}

// RecordConversionFailure records a missing exchange rate
func (pm *PaymentMetrics) RecordConversionFailure(ctx context.Context, from, to string) {
	pm.conversionFailures.Inc(ctx,
		AttrFromCurrency.String(from),
		AttrToCurrency.String(to),
	)
}

// RecordReconciliation records a reconcile attempt and the records it produced
func (pm *PaymentMetrics) RecordReconciliation(ctx context.Context, tenantID uuid.UUID, paymentType, outcome string, records int) {
	pm.reconciliationTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentType.String(paymentType),
		AttrOutcome.String(outcome),
	)
	if records > 0 {
		pm.reconciliationRecords.Add(ctx, int64(records),
			AttrTenantID.String(tenantID.String()),
			AttrPaymentType.String(paymentType),
		)
	}
}

// RecordDraftPayments records the current number of draft payments for a tenant
func (pm *PaymentMetrics) RecordDraftPayments(ctx context.Context, tenantID uuid.UUID, count int64) {
	pm.draftPayments.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// StartPeriodicCollection polls the draft provider every interval until Stop
// or ctx is cancelled. Only the first call starts a collector.
func (pm *PaymentMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	pm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go pm.runPeriodicCollection(ctx, interval)
	})
}

func (pm *PaymentMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.collectDraftPayments(ctx)

	for {
		select {
		case <-pm.stopChan:
			pm.logger.Info("Stopping periodic payment metrics collection")
			return
		case <-ctx.Done():
			pm.logger.Info("Context cancelled, stopping periodic payment metrics collection")
			return
		case <-ticker.C:
			pm.collectDraftPayments(ctx)
		}
	}
}

func (pm *PaymentMetrics) collectDraftPayments(ctx context.Context) {
	if pm.draftProvider == nil {
		pm.logger.Debug("No draft payment provider configured, skipping collection")
		return
	}

	tenantIDs, err := pm.draftProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		pm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		count, err := pm.draftProvider.CountDraftPayments(ctx, tenantID)
		if err != nil {
			pm.logger.Warn("Failed to count draft payments",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		pm.RecordDraftPayments(ctx, tenantID, count)
	}
}

// Stop stops periodic collection. Safe to call more than once.
func (pm *PaymentMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = &MetricsError{Op: "NewPaymentMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
