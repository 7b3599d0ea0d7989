package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/payalloc/internal/domain/shared"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
)

// Error codes raised by the payment domain
const (
	CodeNegativeAllocation        = "NEGATIVE_ALLOCATION"
	CodeAllocationExceedsResidual = "ALLOCATION_EXCEEDS_RESIDUAL"
	CodeAllocationExceedsPayment  = "ALLOCATION_EXCEEDS_PAYMENT"
	CodeConversionUnavailable     = "CONVERSION_UNAVAILABLE"
	CodePaymentNotFound           = "PAYMENT_NOT_FOUND"
	CodeLineNotFound              = "LINE_NOT_FOUND"
	CodeAlreadyReconciled         = "ALREADY_RECONCILED"
	CodeReconciliationInProgress  = "RECONCILIATION_IN_PROGRESS"
	CodeInvalidAmount             = "INVALID_AMOUNT"
	CodeInvalidCurrency           = "INVALID_CURRENCY"
	CodeInvalidPaymentType        = "INVALID_PAYMENT_TYPE"
	CodeInvalidPaymentDate        = "INVALID_PAYMENT_DATE"
	CodeInvalidCompany            = "INVALID_COMPANY"
	CodeDuplicateInvoice          = "DUPLICATE_INVOICE"
)

var (
	ErrPaymentNotFound       = shared.NewDomainError(CodePaymentNotFound, "Payment not found")
	ErrLineNotFound          = shared.NewDomainError(CodeLineNotFound, "Allocation line not found")
	ErrConversionUnavailable = shared.NewDomainError(CodeConversionUnavailable, "Currency conversion unavailable")
)

var validationCodes = map[string]bool{
	CodeNegativeAllocation:        true,
	CodeAllocationExceedsResidual: true,
	CodeAllocationExceedsPayment:  true,
}

// IsValidationError reports whether err is one of the allocation validation failures
func IsValidationError(err error) bool {
	return validationCodes[shared.CodeOf(err)]
}

// IsConversionUnavailable reports whether err means no rate could be found
func IsConversionUnavailable(err error) bool {
	return errors.Is(err, ErrConversionUnavailable)
}

// NewConversionUnavailableError builds the fatal error returned when a pair cannot be converted.
// Conversion never silently falls back to a 1:1 rate.
func NewConversionUnavailableError(from, to valueobject.Currency, asOf time.Time, cause error) *shared.DomainError {
	msg := fmt.Sprintf("no exchange rate from %s to %s on %s", from, to, asOf.Format(time.DateOnly))
	if cause == nil {
		return shared.NewDomainError(CodeConversionUnavailable, msg)
	}
	return shared.WrapDomainError(CodeConversionUnavailable, msg, cause)
}
