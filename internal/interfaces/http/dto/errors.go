package dto

import (
	"net/http"

	"github.com/erp/payalloc/internal/domain/payment"
)

// Transport-level error codes. Domain failures keep the code carried by the
// domain error so clients can branch on NEGATIVE_ALLOCATION and friends.
const (
	ErrCodeInternal      = "ERR_INTERNAL"
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeTimeout       = "ERR_TIMEOUT"
	ErrCodeBodyTooLarge  = "ERR_BODY_TOO_LARGE"
	ErrCodeMissingTenant = "ERR_MISSING_TENANT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeTimeout:       http.StatusGatewayTimeout,
	ErrCodeBodyTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeMissingTenant: http.StatusBadRequest,

	// Malformed input
	"INVALID_INPUT":                http.StatusBadRequest,
	payment.CodeInvalidAmount:      http.StatusBadRequest,
	payment.CodeInvalidCurrency:    http.StatusBadRequest,
	"INVALID_CURRENCY_PAIR":        http.StatusBadRequest,
	payment.CodeInvalidPaymentType: http.StatusBadRequest,
	payment.CodeInvalidPaymentDate: http.StatusBadRequest,
	payment.CodeInvalidCompany:     http.StatusBadRequest,
	"INVALID_RATE":                 http.StatusBadRequest,
	"INVALID_EFFECTIVE_DATE":       http.StatusBadRequest,
	"INVALID_REFERENCE":            http.StatusBadRequest,

	// Missing resources
	"NOT_FOUND":                 http.StatusNotFound,
	payment.CodePaymentNotFound: http.StatusNotFound,
	payment.CodeLineNotFound:    http.StatusNotFound,
	"INVOICE_NOT_FOUND":         http.StatusNotFound,

	// Conflicts
	"ALREADY_EXISTS":                     http.StatusConflict,
	"CONCURRENCY_CONFLICT":               http.StatusConflict,
	payment.CodeAlreadyReconciled:        http.StatusConflict,
	payment.CodeReconciliationInProgress: http.StatusConflict,
	payment.CodeDuplicateInvoice:         http.StatusConflict,

	// Business rules
	"INVALID_STATE":                       http.StatusUnprocessableEntity,
	"INVOICE_MISMATCH":                    http.StatusUnprocessableEntity,
	payment.CodeNegativeAllocation:        http.StatusUnprocessableEntity,
	payment.CodeAllocationExceedsResidual: http.StatusUnprocessableEntity,
	payment.CodeAllocationExceedsPayment:  http.StatusUnprocessableEntity,
	payment.CodeConversionUnavailable:     http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
