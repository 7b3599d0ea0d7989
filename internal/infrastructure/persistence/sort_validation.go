package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks sortField against a whitelist, falling back to defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"payment_date": true,
	"amount":       true,
	"reference":    true,
	"state":        true,
}

// ExchangeRateSortFields contains allowed sort fields for exchange rates
var ExchangeRateSortFields = map[string]bool{
	"created_at":     true,
	"effective_date": true,
	"from_currency":  true,
	"to_currency":    true,
}
