package valueobject

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	CNY Currency = "CNY"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	HKD Currency = "HKD"
	KRW Currency = "KRW"
)

// zeroDecimalCurrencies have no minor unit
var zeroDecimalCurrencies = map[Currency]bool{
	JPY: true,
	KRW: true,
}

// ParseCurrency normalizes and validates a three-letter currency code
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	return c, nil
}

// IsValid reports whether c is three ASCII upper-case letters
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

// Precision returns the number of decimal places used by the currency
func (c Currency) Precision() int32 {
	if zeroDecimalCurrencies[c] {
		return 0
	}
	return 2
}

// Round rounds amount half away from zero to the currency precision
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Precision())
}

func (c Currency) String() string {
	return string(c)
}

// Value implements driver.Valuer
func (c Currency) Value() (driver.Value, error) {
	return string(c), nil
}

// Scan implements sql.Scanner
func (c *Currency) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*c = ""
	case string:
		*c = Currency(v)
	case []byte:
		*c = Currency(v)
	default:
		return fmt.Errorf("cannot scan %T into Currency", value)
	}
	return nil
}
