package models

import (
	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is the rupee sign used by the passenger app.
const DefaultCurrencySymbol = "₹"

func init() {
	// Amounts are stored as raw JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// FormatCurrency renders an amount with the symbol and two decimal places.
func FormatCurrency(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}

// RoundHalfUp rounds a non-negative amount to places decimals, halves going up.
func RoundHalfUp(amount decimal.Decimal, places int32) decimal.Decimal {
	// decimal.Round rounds half away from zero, which is half up for amounts >= 0.
	return amount.Round(places)
}
