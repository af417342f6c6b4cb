package domain

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits money carries.
const AmountScale = 2

// ValidAmount reports whether a is strictly positive with at most two
// fractional digits.
func ValidAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.Equal(a.Round(AmountScale))
}
