package catalog

import (
	"math"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// PriceToCents converts a decimal price into integer cents. Negative values and
// more than two fractional digits are rejected, as are amounts whose cents do
// not fit in an int64.
func PriceToCents(price decimal.Decimal) (int64, error) {
	if price.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	cents := price.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimal places")
	}
	if cents.GreaterThan(maxCents) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price is too large")
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents as a fixed two-decimal string.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
