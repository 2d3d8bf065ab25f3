package models

import "github.com/shopspring/decimal"

// PercentOf returns pct% of total rounded to 2 decimal places.
// All derived amounts (advance, commission, milestone payments) go through
// decimal so repeated percentage math never drifts from the stored totals.
func PercentOf(total, pct float64) float64 {
	result := decimal.NewFromFloat(total).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2)
	f, _ := result.Float64()
	return f
}

// Round2 rounds an amount to 2 decimal places.
func Round2(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// AmountGreaterThan reports a > b with money semantics (2dp comparison),
// avoiding float64 representation noise around equality.
func AmountGreaterThan(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).GreaterThan(decimal.NewFromFloat(b).Round(2))
}

// AmountEqual reports a == b at 2 decimal places.
func AmountEqual(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}

// AddAmounts returns a + b rounded to 2 decimal places.
func AddAmounts(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}

// SubAmounts returns a - b rounded to 2 decimal places.
func SubAmounts(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}
