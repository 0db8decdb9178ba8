package money

import "math"

// ApplyPercent computes a commission over an amount expressed in minor
// currency units (cents). The result is rounded half-up so repeated
// computations over the same inputs always agree to the cent.
func ApplyPercent(amount int64, percent float64) int64 {
	if amount == 0 || percent == 0 {
		return 0
	}
	return roundHalfUp(float64(amount) * percent)
}

// Proportional scales base by numerator/denominator, rounding half-up.
// A zero denominator yields 0, which guards refund math on zero-amount
// purchases.
func Proportional(base, numerator, denominator int64) int64 {
	if denominator == 0 || base == 0 || numerator == 0 {
		return 0
	}
	return roundHalfUp(float64(base) * float64(numerator) / float64(denominator))
}

// NormalizePercent accepts both whole-number percentages (20) and decimal
// fractions (0.20) and returns the decimal form. Contracts and coupon
// templates store decimals; the API boundary accepts whole numbers.
func NormalizePercent(value float64) float64 {
	if value > 1 {
		return value / 100
	}
	return value
}

// roundHalfUp matches JavaScript Math.round: halves round toward positive
// infinity, so -0.5 rounds to 0.
func roundHalfUp(value float64) int64 {
	return int64(math.Floor(value + 0.5))
}
